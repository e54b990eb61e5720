// SPDX-License-Identifier: MIT
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"

	"specview/internal/spectrogram"
)

// Preview draws img as rows lines of cols half-block cells. Each cell shows
// two image rows: the upper one as foreground, the lower as background.
// The image is sampled nearest-neighbour.
func Preview(img *spectrogram.Image, cols, rows int) string {
	if img == nil || img.Width == 0 || img.Height == 0 || cols <= 0 || rows <= 0 {
		return ""
	}

	hex := func(x, y int) lipgloss.Color {
		r, g, b, _ := img.At(x, y)
		c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
		return lipgloss.Color(c.Hex())
	}

	var sb strings.Builder
	for cy := range rows {
		top := (2 * cy) * img.Height / (2 * rows)
		bottom := (2*cy + 1) * img.Height / (2 * rows)
		for cx := range cols {
			x := cx * img.Width / cols
			cell := lipgloss.NewStyle().
				Foreground(hex(x, top)).
				Background(hex(x, bottom))
			sb.WriteString(cell.Render("▀"))
		}
		if cy < rows-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
