// SPDX-License-Identifier: MIT

// Package tui is the interactive file browser. Selecting a file decodes it
// and submits a new spectrogram request; results stream back through
// ProgramSink.
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"specview/internal/decode"
	"specview/internal/scheduler"
	"specview/internal/spectrogram"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F56"))
)

// Submitter is the part of the scheduler the browser drives.
type Submitter interface {
	Submit(buf *spectrogram.SampleBuffer, opts spectrogram.Options) (uint64, error)
}

// OptionsFunc builds analysis options for a file's sample rate.
type OptionsFunc func(sampleRate float64) spectrogram.Options

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Reload key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k")),
	Down:   key.NewBinding(key.WithKeys("down", "j")),
	Select: key.NewBinding(key.WithKeys("enter")),
	Reload: key.NewBinding(key.WithKeys("r")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c")),
}

// --- Messages ---

type filesMsg struct {
	files []string
}

type errMsg struct {
	err error
}

type submittedMsg struct {
	generation uint64
	name       string
}

type loadingMsg struct {
	generation uint64
}

type deliveredMsg struct {
	generation uint64
	image      *spectrogram.Image
}

type failedMsg struct {
	generation uint64
	err        error
}

// previewRows is the height of the spectrogram preview in terminal lines.
const previewRows = 12

// Browser is the Bubble Tea model listing audio files in one directory.
type Browser struct {
	dir     string
	submit  Submitter
	options OptionsFunc

	files    []string
	selected int
	viewport viewport.Model
	ready    bool
	width    int

	state      scheduler.State
	generation uint64
	names      map[uint64]string
	image      *spectrogram.Image
	imageGen   uint64
	err        error
}

// NewBrowser creates a browser over dir.
func NewBrowser(dir string, submit Submitter, options OptionsFunc) Browser {
	return Browser{
		dir:     dir,
		submit:  submit,
		options: options,
		names:   make(map[uint64]string),
	}
}

// Init implements tea.Model.
func (m Browser) Init() tea.Cmd {
	return m.scan
}

func (m Browser) scan() tea.Msg {
	files, err := ScanDir(m.dir)
	if err != nil {
		return errMsg{err}
	}
	return filesMsg{files}
}

// ScanDir returns the names of decodable files directly inside dir, sorted.
func ScanDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && decode.Supported(e.Name()) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// analyse decodes the file and submits it. It runs as a tea.Cmd, off the
// event loop; an inline computation blocks only this command.
func (m Browser) analyse(name string) tea.Cmd {
	path := filepath.Join(m.dir, name)
	submit, options := m.submit, m.options

	return func() tea.Msg {
		a, err := decode.File(path)
		if err != nil {
			return errMsg{err}
		}
		gen, err := submit.Submit(a.Buffer(), options(float64(a.SampleRate)))
		if err != nil {
			return errMsg{err}
		}
		return submittedMsg{generation: gen, name: name}
	}
}

// Update implements tea.Model.
func (m Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		listHeight := max(msg.Height-previewRows-8, 3)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, listHeight)
			m.viewport.Style = lipgloss.NewStyle()
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = listHeight
		}
		m.viewport.SetContent(m.renderFiles())

	case filesMsg:
		m.files = msg.files
		m.selected = min(m.selected, max(len(m.files)-1, 0))
		m.viewport.SetContent(m.renderFiles())

	case errMsg:
		m.err = msg.err

	case submittedMsg:
		m.names[msg.generation] = msg.name

	case loadingMsg:
		m.generation = msg.generation
		m.state = scheduler.Computing
		m.err = nil

	case deliveredMsg:
		if msg.generation >= m.generation {
			m.generation = msg.generation
			m.state = scheduler.Delivered
			m.image = msg.image
			m.imageGen = msg.generation
		}

	case failedMsg:
		if msg.generation >= m.generation {
			m.generation = msg.generation
			m.state = scheduler.Failed
			m.err = msg.err
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, keys.Up):
			if m.selected > 0 {
				m.selected--
				m.viewport.SetContent(m.renderFiles())
			}

		case key.Matches(msg, keys.Down):
			if m.selected < len(m.files)-1 {
				m.selected++
				m.viewport.SetContent(m.renderFiles())
			}

		case key.Matches(msg, keys.Select):
			if len(m.files) > 0 {
				cmds = append(cmds, m.analyse(m.files[m.selected]))
			}

		case key.Matches(msg, keys.Reload):
			cmds = append(cmds, m.scan)
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Browser) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Spectrogram Browser: " + m.dir))
	sb.WriteString("\n\n")
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n\n")
	sb.WriteString(m.renderStatus())
	sb.WriteString("\n")

	if m.image != nil {
		sb.WriteString(Preview(m.image, max(m.width, 1), previewRows))
		sb.WriteString("\n")
	}

	sb.WriteString(infoStyle.Render("↑/↓: Navigate • Enter: Analyse • r: Rescan • q: Quit"))
	return sb.String()
}

func (m Browser) renderFiles() string {
	if len(m.files) == 0 {
		return fmt.Sprintf("No audio files (%s) found.", strings.Join(decode.Extensions(), ", "))
	}

	var sb strings.Builder
	for i, name := range m.files {
		line := "  " + name
		if i == m.selected {
			line = highlightStyle.Render("▶ " + name)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Browser) renderStatus() string {
	var status string
	switch m.state {
	case scheduler.Idle:
		status = "Select a file to analyse."
	case scheduler.Computing:
		status = fmt.Sprintf("Computing spectrogram (generation %d)...", m.generation)
	case scheduler.Delivered:
		img := m.image
		status = fmt.Sprintf("%s: %d frames x %d bins, %.1fs, 0-%.0f Hz",
			m.names[m.imageGen], img.Width, img.Height, img.Duration, img.MaxFrequency)
	case scheduler.Failed:
		status = "Analysis failed."
	}

	if m.err != nil {
		status += " " + errorStyle.Render(m.err.Error())
	}
	return status
}
