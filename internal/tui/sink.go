// SPDX-License-Identifier: MIT
package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"specview/internal/scheduler"
	"specview/internal/spectrogram"
)

// ProgramSink forwards scheduler transitions into a running Bubble Tea
// program as messages. Transitions before Attach are dropped.
type ProgramSink struct {
	mu sync.Mutex
	p  *tea.Program
}

var _ scheduler.Sink = (*ProgramSink)(nil)

// Attach sets the program that receives messages.
func (s *ProgramSink) Attach(p *tea.Program) {
	s.mu.Lock()
	s.p = p
	s.mu.Unlock()
}

func (s *ProgramSink) send(msg tea.Msg) {
	s.mu.Lock()
	p := s.p
	s.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func (s *ProgramSink) Loading(generation uint64) {
	s.send(loadingMsg{generation: generation})
}

func (s *ProgramSink) Deliver(generation uint64, img *spectrogram.Image) {
	s.send(deliveredMsg{generation: generation, image: img})
}

func (s *ProgramSink) Fail(generation uint64, err error) {
	s.send(failedMsg{generation: generation, err: err})
}

// Run starts the browser full screen and blocks until the user quits.
func Run(browser Browser, sink *ProgramSink) error {
	p := tea.NewProgram(browser, tea.WithAltScreen())
	sink.Attach(p)
	_, err := p.Run()
	sink.Attach(nil)
	return err
}
