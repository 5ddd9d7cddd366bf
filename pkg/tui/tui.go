// Package tui renders the payphone in a terminal: a dial pad pane with the
// handset animation, an address book, and the live call transcript.
package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harunnryd/payfone/pkg/animator"
	"github.com/harunnryd/payfone/pkg/call"
	"github.com/harunnryd/payfone/pkg/directory"
)

type Options struct {
	Orchestrator *call.Orchestrator
	Directory    *directory.Directory
	DialAnim     *animator.Animator
	BookAnim     *animator.Animator
}

type TUI struct {
	opts    Options
	program *tea.Program
}

func New(opts Options) *TUI {
	return &TUI{opts: opts}
}

// Run starts the program and blocks until it exits. Orchestrator events and
// animation frames are forwarded into the update loop with Program.Send.
func (t *TUI) Run(ctx context.Context) error {
	model := NewModel(t.opts.Orchestrator, t.opts.Directory, t.opts.DialAnim, t.opts.BookAnim)
	t.program = tea.NewProgram(model, tea.WithAltScreen())

	t.opts.Orchestrator.AddListener(call.ListenerFunc(func(ev call.Event) {
		t.program.Send(CallEventMsg{Event: ev})
	}))
	if t.opts.DialAnim != nil {
		t.opts.DialAnim.OnFrame(func(int) { t.program.Send(FrameMsg{}) })
	}
	if t.opts.BookAnim != nil {
		t.opts.BookAnim.OnFrame(func(int) { t.program.Send(FrameMsg{}) })
	}

	go func() {
		<-ctx.Done()
		t.program.Quit()
	}()

	if _, err := t.program.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}
