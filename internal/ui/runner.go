package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"shopkeep-go/internal/sk"
)

// ErrInterrupted is returned by Run when the user quit the status view.
var ErrInterrupted = errors.New("interrupted")

// Runner shows the state of one operation at a time. It is also an
// io.Writer: text written while the status view runs is printed above it.
type Runner struct {
	out         io.Writer
	interactive bool

	mu      sync.Mutex
	program *tea.Program
}

// NewRunner creates a Runner writing to out. interactive selects the
// spinner view; otherwise each state change is printed as a line.
func NewRunner(out io.Writer, interactive bool) *Runner {
	return &Runner{out: out, interactive: interactive}
}

// Write prints p, routing it through the status view when one is running.
func (r *Runner) Write(p []byte) (int, error) {
	r.mu.Lock()
	prog := r.program
	r.mu.Unlock()

	if prog == nil {
		return r.out.Write(p)
	}
	prog.Println(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// Run calls fn while rendering the states published on stream.
func (r *Runner) Run(ctx context.Context, stream *sk.StateStream, fn func(context.Context) error) error {
	if r.interactive {
		return r.runInteractive(ctx, stream, fn)
	}
	return r.runPlain(ctx, stream, fn)
}

func (r *Runner) runPlain(ctx context.Context, stream *sk.StateStream, fn func(context.Context) error) error {
	ch, cancel := stream.Subscribe()
	initial := stream.Current()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		var last string
		first := true
		for st := range ch {
			// The subscription starts with whatever was current.
			if first && st == initial {
				first = false
				continue
			}
			first = false
			line := Line(st)
			if line == "" || line == last {
				continue
			}
			last = line
			fmt.Fprintln(r.out, line)
		}
	}()

	err := fn(ctx)
	cancel()
	wg.Wait()
	return err
}

func (r *Runner) runInteractive(ctx context.Context, stream *sk.StateStream, fn func(context.Context) error) error {
	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	prog := tea.NewProgram(NewModel(), tea.WithOutput(r.out), tea.WithContext(runCtx))
	r.mu.Lock()
	r.program = prog
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.program = nil
		r.mu.Unlock()
	}()

	ch, cancel := stream.Subscribe()
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for st := range ch {
			prog.Send(stateMsg(st))
		}
	}()

	result := make(chan error, 1)
	go func() {
		err := fn(runCtx)
		cancel()
		<-forwarded
		prog.Send(doneMsg{})
		result <- err
	}()

	final, runErr := prog.Run()
	interrupted := false
	if m, ok := final.(Model); ok {
		interrupted = m.Interrupted()
	}
	if interrupted {
		stop()
	}

	err := <-result
	switch {
	case interrupted:
		return ErrInterrupted
	case err != nil:
		return err
	case runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled):
		return fmt.Errorf("status view: %w", runErr)
	}
	return nil
}
