package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"shopkeep-go/internal/sk"
)

func TestModel_View(t *testing.T) {
	tests := []struct {
		name  string
		state sk.State
		want  string
	}{
		{
			name:  "busy shows status",
			state: sk.State{Busy: true, Phase: sk.PhaseTransferring, StatusText: "Uploading backup..."},
			want:  "Uploading backup...",
		},
		{
			name:  "failure shows error",
			state: sk.State{Phase: sk.PhaseFailure, StatusText: "Failed", Error: "Backup failed: quota exceeded"},
			want:  "Backup failed: quota exceeded",
		},
		{
			name:  "success",
			state: sk.State{Phase: sk.PhaseSuccess, Success: true, StatusText: "Backup completed successfully"},
			want:  "Backup completed successfully",
		},
		{
			name:  "awaiting consent",
			state: sk.State{Phase: sk.PhaseAwaitingUserResolution, StatusText: "Permission required"},
			want:  "Permission required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updated, _ := NewModel().Update(stateMsg(tt.state))
			if got := updated.View(); !strings.Contains(got, tt.want) {
				t.Errorf("View() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestModel_Quit(t *testing.T) {
	t.Run("done", func(t *testing.T) {
		updated, cmd := NewModel().Update(doneMsg{})
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if updated.(Model).Interrupted() {
			t.Error("done reported as interrupted")
		}
	})

	t.Run("ctrl+c", func(t *testing.T) {
		updated, cmd := NewModel().Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if !updated.(Model).Interrupted() {
			t.Error("ctrl+c not reported as interrupted")
		}
	})

	t.Run("other keys ignored", func(t *testing.T) {
		_, cmd := NewModel().Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
		if cmd != nil {
			t.Error("unexpected command for an ordinary key")
		}
	})
}

func TestLine(t *testing.T) {
	if got := Line(sk.State{Phase: sk.PhaseFailure, Error: "Restore failed: boom"}); got != "error: Restore failed: boom" {
		t.Errorf("Line(failure) = %q", got)
	}
	if got := Line(sk.State{Phase: sk.PhaseNotFound, StatusText: "No backup found"}); got != "No backup found" {
		t.Errorf("Line(not found) = %q", got)
	}
}

func TestRunner_Plain(t *testing.T) {
	var buf bytes.Buffer
	r := NewRunner(&buf, false)
	stream := sk.NewStateStream()

	err := r.Run(context.Background(), stream, func(context.Context) error {
		stream.Set(sk.State{Busy: true, Phase: sk.PhaseCheckingAuth, StatusText: "Checking authentication..."})
		stream.Set(sk.State{Phase: sk.PhaseSuccess, Success: true, StatusText: "Backup completed successfully"})
		return nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := buf.String()
	if !strings.HasSuffix(got, "Backup completed successfully\n") {
		t.Errorf("output = %q, want it to end with the final status", got)
	}
	if strings.Contains(got, "Idle") {
		t.Errorf("output = %q, includes the state from before the run", got)
	}
}

func TestRunner_PlainReturnsError(t *testing.T) {
	r := NewRunner(&bytes.Buffer{}, false)
	want := errors.New("boom")
	if err := r.Run(context.Background(), sk.NewStateStream(), func(context.Context) error { return want }); !errors.Is(err, want) {
		t.Errorf("Run() error = %v, want %v", err, want)
	}
}

func TestRunner_WriteWithoutProgram(t *testing.T) {
	var buf bytes.Buffer
	r := NewRunner(&buf, true)
	if _, err := r.Write([]byte("https://example.com/consent\n")); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "https://example.com/consent\n" {
		t.Errorf("output = %q", buf.String())
	}
}
