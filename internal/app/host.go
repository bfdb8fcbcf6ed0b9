package app

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"

	"shopkeep-go/internal/sk"
)

// TerminalHost shows system screens by printing their URL and, when
// Browser is set, opening it in the default browser.
type TerminalHost struct {
	Out     io.Writer
	Browser bool
	Logger  sk.Logger
}

// OpenURL prints url and tries to launch a browser. A browser that fails to
// start is not an error; the printed link still works.
func (h *TerminalHost) OpenURL(ctx context.Context, url string) error {
	if _, err := fmt.Fprintf(h.Out, "Open this link in your browser to continue:\n\n  %s\n\n", url); err != nil {
		return fmt.Errorf("printing url: %w", err)
	}
	if !h.Browser {
		return nil
	}
	if err := browserCommand(ctx, url).Start(); err != nil && h.Logger != nil {
		h.Logger.Warn("opening browser failed", "error", err)
	}
	return nil
}

func browserCommand(ctx context.Context, url string) *exec.Cmd {
	switch runtime.GOOS {
	case "darwin":
		return exec.CommandContext(ctx, "open", url)
	case "windows":
		return exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return exec.CommandContext(ctx, "xdg-open", url)
	}
}

var _ sk.Host = (*TerminalHost)(nil)
