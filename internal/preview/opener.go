package preview

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/garyellow/school-records-go/internal/ctxutil"
)

// FileOpener hands a file to whatever the desktop uses to show it.
type FileOpener interface {
	Open(ctx context.Context, path string) error
}

// SystemOpener launches the platform default handler, or Command when set.
type SystemOpener struct {
	Command string
}

var _ FileOpener = SystemOpener{}

// Open starts the handler and returns without waiting for the viewer to exit.
// The viewer outlives ctx: the turn that asked for it ends right after.
func (o SystemOpener) Open(ctx context.Context, path string) error {
	name, args := o.command(path)
	cmd := exec.CommandContext(ctxutil.PreserveTracing(ctx), name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s with %s: %w", path, name, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

func (o SystemOpener) command(path string) (string, []string) {
	if c := strings.Fields(o.Command); len(c) > 0 {
		return c[0], append(c[1:], path)
	}
	switch runtime.GOOS {
	case "windows":
		return "cmd", []string{"/c", "start", "", path}
	case "darwin":
		return "open", []string{path}
	default:
		return "xdg-open", []string{path}
	}
}
