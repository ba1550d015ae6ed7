// Package clipboard copies text to the system clipboard via shell commands.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ErrClipboardUnavailable is returned when no clipboard tool is installed.
var ErrClipboardUnavailable = errors.New("clipboard unavailable")

// Tool is a clipboard command and its arguments.
type Tool struct {
	Name string
	Args []string
}

// tools lists candidate commands per OS, in order of preference.
var tools = map[string][]Tool{
	"darwin": {{Name: "pbcopy"}},
	"linux": {
		{Name: "wl-copy"},
		{Name: "xclip", Args: []string{"-selection", "clipboard"}},
		{Name: "xsel", Args: []string{"--clipboard", "--input"}},
	},
}

// lookPath is replaced in tests.
var lookPath = exec.LookPath

// FindTool returns the first installed clipboard tool for goos.
func FindTool(goos string) (Tool, error) {
	for _, t := range tools[goos] {
		if _, err := lookPath(t.Name); err == nil {
			return t, nil
		}
	}
	return Tool{}, ErrClipboardUnavailable
}

// Copy writes text to the system clipboard.
func Copy(ctx context.Context, text string) error {
	tool, err := FindTool(runtime.GOOS)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, tool.Name, tool.Args...)
	cmd.Stdin = strings.NewReader(text)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running %s: %w", tool.Name, err)
	}
	return nil
}
