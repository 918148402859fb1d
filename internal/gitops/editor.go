package gitops

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
)

// CommandEditor opens a directory by invoking a configured editor command
// with the path as its sole argument (e.g. "code", "zed", "subl").
type CommandEditor struct {
	command string
	logger  *slog.Logger
}

func NewCommandEditor(command string, logger *slog.Logger) *CommandEditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandEditor{command: command, logger: logger}
}

// Open launches the editor detached; it does not wait for the editor to
// exit, only for the launch itself to succeed.
func (e *CommandEditor) Open(ctx context.Context, path string) error {
	if e.command == "" {
		return fmt.Errorf("no editor command configured")
	}
	cmd := exec.CommandContext(ctx, e.command, path)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launching %s: %w", e.command, err)
	}
	e.logger.Info("editor launched", "command", e.command, "path", path)
	go func() {
		// Reap the process; the exit status of a GUI launcher is not
		// actionable here.
		_ = cmd.Wait()
	}()
	return nil
}
