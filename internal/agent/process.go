package agent

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
)

// ProcessRunner launches the agent CLI as a subprocess. The run spec is
// written to stdin as one JSON document; events stream back as JSON lines on
// stdout. Unrecognized event shapes are quarantined with a log line and
// dropped before they reach the engine.
type ProcessRunner struct {
	command []string
	logger  *slog.Logger
}

// NewProcessRunner creates a runner for the given agent command line.
func NewProcessRunner(command []string, logger *slog.Logger) (*ProcessRunner, error) {
	if len(command) == 0 {
		return nil, errors.New("agent command is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessRunner{command: command, logger: logger}, nil
}

// StartRun spawns the agent process and streams its decoded events.
func (r *ProcessRunner) StartRun(ctx context.Context, spec RunSpec) (<-chan Event, error) {
	cmd := exec.CommandContext(ctx, r.command[0], r.command[1:]...)
	cmd.Dir = spec.WorkingDir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("agent stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("agent stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting agent: %w", err)
	}

	go func() {
		defer stdin.Close()
		if err := json.NewEncoder(stdin).Encode(spec); err != nil {
			r.logger.Error("writing run spec to agent", "error", err)
		}
	}()

	events := make(chan Event)
	go func() {
		defer close(events)
		defer func() {
			if err := cmd.Wait(); err != nil && ctx.Err() == nil {
				r.logger.Warn("agent process exited", "error", err)
			}
		}()

		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			ev, err := DecodeEvent(line)
			if err != nil {
				r.logger.Warn("quarantined agent event", "error", err)
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			r.logger.Warn("agent stream read failed", "error", err)
		}
	}()

	return events, nil
}
