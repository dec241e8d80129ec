// ABOUTME: Launches the configured agent command when a webhook event is queued
// ABOUTME: Detached subprocess per event; launch failures never fail the webhook

package bridge

import (
	"log/slog"
	"os/exec"
)

// Trigger starts the agent entry point as a detached subprocess. Each
// accepted webhook fires one launch; the process is reaped in the
// background and its exit status only logged.
type Trigger struct {
	command []string
	dir     string
	logger  *slog.Logger
}

// NewTrigger creates a trigger for the given command. Returns nil when the
// command is empty, so callers can pass the result straight into
// ServerConfig.
func NewTrigger(command []string, dir string, logger *slog.Logger) *Trigger {
	if len(command) == 0 {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Trigger{
		command: command,
		dir:     dir,
		logger:  logger.With("component", "trigger"),
	}
}

// Fire launches one instance of the trigger command.
func (t *Trigger) Fire() {
	cmd := exec.Command(t.command[0], t.command[1:]...)
	cmd.Dir = t.dir

	if err := cmd.Start(); err != nil {
		t.logger.Error("failed to start trigger command",
			"command", t.command[0],
			"error", err)
		return
	}

	t.logger.Info("triggered agent process", "command", t.command[0], "pid", cmd.Process.Pid)

	go func() {
		if err := cmd.Wait(); err != nil {
			t.logger.Warn("trigger command exited with error", "error", err)
		}
	}()
}
