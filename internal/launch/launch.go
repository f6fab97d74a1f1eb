package launch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/fgrehm/vscode-search-provider/internal/flavor"
	"github.com/fgrehm/vscode-search-provider/internal/workspace"
)

// LaunchError reports a launch request that could not be issued.
type LaunchError struct {
	Flavor string
	Target string
	Err    error
}

func (e *LaunchError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("launching %s: %v", e.Flavor, e.Err)
	}
	return fmt.Sprintf("launching %s for %s: %v", e.Flavor, e.Target, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// Launcher starts a program. Implementations return once the start request
// was issued; they do not wait for the program to become ready.
type Launcher interface {
	Launch(ctx context.Context, argv []string) error
}

// ExecLauncher starts programs as detached child processes.
type ExecLauncher struct {
	logger *slog.Logger
}

// NewExecLauncher creates an ExecLauncher.
func NewExecLauncher(logger *slog.Logger) *ExecLauncher {
	return &ExecLauncher{logger: logger}
}

// Launch starts argv in its own session and reaps it in the background.
// The context only bounds the start itself; the child outlives it.
func (l *ExecLauncher) Launch(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return errors.New("empty command")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := exec.LookPath(argv[0])
	if err != nil {
		return err
	}

	cmd := exec.Command(path, argv[1:]...)
	detach(cmd)
	if err := cmd.Start(); err != nil {
		return err
	}

	pid := cmd.Process.Pid
	l.logger.Debug("started", "cmd", argv[0], "args", argv[1:], "pid", pid)
	go func() {
		if err := cmd.Wait(); err != nil {
			l.logger.Debug("launched process exited", "pid", pid, "error", err)
		}
	}()
	return nil
}

// Dispatcher turns activated records into launch requests.
type Dispatcher struct {
	launcher Launcher
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher that launches through l.
func NewDispatcher(l Launcher, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{launcher: l, logger: logger}
}

// Activate opens r in its flavor.
func (d *Dispatcher) Activate(ctx context.Context, r workspace.Record) error {
	argv, err := Expand(r.Flavor.Exec, r)
	if err != nil {
		return &LaunchError{Flavor: r.Flavor.ID, Target: r.URI, Err: err}
	}

	d.logger.Info("launching workspace", "flavor", r.Flavor.ID, "uri", r.URI)
	if err := d.launcher.Launch(ctx, argv); err != nil {
		d.logger.Error("failed to launch workspace", "flavor", r.Flavor.ID, "uri", r.URI, "error", err)
		return &LaunchError{Flavor: r.Flavor.ID, Target: r.URI, Err: err}
	}
	return nil
}

// LaunchApp starts the flavor's editor without opening a workspace.
func (d *Dispatcher) LaunchApp(ctx context.Context, f flavor.Flavor) error {
	program, err := Program(f.Exec)
	if err != nil {
		return &LaunchError{Flavor: f.ID, Err: err}
	}

	d.logger.Info("launching app", "flavor", f.ID)
	if err := d.launcher.Launch(ctx, []string{program}); err != nil {
		d.logger.Error("failed to launch app", "flavor", f.ID, "error", err)
		return &LaunchError{Flavor: f.ID, Err: err}
	}
	return nil
}
