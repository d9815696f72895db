package inspector

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/tdorsey/corruptvideofileinspector/internal/model"
	"github.com/tdorsey/corruptvideofileinspector/internal/obslog"
	"github.com/tdorsey/corruptvideofileinspector/internal/procgroup"
	"github.com/tdorsey/corruptvideofileinspector/internal/scanerr"
)

// terminationGrace is how long the Driver waits after sending a terminate
// signal to the child process group before escalating to a kill signal.
const terminationGrace = 3 * time.Second

// DriverOutcome is the raw result of one Inspector invocation, handed to
// the Classifier unmodified.
type DriverOutcome struct {
	ExitCode int
	Stderr   string
	Elapsed  time.Duration
	TimedOut bool
}

// Driver launches the external inspector binary and captures its outcome.
// It never returns an error for a non-zero exit code — that is information
// for the Classifier, not a Driver failure.
type Driver struct {
	// BinaryPath is the resolved inspector path, or "ffmpeg" to resolve
	// from PATH at exec time.
	BinaryPath string
}

// NewDriver builds a Driver. An empty binaryPath defers resolution to
// exec.LookPath via exec.Command's own PATH search.
func NewDriver(binaryPath string) *Driver {
	if binaryPath == "" {
		binaryPath = "ffmpeg"
	}
	return &Driver{BinaryPath: binaryPath}
}

// Run executes the inspector for one job. timeout of zero means no bound
// (used for ScanModeFull). Returns a DriverError only when the process
// could not be launched or its stderr could not be read; a timeout or a
// non-zero exit is reported inside DriverOutcome instead.
func (d *Driver) Run(ctx context.Context, cmd InspectorCommand, timeout time.Duration) (DriverOutcome, error) {
	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	execCmd := exec.Command(d.BinaryPath, cmd.Args...) //nolint:gosec // inspector path and args are operator-configured
	procgroup.Set(execCmd)

	stderrPipe, err := execCmd.StderrPipe()
	if err != nil {
		return DriverOutcome{}, scanerr.New(scanerr.KindDriver, "failed to open stderr pipe", err)
	}
	execCmd.Stdout = nil // discarded; ignored per contract

	start := time.Now()
	if err := execCmd.Start(); err != nil {
		return DriverOutcome{}, scanerr.New(scanerr.KindDriver, "failed to launch inspector", err)
	}

	// Wait closes the stderr pipe once the process exits, so stderr is read
	// to EOF before Wait is called.
	stderrCh := make(chan string, 1)
	waitCh := make(chan error, 1)
	go func() {
		stderrCh <- captureStderr(stderrPipe)
		waitCh <- execCmd.Wait()
	}()

	var waitErr error
	timedOut := false

	select {
	case waitErr = <-waitCh:
	case <-runCtx.Done():
		timedOut = true
		terminate(execCmd)
		waitErr = <-waitCh
	}

	elapsed := time.Since(start)
	stderrText := <-stderrCh

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else if !timedOut {
			return DriverOutcome{}, scanerr.New(scanerr.KindDriver, "inspector process failed", waitErr)
		}
	}

	return DriverOutcome{
		ExitCode: exitCode,
		Stderr:   stderrText,
		Elapsed:  elapsed,
		TimedOut: timedOut,
	}, nil
}

// terminate sends SIGTERM to the whole process group, then escalates to
// SIGKILL if the process is still alive after terminationGrace.
func terminate(cmd *exec.Cmd) {
	if err := procgroup.Terminate(cmd); err != nil {
		obslog.Log.Debug().Err(err).Msg("terminate signal failed, process may have already exited")
	}

	done := make(chan struct{})
	go func() {
		_, _ = cmd.Process.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(terminationGrace):
		if err := procgroup.Kill(cmd); err != nil {
			obslog.Log.Debug().Err(err).Msg("kill signal failed, process may have already exited")
		}
	}
}

// captureStderr reads stderr to completion and returns it as a single
// string. Reading a pipe to EOF (even on a killed process) never blocks
// indefinitely since the pipe closes when the process exits.
func captureStderr(r io.Reader) string {
	var b strings.Builder
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		b.WriteString(scanner.Text())
		b.WriteByte('\n')
	}
	return b.String()
}
