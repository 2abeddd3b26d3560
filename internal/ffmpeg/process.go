// Package ffmpeg runs the capture commands behind the camera and the
// microphone. Callers build the full argument list; a Process only starts the
// command, exposes its stdout as an io.Reader and stops it again.
//
// A command that dies during the start window is reported as ErrEarlyExit
// with the tail of its stderr, so a missing device shows up as a failed Open
// rather than as an empty stream. Only the last 4 KiB of stderr are kept.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// DefaultCommand is the binary run when no command is configured.
const DefaultCommand = "ffmpeg"

const (
	defaultStartWindow = 250 * time.Millisecond
	stopGrace          = 1200 * time.Millisecond
	stderrLimit        = 4 << 10
)

// ErrEarlyExit is returned by Start when the command exits inside the start
// window.
var ErrEarlyExit = errors.New("exited before capture started")

// Process is a running capture command. Read returns its stdout.
type Process struct {
	name   string
	stdout io.ReadCloser
	stderr *tailWriter
	proc   *os.Process
	exited <-chan error

	stopOnce sync.Once
	stopErr  error
}

// Start launches command with args and waits for the start window.
func Start(ctx context.Context, command string, args []string) (*Process, error) {
	return start(ctx, command, args, defaultStartWindow)
}

func start(ctx context.Context, command string, args []string, window time.Duration) (*Process, error) {
	if command == "" {
		command = DefaultCommand
	}

	stderr := &tailWriter{limit: stderrLimit}
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("creating %s stdout pipe: %w", command, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", command, err)
	}

	exited := make(chan error, 1)
	go func() {
		exited <- cmd.Wait()
		close(exited)
	}()

	timer := time.NewTimer(window)
	defer timer.Stop()

	select {
	case err := <-exited:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("starting %s: %w", command, ctxErr)
		}
		if err != nil {
			return nil, fmt.Errorf("%s %w: %w: %s", command, ErrEarlyExit, err, stderr.String())
		}
		return nil, fmt.Errorf("%s %w", command, ErrEarlyExit)
	case <-ctx.Done():
		// CommandContext kills the process; reap it before returning.
		<-exited
		return nil, fmt.Errorf("starting %s: %w", command, ctx.Err())
	case <-timer.C:
	}

	return &Process{
		name:   command,
		stdout: stdout,
		stderr: stderr,
		proc:   cmd.Process,
		exited: exited,
	}, nil
}

func (p *Process) Read(b []byte) (int, error) {
	return p.stdout.Read(b)
}

// Close is Stop.
func (p *Process) Close() error {
	return p.Stop()
}

// Stop interrupts the process and kills it if it is still running after the
// grace period. Later calls return the first result.
func (p *Process) Stop() error {
	p.stopOnce.Do(func() {
		p.stopErr = p.stop()
	})
	return p.stopErr
}

func (p *Process) stop() error {
	_ = p.proc.Signal(os.Interrupt)

	grace := time.NewTimer(stopGrace)
	defer grace.Stop()

	var waitErr error
	select {
	case waitErr = <-p.exited:
	case <-grace.C:
		_ = p.proc.Kill()
		waitErr = <-p.exited
	}

	err := ignoreExitStatus(waitErr)
	if closeErr := p.stdout.Close(); err == nil && closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
		err = closeErr
	}
	if err != nil {
		if tail := p.stderr.String(); tail != "" {
			return fmt.Errorf("stopping %s: %w: %s", p.name, err, tail)
		}
		return fmt.Errorf("stopping %s: %w", p.name, err)
	}
	return nil
}

// ignoreExitStatus drops exit statuses; an interrupted capture exits non-zero.
func ignoreExitStatus(err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

// tailWriter keeps the last limit bytes written to it.
type tailWriter struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (w *tailWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := len(b)
	if n >= w.limit {
		w.buf = append(w.buf[:0], b[n-w.limit:]...)
		return n, nil
	}
	if over := len(w.buf) + n - w.limit; over > 0 {
		w.buf = append(w.buf[:0], w.buf[over:]...)
	}
	w.buf = append(w.buf, b...)
	return n, nil
}

// String returns the retained output with surrounding whitespace removed.
func (w *tailWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return strings.TrimSpace(string(w.buf))
}
