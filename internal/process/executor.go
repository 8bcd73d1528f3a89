package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"orchestrator/internal/command"
	"orchestrator/pkg/logging"
)

const defaultSubsystem = "Executor"

// maxLineSize bounds a single output line. Longer lines fail the execution.
const maxLineSize = 1024 * 1024

// Executor runs commands to completion. The zero value is ready to use and an
// Executor may be shared by goroutines; every call owns its own process and
// readers.
type Executor struct {
	subsystem string
}

// Option configures an Executor.
type Option func(*Executor)

// WithSubsystem sets the logging subsystem used for lifecycle messages.
func WithSubsystem(name string) Option {
	return func(e *Executor) {
		e.subsystem = name
	}
}

// NewExecutor creates an Executor.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) logSubsystem() string {
	if e == nil || e.subsystem == "" {
		return defaultSubsystem
	}
	return e.subsystem
}

// Execute runs c, discarding its output. See ExecuteWithConsumer.
func (e *Executor) Execute(c *command.Command, timeout time.Duration) (int, error) {
	return e.ExecuteWithConsumer(c, nil, timeout)
}

// ExecuteWithConsumer runs c and blocks until it exits, the consumer fails or
// timeout elapses. A timeout of zero or less means no limit.
//
// Every stdout and stderr line is handed to consumer before the call returns.
// The exit code is returned as-is; a non-zero code is not an error. Errors
// match ErrInvalidCommand, ErrStart, ErrConsumer, ErrTimeout or ErrExecution.
// When the process is killed the returned code is -1.
func (e *Executor) ExecuteWithConsumer(c *command.Command, consumer LineConsumer, timeout time.Duration) (int, error) {
	return e.ExecuteContext(context.Background(), c, consumer, timeout)
}

// ExecuteContext is ExecuteWithConsumer with a kill switch: when ctx ends
// before the process exits, the process group is killed and the error
// matches ErrKilled. It is meant for supervisors that own a long-running
// child; plain command runs use ExecuteWithConsumer.
func (e *Executor) ExecuteContext(ctx context.Context, c *command.Command, consumer LineConsumer, timeout time.Duration) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c == nil {
		return -1, fmt.Errorf("%w: command is nil", ErrInvalidCommand)
	}
	if err := c.Validate(); err != nil {
		return -1, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	if consumer == nil {
		consumer = Discard
	}

	r := &run{
		id:        uuid.NewString(),
		subsystem: e.logSubsystem(),
		display:   c.String(),
		spec:      c.Build(),
		sink:      &lineSink{consumer: consumer},
		timeout:   timeout,
	}
	return r.execute(ctx)
}

// run holds the state of one execution.
type run struct {
	id        string
	subsystem string
	display   string
	spec      command.Spec
	sink      *lineSink
	timeout   time.Duration
}

func (r *run) startError(cause error) error {
	logging.Error(r.subsystem, cause, "Execution %s: cannot start %s", r.id, r.display)
	return &StartError{Command: r.display, Cause: cause}
}

func (r *run) execute(parent context.Context) (int, error) {
	if r.spec.Dir != "" {
		info, err := os.Stat(r.spec.Dir)
		if err != nil {
			return -1, r.startError(fmt.Errorf("working directory: %w", err))
		}
		if !info.IsDir() {
			return -1, r.startError(fmt.Errorf("working directory %s is not a directory", r.spec.Dir))
		}
	}

	cmd := exec.Command(r.spec.Executable, r.spec.Args...)
	if cmd.Err != nil {
		return -1, r.startError(cmd.Err)
	}
	cmd.Dir = r.spec.Dir
	cmd.Env = r.spec.Env
	if err := configureProcAttr(cmd); err != nil {
		return -1, r.startError(err)
	}

	// Plain OS pipes keep cmd.Wait independent of the readers, so waiting and
	// draining can run side by side.
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return -1, r.startError(fmt.Errorf("stdout pipe: %w", err))
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		stdoutR.Close()
		stdoutW.Close()
		return -1, r.startError(fmt.Errorf("stderr pipe: %w", err))
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	startedAt := time.Now()
	if err := cmd.Start(); err != nil {
		stdoutR.Close()
		stdoutW.Close()
		stderrR.Close()
		stderrW.Close()
		return -1, r.startError(err)
	}
	// The child holds its own copies of the write ends.
	stdoutW.Close()
	stderrW.Close()

	logging.Info(r.subsystem, "Execution %s: started %s (pid %d)", r.id, r.display, cmd.Process.Pid)

	var ctx context.Context
	var cancel context.CancelFunc
	if r.timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, r.timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	var work sync.WaitGroup
	work.Add(3)
	finished := make(chan struct{})
	go func() {
		work.Wait()
		close(finished)
	}()

	g.Go(func() error {
		defer work.Done()
		return r.drain(gctx, stdoutR, Stdout)
	})
	g.Go(func() error {
		defer work.Done()
		return r.drain(gctx, stderrR, Stderr)
	})

	var waitErr error
	g.Go(func() error {
		defer work.Done()
		waitErr = cmd.Wait()
		return nil
	})

	var killed atomic.Bool
	g.Go(func() error {
		select {
		case <-finished:
			return nil
		case <-gctx.Done():
		}
		select {
		case <-finished:
			return nil
		default:
		}
		killed.Store(true)
		if err := terminate(cmd); err != nil {
			logging.Warn(r.subsystem, "Execution %s: failed to kill pid %d: %v", r.id, cmd.Process.Pid, err)
		}
		// Unblocks readers stuck on pipes that a leftover grandchild keeps open.
		stdoutR.Close()
		stderrR.Close()
		return nil
	})

	groupErr := g.Wait()
	stdoutR.Close()
	stderrR.Close()
	elapsed := time.Since(startedAt)

	if groupErr != nil {
		var consumerErr *ConsumerError
		if errors.As(groupErr, &consumerErr) {
			logging.Error(r.subsystem, consumerErr.Cause, "Execution %s: consumer failed, %s terminated", r.id, r.display)
			return -1, consumerErr
		}
		logging.Error(r.subsystem, groupErr, "Execution %s: %s failed", r.id, r.display)
		return -1, &ExecutionError{Command: r.display, Cause: groupErr}
	}

	if killed.Load() && parent.Err() != nil {
		logging.Warn(r.subsystem, "Execution %s: %s killed: %v", r.id, r.display, parent.Err())
		return -1, &KilledError{Command: r.display, Cause: parent.Err()}
	}

	if killed.Load() && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		logging.Error(r.subsystem, nil, "Execution %s: %s killed after %s timeout", r.id, r.display, r.timeout)
		return -1, &TimeoutError{Command: r.display, Limit: r.timeout}
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return -1, &ExecutionError{Command: r.display, Cause: waitErr}
		}
	}

	code := cmd.ProcessState.ExitCode()
	logging.Info(r.subsystem, "Execution %s: %s exited with code %d after %s", r.id, r.display, code, elapsed.Round(time.Millisecond))
	return code, nil
}

// drain reads lines from rd until EOF. Read errors caused by the watchdog
// closing the pipe are not failures.
func (r *run) drain(ctx context.Context, rd io.Reader, stream Stream) error {
	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if err := r.sink.deliver(stream, scanner.Text()); err != nil {
			return &ConsumerError{Command: r.display, Stream: stream, Cause: err}
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil || errors.Is(err, os.ErrClosed) {
			return nil
		}
		return fmt.Errorf("read %s: %w", stream, err)
	}
	return nil
}
