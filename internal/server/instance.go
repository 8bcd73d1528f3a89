package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"orchestrator/internal/command"
	"orchestrator/internal/process"
	"orchestrator/internal/readiness"
	"orchestrator/internal/version"
	"orchestrator/pkg/logging"
)

const subsystem = "Server"

const (
	DefaultPollInterval  = 500 * time.Millisecond
	DefaultStartAttempts = 120
	DefaultStopAttempts  = 60
)

var (
	// ErrExitedEarly is returned by Start when the process exits before the
	// ready marker appears.
	ErrExitedEarly = errors.New("server exited before becoming ready")

	// ErrAlreadyStarted is returned by Start on an instance that was started before.
	ErrAlreadyStarted = errors.New("server already started")

	// ErrNotRunning is returned by Stop on an instance that was never started.
	ErrNotRunning = errors.New("server not running")

	// ErrKilled is returned by Stop when the server did not shut down within
	// its stop budget, or ctx ended first, and its process group was killed.
	ErrKilled = errors.New("server killed")
)

// State of an Instance.
type State int

const (
	NotStarted State = iota
	Starting
	Running
	Stopping
	Stopped
	Failed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "NotStarted"
	case Starting:
		return "Starting"
	case Running:
		return "Running"
	case Stopping:
		return "Stopping"
	case Stopped:
		return "Stopped"
	case Failed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config describes a supervised server.
type Config struct {
	// Name is used in log lines.
	Name string

	// Command starts the server. It is expected to keep running until asked
	// to stop.
	Command *command.Command

	// ReadyMarker is created by the server once it accepts work.
	ReadyMarker string

	// StopRequestMarker is created by Stop to ask the server to shut down.
	StopRequestMarker string

	// StoppedMarker is created by the server when shutdown is complete.
	// When empty Stop only waits for the process to exit.
	StoppedMarker string

	PollInterval  time.Duration
	StartAttempts int

	// StopAttempts bounds the wait for the stopped marker. The same budget,
	// StopAttempts times PollInterval, bounds the wait for the process to
	// exit afterwards. Past it the process group is killed.
	StopAttempts int

	// ProcessTimeout bounds the whole life of the process. Zero means no limit.
	ProcessTimeout time.Duration

	// WatchMarkers wakes the marker polls on file system events.
	WatchMarkers bool

	// Version of the server, if known. Used for feature gating.
	Version string

	// Output receives every line the server writes, in addition to the
	// captured logs.
	Output process.LineConsumer
}

func (c *Config) applyDefaults() {
	if c.Name == "" && c.Command != nil {
		c.Name = filepath.Base(c.Command.Executable())
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.StartAttempts <= 0 {
		c.StartAttempts = DefaultStartAttempts
	}
	if c.StopAttempts <= 0 {
		c.StopAttempts = DefaultStopAttempts
	}
}

func (c *Config) validate() error {
	if c.Command == nil {
		return errors.New("server: command is required")
	}
	if err := c.Command.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if c.ReadyMarker == "" {
		return errors.New("server: ready marker is required")
	}
	if c.StopRequestMarker == "" {
		return errors.New("server: stop request marker is required")
	}
	return nil
}

// Logs holds the output captured from a server.
type Logs struct {
	Stdout   string
	Stderr   string
	Combined string
}

// Instance supervises one run of a server process.
type Instance struct {
	id       string
	cfg      Config
	version  *version.Version
	executor *process.Executor
	recorder *process.LineRecorder

	mu       sync.Mutex
	state    State
	done     chan struct{}
	kill     context.CancelFunc
	exitCode int
	exitErr  error
}

// New validates cfg and creates an Instance. Nothing is started yet.
func New(cfg Config) (*Instance, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	inst := &Instance{
		id:       uuid.NewString(),
		cfg:      cfg,
		executor: process.NewExecutor(process.WithSubsystem(subsystem)),
		recorder: &process.LineRecorder{},
		exitCode: -1,
	}

	if cfg.Version != "" {
		v, err := version.Parse(cfg.Version)
		if err != nil {
			return nil, fmt.Errorf("server: %w", err)
		}
		inst.version = &v
	}
	return inst, nil
}

// ID returns the unique id of this instance.
func (i *Instance) ID() string { return i.id }

// Name returns the configured name.
func (i *Instance) Name() string { return i.cfg.Name }

// State returns the current state.
func (i *Instance) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

func (i *Instance) setState(s State) {
	i.mu.Lock()
	i.state = s
	i.mu.Unlock()
}

// Version returns the configured server version, if any.
func (i *Instance) Version() (version.Version, bool) {
	if i.version == nil {
		return version.Version{}, false
	}
	return *i.version, true
}

// Supports reports whether the server version is at least major.minor. An
// instance without a version supports nothing.
func (i *Instance) Supports(major, minor int) bool {
	return i.version != nil && i.version.IsAtLeast(major, minor)
}

// Start launches the process and blocks until the ready marker exists.
//
// If the process exits without creating the marker, the error wraps
// ErrExitedEarly. A process that created the marker and exited before the
// next check counts as started; Done is then already closed. If the marker
// never appears the error matches readiness.ErrNotReady and the process is
// left running; call Stop or Kill to shut it down.
func (i *Instance) Start(ctx context.Context) error {
	i.mu.Lock()
	if i.state != NotStarted {
		i.mu.Unlock()
		return ErrAlreadyStarted
	}
	runCtx, kill := context.WithCancel(context.Background())
	i.state = Starting
	i.done = make(chan struct{})
	i.kill = kill
	i.mu.Unlock()

	for _, marker := range []string{i.cfg.ReadyMarker, i.cfg.StopRequestMarker, i.cfg.StoppedMarker} {
		if err := removeStale(marker); err != nil {
			kill()
			i.setState(Failed)
			close(i.done)
			return err
		}
	}

	logging.Info(subsystem, "Starting %s (instance %s): %s", i.cfg.Name, i.id, i.cfg.Command)
	startedAt := time.Now()

	consumer := process.MultiConsumer(
		i.recorder,
		&process.LogConsumer{Subsystem: subsystem, Name: i.cfg.Name},
		i.cfg.Output,
	)
	go i.run(runCtx, consumer)

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-i.done:
			cancel()
		case <-waitCtx.Done():
		}
	}()

	err := readiness.WaitForReady(waitCtx, i.cfg.ReadyMarker, i.cfg.PollInterval, i.cfg.StartAttempts, i.readinessOptions()...)
	if err == nil {
		i.setState(Running)
		logging.Info(subsystem, "%s is ready after %s", i.cfg.Name, time.Since(startedAt).Round(time.Millisecond))
		return nil
	}

	select {
	case <-i.done:
		if fileExists(i.cfg.ReadyMarker) {
			i.setState(Stopped)
			logging.Info(subsystem, "%s became ready and exited before the next check", i.cfg.Name)
			return nil
		}
		code, runErr := i.result()
		i.setState(Failed)
		if runErr != nil {
			return fmt.Errorf("%w: %s: %w", ErrExitedEarly, i.cfg.Name, runErr)
		}
		return fmt.Errorf("%w: %s exited with code %d", ErrExitedEarly, i.cfg.Name, code)
	default:
	}

	logging.Error(subsystem, err, "%s did not become ready", i.cfg.Name)
	return err
}

func (i *Instance) run(ctx context.Context, consumer process.LineConsumer) {
	code, err := i.executor.ExecuteContext(ctx, i.cfg.Command, consumer, i.cfg.ProcessTimeout)

	i.mu.Lock()
	i.kill()
	i.exitCode = code
	i.exitErr = err
	if i.state == Running {
		i.state = Stopped
	}
	i.mu.Unlock()

	if err != nil {
		logging.Warn(subsystem, "%s ended: %v", i.cfg.Name, err)
	} else {
		logging.Info(subsystem, "%s exited with code %d", i.cfg.Name, code)
	}
	close(i.done)
}

func (i *Instance) readinessOptions() []readiness.Option {
	if i.cfg.WatchMarkers {
		return []readiness.Option{readiness.WithWatch()}
	}
	return nil
}

// Stop asks the server to shut down by creating the stop request marker,
// waits for the stopped marker and then for the process to exit.
//
// When the stopped marker does not appear, the process outlives the stop
// budget or ctx ends, the process group is killed and the error wraps
// ErrKilled together with the cause.
func (i *Instance) Stop(ctx context.Context) error {
	done, err := i.beginStop()
	if err != nil {
		return err
	}

	select {
	case <-done:
		logging.Debug(subsystem, "%s already exited", i.cfg.Name)
		return nil
	default:
	}

	logging.Info(subsystem, "Stopping %s", i.cfg.Name)
	if err := touch(i.cfg.StopRequestMarker); err != nil {
		return i.hardStop(done, fmt.Errorf("requesting stop: %w", err))
	}

	if i.cfg.StoppedMarker != "" {
		waitCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			select {
			case <-done:
				cancel()
			case <-waitCtx.Done():
			}
		}()

		err := readiness.WaitForStop(waitCtx, i.cfg.StoppedMarker, i.cfg.PollInterval, i.cfg.StopAttempts, i.readinessOptions()...)
		if err != nil && !isClosed(done) {
			return i.hardStop(done, err)
		}
	}

	timer := time.NewTimer(i.stopBudget())
	defer timer.Stop()
	select {
	case <-done:
	case <-ctx.Done():
		return i.hardStop(done, ctx.Err())
	case <-timer.C:
		return i.hardStop(done, fmt.Errorf("still running %s after the stop request", i.stopBudget()))
	}

	i.setState(Stopped)
	logging.Info(subsystem, "%s stopped", i.cfg.Name)
	return nil
}

// Kill terminates the process group without the stop request handshake and
// waits for the process to exit.
func (i *Instance) Kill(ctx context.Context) error {
	done, err := i.beginStop()
	if err != nil {
		return err
	}

	i.mu.Lock()
	kill := i.kill
	i.mu.Unlock()
	kill()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	i.setState(Stopped)
	logging.Info(subsystem, "%s killed", i.cfg.Name)
	return nil
}

func (i *Instance) beginStop() (<-chan struct{}, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state == NotStarted {
		return nil, ErrNotRunning
	}
	if i.state == Starting || i.state == Running {
		i.state = Stopping
	}
	return i.done, nil
}

// hardStop kills the process group and waits for the executor to reap it.
func (i *Instance) hardStop(done <-chan struct{}, cause error) error {
	logging.Warn(subsystem, "%s did not stop, killing it: %v", i.cfg.Name, cause)

	i.mu.Lock()
	kill := i.kill
	i.mu.Unlock()
	kill()
	<-done

	i.setState(Stopped)
	return fmt.Errorf("%w: %s: %w", ErrKilled, i.cfg.Name, cause)
}

func (i *Instance) stopBudget() time.Duration {
	return time.Duration(i.cfg.StopAttempts) * i.cfg.PollInterval
}

// Wait blocks until the process has exited and returns its result.
func (i *Instance) Wait(ctx context.Context) (int, error) {
	i.mu.Lock()
	done := i.done
	i.mu.Unlock()
	if done == nil {
		return -1, ErrNotRunning
	}

	select {
	case <-done:
		return i.result()
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}

// Done is closed when the process has exited. It is nil before Start.
func (i *Instance) Done() <-chan struct{} {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.done
}

func (i *Instance) result() (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.exitCode, i.exitErr
}

// Logs returns the output captured so far.
func (i *Instance) Logs() Logs {
	var combined strings.Builder
	for _, l := range i.recorder.Lines() {
		combined.WriteString(l.Text)
		combined.WriteByte('\n')
	}
	return Logs{
		Stdout:   i.recorder.Text(process.Stdout),
		Stderr:   i.recorder.Text(process.Stderr),
		Combined: combined.String(),
	}
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func removeStale(marker string) error {
	if marker == "" {
		return nil
	}
	if err := os.Remove(marker); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("server: removing stale marker %s: %w", marker, err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func touch(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}
