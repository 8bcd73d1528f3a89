package process

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCommand is returned when Execute is called with a nil command
	// or one without an executable. It is a caller bug, not an execution failure.
	ErrInvalidCommand = errors.New("invalid command")

	// ErrStart matches every *StartError.
	ErrStart = errors.New("process could not be started")

	// ErrConsumer matches every *ConsumerError.
	ErrConsumer = errors.New("line consumer failed")

	// ErrTimeout matches every *TimeoutError.
	ErrTimeout = errors.New("process timed out")

	// ErrKilled matches every *KilledError.
	ErrKilled = errors.New("process killed")

	// ErrExecution matches every *ExecutionError.
	ErrExecution = errors.New("process execution failed")
)

// StartError reports an executable that could not be located or spawned,
// or a working directory that does not exist.
type StartError struct {
	Command string
	Cause   error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("cannot start %s: %v", e.Command, e.Cause)
}

func (e *StartError) Unwrap() error { return e.Cause }

func (e *StartError) Is(target error) bool { return target == ErrStart }

// ConsumerError wraps the error returned by a LineConsumer. The process was
// terminated when it occurred.
type ConsumerError struct {
	Command string
	Stream  Stream
	Cause   error
}

func (e *ConsumerError) Error() string {
	return fmt.Sprintf("consumer failed on %s of %s: %v", e.Stream, e.Command, e.Cause)
}

func (e *ConsumerError) Unwrap() error { return e.Cause }

func (e *ConsumerError) Is(target error) bool { return target == ErrConsumer }

// TimeoutError reports a process that was still running, or still holding its
// output streams open, when the timeout elapsed. The process group was killed.
type TimeoutError struct {
	Command string
	Limit   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s did not finish within %s", e.Command, e.Limit)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// Timeout reports true, mirroring net.Error.
func (e *TimeoutError) Timeout() bool { return true }

// KilledError reports a process whose context ended before it exited. The
// process group was killed.
type KilledError struct {
	Command string
	Cause   error
}

func (e *KilledError) Error() string {
	return fmt.Sprintf("%s killed: %v", e.Command, e.Cause)
}

func (e *KilledError) Unwrap() error { return e.Cause }

func (e *KilledError) Is(target error) bool { return target == ErrKilled }

// ExecutionError covers failures after a successful start that are neither
// consumer errors nor timeouts: unreadable output streams or a failed wait.
type ExecutionError struct {
	Command string
	Cause   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution of %s failed: %v", e.Command, e.Cause)
}

func (e *ExecutionError) Unwrap() error { return e.Cause }

func (e *ExecutionError) Is(target error) bool { return target == ErrExecution }
