package process

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"orchestrator/pkg/logging"
)

// Stream identifies which output stream of the child a line came from.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	switch s {
	case Stdout:
		return "stdout"
	case Stderr:
		return "stderr"
	default:
		return "unknown"
	}
}

// LineConsumer receives the child's output one line at a time, without the
// trailing newline. The executor never calls ConsumeLine concurrently, so
// implementations need no locking of their own. Returning an error aborts the
// execution and kills the process.
type LineConsumer interface {
	ConsumeLine(stream Stream, line string) error
}

// LineConsumerFunc adapts a function to LineConsumer.
type LineConsumerFunc func(stream Stream, line string) error

func (f LineConsumerFunc) ConsumeLine(stream Stream, line string) error {
	return f(stream, line)
}

// Discard drops every line.
var Discard LineConsumer = LineConsumerFunc(func(Stream, string) error { return nil })

// Line is one captured output line.
type Line struct {
	Stream Stream
	Text   string
}

// LineRecorder keeps every line it receives. It is safe to read from while an
// execution is still writing to it.
type LineRecorder struct {
	mu    sync.RWMutex
	lines []Line
}

func (r *LineRecorder) ConsumeLine(stream Stream, line string) error {
	r.mu.Lock()
	r.lines = append(r.lines, Line{Stream: stream, Text: line})
	r.mu.Unlock()
	return nil
}

// Lines returns every line in arrival order.
func (r *LineRecorder) Lines() []Line {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Line(nil), r.lines...)
}

// Stdout returns the text of the stdout lines in order.
func (r *LineRecorder) Stdout() []string { return r.stream(Stdout) }

// Stderr returns the text of the stderr lines in order.
func (r *LineRecorder) Stderr() []string { return r.stream(Stderr) }

func (r *LineRecorder) stream(s Stream) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for _, l := range r.lines {
		if l.Stream == s {
			out = append(out, l.Text)
		}
	}
	return out
}

// Text joins the lines of stream s with newlines, each line terminated.
func (r *LineRecorder) Text(s Stream) string {
	lines := r.stream(s)
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// WriterConsumer copies lines to Out and Err, adding Prefix and a newline.
// A nil writer drops that stream.
type WriterConsumer struct {
	Out    io.Writer
	Err    io.Writer
	Prefix string
}

func (w *WriterConsumer) ConsumeLine(stream Stream, line string) error {
	dst := w.Out
	if stream == Stderr {
		dst = w.Err
	}
	if dst == nil {
		return nil
	}
	_, err := fmt.Fprintf(dst, "%s%s\n", w.Prefix, line)
	return err
}

// LogConsumer forwards lines to the logging package at debug level.
type LogConsumer struct {
	Subsystem string
	Name      string
}

func (l *LogConsumer) ConsumeLine(stream Stream, line string) error {
	subsystem := l.Subsystem
	if subsystem == "" {
		subsystem = defaultSubsystem
	}
	logging.Debug(subsystem, "[%s %s] %s", l.Name, stream, line)
	return nil
}

// MultiConsumer hands each line to every consumer in order and stops at the
// first error.
func MultiConsumer(consumers ...LineConsumer) LineConsumer {
	return LineConsumerFunc(func(stream Stream, line string) error {
		for _, c := range consumers {
			if c == nil {
				continue
			}
			if err := c.ConsumeLine(stream, line); err != nil {
				return err
			}
		}
		return nil
	})
}

// lineSink serializes delivery from the two stream readers and stops
// delivering once a consumer has failed.
type lineSink struct {
	mu       sync.Mutex
	consumer LineConsumer
	failed   bool
}

func (s *lineSink) deliver(stream Stream, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed {
		return nil
	}
	if err := s.consumer.ConsumeLine(stream, line); err != nil {
		s.failed = true
		return err
	}
	return nil
}
