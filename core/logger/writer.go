package logger

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"
)

var errWriterClosed = errors.New("logger: writer closed")

// output is a named log destination such as stdout or a file path.
type output struct {
	name string
	w    io.Writer
}

type sink struct {
	name string
	buf  *bufio.Writer
}

// lineWriter hands log lines to its sinks from one goroutine. Sinks are
// flushed whenever the queue runs dry, on Flush and on Close. A sink that
// fails is detached and its error kept; the other sinks keep receiving.
type lineWriter struct {
	lines   chan []byte
	flushes chan chan error
	stopped chan struct{}

	closeMu sync.RWMutex
	closed  bool

	mu    sync.Mutex
	sinks []sink
	errs  []error
}

func newLineWriter(outputs []output, bufSize int) *lineWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	w := &lineWriter{
		lines:   make(chan []byte, 256),
		flushes: make(chan chan error),
		stopped: make(chan struct{}),
	}
	for _, out := range outputs {
		if out.w == nil {
			continue
		}
		w.sinks = append(w.sinks, sink{name: out.name, buf: bufio.NewWriterSize(out.w, bufSize)})
	}
	go w.run()
	return w
}

func (w *lineWriter) run() {
	defer close(w.stopped)
	for {
		select {
		case line, ok := <-w.lines:
			if !ok {
				w.flushSinks()
				return
			}
			w.writeLine(line)
			if len(w.lines) == 0 {
				w.flushSinks()
			}
		case ack := <-w.flushes:
			w.drain()
			w.flushSinks()
			ack <- w.Err()
		}
	}
}

// drain writes whatever is already queued without waiting for more.
func (w *lineWriter) drain() {
	for {
		select {
		case line, ok := <-w.lines:
			if !ok {
				return
			}
			w.writeLine(line)
		default:
			return
		}
	}
}

// Write queues a copy of p. It blocks while the queue is full and fails only
// once the writer is closed.
func (w *lineWriter) Write(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	line := append([]byte(nil), p...)

	w.closeMu.RLock()
	defer w.closeMu.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	w.lines <- line
	return nil
}

// Flush waits until every line written so far has reached the sinks and
// returns the failures of detached sinks.
func (w *lineWriter) Flush() error {
	ack := make(chan error, 1)
	select {
	case w.flushes <- ack:
		return <-ack
	case <-w.stopped:
		return w.Err()
	}
}

// Close drains the queue, stops the writer and returns every sink failure.
func (w *lineWriter) Close() error {
	w.closeMu.Lock()
	if !w.closed {
		w.closed = true
		close(w.lines)
	}
	w.closeMu.Unlock()
	<-w.stopped
	return w.Err()
}

// Err joins the failures of detached sinks.
func (w *lineWriter) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return errors.Join(w.errs...)
}

func (w *lineWriter) writeLine(line []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sinks = w.keepSinks(func(s sink) error {
		_, err := s.buf.Write(line)
		return err
	})
}

func (w *lineWriter) flushSinks() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sinks = w.keepSinks(func(s sink) error { return s.buf.Flush() })
}

// keepSinks applies fn to every sink and detaches the ones that fail.
// Callers hold w.mu.
func (w *lineWriter) keepSinks(fn func(sink) error) []sink {
	live := w.sinks[:0]
	for _, s := range w.sinks {
		if err := fn(s); err != nil {
			w.errs = append(w.errs, fmt.Errorf("logger: sink %s: %w", s.name, err))
			continue
		}
		live = append(live, s)
	}
	return live
}
