package slogger

import (
	"io"
	"sync"
)

// AsyncLogger decouples log-line production from the (possibly slow) sink
// write, the way the mount tool's own async logger insulates request paths
// from file-rotation stalls. Writes are queued on a bounded channel and
// drained by a single goroutine in submission order; Close drains the
// remaining queue and closes the underlying writer if it implements
// io.Closer.
type AsyncLogger struct {
	sink    io.Writer
	entries chan []byte
	done    chan struct{}
	closeMu sync.Mutex
	closed  bool
}

// NewAsyncLogger starts the drain goroutine immediately; bufferSize bounds
// how many in-flight writes may queue before Write blocks.
func NewAsyncLogger(sink io.Writer, bufferSize int) *AsyncLogger {
	al := &AsyncLogger{
		sink:    sink,
		entries: make(chan []byte, bufferSize),
		done:    make(chan struct{}),
	}
	go al.run()
	return al
}

func (al *AsyncLogger) run() {
	defer close(al.done)
	for entry := range al.entries {
		al.sink.Write(entry)
	}
}

// Write queues a copy of p for the drain goroutine; it never blocks the
// caller beyond channel backpressure and never returns a partial-write
// error since the actual write happens asynchronously.
func (al *AsyncLogger) Write(p []byte) (int, error) {
	cp := make([]byte, len(p))
	copy(cp, p)
	al.entries <- cp
	return len(p), nil
}

// Close stops accepting writes, waits for the queue to drain, and closes
// the underlying sink if possible.
func (al *AsyncLogger) Close() error {
	al.closeMu.Lock()
	if al.closed {
		al.closeMu.Unlock()
		return nil
	}
	al.closed = true
	al.closeMu.Unlock()

	close(al.entries)
	<-al.done

	if closer, ok := al.sink.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
