package recorder

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"multicam-logger/pkg/buffer"
)

const DefaultWriterSleep = 10 * time.Millisecond

type WriterState int32

const (
	WriterIdle WriterState = iota
	WriterRunning
	WriterDraining
	WriterDone
)

func (s WriterState) String() string {
	switch s {
	case WriterIdle:
		return "idle"
	case WriterRunning:
		return "running"
	case WriterDraining:
		return "draining"
	case WriterDone:
		return "done"
	}
	return "unknown"
}

// writer is the single consumer of one queue. Every sleep interval it
// writes what was queued at wake-up; once stop is closed it writes until
// the queue is empty and finishes. A failed write is logged and dropped.
type writer[T any] struct {
	name  string
	queue *buffer.Queue[T]
	write func(T) error
	sleep time.Duration
	log   *zap.SugaredLogger

	state   atomic.Int32
	written atomic.Int64
	failed  atomic.Int64
}

func newWriter[T any](name string, q *buffer.Queue[T], sleep time.Duration,
	write func(T) error, log *zap.SugaredLogger) *writer[T] {
	if sleep <= 0 {
		sleep = DefaultWriterSleep
	}
	return &writer[T]{name: name, queue: q, write: write, sleep: sleep, log: log}
}

// run blocks until the queue is drained after stop is closed. No producer
// may push once stop is closed.
func (w *writer[T]) run(stop <-chan struct{}) {
	w.state.Store(int32(WriterRunning))
	ticker := time.NewTicker(w.sleep)
	defer ticker.Stop()

running:
	for {
		select {
		case <-stop:
			break running
		case <-ticker.C:
			w.flush(w.queue.Len())
		}
	}

	w.state.Store(int32(WriterDraining))
	for n := w.queue.Len(); n > 0; n = w.queue.Len() {
		w.flush(n)
	}
	w.state.Store(int32(WriterDone))
	w.log.Debugf("%s writer done, written %d, failed %d", w.name, w.written.Load(), w.failed.Load())
}

func (w *writer[T]) flush(n int) {
	for _, item := range w.queue.DrainUpTo(n) {
		if err := w.write(item); err != nil {
			w.failed.Add(1)
			w.log.Warnf("%s writer: %v", w.name, err)
			continue
		}
		w.written.Add(1)
	}
}

func (w *writer[T]) State() WriterState {
	return WriterState(w.state.Load())
}
