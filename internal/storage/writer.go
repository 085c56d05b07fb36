package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const imageWriteTimeout = 10 * time.Second

type imageJob struct {
	key  string
	data []byte
}

// AsyncImageWriter decouples face-crop persistence from the recognition
// loop. Failed or dropped writes cost only the reference image, never the
// identity record, so they are logged and tolerated.
type AsyncImageWriter struct {
	store ImageStore
	jobs  chan imageJob
	done  chan struct{}

	mu     sync.Mutex
	closed bool
}

func NewAsyncImageWriter(store ImageStore, depth int) *AsyncImageWriter {
	if depth <= 0 {
		depth = 16
	}
	w := &AsyncImageWriter{
		store: store,
		jobs:  make(chan imageJob, depth),
		done:  make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *AsyncImageWriter) run() {
	defer close(w.done)
	for job := range w.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), imageWriteTimeout)
		if err := w.store.Save(ctx, job.key, job.data); err != nil {
			slog.Error("face image write failed", "key", job.key, "error", err)
		}
		cancel()
	}
}

// Enqueue schedules an image write. A full queue drops the image rather
// than stalling the caller. Writes after Close are dropped.
func (w *AsyncImageWriter) Enqueue(key string, data []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		slog.Warn("image writer closed, dropping image", "key", key)
		return
	}
	select {
	case w.jobs <- imageJob{key: key, data: data}:
	default:
		slog.Warn("image write queue full, dropping image", "key", key)
	}
}

// Close drains pending writes and stops the worker.
func (w *AsyncImageWriter) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.jobs)
	w.mu.Unlock()
	<-w.done
}
