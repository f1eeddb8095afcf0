package state

import (
	"context"
	"sync"
	"time"

	"lessonplay/internal/telemetry"
)

// writer persists record snapshots on a single goroutine. A newer snapshot
// of a key replaces any pending one, so each drain writes the latest state.
type writer struct {
	kv  KV
	log telemetry.Logger

	mu      sync.Mutex
	pending map[string][]byte
	order   []string

	wake     chan struct{}
	flushReq chan chan struct{}
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newWriter(kv KV, log telemetry.Logger) *writer {
	w := &writer{
		kv:       kv,
		log:      log,
		pending:  map[string][]byte{},
		wake:     make(chan struct{}, 1),
		flushReq: make(chan chan struct{}),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *writer) enqueue(key string, snapshot []byte) {
	select {
	case <-w.quit:
		w.log.Warn("store.write_after_close", map[string]any{"key": key, "bytes": len(snapshot)})
		return
	default:
	}
	w.mu.Lock()
	if _, ok := w.pending[key]; !ok {
		w.order = append(w.order, key)
	}
	w.pending[key] = snapshot
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *writer) run() {
	defer close(w.done)
	for {
		select {
		case <-w.wake:
			w.drain()
		case ch := <-w.flushReq:
			w.drain()
			close(ch)
		case <-w.quit:
			w.drain()
			return
		}
	}
}

func (w *writer) drain() {
	for {
		w.mu.Lock()
		if len(w.order) == 0 {
			w.mu.Unlock()
			return
		}
		key := w.order[0]
		w.order = w.order[1:]
		snapshot := w.pending[key]
		delete(w.pending, key)
		w.mu.Unlock()

		start := time.Now()
		if err := w.kv.Put(context.Background(), key, snapshot); err != nil {
			w.log.Error("store.write_failed", map[string]any{"key": key, "error": err.Error()})
			continue
		}
		w.log.Debug("store.write", map[string]any{"key": key, "bytes": len(snapshot), "ms": time.Since(start).Milliseconds()})
	}
}

// flush returns once every snapshot enqueued before the call is written.
func (w *writer) flush(ctx context.Context) error {
	ch := make(chan struct{})
	select {
	case w.flushReq <- ch:
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *writer) stop(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.quit) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
