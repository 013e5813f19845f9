// Package queue drains the deferred purge queue: slugs whose grace delay
// has elapsed after a limit-reaching download are purged promptly instead
// of waiting for the next full sweep.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/4shil/axium/internal/file/biz"
)

const drainBatch = 100

// Worker polls the purge queue and purges due records. The sweep remains
// authoritative; the worker only shortens the ended-to-purged window.
type Worker struct {
	queue    biz.PurgeQueue
	uc       *biz.FileUseCase
	log      *zap.Logger
	interval time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func NewWorker(queue biz.PurgeQueue, uc *biz.FileUseCase, log *zap.Logger, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Worker{
		queue:    queue,
		uc:       uc,
		log:      log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("purge worker already running")
	}
	w.running = true

	w.wg.Add(1)
	go w.loop(ctx)

	w.log.Info("purge worker started", zap.Duration("interval", w.interval))
	return nil
}

func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	w.running = false

	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("purge worker stopped")
}

func (w *Worker) loop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.Drain(ctx)
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Drain purges every queue entry that is due. Entries whose record is
// already gone are dropped; entries whose purge failed stay queued and are
// retried on the next poll.
func (w *Worker) Drain(ctx context.Context) {
	due, err := w.queue.Due(ctx, time.Now(), drainBatch)
	if err != nil {
		w.log.Error("failed to read purge queue", zap.Error(err))
		return
	}

	for _, slug := range due {
		if err := w.uc.PurgeBySlug(ctx, slug); err != nil {
			w.log.Warn("deferred purge failed",
				zap.String("slug", slug), zap.Error(err))
			continue
		}

		if err := w.queue.Remove(ctx, slug); err != nil {
			w.log.Warn("failed to remove purge queue entry",
				zap.String("slug", slug), zap.Error(err))
		}
	}
}
