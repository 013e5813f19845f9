// Package sweep reconciles metadata with backing storage: it finds records
// whose lifecycle has ended and purges them, bytes before metadata.
package sweep

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/4shil/axium/internal/file/biz"
)

// Result reports one sweep invocation.
type Result struct {
	Scanned int `json:"scanned"`
	Purged  int `json:"purged"`
	Failed  int `json:"failed"`
}

// Sweeper scans for ended records and purges them with bounded
// concurrency. Re-running after a partial failure is safe: only records
// still present are retried.
type Sweeper struct {
	repo    biz.FileRepo
	storage biz.ObjectStorage
	log     *zap.Logger
	batch   int
	workers int
	now     func() time.Time
}

func NewSweeper(repo biz.FileRepo, storage biz.ObjectStorage, log *zap.Logger, batch, workers int) *Sweeper {
	if batch <= 0 {
		batch = 200
	}
	if workers <= 0 {
		workers = 4
	}
	return &Sweeper{
		repo:    repo,
		storage: storage,
		log:     log,
		batch:   batch,
		workers: workers,
		now:     time.Now,
	}
}

// Sweep purges every record that is expired or past its purge-after mark.
// A failure on one record never aborts the rest; failures are counted and
// left in place for the next invocation.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	pool, err := ants.NewPool(s.workers)
	if err != nil {
		return Result{}, err
	}
	defer pool.Release()

	now := s.now()
	var scanned, purged, failed int64

	// Failed records stay in the listing, so remember what this sweep has
	// already touched to terminate instead of retrying in a tight loop.
	seen := make(map[string]struct{})

	for {
		ended, err := s.repo.ListEnded(ctx, now, s.batch)
		if err != nil {
			return s.result(&scanned, &purged, &failed), err
		}

		var wg sync.WaitGroup
		fresh := 0
		for _, f := range ended {
			if _, ok := seen[f.Slug]; ok {
				continue
			}
			seen[f.Slug] = struct{}{}
			fresh++
			atomic.AddInt64(&scanned, 1)

			f := f
			wg.Add(1)
			if err := pool.Submit(func() {
				defer wg.Done()
				s.purgeOne(ctx, f, &purged, &failed)
			}); err != nil {
				wg.Done()
				atomic.AddInt64(&failed, 1)
				s.log.Error("failed to submit purge task",
					zap.String("slug", f.Slug), zap.Error(err))
			}
		}
		wg.Wait()

		if fresh == 0 || len(ended) < s.batch {
			break
		}
	}

	res := s.result(&scanned, &purged, &failed)
	s.log.Info("sweep finished",
		zap.Int("scanned", res.Scanned),
		zap.Int("purged", res.Purged),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

// purgeOne deletes bytes first so a crash leaves a retryable orphaned
// record rather than unreferenced bytes.
func (s *Sweeper) purgeOne(ctx context.Context, f *biz.File, purged, failed *int64) {
	if err := s.storage.DeleteObject(ctx, f.StorageKey); err != nil {
		atomic.AddInt64(failed, 1)
		s.log.Warn("failed to delete object",
			zap.String("slug", f.Slug), zap.String("key", f.StorageKey), zap.Error(err))
		return
	}

	if err := s.repo.Delete(ctx, f.Slug); err != nil {
		atomic.AddInt64(failed, 1)
		s.log.Warn("failed to delete record",
			zap.String("slug", f.Slug), zap.Error(err))
		return
	}

	atomic.AddInt64(purged, 1)
}

func (s *Sweeper) result(scanned, purged, failed *int64) Result {
	return Result{
		Scanned: int(atomic.LoadInt64(scanned)),
		Purged:  int(atomic.LoadInt64(purged)),
		Failed:  int(atomic.LoadInt64(failed)),
	}
}

// Run sweeps on the given interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("sweeper started", zap.Duration("interval", interval))

	for {
		select {
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.log.Error("sweep failed", zap.Error(err))
			}
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return
		}
	}
}
