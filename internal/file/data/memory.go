package data

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/4shil/axium/internal/file/biz"
)

// MemoryFileRepo is an in-memory biz.FileRepo with the same per-record
// atomicity contract as the PostgreSQL repo. It backs tests and local
// development without a database.
type MemoryFileRepo struct {
	mu    sync.Mutex
	files map[string]*biz.File
}

func NewMemoryFileRepo() *MemoryFileRepo {
	return &MemoryFileRepo{files: make(map[string]*biz.File)}
}

func (r *MemoryFileRepo) Create(ctx context.Context, f *biz.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.files[f.Slug]; ok {
		return biz.ErrSlugTaken
	}

	clone := *f
	r.files[f.Slug] = &clone
	return nil
}

func (r *MemoryFileRepo) GetBySlug(ctx context.Context, slug string) (*biz.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.files[slug]
	if !ok {
		return nil, biz.ErrNotFound
	}

	clone := *f
	return &clone, nil
}

func (r *MemoryFileRepo) ConsumeDownload(ctx context.Context, slug string, now, purgeAfter time.Time) (*biz.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.files[slug]
	if !ok {
		return nil, biz.ErrNotFound
	}

	// Same guard as the SQL repo: live and under both ceilings.
	if f.Expired(now) || f.Exhausted() {
		return nil, biz.ErrConsumeDenied
	}

	f.DownloadCount++
	if f.Exhausted() {
		at := purgeAfter
		f.PurgeAfter = &at
	}

	clone := *f
	return &clone, nil
}

func (r *MemoryFileRepo) Delete(ctx context.Context, slug string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.files, slug)
	return nil
}

func (r *MemoryFileRepo) ListEnded(ctx context.Context, now time.Time, limit int) ([]*biz.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ended []*biz.File
	for _, f := range r.files {
		purgeDue := f.PurgeAfter != nil && !now.Before(*f.PurgeAfter)
		if f.Expired(now) || purgeDue {
			clone := *f
			ended = append(ended, &clone)
		}
	}

	sort.Slice(ended, func(i, j int) bool {
		return ended[i].ExpiresAt.Before(ended[j].ExpiresAt)
	})

	if limit > 0 && len(ended) > limit {
		ended = ended[:limit]
	}
	return ended, nil
}

// Len reports the number of live records.
func (r *MemoryFileRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.files)
}

// MemoryPurgeQueue is an in-memory biz.PurgeQueue for tests.
type MemoryPurgeQueue struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func NewMemoryPurgeQueue() *MemoryPurgeQueue {
	return &MemoryPurgeQueue{entries: make(map[string]time.Time)}
}

func (q *MemoryPurgeQueue) Schedule(ctx context.Context, slug string, at time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries[slug] = at
	return nil
}

func (q *MemoryPurgeQueue) Due(ctx context.Context, now time.Time, limit int) ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []string
	for slug, at := range q.entries {
		if !now.Before(at) {
			due = append(due, slug)
		}
	}
	sort.Strings(due)

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (q *MemoryPurgeQueue) Remove(ctx context.Context, slug string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.entries, slug)
	return nil
}
