package queue_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/4shil/axium/internal/file/biz"
	"github.com/4shil/axium/internal/file/data"
	"github.com/4shil/axium/internal/file/queue"
)

type nullStorage struct{ deleted []string }

func (s *nullStorage) IssueUploadURL(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	return "https://store.example/upload/" + key, nil
}

func (s *nullStorage) IssueDownloadURL(ctx context.Context, key, filename string, ttl time.Duration) (string, error) {
	return "https://store.example/download/" + key, nil
}

func (s *nullStorage) DeleteObject(ctx context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return nil
}

func TestDrainPurgesDueEntries(t *testing.T) {
	repo := data.NewMemoryFileRepo()
	storage := &nullStorage{}
	pq := data.NewMemoryPurgeQueue()
	uc := biz.NewFileUseCase(repo, storage, pq, biz.Config{PurgeGrace: time.Minute}, zap.NewNop())
	w := queue.NewWorker(pq, uc, zap.NewNop(), time.Second)

	ctx := context.Background()

	err := repo.Create(ctx, &biz.File{
		ID:         "id-1",
		Slug:       "drained-file",
		StorageKey: "uploads/drained-file",
		ExpiresAt:  time.Now().Add(time.Hour),
		CreatedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := pq.Schedule(ctx, "drained-file", time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	if err := pq.Schedule(ctx, "not-yet-due", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}

	w.Drain(ctx)

	if repo.Len() != 0 {
		t.Fatalf("%d records remain, want 0", repo.Len())
	}
	if len(storage.deleted) != 1 || storage.deleted[0] != "uploads/drained-file" {
		t.Fatalf("deleted = %v, want [uploads/drained-file]", storage.deleted)
	}

	due, _ := pq.Due(ctx, time.Now(), 10)
	if len(due) != 0 {
		t.Fatalf("due entries after drain = %v, want none", due)
	}

	// The future entry is untouched.
	later, _ := pq.Due(ctx, time.Now().Add(2*time.Hour), 10)
	if len(later) != 1 || later[0] != "not-yet-due" {
		t.Fatalf("future entries = %v, want [not-yet-due]", later)
	}
}

func TestDrainDropsEntryForAlreadyPurgedRecord(t *testing.T) {
	repo := data.NewMemoryFileRepo()
	storage := &nullStorage{}
	pq := data.NewMemoryPurgeQueue()
	uc := biz.NewFileUseCase(repo, storage, pq, biz.Config{PurgeGrace: time.Minute}, zap.NewNop())
	w := queue.NewWorker(pq, uc, zap.NewNop(), time.Second)

	ctx := context.Background()

	// The sweep already removed the record; only the queue entry is left.
	if err := pq.Schedule(ctx, "swept-elsewhere", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}

	w.Drain(ctx)

	due, _ := pq.Due(ctx, time.Now(), 10)
	if len(due) != 0 {
		t.Fatalf("stale entry not removed: %v", due)
	}
	if len(storage.deleted) != 0 {
		t.Fatalf("unexpected deletions: %v", storage.deleted)
	}
}

func TestWorkerStartStop(t *testing.T) {
	repo := data.NewMemoryFileRepo()
	pq := data.NewMemoryPurgeQueue()
	uc := biz.NewFileUseCase(repo, &nullStorage{}, pq, biz.Config{}, zap.NewNop())
	w := queue.NewWorker(pq, uc, zap.NewNop(), 10*time.Millisecond)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := w.Start(context.Background()); err == nil {
		t.Fatal("second Start() succeeded, want error")
	}

	w.Stop()
	// Stop is idempotent.
	w.Stop()
}
