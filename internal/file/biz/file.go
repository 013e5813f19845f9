package biz

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// File is the authoritative record of one ephemeral object. Only
// DownloadCount and PurgeAfter change after creation; everything else is
// immutable for the record's lifetime.
type File struct {
	ID              string
	Slug            string
	StorageKey      string
	OriginalName    string
	Size            int64
	MimeType        string
	ExpiresAt       time.Time
	PasswordHash    string
	OneTimeDownload bool
	MaxDownloads    int
	DownloadCount   int
	PurgeAfter      *time.Time
	CreatedAt       time.Time
}

// EffectiveLimit returns the download ceiling, treating one-time as a
// ceiling of one regardless of MaxDownloads. Zero means unlimited.
func (f *File) EffectiveLimit() int {
	if f.OneTimeDownload {
		return 1
	}
	return f.MaxDownloads
}

// Expired reports whether the record is past its expiry time.
func (f *File) Expired(now time.Time) bool {
	return now.After(f.ExpiresAt)
}

// Exhausted reports whether the consumption limit has been reached.
func (f *File) Exhausted() bool {
	limit := f.EffectiveLimit()
	return limit > 0 && f.DownloadCount >= limit
}

// Ended reports whether the record's lifecycle is over and it is eligible
// for purging once any grace delay has elapsed.
func (f *File) Ended(now time.Time) bool {
	return f.Expired(now) || f.Exhausted()
}

// FileRepo is the metadata store contract. Implementations must provide
// per-record atomicity: Create is a conditional put on the slug, and
// ConsumeDownload is a single conditional read-check-increment.
type FileRepo interface {
	// Create persists a new record. Returns ErrSlugTaken when a live
	// record already holds the slug.
	Create(ctx context.Context, f *File) error

	// GetBySlug returns the record or ErrNotFound.
	GetBySlug(ctx context.Context, slug string) (*File, error)

	// ConsumeDownload atomically increments the download counter if and
	// only if the record exists, is not expired at now, and is under both
	// the one-time and max-download ceilings. When the increment reaches
	// the ceiling, purgeAfter is persisted in the same operation. Returns
	// the post-increment record, ErrNotFound when no record holds the
	// slug, or ErrConsumeDenied when the guard refused the increment.
	ConsumeDownload(ctx context.Context, slug string, now, purgeAfter time.Time) (*File, error)

	// Delete removes the record. Deleting an absent slug is not an error.
	Delete(ctx context.Context, slug string) error

	// ListEnded returns up to limit records whose lifecycle has ended:
	// expired at now, or exhausted with a purge-after mark at or before now.
	ListEnded(ctx context.Context, now time.Time, limit int) ([]*File, error)
}

// ObjectStorage is the byte-store delegate. The engine never touches file
// bytes itself; clients transfer directly against short-lived signed URLs.
type ObjectStorage interface {
	IssueUploadURL(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	IssueDownloadURL(ctx context.Context, key, filename string, ttl time.Duration) (string, error)

	// DeleteObject removes the backing bytes. Deleting an absent key is
	// not an error.
	DeleteObject(ctx context.Context, key string) error
}

// PurgeQueue schedules deferred purges. The queue is an acceleration layer
// only: the persisted purge-after mark keeps the sweep authoritative, so a
// lost queue entry delays a purge but never drops it.
type PurgeQueue interface {
	Schedule(ctx context.Context, slug string, at time.Time) error
	Due(ctx context.Context, now time.Time, limit int) ([]string, error)
	Remove(ctx context.Context, slug string) error
}

// Config bounds the upload contract and the purge grace delay.
type Config struct {
	MaxFileSize    int64
	ExpiryMinutes  []int
	UploadURLTTL   time.Duration
	DownloadURLTTL time.Duration
	PurgeGrace     time.Duration
}

// FileUseCase implements the lifecycle engine: upload negotiation, the
// access gate, and record purging.
type FileUseCase struct {
	repo    FileRepo
	storage ObjectStorage
	queue   PurgeQueue
	cfg     Config
	log     *zap.Logger
	now     func() time.Time
}

// NewFileUseCase wires the engine. queue may be nil; scheduling then falls
// back entirely on the sweep picking up the persisted purge-after mark.
func NewFileUseCase(repo FileRepo, storage ObjectStorage, queue PurgeQueue, cfg Config, log *zap.Logger) *FileUseCase {
	return &FileUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
	}
}

// UploadRequest is the engine-facing upload negotiation input.
type UploadRequest struct {
	Filename        string
	Size            int64
	ContentType     string
	ExpiryMinutes   int
	Slug            string
	Password        string
	OneTimeDownload bool
	MaxDownloads    int
}

// UploadGrant is handed back to the client so it can transfer bytes
// directly to the object store.
type UploadGrant struct {
	UploadURL string
	Slug      string
	ExpiresAt time.Time
}

// NegotiateUpload validates the request, allocates a slug, persists the
// record and issues a signed upload URL. The engine is not on the byte
// path: it trusts the signed-URL flow for upload completion.
func (uc *FileUseCase) NegotiateUpload(ctx context.Context, req UploadRequest) (*UploadGrant, error) {
	if req.Filename == "" || req.Size <= 0 || req.ContentType == "" {
		return nil, ErrMissingFields
	}
	if req.Size > uc.cfg.MaxFileSize {
		return nil, ErrFileTooLarge
	}
	if !uc.validExpiry(req.ExpiryMinutes) {
		return nil, ErrInvalidExpiry
	}
	if req.MaxDownloads < 0 {
		return nil, ErrInvalidLimit
	}

	slug, err := uc.allocateSlug(ctx, req.Slug)
	if err != nil {
		return nil, err
	}

	passwordHash := ""
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		passwordHash = string(hash)
	}

	now := uc.now()
	f := &File{
		ID:              uuid.New().String(),
		Slug:            slug,
		StorageKey:      buildStorageKey(slug, req.Filename, now),
		OriginalName:    req.Filename,
		Size:            req.Size,
		MimeType:        req.ContentType,
		ExpiresAt:       now.Add(time.Duration(req.ExpiryMinutes) * time.Minute),
		PasswordHash:    passwordHash,
		OneTimeDownload: req.OneTimeDownload,
		MaxDownloads:    req.MaxDownloads,
		CreatedAt:       now,
	}

	// The conditional put resolves the check-then-create race on the slug.
	if err := uc.repo.Create(ctx, f); err != nil {
		return nil, err
	}

	uploadURL, err := uc.storage.IssueUploadURL(ctx, f.StorageKey, f.MimeType, uc.cfg.UploadURLTTL)
	if err != nil {
		// Roll back so a retry can reuse the slug. If the delete fails the
		// record is expiry-bounded and the sweep removes it.
		if derr := uc.repo.Delete(ctx, f.Slug); derr != nil {
			uc.log.Warn("failed to roll back record after upload URL failure",
				zap.String("slug", f.Slug), zap.Error(derr))
		}
		return nil, fmt.Errorf("failed to issue upload url: %w", err)
	}

	return &UploadGrant{
		UploadURL: uploadURL,
		Slug:      slug,
		ExpiresAt: f.ExpiresAt,
	}, nil
}

// FileStatus is the public view of a live record; it never exposes the
// password hash or storage key.
type FileStatus struct {
	Filename         string
	Size             int64
	ExpiresAt        time.Time
	RequiresPassword bool
	DownloadCount    int
	OneTimeDownload  bool
	MaxDownloads     int
}

// Status reports public metadata for a slug without consuming a download.
func (uc *FileUseCase) Status(ctx context.Context, slug string) (*FileStatus, error) {
	f, err := uc.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if f.Expired(uc.now()) {
		return nil, ErrExpired
	}
	if f.OneTimeDownload && f.DownloadCount >= 1 {
		return nil, ErrAlreadyConsumed
	}
	if f.MaxDownloads > 0 && f.DownloadCount >= f.MaxDownloads {
		return nil, ErrLimitReached
	}

	return &FileStatus{
		Filename:         f.OriginalName,
		Size:             f.Size,
		ExpiresAt:        f.ExpiresAt,
		RequiresPassword: f.PasswordHash != "",
		DownloadCount:    f.DownloadCount,
		OneTimeDownload:  f.OneTimeDownload,
		MaxDownloads:     f.MaxDownloads,
	}, nil
}

// purgeRecord deletes bytes before metadata, so a failure mid-purge leaves
// an orphaned record that the next sweep retries, never orphaned bytes.
func (uc *FileUseCase) purgeRecord(ctx context.Context, f *File) error {
	if err := uc.storage.DeleteObject(ctx, f.StorageKey); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", f.StorageKey, err)
	}
	if err := uc.repo.Delete(ctx, f.Slug); err != nil {
		return fmt.Errorf("failed to delete record %s: %w", f.Slug, err)
	}
	return nil
}

// PurgeBySlug purges a single record by slug. A missing record means it was
// already purged, which is not an error.
func (uc *FileUseCase) PurgeBySlug(ctx context.Context, slug string) error {
	f, err := uc.repo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	return uc.purgeRecord(ctx, f)
}

func (uc *FileUseCase) validExpiry(minutes int) bool {
	for _, m := range uc.cfg.ExpiryMinutes {
		if m == minutes {
			return true
		}
	}
	return false
}

// buildStorageKey derives the opaque object key. The timestamp keeps keys
// unique even if a slug were ever reallocated.
func buildStorageKey(slug, filename string, now time.Time) string {
	ext := filepath.Ext(filename)
	return fmt.Sprintf("uploads/%s-%d%s", slug, now.UnixMilli(), ext)
}
