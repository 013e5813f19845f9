package biz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// DownloadGrant carries the signed URL a successful gate pass yields.
type DownloadGrant struct {
	DownloadURL string
	Filename    string
	Size        int64
}

// Download is the access gate. It evaluates expiry, download-count and
// password rules in order; the increment itself is a conditional update so
// that concurrent requests can never both take the last remaining download.
//
// The signed URL is minted before the increment commits: an increment is
// only ever observed together with a granted URL, and a URL minted for a
// request that then loses the consume race is discarded.
func (uc *FileUseCase) Download(ctx context.Context, slug, password string) (*DownloadGrant, error) {
	f, err := uc.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	now := uc.now()

	if f.Expired(now) {
		uc.opportunisticPurge(ctx, f)
		return nil, ErrExpired
	}
	if f.OneTimeDownload && f.DownloadCount >= 1 {
		return nil, ErrAlreadyConsumed
	}
	if f.MaxDownloads > 0 && f.DownloadCount >= f.MaxDownloads {
		return nil, ErrLimitReached
	}

	if f.PasswordHash != "" {
		if password == "" {
			return nil, ErrPasswordRequired
		}
		if bcrypt.CompareHashAndPassword([]byte(f.PasswordHash), []byte(password)) != nil {
			return nil, ErrInvalidPassword
		}
	}

	downloadURL, err := uc.storage.IssueDownloadURL(ctx, f.StorageKey, f.OriginalName, uc.cfg.DownloadURLTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue download url: %w", err)
	}

	purgeAfter := now.Add(uc.cfg.PurgeGrace)

	updated, err := uc.repo.ConsumeDownload(ctx, slug, now, purgeAfter)
	if err != nil {
		if errors.Is(err, ErrConsumeDenied) {
			return nil, uc.classifyDenied(ctx, slug)
		}
		return nil, err
	}

	if updated.Exhausted() {
		uc.schedulePurge(ctx, slug, purgeAfter)
	}

	return &DownloadGrant{
		DownloadURL: downloadURL,
		Filename:    updated.OriginalName,
		Size:        updated.Size,
	}, nil
}

// classifyDenied re-reads a record after the conditional increment was
// refused and maps its state to a gate denial. Deletion is authoritative: a
// record that vanished between read and write fails closed as not found.
func (uc *FileUseCase) classifyDenied(ctx context.Context, slug string) error {
	f, err := uc.repo.GetBySlug(ctx, slug)
	if err != nil {
		return ErrNotFound
	}

	now := uc.now()
	switch {
	case f.Expired(now):
		uc.opportunisticPurge(ctx, f)
		return ErrExpired
	case f.OneTimeDownload && f.DownloadCount >= 1:
		return ErrAlreadyConsumed
	case f.MaxDownloads > 0 && f.DownloadCount >= f.MaxDownloads:
		return ErrLimitReached
	default:
		// The guard refused for a state we can no longer observe; never
		// hand out a URL on an unexplained refusal.
		return ErrNotFound
	}
}

// opportunisticPurge removes an expired record on the request path.
// Best-effort: failures are logged and left for the sweep.
func (uc *FileUseCase) opportunisticPurge(ctx context.Context, f *File) {
	if err := uc.purgeRecord(ctx, f); err != nil {
		uc.log.Warn("opportunistic purge failed",
			zap.String("slug", f.Slug), zap.Error(err))
	}
}

// schedulePurge enqueues a deferred purge after the grace delay. The intent
// is already persisted on the record, so a queue failure only costs
// promptness.
func (uc *FileUseCase) schedulePurge(ctx context.Context, slug string, at time.Time) {
	if uc.queue == nil {
		return
	}
	if err := uc.queue.Schedule(ctx, slug, at); err != nil {
		uc.log.Warn("failed to schedule deferred purge",
			zap.String("slug", slug), zap.Error(err))
	}
}
