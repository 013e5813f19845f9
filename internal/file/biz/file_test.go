package biz_test

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/4shil/axium/internal/file/biz"
)

func validUploadRequest() biz.UploadRequest {
	return biz.UploadRequest{
		Filename:      "notes.txt",
		Size:          2048,
		ContentType:   "text/plain",
		ExpiryMinutes: 60,
	}
}

func TestNegotiateUploadValidation(t *testing.T) {
	uc, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*biz.UploadRequest)
		wantErr error
	}{
		{"missing filename", func(r *biz.UploadRequest) { r.Filename = "" }, biz.ErrMissingFields},
		{"zero size", func(r *biz.UploadRequest) { r.Size = 0 }, biz.ErrMissingFields},
		{"missing content type", func(r *biz.UploadRequest) { r.ContentType = "" }, biz.ErrMissingFields},
		{"oversized", func(r *biz.UploadRequest) { r.Size = 501 << 20 }, biz.ErrFileTooLarge},
		{"expiry not in enum", func(r *biz.UploadRequest) { r.ExpiryMinutes = 30 }, biz.ErrInvalidExpiry},
		{"negative max downloads", func(r *biz.UploadRequest) { r.MaxDownloads = -1 }, biz.ErrInvalidLimit},
		{"slug too short", func(r *biz.UploadRequest) { r.Slug = "abc" }, biz.ErrInvalidSlug},
		{"slug uppercase", func(r *biz.UploadRequest) { r.Slug = "MyFiles" }, biz.ErrInvalidSlug},
		{"slug bad chars", func(r *biz.UploadRequest) { r.Slug = "my_files!" }, biz.ErrInvalidSlug},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validUploadRequest()
			tt.mutate(&req)

			_, err := uc.NegotiateUpload(ctx, req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NegotiateUpload() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNegotiateUploadCustomSlug(t *testing.T) {
	uc, repo, _, _ := newTestEngine(t)
	ctx := context.Background()

	req := validUploadRequest()
	req.Slug = "my-quarterly-report"

	grant, err := uc.NegotiateUpload(ctx, req)
	if err != nil {
		t.Fatalf("NegotiateUpload() error = %v", err)
	}
	if grant.Slug != "my-quarterly-report" {
		t.Errorf("Slug = %q, want my-quarterly-report", grant.Slug)
	}
	if !strings.HasPrefix(grant.UploadURL, "https://store.example/upload/") {
		t.Errorf("UploadURL = %q", grant.UploadURL)
	}

	f, err := repo.GetBySlug(ctx, grant.Slug)
	if err != nil {
		t.Fatalf("record not persisted: %v", err)
	}
	if f.DownloadCount != 0 {
		t.Errorf("DownloadCount = %d, want 0", f.DownloadCount)
	}
	if !strings.HasSuffix(f.StorageKey, ".txt") {
		t.Errorf("StorageKey = %q, want .txt extension preserved", f.StorageKey)
	}

	// Same slug again is a conflict while the record is live.
	if _, err := uc.NegotiateUpload(ctx, req); !errors.Is(err, biz.ErrSlugTaken) {
		t.Fatalf("second NegotiateUpload() error = %v, want ErrSlugTaken", err)
	}
}

func TestNegotiateUploadRandomSlug(t *testing.T) {
	uc, _, _, _ := newTestEngine(t)

	grant, err := uc.NegotiateUpload(context.Background(), validUploadRequest())
	if err != nil {
		t.Fatalf("NegotiateUpload() error = %v", err)
	}

	if !regexp.MustCompile(`^[a-z0-9]{8}$`).MatchString(grant.Slug) {
		t.Errorf("random slug = %q, want 8 lowercase alphanumerics", grant.Slug)
	}
}

func TestNegotiateUploadExpiry(t *testing.T) {
	uc, _, _, _ := newTestEngine(t)

	before := time.Now()
	grant, err := uc.NegotiateUpload(context.Background(), validUploadRequest())
	if err != nil {
		t.Fatalf("NegotiateUpload() error = %v", err)
	}

	want := before.Add(60 * time.Minute)
	if grant.ExpiresAt.Before(want) || grant.ExpiresAt.After(want.Add(time.Minute)) {
		t.Errorf("ExpiresAt = %v, want ~%v", grant.ExpiresAt, want)
	}
}

func TestNegotiateUploadPassword(t *testing.T) {
	uc, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	req := validUploadRequest()
	req.Password = "open-sesame"

	grant, err := uc.NegotiateUpload(ctx, req)
	if err != nil {
		t.Fatalf("NegotiateUpload() error = %v", err)
	}

	status, err := uc.Status(ctx, grant.Slug)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if !status.RequiresPassword {
		t.Error("RequiresPassword = false, want true")
	}

	if _, err := uc.Download(ctx, grant.Slug, "open-sesame"); err != nil {
		t.Errorf("Download() with correct password error = %v", err)
	}
}

func TestNegotiateUploadURLFailureRollsBack(t *testing.T) {
	uc, repo, storage, _ := newTestEngine(t)
	storage.uploadErr = fmt.Errorf("endpoint unreachable")

	req := validUploadRequest()
	req.Slug = "doomed-upload"

	if _, err := uc.NegotiateUpload(context.Background(), req); err == nil {
		t.Fatal("NegotiateUpload() succeeded with failing storage")
	}

	// The record rolls back so the slug can be retried immediately.
	if _, err := repo.GetBySlug(context.Background(), "doomed-upload"); !errors.Is(err, biz.ErrNotFound) {
		t.Fatalf("record still present after rollback, err = %v", err)
	}
}

func TestPurgeBySlugMissingIsNoError(t *testing.T) {
	uc, _, _, _ := newTestEngine(t)

	if err := uc.PurgeBySlug(context.Background(), "long-gone"); err != nil {
		t.Fatalf("PurgeBySlug() error = %v, want nil for missing record", err)
	}
}
