package data

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/4shil/axium/internal/file/biz"
)

// FilePO represents the database model for an ephemeral file record.
type FilePO struct {
	ID              string     `gorm:"type:uuid;primarykey"`
	Slug            string     `gorm:"size:30;not null;uniqueIndex:idx_files_slug"`
	StorageKey      string     `gorm:"size:255;not null"`
	OriginalName    string     `gorm:"size:255;not null"`
	Size            int64      `gorm:"not null"`
	MimeType        string     `gorm:"size:255"`
	ExpiresAt       time.Time  `gorm:"not null;index:idx_files_expires_at"`
	PasswordHash    string     `gorm:"size:255"`
	OneTimeDownload bool       `gorm:"not null;default:false"`
	MaxDownloads    int        `gorm:"not null;default:0"`
	DownloadCount   int        `gorm:"not null;default:0"`
	PurgeAfter      *time.Time `gorm:"index:idx_files_purge_after,where:purge_after IS NOT NULL"`
	CreatedAt       time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (FilePO) TableName() string {
	return "files"
}

// FileRepo implements biz.FileRepo on PostgreSQL.
type FileRepo struct {
	db *gorm.DB
}

func NewFileRepo(db *gorm.DB) biz.FileRepo {
	return &FileRepo{db: db}
}

func (r *FileRepo) Create(ctx context.Context, f *biz.File) error {
	po := toPO(f)
	if err := r.db.WithContext(ctx).Create(po).Error; err != nil {
		if isDuplicateKey(err) {
			return biz.ErrSlugTaken
		}
		return err
	}
	return nil
}

func (r *FileRepo) GetBySlug(ctx context.Context, slug string) (*biz.File, error) {
	var po FilePO
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&po).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, biz.ErrNotFound
		}
		return nil, err
	}
	return toDomain(&po), nil
}

// ConsumeDownload performs the read-check-increment as one guarded UPDATE.
// The WHERE clause re-checks expiry and both ceilings against the committed
// row, and the CASE persists the purge intent on the limit-reaching
// increment, so two concurrent requests can never both take the last
// download. RETURNING hands back the post-increment row in the same
// statement, so a committed increment is always paired with its record.
func (r *FileRepo) ConsumeDownload(ctx context.Context, slug string, now, purgeAfter time.Time) (*biz.File, error) {
	var po FilePO
	res := r.db.WithContext(ctx).Model(&po).
		Clauses(clause.Returning{}).
		Where("slug = ? AND expires_at >= ?"+
			" AND (one_time_download = false OR download_count < 1)"+
			" AND (max_downloads = 0 OR download_count < max_downloads)",
			slug, now).
		Updates(map[string]interface{}{
			"download_count": gorm.Expr("download_count + 1"),
			"purge_after": gorm.Expr(
				"CASE WHEN (one_time_download = true AND download_count + 1 >= 1)"+
					" OR (max_downloads > 0 AND download_count + 1 >= max_downloads)"+
					" THEN ? ELSE purge_after END", purgeAfter),
		})
	if res.Error != nil {
		return nil, res.Error
	}

	if res.RowsAffected == 0 {
		// Distinguish a vanished record from a refused guard.
		var count int64
		if err := r.db.WithContext(ctx).Model(&FilePO{}).
			Where("slug = ?", slug).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, biz.ErrNotFound
		}
		return nil, biz.ErrConsumeDenied
	}

	return toDomain(&po), nil
}

func (r *FileRepo) Delete(ctx context.Context, slug string) error {
	return r.db.WithContext(ctx).Where("slug = ?", slug).Delete(&FilePO{}).Error
}

func (r *FileRepo) ListEnded(ctx context.Context, now time.Time, limit int) ([]*biz.File, error) {
	var pos []FilePO
	err := r.db.WithContext(ctx).
		Where("expires_at <= ? OR purge_after <= ?", now, now).
		Order("expires_at").
		Limit(limit).
		Find(&pos).Error
	if err != nil {
		return nil, err
	}

	files := make([]*biz.File, len(pos))
	for i := range pos {
		files[i] = toDomain(&pos[i])
	}
	return files, nil
}

func toPO(f *biz.File) *FilePO {
	return &FilePO{
		ID:              f.ID,
		Slug:            f.Slug,
		StorageKey:      f.StorageKey,
		OriginalName:    f.OriginalName,
		Size:            f.Size,
		MimeType:        f.MimeType,
		ExpiresAt:       f.ExpiresAt,
		PasswordHash:    f.PasswordHash,
		OneTimeDownload: f.OneTimeDownload,
		MaxDownloads:    f.MaxDownloads,
		DownloadCount:   f.DownloadCount,
		PurgeAfter:      f.PurgeAfter,
		CreatedAt:       f.CreatedAt,
	}
}

func toDomain(po *FilePO) *biz.File {
	return &biz.File{
		ID:              po.ID,
		Slug:            po.Slug,
		StorageKey:      po.StorageKey,
		OriginalName:    po.OriginalName,
		Size:            po.Size,
		MimeType:        po.MimeType,
		ExpiresAt:       po.ExpiresAt,
		PasswordHash:    po.PasswordHash,
		OneTimeDownload: po.OneTimeDownload,
		MaxDownloads:    po.MaxDownloads,
		DownloadCount:   po.DownloadCount,
		PurgeAfter:      po.PurgeAfter,
		CreatedAt:       po.CreatedAt,
	}
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// PostgreSQL unique violation SQLSTATE
	return strings.Contains(err.Error(), "23505")
}
