package service

import (
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/4shil/axium/internal/file/biz"
	"github.com/4shil/axium/internal/file/sweep"
	apperrors "github.com/4shil/axium/internal/pkg/errors"
	"github.com/4shil/axium/internal/pkg/response"
)

// FileService exposes the lifecycle engine over HTTP.
type FileService struct {
	uc      *biz.FileUseCase
	sweeper *sweep.Sweeper
	logger  *zap.Logger
}

func NewFileService(uc *biz.FileUseCase, sweeper *sweep.Sweeper, logger *zap.Logger) *FileService {
	return &FileService{
		uc:      uc,
		sweeper: sweeper,
		logger:  logger,
	}
}

type UploadRequest struct {
	Filename        string `json:"filename"`
	Size            int64  `json:"size"`
	ContentType     string `json:"content_type"`
	ExpiryMinutes   int    `json:"expiry_minutes"`
	Slug            string `json:"slug"`
	Password        string `json:"password"`
	OneTimeDownload bool   `json:"one_time_download"`
	MaxDownloads    int    `json:"max_downloads"`
}

type UploadResponse struct {
	UploadURL string    `json:"upload_url"`
	Slug      string    `json:"slug"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NegotiateUpload mints a slug and a signed upload URL; the client then
// transfers bytes directly to the object store.
func (s *FileService) NegotiateUpload(c *gin.Context) {
	var req UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrBadRequest, err.Error())
		return
	}

	grant, err := s.uc.NegotiateUpload(c.Request.Context(), biz.UploadRequest{
		Filename:        req.Filename,
		Size:            req.Size,
		ContentType:     req.ContentType,
		ExpiryMinutes:   req.ExpiryMinutes,
		Slug:            req.Slug,
		Password:        req.Password,
		OneTimeDownload: req.OneTimeDownload,
		MaxDownloads:    req.MaxDownloads,
	})
	if err != nil {
		s.handleError(c, "upload negotiation failed", err)
		return
	}

	response.Success(c, UploadResponse{
		UploadURL: grant.UploadURL,
		Slug:      grant.Slug,
		ExpiresAt: grant.ExpiresAt,
	})
}

type StatusResponse struct {
	Filename         string    `json:"filename"`
	Size             int64     `json:"size"`
	ExpiresAt        time.Time `json:"expires_at"`
	RequiresPassword bool      `json:"requires_password"`
	DownloadCount    int       `json:"download_count"`
	OneTimeDownload  bool      `json:"one_time_download"`
	MaxDownloads     int       `json:"max_downloads,omitempty"`
}

// Status reports public metadata for a slug without consuming a download.
func (s *FileService) Status(c *gin.Context) {
	status, err := s.uc.Status(c.Request.Context(), c.Param("slug"))
	if err != nil {
		s.handleError(c, "status query failed", err)
		return
	}

	response.Success(c, StatusResponse{
		Filename:         status.Filename,
		Size:             status.Size,
		ExpiresAt:        status.ExpiresAt,
		RequiresPassword: status.RequiresPassword,
		DownloadCount:    status.DownloadCount,
		OneTimeDownload:  status.OneTimeDownload,
		MaxDownloads:     status.MaxDownloads,
	})
}

type DownloadRequest struct {
	Password string `json:"password"`
}

type DownloadResponse struct {
	DownloadURL string `json:"download_url"`
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
}

// Download runs the access gate and, on success, returns a signed download
// URL.
func (s *FileService) Download(c *gin.Context) {
	// ContentLength is -1 for chunked requests, so attempt the bind
	// whenever a body exists and treat only an empty body as absent.
	var req DownloadRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			response.ErrorWithCode(c, apperrors.ErrBadRequest, err.Error())
			return
		}
	}

	grant, err := s.uc.Download(c.Request.Context(), c.Param("slug"), req.Password)
	if err != nil {
		s.handleError(c, "download denied", err)
		return
	}

	response.Success(c, DownloadResponse{
		DownloadURL: grant.DownloadURL,
		Filename:    grant.Filename,
		Size:        grant.Size,
	})
}

// Sweep triggers a full lifecycle sweep. The route is guarded by the sweep
// token middleware when a token is configured.
func (s *FileService) Sweep(c *gin.Context) {
	result, err := s.sweeper.Sweep(c.Request.Context())
	if err != nil {
		s.logger.Error("sweep failed", zap.Error(err))
		response.ErrorWithCode(c, apperrors.ErrSweepFailed, err.Error())
		return
	}

	response.Success(c, result)
}

// RegisterRoutes mounts the engine's routes on the given group. The
// rate-limit middlewares are applied per action by the server.
func (s *FileService) RegisterRoutes(r *gin.RouterGroup, uploadLimit, downloadLimit, sweepAuth gin.HandlerFunc) {
	r.POST("/uploads", uploadLimit, s.NegotiateUpload)
	r.GET("/files/:slug", s.Status)
	r.POST("/files/:slug/download", downloadLimit, s.Download)
	r.POST("/sweep", sweepAuth, s.Sweep)
}

// handleError maps gate denials and validation failures to their distinct
// business codes so clients can react appropriately (prompt for a password
// versus show "gone").
func (s *FileService) handleError(c *gin.Context, msg string, err error) {
	code, known := mapBizError(err)
	if !known {
		s.logger.Error(msg, zap.Error(err))
	}
	response.ErrorWithCode(c, code)
}

func mapBizError(err error) (code int, known bool) {
	switch {
	case errors.Is(err, biz.ErrNotFound):
		return apperrors.ErrFileNotFound, true
	case errors.Is(err, biz.ErrExpired):
		return apperrors.ErrFileExpired, true
	case errors.Is(err, biz.ErrAlreadyConsumed):
		return apperrors.ErrFileConsumed, true
	case errors.Is(err, biz.ErrLimitReached):
		return apperrors.ErrFileLimitReached, true
	case errors.Is(err, biz.ErrPasswordRequired):
		return apperrors.ErrFilePasswordNeeded, true
	case errors.Is(err, biz.ErrInvalidPassword):
		return apperrors.ErrFileInvalidPassword, true
	case errors.Is(err, biz.ErrMissingFields):
		return apperrors.ErrInvalidParams, true
	case errors.Is(err, biz.ErrFileTooLarge):
		return apperrors.ErrFileTooLarge, true
	case errors.Is(err, biz.ErrInvalidExpiry):
		return apperrors.ErrFileInvalidExpiry, true
	case errors.Is(err, biz.ErrInvalidLimit):
		return apperrors.ErrFileInvalidLimit, true
	case errors.Is(err, biz.ErrInvalidSlug):
		return apperrors.ErrSlugInvalidFormat, true
	case errors.Is(err, biz.ErrSlugTaken):
		return apperrors.ErrSlugTaken, true
	case errors.Is(err, biz.ErrSlugExhausted):
		return apperrors.ErrSlugExhausted, true
	default:
		return apperrors.ErrInternalServer, false
	}
}
