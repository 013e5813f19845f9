package biz

import "errors"

var (
	// ErrNotFound no live record holds the slug
	ErrNotFound = errors.New("file not found")

	// ErrExpired the record's expiry time has passed
	ErrExpired = errors.New("file expired")

	// ErrAlreadyConsumed a one-time file has been downloaded
	ErrAlreadyConsumed = errors.New("file already downloaded")

	// ErrLimitReached the download ceiling has been reached
	ErrLimitReached = errors.New("download limit reached")

	// ErrPasswordRequired the file is password-gated and none was supplied
	ErrPasswordRequired = errors.New("password required")

	// ErrInvalidPassword the supplied password failed verification
	ErrInvalidPassword = errors.New("invalid password")

	// ErrMissingFields required upload fields are absent
	ErrMissingFields = errors.New("missing required fields")

	// ErrFileTooLarge declared size exceeds the configured maximum
	ErrFileTooLarge = errors.New("file too large")

	// ErrInvalidExpiry expiry duration is not one of the allowed options
	ErrInvalidExpiry = errors.New("invalid expiry time")

	// ErrInvalidLimit max downloads is negative
	ErrInvalidLimit = errors.New("invalid download limit")

	// ErrInvalidSlug requested slug does not match the slug format
	ErrInvalidSlug = errors.New("invalid slug format")

	// ErrSlugTaken a live record already holds the requested slug
	ErrSlugTaken = errors.New("slug already taken")

	// ErrSlugExhausted random allocation gave up after the attempt bound
	ErrSlugExhausted = errors.New("could not generate unique slug")

	// ErrConsumeDenied the conditional download-count increment was refused
	ErrConsumeDenied = errors.New("download not permitted")
)
