package biz

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"regexp"
)

// Slug format: 6-30 chars, lowercase alphanumeric plus hyphen.
var slugPattern = regexp.MustCompile(`^[a-z0-9-]{6,30}$`)

const (
	slugAlphabet    = "abcdefghijklmnopqrstuvwxyz0123456789"
	randomSlugLen   = 8
	maxSlugAttempts = 10
)

// allocateSlug returns a usable slug. A requested slug is validated and
// checked for liveness; otherwise random candidates are drawn until one is
// free or the attempt bound is hit. Allocation only checks existence: the
// caller's conditional Create settles any race with a concurrent upload.
func (uc *FileUseCase) allocateSlug(ctx context.Context, requested string) (string, error) {
	if requested != "" {
		if !slugPattern.MatchString(requested) {
			return "", ErrInvalidSlug
		}

		_, err := uc.repo.GetBySlug(ctx, requested)
		if err == nil {
			return "", ErrSlugTaken
		}
		if !errors.Is(err, ErrNotFound) {
			return "", err
		}
		return requested, nil
	}

	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		candidate, err := randomSlug()
		if err != nil {
			return "", err
		}

		_, err = uc.repo.GetBySlug(ctx, candidate)
		if errors.Is(err, ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
	}

	return "", ErrSlugExhausted
}

// randomSlug draws randomSlugLen characters from the URL-safe alphabet.
func randomSlug() (string, error) {
	buf := make([]byte, randomSlugLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	for i, b := range buf {
		buf[i] = slugAlphabet[int(b)%len(slugAlphabet)]
	}
	return string(buf), nil
}
