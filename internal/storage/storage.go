// Package storage uploads source images for image-to-video requests and hands
// back a URL the video provider can fetch.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxImageSize is the largest accepted upload in bytes.
const MaxImageSize = 10 << 20

var (
	// ErrNotConfigured is returned when uploads are attempted without a bucket.
	ErrNotConfigured = errors.New("image storage is not configured")
	// ErrUnsupportedType is returned for uploads that are not JPEG, PNG or WebP.
	ErrUnsupportedType = errors.New("unsupported image type")
	// ErrTooLarge is returned for uploads above MaxImageSize.
	ErrTooLarge = errors.New("image too large")
)

// ImageStore stores a source image and returns a URL that is readable by the
// video provider for at least the store's URL lifetime.
type ImageStore interface {
	UploadImage(ctx context.Context, data []byte) (url string, err error)
}

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// DetectImage sniffs data and returns its MIME type and file extension.
func DetectImage(data []byte) (contentType, ext string, err error) {
	if len(data) > MaxImageSize {
		return "", "", ErrTooLarge
	}
	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		if ext, ok := allowedTypes[m.String()]; ok {
			return m.String(), ext, nil
		}
	}
	return "", "", fmt.Errorf("%w: %s", ErrUnsupportedType, mt.String())
}

// objectKey builds a unique, date-partitioned key for an upload.
func objectKey(now time.Time, ext string) string {
	return path.Join("uploads", now.UTC().Format("2006/01/02"), uuid.NewString()+ext)
}
