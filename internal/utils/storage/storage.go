package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
)

const (
	FolderUploads    = "uploads"
	FolderThumbnails = "thumbnails"
	FolderCrops      = "crops"
)

var (
	AllowImage = []string{".jpg", ".jpeg", ".png", ".webp", ".heic", ".heif"}

	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidKey     = errors.New("invalid object key")
)

// Storage persists scan images. Keys are slash separated, relative to the
// storage root (e.g. "uploads/<id>.jpg").
type Storage interface {
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	GetObjectKeyFromLink(link string) string
}

func IsAllowedExt(filename string, allow ...string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, a := range allow {
		if ext == a {
			return true
		}
	}
	return false
}

// cleanKey rejects absolute keys and keys escaping the storage root.
func cleanKey(key string) (string, error) {
	key = strings.TrimPrefix(filepath.ToSlash(key), "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	cleaned := filepath.ToSlash(filepath.Clean(key))
	if cleaned == "." || strings.HasPrefix(cleaned, "../") || cleaned == ".." {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
