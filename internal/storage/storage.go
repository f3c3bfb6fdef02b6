// AngelaMos | 2026
// storage.go

package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/imagedit/backend/internal/config"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidURL     = errors.New("url does not belong to this storage")
)

// Storage persists uploaded and generated image bytes. Save returns the URL
// clients use to fetch the object; the same URL addresses it for Load and
// Delete.
type Storage interface {
	Save(ctx context.Context, data []byte, filename, subdir string) (string, error)
	Load(ctx context.Context, url string) ([]byte, error)
	Delete(ctx context.Context, url string) error
}

func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Backend {
	case "local":
		return NewLocal(cfg.LocalPath, cfg.PublicPath)
	case "s3":
		return NewS3(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}

// objectName builds a collision free name that keeps the original
// extension.
func objectName(filename string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	return fmt.Sprintf("%s_%s%s", now.UTC().Format("20060102_150405"), uuid.New().String()[:8], ext)
}

// cleanSubdir keeps subdir inside the storage root.
func cleanSubdir(subdir string) (string, error) {
	if subdir == "" {
		return "", nil
	}
	cleaned := path.Clean("/" + filepath.ToSlash(subdir))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("invalid subdir %q", subdir)
	}
	return cleaned, nil
}

func joinKey(subdir, name string) string {
	if subdir == "" {
		return name
	}
	return subdir + "/" + name
}
