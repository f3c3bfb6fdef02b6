// AngelaMos | 2026
// local.go

package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

type Local struct {
	root       string
	publicPath string
}

func NewLocal(root, publicPath string) (*Local, error) {
	if root == "" {
		return nil, fmt.Errorf("local storage root is required")
	}
	if publicPath == "" {
		publicPath = "/static/uploads"
	}

	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	return &Local{
		root:       root,
		publicPath: "/" + strings.Trim(publicPath, "/"),
	}, nil
}

// Root is the directory served under the public path.
func (l *Local) Root() string {
	return l.root
}

func (l *Local) PublicPath() string {
	return l.publicPath
}

func (l *Local) Save(
	ctx context.Context,
	data []byte,
	filename, subdir string,
) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir, err := cleanSubdir(subdir)
	if err != nil {
		return "", err
	}

	key := joinKey(dir, objectName(filename, time.Now()))
	dest := filepath.Join(l.root, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	if err := os.WriteFile(dest, data, 0o640); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}

	return l.publicPath + "/" + key, nil
}

func (l *Local) Load(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := l.resolve(url)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", url, ErrObjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", url, err)
	}

	return data, nil
}

// Delete removes the file behind url. A file that is already gone is not
// an error.
func (l *Local) Delete(_ context.Context, url string) error {
	p, err := l.resolve(url)
	if err != nil {
		return err
	}

	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", url, err)
	}

	return nil
}

func (l *Local) resolve(url string) (string, error) {
	prefix := l.publicPath + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, url)
	}

	rel := path.Clean("/" + strings.TrimPrefix(url, prefix))
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" || rel == "." {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, url)
	}

	return filepath.Join(l.root, filepath.FromSlash(rel)), nil
}

var _ Storage = (*Local)(nil)
