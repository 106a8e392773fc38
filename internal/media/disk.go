package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

var ErrInvalidPath = errors.New("media: invalid path")

// DiskStore keeps blobs under a root directory and serves them below a public
// URL prefix (e.g. "/storage").
type DiskStore struct {
	fs     afero.Fs
	prefix string
}

// NewDiskStore roots the store at dir on the OS filesystem.
func NewDiskStore(dir, publicPrefix string) *DiskStore {
	return NewStore(afero.NewBasePathFs(afero.NewOsFs(), dir), publicPrefix)
}

// NewStore wraps any afero filesystem; tests pass afero.NewMemMapFs().
func NewStore(fs afero.Fs, publicPrefix string) *DiskStore {
	return &DiskStore{fs: fs, prefix: strings.TrimRight(publicPrefix, "/")}
}

func (s *DiskStore) Put(ctx context.Context, dir, ext string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir, err := clean(dir)
	if err != nil {
		return "", err
	}
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	name := uuid.NewString()
	if ext != "" {
		name += "." + ext
	}
	p := path.Join(dir, name)

	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("media: mkdir %s: %w", dir, err)
	}
	f, err := s.fs.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("media: create %s: %w", p, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = s.fs.Remove(p)
		return "", fmt.Errorf("media: write %s: %w", p, err)
	}
	if err := f.Close(); err != nil {
		_ = s.fs.Remove(p)
		return "", fmt.Errorf("media: close %s: %w", p, err)
	}
	return p, nil
}

func (s *DiskStore) Delete(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := clean(p)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("media: delete %s: %w", p, err)
	}
	return nil
}

func (s *DiskStore) URL(p string) string {
	if p == "" {
		return ""
	}
	return s.prefix + "/" + strings.TrimLeft(p, "/")
}

// clean rejects paths that would escape the store root.
func clean(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" || strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	c := path.Clean(p)
	if c == "." || c == ".." || strings.HasPrefix(c, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return c, nil
}
