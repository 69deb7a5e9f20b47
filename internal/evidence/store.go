// Package evidence stores uploaded evidence files on the local filesystem.
package evidence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
)

// FileStore keeps blobs under Dir/<category>/. Returned paths are relative
// to Dir.
type FileStore struct {
	dir      string
	maxBytes int64
}

// NewFileStore creates the root directory if needed. maxBytes <= 0 means
// no size limit.
func NewFileStore(dir string, maxBytes int64) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("evidence directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve evidence directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create evidence directory: %w", err)
	}
	return &FileStore{dir: abs, maxBytes: maxBytes}, nil
}

// Save copies r into a new file and returns its relative path and size
func (s *FileStore) Save(ctx context.Context, category, fileName string, r io.Reader) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	category = filepath.Base(filepath.Clean(category))
	name := filepath.Base(filepath.Clean(fileName))
	if category == "." || category == string(filepath.Separator) || category == ".." {
		return "", 0, apperrors.Validation("invalid evidence category")
	}
	if name == "." || name == string(filepath.Separator) || name == ".." {
		return "", 0, apperrors.Validation("invalid file name")
	}

	catDir := filepath.Join(s.dir, category)
	if err := os.MkdirAll(catDir, 0o750); err != nil {
		return "", 0, fmt.Errorf("failed to create category directory: %w", err)
	}

	tmp, err := os.CreateTemp(catDir, ".upload-*")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, err := io.Copy(tmp, src)
	if err != nil {
		cleanup()
		return "", 0, fmt.Errorf("failed to write evidence: %w", err)
	}
	if s.maxBytes > 0 && n > s.maxBytes {
		cleanup()
		return "", 0, apperrors.Validation(fmt.Sprintf("file exceeds the %d byte limit", s.maxBytes))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", 0, fmt.Errorf("failed to close evidence file: %w", err)
	}

	rel := filepath.Join(category, uuid.NewString()+"_"+name)
	if err := os.Rename(tmpName, filepath.Join(s.dir, rel)); err != nil {
		_ = os.Remove(tmpName)
		return "", 0, fmt.Errorf("failed to finalize evidence file: %w", err)
	}
	return filepath.ToSlash(rel), n, nil
}

// Open returns a reader for a stored blob
func (s *FileStore) Open(_ context.Context, path string) (io.ReadCloser, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.NotFound("evidence blob", path)
	}
	return f, err
}

// Remove deletes a stored blob. Removing a missing blob is not an error.
func (s *FileStore) Remove(_ context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove evidence: %w", err)
	}
	return nil
}

func (s *FileStore) resolve(path string) (string, error) {
	full := filepath.Join(s.dir, filepath.FromSlash(path))
	rel, err := filepath.Rel(s.dir, full)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", apperrors.Validation("invalid evidence path")
	}
	return full, nil
}
