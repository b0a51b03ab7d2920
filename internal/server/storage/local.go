// Package storage keeps uploaded documents on the local filesystem under
// owner-scoped directories. Paths handed out by Save are opaque to callers
// outside the server and never leave it.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/docanchor/internal/common"
	"github.com/dmitrijs2005/docanchor/internal/filex"
)

// Local stores files as <root>/<owner>/<document><ext>.
type Local struct {
	root    string
	maxSize int64
}

// NewLocal prepares root and returns a Local store. maxSize <= 0 disables
// the size check.
func NewLocal(root string, maxSize int64) (*Local, error) {
	abs, err := filex.EnsureDir(root)
	if err != nil {
		return nil, fmt.Errorf("upload dir: %w", err)
	}
	return &Local{root: abs, maxSize: maxSize}, nil
}

// Root returns the absolute storage root.
func (l *Local) Root() string {
	return l.root
}

// Save writes r under the owner's directory. It either stores every byte or
// nothing: a failed or cancelled write leaves no file behind. Size and
// naming problems are reported as common.ErrFatalInput.
func (l *Local) Save(ctx context.Context, ownerID, documentID, ext string, r io.Reader) (string, int64, error) {
	if !safeSegment(ownerID) || !safeSegment(documentID) {
		return "", 0, fmt.Errorf("%w: invalid owner or document id", common.ErrFatalInput)
	}
	if ext != "" && (!strings.HasPrefix(ext, ".") || strings.ContainsAny(ext, `/\`)) {
		return "", 0, fmt.Errorf("%w: invalid extension %q", common.ErrFatalInput, ext)
	}

	dir, err := filex.EnsureDir(filepath.Join(l.root, ownerID))
	if err != nil {
		return "", 0, err
	}

	path := filepath.Join(dir, documentID+strings.ToLower(ext))
	n, err := filex.WriteAtomic(ctx, path, r, l.maxSize)
	if err != nil {
		if errors.Is(err, filex.ErrTooLarge) {
			return "", 0, fmt.Errorf("%w: file larger than %d bytes", common.ErrFatalInput, l.maxSize)
		}
		return "", 0, fmt.Errorf("%w: %w", common.ErrFatalInput, err)
	}
	if n == 0 {
		_ = filex.RemoveIfExists(path)
		return "", 0, fmt.Errorf("%w: empty file", common.ErrFatalInput)
	}

	return path, n, nil
}

// Open returns a reader over a stored file. Failures wrap common.ErrStorageRead.
func (l *Local) Open(path string) (io.ReadCloser, error) {
	if !l.owns(path) {
		return nil, fmt.Errorf("%w: path outside storage root", common.ErrStorageRead)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStorageRead, err)
	}
	return f, nil
}

// Remove deletes a stored file. A missing file is not an error.
func (l *Local) Remove(path string) error {
	if !l.owns(path) {
		return fmt.Errorf("refusing to remove %q outside storage root", path)
	}
	return filex.RemoveIfExists(path)
}

func (l *Local) owns(path string) bool {
	rel, err := filepath.Rel(l.root, filepath.Clean(path))
	return err == nil && rel != "." && !strings.HasPrefix(rel, "..")
}

func safeSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}
