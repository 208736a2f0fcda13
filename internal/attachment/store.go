package attachment

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sewain/backend/internal/rental"
)

// Kind selects the acceptance rules for an uploaded file.
type Kind int

const (
	// KindImage accepts common raster image types (product photos, selfies).
	KindImage Kind = iota
	// KindDocument additionally accepts PDF (ID card scans).
	KindDocument
)

// MaxUploadSize is the per-file limit enforced by the store.
const MaxUploadSize = 2 << 20

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// Store keeps uploaded files on local disk and hands back opaque references
// of the form "uploads/<name>". The reference is what gets persisted on the
// order row; the store never parses references it did not produce.
type Store struct {
	dir    string
	logger *zap.Logger
}

func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %s: %w", dir, err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Save streams an upload to disk under a collision-free name and returns its
// reference. The size cap is enforced here as well, so callers that forget
// http.MaxBytesReader still cannot write unbounded files.
func (s *Store) Save(src io.Reader, originalName string, kind Kind) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExt(ext, kind) {
		return "", rental.Invalidf("unsupported file type %q", ext)
	}

	name := uuid.NewString() + "-" + sanitize(filepath.Base(originalName))
	path := filepath.Join(s.dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, io.LimitReader(src, MaxUploadSize+1))
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	if written > MaxUploadSize {
		os.Remove(path)
		return "", rental.Invalidf("file exceeds %d bytes", MaxUploadSize)
	}

	s.logger.Debug("attachment stored", zap.String("name", name), zap.Int64("bytes", written))
	return "uploads/" + name, nil
}

// Open resolves a previously issued reference. References that point outside
// the store directory are rejected.
func (s *Store) Open(ref string) (*os.File, error) {
	name, ok := strings.CutPrefix(ref, "uploads/")
	if !ok || name != filepath.Base(name) {
		return nil, rental.NotFoundf("attachment not found")
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, rental.NotFoundf("attachment not found")
		}
		return nil, err
	}
	return f, nil
}

func (s *Store) Remove(ref string) error {
	name, ok := strings.CutPrefix(ref, "uploads/")
	if !ok || name != filepath.Base(name) {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func allowedExt(ext string, kind Kind) bool {
	if imageExtensions[ext] {
		return true
	}
	return kind == KindDocument && ext == ".pdf"
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
