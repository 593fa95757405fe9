// Package receipts stores receipt images uploaded with expenses.
//
// A receipt is addressed by a reference of the form
// receipts/<householdID>/<unixMillis>_<filename>, which is also its path
// relative to the store root and to the retrieval base URL.
package receipts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

const (
	// Prefix starts every receipt reference.
	Prefix = "receipts"

	// DefaultMaxDimension bounds the width and height of stored images.
	DefaultMaxDimension = 1600

	// MaxSize is the largest accepted upload in bytes.
	MaxSize = 10 << 20

	jpegQuality = 85
)

var (
	// ErrTooLarge is returned when an upload exceeds MaxSize.
	ErrTooLarge = errors.New("receipt exceeds maximum size")
	// ErrInvalidRef is returned for references outside the receipt namespace.
	ErrInvalidRef = errors.New("invalid receipt reference")
	// ErrNotFound is returned when no receipt exists for a reference.
	ErrNotFound = errors.New("receipt not found")
)

// ProgressFunc receives the bytes read so far and the expected total.
// totalBytes is -1 when the size is unknown.
type ProgressFunc func(bytesRead, totalBytes int64)

// Store persists receipt images.
type Store interface {
	// Upload stores body for a household and returns its reference.
	Upload(ctx context.Context, householdID, filename string, body io.Reader, size int64, progress ProgressFunc) (string, error)

	// Open streams a stored receipt back.
	Open(ctx context.Context, ref string) (io.ReadCloser, error)

	// URL returns where a client can retrieve ref.
	URL(ref string) string

	// Delete removes a stored receipt. Returns ErrNotFound if absent.
	Delete(ctx context.Context, ref string) error
}

// FileStore keeps receipts on the local filesystem.
type FileStore struct {
	root         string
	baseURL      string
	maxDimension int
	now          func() time.Time
}

// Ensure FileStore implements Store
var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore rooted at dir. Images larger than
// maxDimension in either direction are scaled down before saving.
func NewFileStore(dir, baseURL string, maxDimension int) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create receipts directory: %w", err)
	}
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	return &FileStore{
		root:         dir,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		maxDimension: maxDimension,
		now:          time.Now,
	}, nil
}

// Upload reads body, normalizes it if it is a supported image and writes it
// under the household's directory.
func (s *FileStore) Upload(ctx context.Context, householdID, filename string, body io.Reader, size int64, progress ProgressFunc) (string, error) {
	if householdID == "" || strings.ContainsAny(householdID, `/\.`) {
		return "", fmt.Errorf("invalid household id %q", householdID)
	}
	if size > MaxSize {
		return "", ErrTooLarge
	}

	name := SanitizeFilename(filename)
	ref := path.Join(Prefix, householdID, fmt.Sprintf("%d_%s", s.now().UnixMilli(), name))

	var buf bytes.Buffer
	reader := &progressReader{ctx: ctx, r: io.LimitReader(body, MaxSize+1), total: size, progress: progress}
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", fmt.Errorf("failed to read receipt: %w", err)
	}
	if buf.Len() > MaxSize {
		return "", ErrTooLarge
	}

	data := s.normalize(buf.Bytes(), name)

	fullPath := s.path(ref)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create receipt directory: %w", err)
	}

	// Write to a temp file first so readers never see a partial receipt.
	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create receipt file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write receipt: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write receipt: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return "", fmt.Errorf("failed to store receipt: %w", err)
	}

	slog.Info("Receipt stored", "household_id", householdID, "ref", ref, "bytes", len(data))
	return ref, nil
}

// normalize auto-orients and shrinks decodable images. Anything else is
// returned unchanged.
func (s *FileStore) normalize(data []byte, name string) []byte {
	format, err := imaging.FormatFromFilename(name)
	if err != nil {
		return data
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		slog.Debug("Storing receipt verbatim", "name", name, "error", err)
		return data
	}

	img = s.fit(img)

	var out bytes.Buffer
	if err := imaging.Encode(&out, img, format, imaging.JPEGQuality(jpegQuality)); err != nil {
		slog.Warn("Failed to re-encode receipt, storing original", "name", name, "error", err)
		return data
	}
	return out.Bytes()
}

func (s *FileStore) fit(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() <= s.maxDimension && b.Dy() <= s.maxDimension {
		return img
	}
	return imaging.Fit(img, s.maxDimension, s.maxDimension, imaging.Lanczos)
}

// Open returns the stored receipt for ref.
func (s *FileStore) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	if err := ValidateRef(ref); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path(ref))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open receipt: %w", err)
	}
	return f, nil
}

// Delete removes the stored receipt for ref.
func (s *FileStore) Delete(_ context.Context, ref string) error {
	if err := ValidateRef(ref); err != nil {
		return err
	}
	err := os.Remove(s.path(ref))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete receipt: %w", err)
	}
	return nil
}

// URL returns the retrieval URL for ref.
func (s *FileStore) URL(ref string) string {
	return s.baseURL + "/" + ref
}

func (s *FileStore) path(ref string) string {
	return filepath.Join(s.root, filepath.FromSlash(ref))
}

// ValidateRef checks that ref is a clean receipts/<household>/<file> reference.
func ValidateRef(ref string) error {
	if path.Clean(ref) != ref {
		return ErrInvalidRef
	}
	parts := strings.Split(ref, "/")
	if len(parts) != 3 || parts[0] != Prefix || parts[1] == "" || parts[2] == "" {
		return ErrInvalidRef
	}
	if parts[1] == ".." || parts[2] == ".." {
		return ErrInvalidRef
	}
	return nil
}

// HouseholdOf returns the household segment of a valid reference.
func HouseholdOf(ref string) (string, error) {
	if err := ValidateRef(ref); err != nil {
		return "", err
	}
	return strings.Split(ref, "/")[1], nil
}

// SanitizeFilename keeps the base name of filename, replacing anything other
// than letters, digits, dot, dash and underscore.
func SanitizeFilename(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := strings.TrimLeft(b.String(), ".")
	if name == "" {
		return "receipt"
	}
	return name
}

// progressReader reports each read and stops when ctx is done.
type progressReader struct {
	ctx      context.Context
	r        io.Reader
	read     int64
	total    int64
	progress ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	if err := p.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		if p.progress != nil {
			p.progress(p.read, p.total)
		}
	}
	return n, err
}
