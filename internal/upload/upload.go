package upload

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"agrisite-api/internal/config"
	"agrisite-api/internal/logger"

	"github.com/google/uuid"
)

// Kind selects the allow-list and size limit applied to an upload.
type Kind string

const (
	Photo Kind = "photo"
	Video Kind = "video"
)

var (
	// ErrInvalidFormat is returned when a file name is not in the allow-list for its kind.
	ErrInvalidFormat = errors.New("invalid file format")
	// ErrTooLarge is returned when a file exceeds the size limit for its kind.
	ErrTooLarge = errors.New("file too large")
)

// FormatError reports a rejected upload. It matches ErrInvalidFormat with errors.Is.
type FormatError struct {
	Kind Kind
}

func (e *FormatError) Error() string {
	if e.Kind == Photo {
		return "Invalid image format"
	}
	return fmt.Sprintf("Invalid %s format", e.Kind)
}

func (e *FormatError) Is(target error) bool { return target == ErrInvalidFormat }

// File is an uploaded file as received from a request.
type File struct {
	Name   string
	Reader io.Reader
}

// Store validates uploaded files and keeps them under a single directory.
// Stored paths are relative to that directory.
type Store struct {
	dir           string
	extensions    map[Kind]map[string]struct{}
	limits        map[Kind]int64
	thumbnailSize int
	log           logger.Logger
}

// New creates a Store, creating the upload directory if needed.
func New(cfg config.UploadConfig, log logger.Logger) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Store{
		dir: cfg.Dir,
		extensions: map[Kind]map[string]struct{}{
			Photo: toSet(cfg.PhotoExtensions),
			Video: toSet(cfg.VideoExtensions),
		},
		limits: map[Kind]int64{
			Photo: cfg.MaxPhotoSize,
			Video: cfg.MaxVideoSize,
		},
		thumbnailSize: cfg.ThumbnailSize,
		log:           log,
	}, nil
}

func toSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		set[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	return set
}

// Dir returns the directory files are stored in.
func (s *Store) Dir() string { return s.dir }

// Allowed reports whether filename has a dot-delimited extension in the allow-list for kind.
func (s *Store) Allowed(filename string, kind Kind) bool {
	i := strings.LastIndex(filename, ".")
	if i < 0 || i == len(filename)-1 {
		return false
	}
	_, ok := s.extensions[kind][strings.ToLower(filename[i+1:])]
	return ok
}

// Save validates and writes the file, returning its path relative to the upload directory.
// Disallowed names are rejected before anything is written.
func (s *Store) Save(f File, kind Kind) (string, error) {
	name := SanitizeFilename(f.Name)
	if !s.Allowed(name, kind) {
		return "", &FormatError{Kind: kind}
	}

	stored := uuid.NewString()[:8] + "_" + name
	full := filepath.Join(s.dir, stored)
	out, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}

	src := f.Reader
	limit := s.limits[kind]
	if limit > 0 {
		src = io.LimitReader(f.Reader, limit+1)
	}
	written, copyErr := io.Copy(out, src)
	closeErr := out.Close()
	if copyErr == nil && limit > 0 && written > limit {
		copyErr = ErrTooLarge
	}
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(full)
		if copyErr != nil {
			if errors.Is(copyErr, ErrTooLarge) {
				return "", copyErr
			}
			return "", fmt.Errorf("failed to write upload file: %w", copyErr)
		}
		return "", fmt.Errorf("failed to close upload file: %w", closeErr)
	}

	if kind == Photo && s.thumbnailSize > 0 {
		s.Thumbnail(stored, s.thumbnailSize)
	}
	return stored, nil
}

// Remove deletes a stored file and its thumbnail. Empty values and external links are
// ignored, and a file that is already gone is not an error.
func (s *Store) Remove(path string) error {
	if path == "" || strings.Contains(path, "://") {
		return nil
	}
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove upload file: %w", err)
	}
	if err := os.Remove(ThumbnailPath(full)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove thumbnail: %w", err)
	}
	return nil
}

// resolve maps a stored relative path to a file inside the upload directory.
func (s *Store) resolve(path string) (string, error) {
	full := filepath.Join(s.dir, filepath.FromSlash(path))
	rel, err := filepath.Rel(s.dir, full)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path %q is outside the upload directory", path)
	}
	return full, nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// SanitizeFilename strips directory components and any characters that are not
// ASCII letters, digits, '_', '-' or '.'.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = name[strings.LastIndex(name, "/")+1:]
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	name = strings.TrimLeft(name, "._")
	if name == "" {
		return "file"
	}
	return name
}
