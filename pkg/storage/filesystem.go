package storage

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"time"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// LocalStorage persists delivery files on disk under a base directory and
// maps them to a public URL path.
type LocalStorage struct {
	baseDir    string
	publicPath string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir, publicPath string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./uploads/resource-deliveries"
	}
	if publicPath == "" {
		publicPath = "/uploads/resource-deliveries"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir, publicPath: publicPath}, nil
}

// SaveStream stores the reader under a sanitized, timestamp-prefixed name and
// returns the stored filename plus its public URL path.
func (s *LocalStorage) SaveStream(originalName string, r io.Reader) (string, string, error) {
	name := fmt.Sprintf("%d_%s", time.Now().UnixMilli(), SanitizeFilename(originalName))
	target := filepath.Join(s.baseDir, name)

	file, err := os.Create(target)
	if err != nil {
		return "", "", fmt.Errorf("create upload file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := io.Copy(file, r); err != nil {
		return "", "", fmt.Errorf("write upload stream: %w", err)
	}
	return name, path.Join(s.publicPath, name), nil
}

// Open returns a read-only handle for a stored file.
func (s *LocalStorage) Open(filename string) (*os.File, error) {
	file, err := os.Open(filepath.Join(s.baseDir, filepath.Base(filename)))
	if err != nil {
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(filename string) error {
	target := filepath.Join(s.baseDir, filepath.Base(filename))
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete upload file: %w", err)
	}
	return nil
}

// Dir exposes the base directory (used for static file serving).
func (s *LocalStorage) Dir() string {
	return s.baseDir
}

// PublicPath exposes the URL prefix files are served under.
func (s *LocalStorage) PublicPath() string {
	return s.publicPath
}

// SanitizeFilename replaces characters outside [a-zA-Z0-9._-] with underscores.
func SanitizeFilename(name string) string {
	base := filepath.Base(name)
	clean := unsafeChars.ReplaceAllString(base, "_")
	if clean == "" || clean == "." || clean == ".." {
		return "file"
	}
	return clean
}
