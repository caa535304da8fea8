package services

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// FileURLPrefix is where stored files are served from
const FileURLPrefix = "/api/files/"

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// FileStorage keeps uploaded images on the local filesystem under UUID names
type FileStorage struct {
	dir string
}

// NewFileStorage creates the upload directory if needed
func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
	}
	return &FileStorage{dir: dir}, nil
}

// Dir returns the upload directory
func (f *FileStorage) Dir() string {
	return f.dir
}

// Store copies r into a new file that keeps the extension of name and
// returns the URL it is served under
func (f *FileStorage) Store(name string, r io.Reader) (string, error) {
	if name == "" || strings.Contains(name, "..") {
		return "", fmt.Errorf("%q: %w", name, ErrInvalidFileName)
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !imageExtensions[ext] {
		return "", fmt.Errorf("%q is not an image: %w", name, ErrInvalidFileName)
	}

	stored := uuid.NewString() + ext
	path := filepath.Join(f.dir, stored)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}

	log.Info().Str("original", name).Str("stored", stored).Msg("💾 File stored")
	return FileURLPrefix + stored, nil
}

// Path resolves a stored file name to its location on disk
func (f *FileStorage) Path(name string) (string, error) {
	if name == "" || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%q: %w", name, ErrInvalidFileName)
	}

	path := filepath.Join(f.dir, name)
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && info.IsDir()) {
		return "", fmt.Errorf("file %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return path, nil
}
