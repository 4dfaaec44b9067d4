package services

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"
)

// StorageService handles the local upload directory holding uploaded
// documents and generated previews.
type StorageService struct {
	basePath string
}

// NewStorageService creates a new local storage service, creating the
// directory if needed.
func NewStorageService(basePath string) (*StorageService, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &StorageService{basePath: basePath}, nil
}

// Dir returns the storage root.
func (s *StorageService) Dir() string {
	return s.basePath
}

// Path returns the on-disk location of a stored name.
func (s *StorageService) Path(name string) string {
	return filepath.Join(s.basePath, name)
}

// Save streams an upload to disk under the given storage name.
func (s *StorageService) Save(name string, reader io.Reader) error {
	fullPath := s.Path(name)

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		// Clean up on error
		os.Remove(fullPath)
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// SavePNG stores a bitmap as a PNG under the given storage name.
func (s *StorageService) SavePNG(name string, img image.Image) error {
	fullPath := s.Path(name)

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		os.Remove(fullPath)
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// Exists reports whether a stored name is present.
func (s *StorageService) Exists(name string) bool {
	info, err := os.Stat(s.Path(name))
	return err == nil && !info.IsDir()
}

// Delete removes a stored file and reports whether it existed.
func (s *StorageService) Delete(name string) (bool, error) {
	err := os.Remove(s.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete file: %w", err)
	}
	return true, nil
}

// Sweep deletes stored files whose modification time is older than maxAge.
// Per-file failures are logged and skipped, never fatal.
func (s *StorageService) Sweep(maxAge time.Duration) int {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		log.Printf("[STORAGE] WARNING: sweep could not list %s: %v", s.basePath, err)
		return 0
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			log.Printf("[STORAGE] WARNING: sweep could not stat %s: %v", entry.Name(), err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.basePath, entry.Name())); err != nil {
			log.Printf("[STORAGE] WARNING: sweep could not delete %s: %v", entry.Name(), err)
			continue
		}
		removed++
	}

	if removed > 0 {
		log.Printf("[STORAGE] sweep removed %d expired file(s)", removed)
	}
	return removed
}
