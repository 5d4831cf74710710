package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStorage keeps generated report files on disk under a base
// directory, grouped by year/month so operators can prune or archive
// old export batches by folder.
type LocalStorage struct {
	baseDir string
	now     func() time.Time
}

// NewLocalStorage creates the base directory when missing.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("storage base directory is empty")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir, now: time.Now}, nil
}

// Save writes a rendered report and returns its path relative to the
// base directory, e.g. "2026/08/payments_all_20260826_101500.csv".
// The relative path is what gets embedded in download tokens.
func (s *LocalStorage) Save(filename string, data []byte) (string, error) {
	relPath, err := s.datedPath(filename)
	if err != nil {
		return "", err
	}
	fullPath := filepath.Join(s.baseDir, relPath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("write report file: %w", err)
	}
	return relPath, nil
}

// Open returns a read handle for a previously saved report.
func (s *LocalStorage) Open(relPath string) (*os.File, error) {
	fullPath, err := s.resolve(relPath)
	if err != nil {
		return nil, err
	}
	return os.Open(fullPath)
}

// Delete removes a stored report. Missing files are not an error so
// cleanup sweeps and manual deletions do not race.
func (s *LocalStorage) Delete(relPath string) error {
	fullPath, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete report file: %w", err)
	}
	return nil
}

// CleanupOlderThan removes report files whose modification time is
// older than ttl and returns their relative paths so the caller can
// expire the matching job rows.
func (s *LocalStorage) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	cutoff := s.now().Add(-ttl)
	var removed []string

	err := filepath.WalkDir(s.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return err
		}
		rel, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			return err
		}
		removed = append(removed, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("cleanup report files: %w", err)
	}
	return removed, nil
}

// datedPath places a file under the year/month folder for the current
// time. Filenames must be bare names so tokens cannot smuggle paths in.
func (s *LocalStorage) datedPath(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) {
		return "", fmt.Errorf("invalid report filename %q", filename)
	}
	now := s.now().UTC()
	return filepath.ToSlash(filepath.Join(now.Format("2006"), now.Format("01"), filename)), nil
}

// resolve maps a relative path back under the base directory and
// rejects anything that escapes it.
func (s *LocalStorage) resolve(relPath string) (string, error) {
	if relPath == "" {
		return "", fmt.Errorf("empty report path")
	}
	cleaned := filepath.Clean(filepath.FromSlash(relPath))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("report path %q escapes storage directory", relPath)
	}
	return filepath.Join(s.baseDir, cleaned), nil
}
