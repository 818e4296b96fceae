// Package fsstore owns raw image files on disk. Each project keeps its
// images under <root>/<projectID>/raw; records reference files by the
// path relative to the project directory.
package fsstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const rawDirName = "raw"

// saveAttempts bounds the suffix retry loop; more collisions than this in
// one call means something other than a filename race is wrong.
const saveAttempts = 5

type Store struct {
	root string
}

func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) projectDir(projectID uuid.UUID) string {
	return filepath.Join(s.root, projectID.String(), rawDirName)
}

// Save writes data under desiredName in the project's raw directory. The
// file is created with O_EXCL so a name can never be taken twice: on
// conflict the stem gets an epoch-nanosecond suffix and the create is
// retried.
func (s *Store) Save(projectID uuid.UUID, desiredName string, data []byte) (string, string, error) {
	dir := s.projectDir(projectID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create project directory: %w", err)
	}

	// Reject path traversal in device-supplied names.
	desiredName = filepath.Base(desiredName)

	name := desiredName
	for attempt := 0; attempt < saveAttempts; attempt++ {
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			if _, werr := f.Write(data); werr != nil {
				f.Close()
				os.Remove(filepath.Join(dir, name))
				return "", "", fmt.Errorf("write image file: %w", werr)
			}
			if cerr := f.Close(); cerr != nil {
				return "", "", fmt.Errorf("close image file: %w", cerr)
			}
			return name, path.Join(rawDirName, name), nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", "", fmt.Errorf("create image file: %w", err)
		}

		ext := filepath.Ext(desiredName)
		stem := strings.TrimSuffix(desiredName, ext)
		name = fmt.Sprintf("%s_%d%s", stem, time.Now().UnixNano(), ext)
	}
	return "", "", fmt.Errorf("reserve filename for %s: retries exhausted", desiredName)
}

func (s *Store) Remove(projectID uuid.UUID, relPath string) error {
	return os.Remove(s.Abs(projectID, relPath))
}

func (s *Store) Exists(projectID uuid.UUID, relPath string) bool {
	info, err := os.Stat(s.Abs(projectID, relPath))
	return err == nil && !info.IsDir()
}

func (s *Store) Abs(projectID uuid.UUID, relPath string) string {
	return filepath.Join(s.root, projectID.String(), filepath.FromSlash(relPath))
}
