package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const filePerm os.FileMode = 0o644

// AtomicFileStore replaces files through a .tmp/.bak sequence so a target
// that existed before a write is never left missing.
type AtomicFileStore struct {
	fs afero.Fs
}

func NewAtomicFileStore(fs afero.Fs) *AtomicFileStore {
	return &AtomicFileStore{fs: fs}
}

func tmpPath(path string) string { return path + ".tmp" }
func bakPath(path string) string { return path + ".bak" }

// WriteAtomic writes data to path: write <path>.tmp, drop an old .bak, move
// the current file to .bak, move .tmp into place, then drop .bak. A failed
// final rename restores .bak before the error is returned.
func (s *AtomicFileStore) WriteAtomic(path string, data []byte) error {
	log := zap.S().Named("settings")
	tmp, bak := tmpPath(path), bakPath(path)

	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := afero.WriteFile(s.fs, tmp, data, filePerm); err != nil {
		s.removeIfExists(tmp)
		return err
	}

	if s.exists(bak) {
		if err := s.fs.Remove(bak); err != nil {
			log.Warnw("failed to clear backup before write", "path", bak, "error", err)
		}
	}

	if s.exists(path) {
		if err := s.fs.Rename(path, bak); err != nil {
			s.removeIfExists(tmp)
			return err
		}
	}

	if err := s.fs.Rename(tmp, path); err != nil {
		if s.exists(bak) {
			if restoreErr := s.fs.Rename(bak, path); restoreErr != nil {
				log.Errorw("failed to restore backup", "path", path, "error", restoreErr)
			}
		}
		s.removeIfExists(tmp)
		return err
	}

	s.removeIfExists(bak)
	return nil
}

// RepairStray resolves artifacts an interrupted write left behind. A stray
// file is promoted when the target is missing and discarded otherwise; .tmp
// is considered before .bak.
func (s *AtomicFileStore) RepairStray(path string) {
	log := zap.S().Named("settings")
	for _, stray := range []string{tmpPath(path), bakPath(path)} {
		if !s.exists(stray) {
			continue
		}
		var err error
		if !s.exists(path) {
			err = s.fs.Rename(stray, path)
			if err == nil {
				log.Infow("recovered settings from stray file", "path", path, "from", stray)
			}
		} else {
			err = s.fs.Remove(stray)
		}
		if err != nil {
			log.Warnw("failed to process stray settings file", "path", stray, "error", err)
		}
	}
}

func (s *AtomicFileStore) exists(path string) bool {
	ok, err := afero.Exists(s.fs, path)
	return err == nil && ok
}

func (s *AtomicFileStore) removeIfExists(path string) {
	if err := s.fs.Remove(path); err != nil && !os.IsNotExist(err) {
		zap.S().Named("settings").Warnw("failed to remove file", "path", path, "error", err)
	}
}
