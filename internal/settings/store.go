package settings

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"codequery/internal/core"
)

// ErrNoTargetPersisted is returned when no settings target accepted a write.
var ErrNoTargetPersisted = errors.New("failed to persist settings")

// PersistError carries the per-target outcomes of a failed save.
type PersistError struct {
	Attempts []core.SaveAttempt
}

func (e *PersistError) Error() string {
	msgs := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		msgs = append(msgs, a.Path+": "+a.Error)
	}
	return fmt.Sprintf("%s (%s)", ErrNoTargetPersisted, strings.Join(msgs, "; "))
}

func (e *PersistError) Unwrap() error {
	return ErrNoTargetPersisted
}

// Store is the authoritative settings, cached in memory and persisted to
// every target.
type Store struct {
	fs      afero.Fs
	files   *AtomicFileStore
	targets []string

	mu     sync.RWMutex
	cache  core.Settings
	source string
	loaded bool

	// writeMu serializes reloads and saves so the targets never interleave.
	writeMu sync.Mutex
}

func NewStore(fs afero.Fs, targets []string) *Store {
	return &Store{
		fs:      fs,
		files:   NewAtomicFileStore(fs),
		targets: targets,
		cache:   core.DefaultSettings(),
	}
}

// Targets returns the settings files in priority order.
func (s *Store) Targets() []string {
	return append([]string(nil), s.targets...)
}

// Source is the file the cached settings were loaded from, empty when the
// defaults are in use.
func (s *Store) Source() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Load returns a copy of the cached settings, reading the targets on first use.
func (s *Store) Load(ctx context.Context) core.Settings {
	s.mu.RLock()
	if s.loaded {
		out := s.cache.Clone()
		s.mu.RUnlock()
		return out
	}
	s.mu.RUnlock()
	return s.Reload(ctx)
}

// Reload repairs stray artifacts, reads the most recently modified target
// and copies it to the other targets. Any failure yields empty settings.
func (s *Store) Reload(ctx context.Context) core.Settings {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	loaded, source, err := s.readNewest()
	if err != nil {
		zap.S().Named("settings").Errorw("failed to load settings, using defaults", "path", source, "error", err)
		loaded, source = core.DefaultSettings(), ""
	}

	s.mu.Lock()
	s.cache = loaded
	s.source = source
	s.loaded = true
	out := s.cache.Clone()
	s.mu.Unlock()
	return out
}

func (s *Store) readNewest() (core.Settings, string, error) {
	for _, target := range s.targets {
		s.files.RepairStray(target)
	}

	loaded, selected, data, err := s.readSelected()
	if err != nil || selected == "" {
		return loaded, selected, err
	}

	s.syncOthers(selected, data)
	zap.S().Named("settings").Infow("settings loaded",
		"path", selected,
		"connections", len(loaded.Connections),
		"products", len(loaded.Products),
		"labels", len(loaded.FieldLabels),
	)
	return loaded, selected, nil
}

// Peek reads the settings the next Reload would select without repairing
// or syncing any target. It never writes.
func (s *Store) Peek() (core.Settings, string, error) {
	loaded, selected, _, err := s.readSelected()
	return loaded, selected, err
}

// readSelected decodes the most recently modified target. Later targets win
// ties. selected is empty when no target exists.
func (s *Store) readSelected() (loaded core.Settings, selected string, data []byte, err error) {
	var (
		newest time.Time
		found  bool
	)
	for _, target := range s.targets {
		info, err := s.fs.Stat(target)
		if err != nil {
			continue
		}
		if !found || !info.ModTime().Before(newest) {
			selected, newest, found = target, info.ModTime(), true
		}
	}
	if !found {
		return core.DefaultSettings(), "", nil, nil
	}

	data, err = afero.ReadFile(s.fs, selected)
	if err != nil {
		return core.Settings{}, selected, nil, err
	}
	loaded, err = Decode(data)
	if err != nil {
		return core.Settings{}, selected, nil, err
	}
	return loaded, selected, data, nil
}

// syncOthers copies the selected file's bytes to the other targets, so
// entries the decoder skipped survive in every copy.
func (s *Store) syncOthers(source string, data []byte) {
	for _, target := range s.targets {
		if target == source {
			continue
		}
		if err := s.files.WriteAtomic(target, data); err != nil {
			zap.S().Named("settings").Warnw("settings sync failed", "path", target, "from", source, "error", err)
		}
	}
}

// Save replaces the cached settings and writes them to every target. It
// fails only when no target could be written; targets that failed receive
// a plain copy of the first successful one.
func (s *Store) Save(ctx context.Context, in core.Settings) (*core.SaveResult, error) {
	log := zap.S().Named("settings")
	settings := assignIDs(in.Normalize().Clone())

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.cache = settings.Clone()
	s.loaded = true
	s.mu.Unlock()

	data, err := Encode(settings)
	if err != nil {
		return nil, err
	}

	result := &core.SaveResult{Attempts: make([]core.SaveAttempt, 0, len(s.targets))}
	var failed []string
	for _, target := range s.targets {
		if err := s.files.WriteAtomic(target, data); err != nil {
			log.Warnw("settings write failed", "path", target, "error", err)
			result.Attempts = append(result.Attempts, core.SaveAttempt{Path: target, OK: false, Error: err.Error()})
			failed = append(failed, target)
			continue
		}
		log.Infow("settings persisted",
			"path", target,
			"connections", len(settings.Connections),
			"products", len(settings.Products),
			"labels", len(settings.FieldLabels),
		)
		if result.Path == "" {
			result.Path = target
		}
		result.Attempts = append(result.Attempts, core.SaveAttempt{Path: target, OK: true})
	}

	if result.Path == "" {
		return nil, &PersistError{Attempts: result.Attempts}
	}

	s.mu.Lock()
	s.source = result.Path
	s.mu.Unlock()

	if len(failed) > 0 {
		s.replicate(result.Path, failed)
	}
	return result, nil
}

func (s *Store) replicate(primary string, failed []string) {
	log := zap.S().Named("settings")
	data, err := afero.ReadFile(s.fs, primary)
	if err != nil {
		log.Warnw("settings replication failed", "from", primary, "error", err)
		return
	}
	for _, target := range failed {
		if err := s.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			log.Warnw("settings fallback write failed", "path", target, "error", err)
			continue
		}
		if err := afero.WriteFile(s.fs, target, data, filePerm); err != nil {
			log.Warnw("settings fallback write failed", "path", target, "error", err)
			continue
		}
		log.Infow("settings fallback write succeeded", "path", target)
	}
}

func assignIDs(s core.Settings) core.Settings {
	for i := range s.Connections {
		if s.Connections[i].ID == "" {
			s.Connections[i].ID = uuid.NewString()
		}
	}
	for i := range s.Products {
		if s.Products[i].ID == "" {
			s.Products[i].ID = uuid.NewString()
		}
	}
	return s
}

// Validate checks the products of a settings document.
func Validate(s core.Settings) error {
	for _, p := range s.Products {
		if err := core.ValidateGTIN(p.GTIN); err != nil {
			return err
		}
	}
	return nil
}
