package core

import "context"

// HistoryRepository defines storage operations for the export journal
type HistoryRepository interface {
	Create(ctx context.Context, entry *HistoryEntry) error
	GetRecent(ctx context.Context, limit int) ([]HistoryEntry, error)
}

// SettingsRepository defines the settings persistence used by handlers
type SettingsRepository interface {
	Load(ctx context.Context) Settings
	Save(ctx context.Context, s Settings) (*SaveResult, error)
}

// SaveAttempt records the outcome of persisting settings to one path.
type SaveAttempt struct {
	Path  string `json:"path"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type SaveResult struct {
	Path     string        `json:"path"`
	Attempts []SaveAttempt `json:"attempts"`
}
