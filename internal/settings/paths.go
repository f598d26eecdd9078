package settings

import (
	"path/filepath"
)

// FileName is the settings document name in every target directory.
const FileName = "settings.json"

// Targets lists the settings files in priority order: an explicit file,
// the file next to the executable, then the per-user settings directory.
// Empty entries are skipped and duplicates removed.
func Targets(explicit, exeDir, settingsDir string) []string {
	candidates := []string{explicit}
	if exeDir != "" {
		candidates = append(candidates, filepath.Join(exeDir, FileName))
	}
	if settingsDir != "" {
		candidates = append(candidates, filepath.Join(settingsDir, FileName))
	}

	var out []string
	seen := map[string]struct{}{}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		c = filepath.Clean(c)
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
