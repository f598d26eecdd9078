package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppName names the per-user settings directory.
const AppName = "postgres-code-query-tool"

// historyOff disables the export journal when used as HISTORY_DB.
const historyOff = "off"

type Config struct {
	Port             int
	PortScanAttempts int
	SettingsFile     string
	SettingsDir      string
	ExeDir           string
	DistPath         string
	LogDir           string
	HistoryDB        string
	SuppressAutoOpen bool
	SSLMode          string
	ConnectTimeout   int
	QueryTimeout     time.Duration
	// RateLimit is requests per minute per client on database routes; 0 disables it.
	RateLimit int
	RateBurst int
}

func Load() (*Config, error) {
	// Try loading .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	exeDir := ExeDir()

	settingsDir := os.Getenv("SETTINGS_DIR")
	if settingsDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			home, _ := os.UserHomeDir()
			base = filepath.Join(home, ".config")
		}
		settingsDir = filepath.Join(base, AppName)
	}

	distPath := os.Getenv("DIST_PATH")
	if distPath == "" {
		distPath = filepath.Join(exeDir, "dist")
		if _, err := os.Stat(distPath); err != nil {
			wd, _ := os.Getwd()
			distPath = filepath.Join(wd, "dist")
		}
	}

	historyDB := os.Getenv("HISTORY_DB")
	switch {
	case strings.EqualFold(historyDB, historyOff):
		historyDB = ""
	case historyDB == "":
		historyDB = filepath.Join(settingsDir, "history.db")
	}

	sslMode := os.Getenv("PG_SSLMODE")
	if sslMode == "" {
		sslMode = "disable"
	}

	return &Config{
		Port:             getInt("PORT", 3000),
		PortScanAttempts: getInt("PORT_SCAN_ATTEMPTS", 100),
		SettingsFile:     os.Getenv("SETTINGS_FILE"),
		SettingsDir:      settingsDir,
		ExeDir:           exeDir,
		DistPath:         distPath,
		LogDir:           getString("LOG_DIR", exeDir),
		HistoryDB:        historyDB,
		SuppressAutoOpen: os.Getenv("SUPPRESS_AUTO_OPEN") == "1",
		SSLMode:          sslMode,
		ConnectTimeout:   getInt("PG_CONNECT_TIMEOUT", 10),
		QueryTimeout:     time.Duration(getInt("QUERY_TIMEOUT", 0)) * time.Second,
		RateLimit:        getInt("API_RATE_LIMIT", 120),
		RateBurst:        getInt("API_RATE_BURST", 20),
	}, nil
}

// ExeDir is the directory of the running executable. Under "go run" or
// "go test" the binary lives in a temp build dir, so the working directory
// is used instead.
func ExeDir() string {
	wd, _ := os.Getwd()
	exePath, err := os.Executable()
	if err != nil {
		return wd
	}
	dir := filepath.Dir(exePath)
	if strings.HasPrefix(dir, os.TempDir()) || strings.Contains(dir, "go-build") {
		return wd
	}
	return dir
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return def
	}
	return n
}
