package main

import (
	"encoding/json"
	"fmt"
	"os"

	"codequery/internal/config"
	"codequery/internal/core"
)

const maskedPassword = "********"

// handleSettings prints the settings targets and the settings the server
// would load, with passwords masked.
func handleSettings() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	store := newSettingsStore(cfg)
	s, source, err := store.Peek()
	if err != nil {
		fmt.Printf("Failed to read settings from %s: %v\n", source, err)
		os.Exit(1)
	}

	fmt.Println("Settings files (in priority order):")
	for _, target := range store.Targets() {
		marker := " "
		if target == source {
			marker = "*"
		}
		fmt.Printf("  %s %s\n", marker, target)
	}
	if source == "" {
		fmt.Println("No settings file found; defaults are in use.")
	}
	fmt.Println()

	out, err := json.MarshalIndent(maskPasswords(s), "", "  ")
	if err != nil {
		fmt.Printf("Failed to render settings: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func maskPasswords(s core.Settings) core.Settings {
	s = s.Clone()
	for i := range s.Connections {
		if s.Connections[i].Password != "" {
			s.Connections[i].Password = maskedPassword
		}
	}
	return s
}
