package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"codequery/internal/config"
	"codequery/internal/core"
	"codequery/internal/gateway"
)

// handleCheck opens a saved connection through the gateway, with the same
// loopback fallback the server uses, and runs a trivial query.
func handleCheck(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	name := fs.String("c", "", "Saved connection name")
	fs.Parse(args)

	if *name == "" {
		fmt.Println("Usage: codequery check -c <connection name>")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	s, source, err := newSettingsStore(cfg).Peek()
	if err != nil {
		fmt.Printf("Failed to read settings from %s: %v\n", source, err)
		os.Exit(1)
	}
	profile, ok := findConnection(s, *name)
	if !ok {
		fmt.Printf("Connection '%s' not found in settings.\n", *name)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	desc := &core.ConnectionDescriptor{Profile: &profile}
	gw := gateway.New(gateway.Options{SSLMode: cfg.SSLMode, ConnectTimeout: cfg.ConnectTimeout})
	client, err := gw.Open(ctx, desc)
	if err != nil {
		fmt.Printf("Failed to connect to %s: %v\n", gateway.Describe(desc), err)
		os.Exit(1)
	}
	defer client.Close()

	if _, err := client.Query(ctx, "SELECT 1"); err != nil {
		fmt.Printf("Connected, but the test query failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Connection '%s' is working.\n", *name)
}

func findConnection(s core.Settings, name string) (core.ConnectionProfile, bool) {
	for _, c := range s.Connections {
		if c.Name == name {
			return c, true
		}
	}
	return core.ConnectionProfile{}, false
}
