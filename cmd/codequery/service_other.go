//go:build !windows

package main

import (
	"fmt"
	"os"
)

func isRunningAsService() bool {
	return false
}

func runAsService() {}

func installService()   { serviceUnsupported("install") }
func uninstallService() { serviceUnsupported("uninstall") }
func startService()     { serviceUnsupported("start") }
func stopService()      { serviceUnsupported("stop") }

func serviceUnsupported(cmd string) {
	fmt.Printf("'%s' manages a Windows service and is not available on this platform.\n", cmd)
	fmt.Println("Use systemd or launchd to run 'codequery' in the background.")
	os.Exit(1)
}
