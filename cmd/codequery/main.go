package main

import (
	"fmt"
	"os"
)

func main() {
	if isRunningAsService() {
		runAsService()
		return
	}

	// Check for CLI subcommands
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "settings":
			handleSettings()
			return
		case "check":
			handleCheck(os.Args[2:])
			return
		case "install":
			installService()
			return
		case "uninstall":
			uninstallService()
			return
		case "start":
			startService()
			return
		case "stop":
			stopService()
			return
		case "help", "--help", "-h":
			printHelp()
			return
		default:
			fmt.Printf("Unknown command: %s\n", os.Args[1])
			printHelp()
			os.Exit(1)
		}
	}

	// No subcommand: start server
	if err := runServer(nil, true); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("codequery - Postgres code query server")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  codequery                      Start the server")
	fmt.Println("  codequery settings             Show settings files and the loaded settings (read-only)")
	fmt.Println("  codequery check -c <name>      Test a saved connection")
	fmt.Println("  codequery install              Install as a Windows service")
	fmt.Println("  codequery uninstall            Remove the Windows service")
	fmt.Println("  codequery start | stop         Start or stop the Windows service")
	fmt.Println("  codequery help                 Show this help")
}
