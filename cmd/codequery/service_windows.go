//go:build windows

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

const serviceName = "CodeQuery"
const serviceDisplayName = "Postgres Code Query Server"
const serviceDescription = "codequery - summary and export server for the Postgres codes table"

// codeQueryService implements the svc.Handler interface
type codeQueryService struct{}

// Execute is called by the Windows Service Control Manager
func (s *codeQueryService) Execute(args []string, changeReq <-chan svc.ChangeRequest, status chan<- svc.Status) (bool, uint32) {
	const cmdsAccepted = svc.AcceptStop | svc.AcceptShutdown

	status <- svc.Status{State: svc.StartPending}

	// Change to executable directory so .env and dist are found
	exePath, err := os.Executable()
	if err == nil {
		os.Chdir(filepath.Dir(exePath))
	}

	stopCh := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- runServer(stopCh, false)
	}()

	status <- svc.Status{State: svc.Running, Accepts: cmdsAccepted}

	for {
		select {
		case err := <-done:
			// Server exited on its own
			if err != nil {
				return true, 1
			}
			return false, 0
		case c := <-changeReq:
			switch c.Cmd {
			case svc.Interrogate:
				status <- c.CurrentStatus
			case svc.Stop, svc.Shutdown:
				status <- svc.Status{State: svc.StopPending}
				close(stopCh)
				select {
				case <-done:
				case <-time.After(10 * time.Second):
				}
				return false, 0
			}
		}
	}
}

// isRunningAsService checks if the process is running as a Windows Service
func isRunningAsService() bool {
	isService, err := svc.IsWindowsService()
	if err != nil {
		return false
	}
	return isService
}

// runAsService starts the application as a Windows Service
func runAsService() {
	err := svc.Run(serviceName, &codeQueryService{})
	if err != nil {
		fmt.Printf("Failed to run as service: %v\n", err)
		os.Exit(1)
	}
}

// connectManager opens the service control manager or exits with a hint.
func connectManager() *mgr.Mgr {
	m, err := mgr.Connect()
	if err != nil {
		fmt.Printf("Failed to connect to service manager: %v\n", err)
		fmt.Println("Hint: Run this command as Administrator.")
		os.Exit(1)
	}
	return m
}

// installService registers codequery as an automatic service that waits for
// the network stack and is restarted after a crash.
func installService() {
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}

	m := connectManager()
	defer m.Disconnect()

	if s, err := m.OpenService(serviceName); err == nil {
		s.Close()
		fmt.Printf("Service '%s' is already installed.\n", serviceName)
		return
	}

	s, err := m.CreateService(serviceName, exePath, mgr.Config{
		DisplayName:      serviceDisplayName,
		Description:      serviceDescription,
		StartType:        mgr.StartAutomatic,
		DelayedAutoStart: true,
		Dependencies:     []string{"Tcpip"},
	})
	if err != nil {
		fmt.Printf("Failed to install service: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	recovery := []mgr.RecoveryAction{
		{Type: mgr.ServiceRestart, Delay: 10 * time.Second},
		{Type: mgr.ServiceRestart, Delay: time.Minute},
		{Type: mgr.NoAction},
	}
	if err := s.SetRecoveryActions(recovery, uint32((24 * time.Hour).Seconds())); err != nil {
		fmt.Printf("Warning: failed to set restart-on-failure: %v\n", err)
	}

	fmt.Printf("Service '%s' installed from %s.\n", serviceName, exePath)
	fmt.Println(".env and dist are read from the executable directory.")
	fmt.Println("Start with: codequery start")
}

// uninstallService stops the service if needed and removes it.
func uninstallService() {
	m := connectManager()
	defer m.Disconnect()

	s, err := m.OpenService(serviceName)
	if err != nil {
		fmt.Printf("Service '%s' is not installed.\n", serviceName)
		return
	}
	defer s.Close()

	if st, err := s.Query(); err == nil && st.State != svc.Stopped {
		if err := waitStopped(s); err != nil {
			fmt.Printf("Warning: %v\n", err)
		}
	}

	if err := s.Delete(); err != nil {
		fmt.Printf("Failed to uninstall service: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Service '%s' uninstalled. Settings files were left in place.\n", serviceName)
}

// startService starts the installed service.
func startService() {
	m := connectManager()
	defer m.Disconnect()

	s, err := m.OpenService(serviceName)
	if err != nil {
		fmt.Printf("Service '%s' is not installed. Run 'codequery install' first.\n", serviceName)
		os.Exit(1)
	}
	defer s.Close()

	if err := s.Start(); err != nil {
		fmt.Printf("Failed to start service: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Service '%s' started.\n", serviceName)
}

// stopService asks the running service to stop and waits for it.
func stopService() {
	m := connectManager()
	defer m.Disconnect()

	s, err := m.OpenService(serviceName)
	if err != nil {
		fmt.Printf("Service '%s' is not installed.\n", serviceName)
		os.Exit(1)
	}
	defer s.Close()

	if err := waitStopped(s); err != nil {
		fmt.Printf("Failed to stop service: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Service '%s' stopped.\n", serviceName)
}

// waitStopped sends a stop request and polls until the service reports
// Stopped. The handler waits up to ten seconds for in-flight exports.
func waitStopped(s *mgr.Service) error {
	st, err := s.Control(svc.Stop)
	if err != nil {
		return err
	}
	deadline := time.Now().Add(20 * time.Second)
	for st.State != svc.Stopped {
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for service to stop")
		}
		time.Sleep(300 * time.Millisecond)
		if st, err = s.Query(); err != nil {
			return err
		}
	}
	return nil
}
