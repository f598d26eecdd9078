//go:build windows

package gateway

import "golang.org/x/sys/windows"

// Winsock reports connect failures with its own error numbers.
var platformNetworkErrnos = []error{
	windows.WSAECONNREFUSED,
	windows.WSAEACCES,
	windows.WSAENETUNREACH,
}
