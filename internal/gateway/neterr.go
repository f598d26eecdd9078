package gateway

import (
	"errors"
	"syscall"
)

// networkErrnos are the connect failures worth a loopback retry:
// refused, access denied and unreachable network.
var networkErrnos = append([]error{
	syscall.ECONNREFUSED,
	syscall.EACCES,
	syscall.ENETUNREACH,
}, platformNetworkErrnos...)

// IsNetworkError reports whether err is a network-class connect failure.
// Authentication and SQL errors are not.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range networkErrnos {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
