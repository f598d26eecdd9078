package main

import (
	"errors"
	"syscall"
)

func isAddrInUse(err error) bool {
	if errors.Is(err, syscall.EADDRINUSE) {
		return true
	}
	return platformAddrInUse(err)
}
