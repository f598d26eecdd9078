//go:build !windows

package main

func platformAddrInUse(err error) bool {
	return false
}
