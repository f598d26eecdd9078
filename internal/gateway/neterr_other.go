//go:build !windows

package gateway

var platformNetworkErrnos []error
