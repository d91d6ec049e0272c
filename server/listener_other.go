//go:build !unix

package server

import "syscall"

func reuseAddrControl(_, _ string, _ syscall.RawConn) error {
	return nil
}

// isAddrInUse is never true off unix, so port probing is disabled there.
func isAddrInUse(error) bool {
	return false
}
