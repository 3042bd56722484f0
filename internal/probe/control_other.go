//go:build !linux

package probe

import "syscall"

// setDontFragment is a no-op where the DF socket option is not portable.
func setDontFragment(_, _ string, _ syscall.RawConn) error {
	return nil
}
