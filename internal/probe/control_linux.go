//go:build linux

package probe

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// setDontFragment sets IP_PMTUDISC_DO so echo requests leave with DF set.
func setDontFragment(_, _ string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_IP, unix.IP_MTU_DISCOVER, unix.IP_PMTUDISC_DO)
	})
	if err != nil {
		return err
	}
	return sockErr
}
