//go:build darwin

package mmfile

import "golang.org/x/sys/unix"

// fdatasync uses F_FULLFSYNC; plain fsync on macOS only reaches the drive
// cache.
func fdatasync(fd int) error {
	_, err := unix.FcntlInt(uintptr(fd), unix.F_FULLFSYNC, 0)
	return err
}
