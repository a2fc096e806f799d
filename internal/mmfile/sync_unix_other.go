//go:build unix && !linux && !freebsd && !darwin

package mmfile

import "golang.org/x/sys/unix"

func fdatasync(fd int) error {
	return unix.Fsync(fd)
}
