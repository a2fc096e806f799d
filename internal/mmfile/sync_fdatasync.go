//go:build linux || freebsd

package mmfile

import "golang.org/x/sys/unix"

// fdatasync performs file descriptor sync.
//
// On Linux/FreeBSD, fdatasync() provides sufficient guarantees.
func fdatasync(fd int) error {
	return unix.Fdatasync(fd)
}
