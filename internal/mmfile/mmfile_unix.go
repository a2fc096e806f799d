//go:build unix

package mmfile

import (
	"errors"

	"golang.org/x/sys/unix"
)

// On unix a MAP_SHARED mapping tracks the file directly, so growing the file
// is all Extend needs and there is no mapping object to keep.
type sysMapping struct{}

func (s *sysMapping) open(*Mapping) error { return nil }

func (s *sysMapping) extend(*Mapping, int64) error { return nil }

func (s *sysMapping) mapRange(m *Mapping, off int64, n int) ([]byte, error) {
	prot := unix.PROT_READ
	if !m.readOnly {
		prot |= unix.PROT_WRITE
	}
	return unix.Mmap(int(m.f.Fd()), off, n, prot, unix.MAP_SHARED)
}

func (s *sysMapping) unmap(_ *Mapping, b []byte) error {
	err := unix.Munmap(b)
	if errors.Is(err, unix.EINVAL) {
		// Treat double-unmap as no-op for callers.
		return nil
	}
	return err
}

func (s *sysMapping) flush(_ *Mapping, b []byte) error {
	return unix.Msync(b, unix.MS_SYNC)
}

func (s *sysMapping) sync(m *Mapping) error {
	return fdatasync(int(m.f.Fd()))
}

func (s *sysMapping) close() error { return nil }
