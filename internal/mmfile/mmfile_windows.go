//go:build windows

package mmfile

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// sysMapping holds the file mapping object. A mapping object has a fixed
// maximum size, so Extend replaces it; views mapped from the old object stay
// valid because each view keeps its own reference to the section.
type sysMapping struct {
	section windows.Handle
}

func (s *sysMapping) open(m *Mapping) error {
	if m.size == 0 {
		// CreateFileMapping rejects empty files; created on first Extend.
		return nil
	}
	return s.create(m, m.size)
}

func (s *sysMapping) create(m *Mapping, size int64) error {
	prot := uint32(windows.PAGE_READWRITE)
	if m.readOnly {
		prot = windows.PAGE_READONLY
	}
	h, err := windows.CreateFileMapping(
		windows.Handle(m.f.Fd()),
		nil,
		prot,
		uint32(size>>32),
		uint32(size),
		nil,
	)
	if err != nil {
		return err
	}
	s.section = h
	return nil
}

func (s *sysMapping) extend(m *Mapping, size int64) error {
	old := s.section
	if err := s.create(m, size); err != nil {
		return err
	}
	if old != 0 {
		_ = windows.CloseHandle(old)
	}
	return nil
}

func (s *sysMapping) mapRange(m *Mapping, off int64, n int) ([]byte, error) {
	access := uint32(windows.FILE_MAP_WRITE)
	if m.readOnly {
		access = windows.FILE_MAP_READ
	}
	addr, err := windows.MapViewOfFile(s.section, access, uint32(off>>32), uint32(off), uintptr(n))
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n), nil
}

func (s *sysMapping) unmap(_ *Mapping, b []byte) error {
	return windows.UnmapViewOfFile(uintptr(unsafe.Pointer(&b[0])))
}

func (s *sysMapping) flush(_ *Mapping, b []byte) error {
	addr := uintptr(unsafe.Pointer(&b[0]))
	return windows.FlushViewOfFile(addr, uintptr(len(b)))
}

func (s *sysMapping) sync(m *Mapping) error {
	return windows.FlushFileBuffers(windows.Handle(m.f.Fd()))
}

func (s *sysMapping) close() error {
	if s.section == 0 {
		return nil
	}
	err := windows.CloseHandle(s.section)
	s.section = 0
	return err
}
