//go:build !unix && !windows

package mmfile

import (
	"errors"
	"unsafe"
)

// Without mmap, ranges are heap copies written back on Flush and Unmap.
type sysMapping struct {
	offsets map[*byte]int64
}

func (s *sysMapping) open(*Mapping) error {
	s.offsets = make(map[*byte]int64)
	return nil
}

func (s *sysMapping) extend(*Mapping, int64) error { return nil }

func (s *sysMapping) mapRange(m *Mapping, off int64, n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := m.f.ReadAt(b, off); err != nil {
		return nil, err
	}
	s.offsets[unsafe.SliceData(b)] = off
	return b, nil
}

func (s *sysMapping) unmap(m *Mapping, b []byte) error {
	key := unsafe.SliceData(b)
	if _, ok := s.offsets[key]; !ok {
		return nil
	}
	err := s.flush(m, b)
	delete(s.offsets, key)
	return err
}

func (s *sysMapping) flush(m *Mapping, b []byte) error {
	if m.readOnly {
		return nil
	}
	off, ok := s.offsets[unsafe.SliceData(b)]
	if !ok {
		return errors.New("range was not mapped")
	}
	_, err := m.f.WriteAt(b, off)
	return err
}

func (s *sysMapping) sync(m *Mapping) error {
	return m.f.Sync()
}

func (s *sysMapping) close() error { return nil }
