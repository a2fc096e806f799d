// Package mmfile provides a growable shared mapping over a pool file.
//
// A Mapping owns nothing but the OS mapping object; the caller keeps the
// *os.File open for as long as the mapping is in use and unmaps every range
// it mapped before calling Close.
package mmfile

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrReadOnly indicates a write operation on a read-only mapping.
	ErrReadOnly = errors.New("mmfile: mapping is read-only")
	// ErrRange indicates a range outside the mapped file size.
	ErrRange = errors.New("mmfile: range out of bounds")
	// ErrClosed indicates use of a closed mapping.
	ErrClosed = errors.New("mmfile: mapping closed")
)

// Mapping is a growable file mapping from which byte ranges are mapped
// independently.
//
// NOT thread-safe.
type Mapping struct {
	f        *os.File
	readOnly bool
	size     int64
	closed   bool
	sys      sysMapping
}

// New creates a mapping over f covering its current size.
func New(f *os.File, readOnly bool) (*Mapping, error) {
	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("mmfile: stat: %w", err)
	}
	m := &Mapping{
		f:        f,
		readOnly: readOnly,
		size:     st.Size(),
	}
	if err := m.sys.open(m); err != nil {
		return nil, fmt.Errorf("mmfile: create mapping: %w", err)
	}
	return m, nil
}

// Size returns the current length of the mapping in bytes.
func (m *Mapping) Size() int64 { return m.size }

// ReadOnly reports whether ranges are mapped without write access.
func (m *Mapping) ReadOnly() bool { return m.readOnly }

// Extend grows the file and the mapping to newSize bytes. The new bytes read
// as zero. A newSize at or below the current size is a no-op.
func (m *Mapping) Extend(newSize int64) error {
	if m.closed {
		return ErrClosed
	}
	if newSize <= m.size {
		return nil
	}
	if m.readOnly {
		return ErrReadOnly
	}
	if err := m.f.Truncate(newSize); err != nil {
		return fmt.Errorf("mmfile: extend to %d: %w", newSize, err)
	}
	if err := m.sys.extend(m, newSize); err != nil {
		return fmt.Errorf("mmfile: extend mapping to %d: %w", newSize, err)
	}
	m.size = newSize
	return nil
}

// MapRange maps n bytes starting at file offset off. The offset must be a
// multiple of the OS allocation granularity (64 KiB covers every platform).
func (m *Mapping) MapRange(off int64, n int) ([]byte, error) {
	if m.closed {
		return nil, ErrClosed
	}
	if off < 0 || n <= 0 || off+int64(n) > m.size {
		return nil, fmt.Errorf("%w: [%d, %d) of %d", ErrRange, off, off+int64(n), m.size)
	}
	b, err := m.sys.mapRange(m, off, n)
	if err != nil {
		return nil, fmt.Errorf("mmfile: map [%d, %d): %w", off, off+int64(n), err)
	}
	return b, nil
}

// Unmap releases a range returned by MapRange.
func (m *Mapping) Unmap(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if err := m.sys.unmap(m, b); err != nil {
		return fmt.Errorf("mmfile: unmap: %w", err)
	}
	return nil
}

// Flush writes the pages of a mapped range back to the file.
func (m *Mapping) Flush(b []byte) error {
	if m.readOnly || len(b) == 0 {
		return nil
	}
	if err := m.sys.flush(m, b); err != nil {
		return fmt.Errorf("mmfile: flush: %w", err)
	}
	return nil
}

// Sync commits the file contents to stable storage.
func (m *Mapping) Sync() error {
	if m.readOnly {
		return nil
	}
	if err := m.sys.sync(m); err != nil {
		return fmt.Errorf("mmfile: sync: %w", err)
	}
	return nil
}

// Close releases the mapping object. Ranges must already be unmapped.
func (m *Mapping) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	return m.sys.close()
}
