package filepool

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestPool opens a fresh pool in a temp dir. It is closed at cleanup.
func newTestPool(t *testing.T, shift uint32, maxInactive int) (*Pool, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.pool")
	p, err := Open(path, false, &Params{SegmentShift: shift, MaxInactiveViews: maxInactive})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p, path
}

// recoverError runs fn and returns the error it panicked with.
func recoverError(t *testing.T, fn func()) (err error) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		e, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		err = e
	}()
	fn()
	return nil
}

func requireInvalidHandle(t *testing.T, fn func()) {
	t.Helper()
	err := recoverError(t, fn)
	require.True(t, errors.Is(err, ErrInvalidHandle), "got %v", err)
}

// allocN allocates n bodies of size bytes, stamps each with its index and
// drops the returned references.
func allocN(t *testing.T, p *Pool, n int, size uint32) []RVA {
	t.Helper()
	rvas := make([]RVA, 0, n)
	for i := 0; i < n; i++ {
		b, rva, err := p.Alloc(size)
		require.NoError(t, err, "alloc %d", i)
		stamp(b, i)
		p.Deref(b)
		rvas = append(rvas, rva)
	}
	return rvas
}

func stamp(b []byte, seed int) {
	for i := range b {
		b[i] = byte(seed + i)
	}
}

func requireStamp(t *testing.T, p *Pool, rva RVA, size uint32, seed int) {
	t.Helper()
	b, err := p.RefRVA(rva)
	require.NoError(t, err)
	require.NotNil(t, b, "rva %#x", rva)
	defer p.DerefRVA(rva)
	for i := 0; i < int(size); i++ {
		if b[i] != byte(seed+i) {
			require.FailNow(t, fmt.Sprintf("rva %#x byte %d: got %d want %d", rva, i, b[i], byte(seed+i)))
		}
	}
}

func segmentOf(p *Pool, rva RVA) uint32 {
	return uint32(rva) >> p.SegmentShift()
}
