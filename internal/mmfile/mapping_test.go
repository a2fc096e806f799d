package mmfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testChunk = 64 << 10

func openTemp(t *testing.T) *os.File {
	t.Helper()
	f, err := os.OpenFile(filepath.Join(t.TempDir(), "pool.bin"), os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestExtendAndMap(t *testing.T) {
	f := openTemp(t)
	m, err := New(f, false)
	require.NoError(t, err)
	defer m.Close()

	require.Equal(t, int64(0), m.Size())
	require.NoError(t, m.Extend(2*testChunk))
	require.Equal(t, int64(2*testChunk), m.Size())

	st, err := f.Stat()
	require.NoError(t, err)
	require.Equal(t, int64(2*testChunk), st.Size())

	b, err := m.MapRange(testChunk, testChunk)
	require.NoError(t, err)
	require.Len(t, b, testChunk)
	for _, c := range b {
		require.Zero(t, c)
	}
	copy(b, "hello")
	require.NoError(t, m.Flush(b))
	require.NoError(t, m.Sync())
	require.NoError(t, m.Unmap(b))

	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data[testChunk:testChunk+5])
}

func TestExtendNeverShrinks(t *testing.T) {
	f := openTemp(t)
	m, err := New(f, false)
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Extend(testChunk))
	require.NoError(t, m.Extend(testChunk/2))
	require.Equal(t, int64(testChunk), m.Size())
}

func TestMapRangeOutOfBounds(t *testing.T) {
	f := openTemp(t)
	m, err := New(f, false)
	require.NoError(t, err)
	defer m.Close()
	require.NoError(t, m.Extend(testChunk))

	_, err = m.MapRange(testChunk, testChunk)
	require.True(t, errors.Is(err, ErrRange))
	_, err = m.MapRange(-1, 10)
	require.True(t, errors.Is(err, ErrRange))
	_, err = m.MapRange(0, 0)
	require.True(t, errors.Is(err, ErrRange))
}

func TestReadOnlyMapping(t *testing.T) {
	f := openTemp(t)
	require.NoError(t, f.Truncate(testChunk))
	_, err := f.WriteAt([]byte("abc"), 0)
	require.NoError(t, err)

	ro, err := os.Open(f.Name())
	require.NoError(t, err)
	defer ro.Close()

	m, err := New(ro, true)
	require.NoError(t, err)
	defer m.Close()

	require.True(t, m.ReadOnly())
	require.True(t, errors.Is(m.Extend(2*testChunk), ErrReadOnly))

	b, err := m.MapRange(0, testChunk)
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), b[:3])
	require.NoError(t, m.Flush(b))
	require.NoError(t, m.Unmap(b))
}

func TestClosedMapping(t *testing.T) {
	f := openTemp(t)
	m, err := New(f, false)
	require.NoError(t, err)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	require.True(t, errors.Is(m.Extend(testChunk), ErrClosed))
	_, err = m.MapRange(0, 1)
	require.True(t, errors.Is(err, ErrClosed))
}
