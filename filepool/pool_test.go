package filepool

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/filepool/internal/format"
)

func TestOpen_NewFileLayout(t *testing.T) {
	p, path := newTestPool(t, 16, 8)

	require.Equal(t, uint32(16), p.SegmentShift())
	require.Equal(t, uint32(1), p.SegmentCount())
	require.False(t, p.ReadOnly())
	require.Equal(t, uint64(0), p.UserContext())

	st, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(1<<16), st.Size())

	// Segment 0 has 1019 free blocks, which is short of class 0.
	for class := 0; class < format.FreeListCount; class++ {
		want := format.NoSegment
		if class == 1 {
			want = 0
		}
		require.Equal(t, want, p.header.FreeList(class), "class %d", class)
	}
	require.NoError(t, p.Check())
}

func TestOpen_ReopenKeepsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctx.pool")

	p, err := Open(path, false, &Params{SegmentShift: 16, MaxInactiveViews: 4})
	require.NoError(t, err)
	require.NoError(t, p.SetUserContext(0xfeedface12345678))
	allocN(t, p, 3, 40)
	require.NoError(t, p.Close())

	// The stored shift wins over the requested one.
	p, err = Open(path, false, &Params{SegmentShift: 20, MaxInactiveViews: 4})
	require.NoError(t, err)
	defer p.Close()
	require.Equal(t, uint32(16), p.SegmentShift())
	require.Equal(t, uint64(0xfeedface12345678), p.UserContext())
	require.NoError(t, p.Check())
}

func TestOpen_DefaultParams(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.pool")
	p, err := Open(path, false, nil)
	require.NoError(t, err)
	defer p.Close()

	require.Equal(t, uint32(format.DefaultSegmentShift), p.SegmentShift())
	require.Equal(t, DefaultMaxInactiveViews, p.maxInactive)
}

func TestOpen_ReadOnlyEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.pool")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := Open(path, true, nil)
	require.ErrorIs(t, err, ErrUnsupported)

	// An existing file is never removed.
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestOpen_BadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.pool")
	require.NoError(t, os.WriteFile(path, make([]byte, format.PageSize), 0o644))

	_, err := Open(path, false, nil)
	require.ErrorIs(t, err, ErrBadFormat)
	require.ErrorIs(t, err, format.ErrSignatureMismatch)
}

func TestOpen_TruncatedFile(t *testing.T) {
	p, path := newTestPool(t, 16, 4)
	_, _, err := p.Alloc(p.MaxAllocSize())
	require.NoError(t, err)
	require.Equal(t, uint32(2), p.SegmentCount())
	require.NoError(t, p.Close())

	require.NoError(t, os.Truncate(path, 1<<16+format.PageSize))
	_, err = Open(path, false, nil)
	require.ErrorIs(t, err, ErrBadFormat)
}

func TestOpen_MissingReadOnly(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.pool"), true, nil)
	require.Error(t, err)
}

func TestCreate_CallerOwnsFile(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "owned.pool"))
	require.NoError(t, err)
	defer f.Close()

	p, err := Create(f, false, &Params{SegmentShift: 17, MaxInactiveViews: 2})
	require.NoError(t, err)
	allocN(t, p, 10, 100)
	require.NoError(t, p.Close())

	st, err := f.Stat()
	require.NoError(t, err, "Close must leave a caller-owned file open")
	require.Equal(t, int64(1<<17), st.Size())
}

func TestParams_ShiftClamped(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	path := filepath.Join(t.TempDir(), "clamp.pool")
	p, err := Open(path, false, &Params{SegmentShift: 3, MaxInactiveViews: 1, Logger: logger})
	require.NoError(t, err)
	defer p.Close()

	require.Equal(t, uint32(format.MinSegmentShift), p.SegmentShift())
	require.Contains(t, logs.String(), "segment shift out of range")
}

func TestParams_Resolve(t *testing.T) {
	got := resolve(&Params{SegmentShift: 99, MaxInactiveViews: -5})
	require.Equal(t, uint32(format.MaxSegmentShift), got.SegmentShift)
	require.Equal(t, 0, got.MaxInactiveViews)
	require.NotNil(t, got.Logger)

	def := resolve(nil)
	require.Equal(t, uint32(format.DefaultSegmentShift), def.SegmentShift)
	require.Equal(t, DefaultMaxInactiveViews, def.MaxInactiveViews)
}

func TestPool_DebugLogging(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	path := filepath.Join(t.TempDir(), "log.pool")
	p, err := Open(path, false, &Params{SegmentShift: 16, MaxInactiveViews: 0, Logger: logger})
	require.NoError(t, err)
	defer p.Close()

	b, _, err := p.Alloc(p.MaxAllocSize())
	require.NoError(t, err)
	p.Deref(b)

	out := logs.String()
	require.Contains(t, out, "pool ready")
	require.Contains(t, out, "segment added")
	require.Contains(t, out, "segment view evicted")
}

func TestPool_ReadOnly(t *testing.T) {
	p, path := newTestPool(t, 16, 4)
	rvas := allocN(t, p, 4, 32)
	require.NoError(t, p.Close())

	ro, err := Open(path, true, nil)
	require.NoError(t, err)
	defer ro.Close()
	require.True(t, ro.ReadOnly())

	_, _, err = ro.Alloc(8)
	require.ErrorIs(t, err, ErrReadOnly)
	_, err = ro.FreeRVA(rvas[0])
	require.ErrorIs(t, err, ErrReadOnly)
	require.ErrorIs(t, ro.SetUserContext(1), ErrReadOnly)
	require.NoError(t, ro.Flush())

	for i, rva := range rvas {
		requireStamp(t, ro, rva, 32, i)
	}
	require.NoError(t, ro.Check())
}

func TestPool_Closed(t *testing.T) {
	p, _ := newTestPool(t, 16, 4)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	_, _, err := p.Alloc(8)
	require.ErrorIs(t, err, ErrClosed)
	_, err = p.RefRVA(0x100)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, p.Check(), ErrClosed)
	require.ErrorIs(t, p.Flush(), ErrClosed)
	_, err = p.Stats()
	require.ErrorIs(t, err, ErrClosed)

	// Accessors that read the header report zero values instead.
	require.Zero(t, p.SegmentCount())
	require.Zero(t, p.UserContext())
	_, _, ok := p.DecodeRVA(0x100)
	require.False(t, ok)
	require.False(t, p.DerefRVA(0x100))
	require.False(t, p.ReadOnly())
}

func TestPool_FlushWritesFile(t *testing.T) {
	p, path := newTestPool(t, 16, 4)
	b, rva, err := p.Alloc(16)
	require.NoError(t, err)
	copy(b, "flushed payload!")
	p.Deref(b)

	require.NoError(t, p.Flush())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// Segment 0 starts at file offset 0, so its RVAs are file offsets.
	require.Equal(t, "flushed payload!", string(data[rva:rva+16]))
}
