package filepool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStats_FreshPool(t *testing.T) {
	p, _ := newTestPool(t, 16, 4)

	s, err := p.Stats()
	require.NoError(t, err)
	require.Equal(t, uint32(16), s.SegmentShift)
	require.Equal(t, uint32(1<<16), s.SegmentSize)
	require.Equal(t, uint32(64), s.BlockSize)
	require.Equal(t, uint32(1), s.SegmentCount)
	require.Equal(t, uint32(2), s.FileHeaderSpan)
	require.Equal(t, uint32(3), s.SegmentHeaderSpan)
	require.Equal(t, p.MaxAllocSize(), s.MaxAllocSize)
	require.Equal(t, uint64(5), s.HeaderBlocks)
	require.Equal(t, uint64(1019), s.FreeBlocks)
	require.Equal(t, uint64(0), s.UsedBlocks)
	require.Equal(t, 1, s.FreeLists[1])
	require.Equal(t, 1, s.ResidentViews)
	require.Equal(t, 4, s.MaxInactiveViews)
}

func TestStats_CountsAllocations(t *testing.T) {
	p, _ := newTestPool(t, 16, 4)
	rvas := allocN(t, p, 3, 120)
	rvas = append(rvas, allocN(t, p, 1, 500)...)
	require.NoError(t, p.SetUserContext(99))

	s, err := p.Stats()
	require.NoError(t, err)
	require.Equal(t, uint64(3*2+8), s.UsedBlocks)
	require.Equal(t, uint64(1019-14), s.FreeBlocks)
	require.Equal(t, uint64(99), s.UserContext)

	info, err := p.SegmentInfo(0)
	require.NoError(t, err)
	require.Equal(t, 4, info.Allocations)
	require.Equal(t, uint32(14), info.UsedBlocks)
	require.Equal(t, uint32(5), info.Reserved)
	require.Equal(t, 1, info.Class)
	require.Equal(t, int64(-1), info.Flink)
	require.Equal(t, int64(-1), info.Blink)

	var got []RVA
	var caps []uint32
	require.NoError(t, p.Allocations(func(rva RVA, capacity uint32) bool {
		got = append(got, rva)
		caps = append(caps, capacity)
		return true
	}))
	require.Equal(t, rvas, got)
	require.Equal(t, []uint32{120, 120, 120, 8*64 - 8}, caps)
}

func TestStats_AllocationsStopEarly(t *testing.T) {
	p, _ := newTestPool(t, 16, 4)
	allocN(t, p, 5, 10)
	allocN(t, p, 2, p.MaxAllocSize())

	n := 0
	require.NoError(t, p.Allocations(func(RVA, uint32) bool {
		n++
		return n < 6
	}))
	require.Equal(t, 6, n)
}

func TestStats_AllocationsAcrossSegments(t *testing.T) {
	p, _ := newTestPool(t, 16, 0)
	small := allocN(t, p, 2, 10)
	big := allocN(t, p, 2, p.MaxAllocSize())

	var got []RVA
	require.NoError(t, p.Allocations(func(rva RVA, _ uint32) bool {
		got = append(got, rva)
		return true
	}))
	require.Equal(t, append(small, big...), got)

	s, err := p.Stats()
	require.NoError(t, err)
	require.Equal(t, uint32(3), s.SegmentCount)
	require.Equal(t, 2, s.FreeLists[7])
	require.Equal(t, uint64(3*1024), s.FreeBlocks+s.UsedBlocks+s.HeaderBlocks)
}

func TestSegmentInfo_OutOfRange(t *testing.T) {
	p, _ := newTestPool(t, 16, 4)
	_, err := p.SegmentInfo(3)
	require.ErrorIs(t, err, ErrInvalidHandle)
}
