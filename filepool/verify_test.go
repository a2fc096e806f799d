package filepool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/filepool/internal/format"
)

func requireValidation(t *testing.T, p *Pool, typ string) *ValidationError {
	t.Helper()
	var verr *ValidationError
	require.ErrorAs(t, p.Check(), &verr)
	require.Equal(t, typ, verr.Type, verr.Error())
	return verr
}

func TestCheck_FreeCountMismatch(t *testing.T) {
	p, _ := newTestPool(t, 16, 4)
	seg := p.segmentHeader(p.first)
	seg.SetFreeBlocks(seg.FreeBlocks() + 1)

	verr := requireValidation(t, p, "FreeBlocks")
	require.Equal(t, int64(0), verr.Segment)
	require.Equal(t, int64(-1), verr.Block)
}

func TestCheck_HeaderBitCleared(t *testing.T) {
	p, _ := newTestPool(t, 16, 4)
	p.segmentHeader(p.first).ClearBits(1, 1)

	verr := requireValidation(t, p, "Bitmap")
	require.Equal(t, int64(1), verr.Block)
}

func TestCheck_BadSpan(t *testing.T) {
	p, _ := newTestPool(t, 16, 4)
	b, _, err := p.Alloc(20)
	require.NoError(t, err)
	defer p.Deref(b)

	p.blockHeader(p.first, 5).SetSpan(0)
	verr := requireValidation(t, p, "Span")
	require.Equal(t, int64(5), verr.Block)
}

func TestCheck_SpanOverFreeBlock(t *testing.T) {
	p, _ := newTestPool(t, 16, 4)
	b, _, err := p.Alloc(120)
	require.NoError(t, err)
	defer p.Deref(b)

	// Drop the second block of the span but keep the free count consistent.
	seg := p.segmentHeader(p.first)
	seg.ClearBits(6, 1)
	seg.SetFreeBlocks(seg.FreeBlocks() + 1)

	requireValidation(t, p, "Span")
}

func TestCheck_StrayBits(t *testing.T) {
	p, _ := newTestPool(t, 16, 4)
	seg := p.segmentHeader(p.first)
	seg.SetBits(1000, 2)
	seg.SetFreeBlocks(seg.FreeBlocks() - 2)
	p.blockHeader(p.first, 1000).SetSpan(1)
	p.blockHeader(p.first, 1001).SetSpan(1)

	// Two one-block spans; 1017 free blocks keep segment 0 in class 1.
	require.NoError(t, p.Check())

	p.blockHeader(p.first, 1001).SetSpan(5)
	requireValidation(t, p, "Span")
}

func TestCheck_FreeListErrors(t *testing.T) {
	t.Run("segment missing from lists", func(t *testing.T) {
		p, _ := newTestPool(t, 16, 4)
		p.header.SetFreeList(1, format.NoSegment)
		verr := requireValidation(t, p, "FreeList")
		require.Equal(t, int64(0), verr.Segment)
	})

	t.Run("wrong class", func(t *testing.T) {
		p, _ := newTestPool(t, 16, 4)
		p.header.SetFreeList(1, format.NoSegment)
		p.header.SetFreeList(3, 0)
		requireValidation(t, p, "FreeList")
	})

	t.Run("head out of range", func(t *testing.T) {
		p, _ := newTestPool(t, 16, 4)
		p.header.SetFreeList(4, 12)
		requireValidation(t, p, "FreeList")
	})

	t.Run("broken back link", func(t *testing.T) {
		p, _ := newTestPool(t, 16, 4)
		fillSegments(t, p, 2)
		// Segments 2 and 1 are chained on the full list.
		require.Equal(t, int64(2), p.header.FreeList(7))

		v, err := p.referenceSegment(1)
		require.NoError(t, err)
		p.segmentHeader(v).SetBlink(format.NoSegment)
		p.releaseView(v)

		verr := requireValidation(t, p, "FreeList")
		require.Equal(t, int64(1), verr.Segment)
	})

	t.Run("cycle", func(t *testing.T) {
		p, _ := newTestPool(t, 16, 4)
		fillSegments(t, p, 2)

		v, err := p.referenceSegment(1)
		require.NoError(t, err)
		p.segmentHeader(v).SetFlink(2)
		p.releaseView(v)

		requireValidation(t, p, "FreeList")
	})
}

func TestCheck_ShortFile(t *testing.T) {
	p, _ := newTestPool(t, 16, 4)
	p.header.SetSegmentCount(4)
	requireValidation(t, p, "Header")
	p.header.SetSegmentCount(1)
	require.NoError(t, p.Check())
}

func TestValidationError_Message(t *testing.T) {
	require.Equal(t, "Span at segment 2 block 7: bad span 0",
		(&ValidationError{Type: "Span", Segment: 2, Block: 7, Message: "bad span 0"}).Error())
	require.Equal(t, "FreeList at segment 3: not listed",
		(&ValidationError{Type: "FreeList", Segment: 3, Block: -1, Message: "not listed"}).Error())
	require.Equal(t, "Header: segment count is zero",
		(&ValidationError{Type: "Header", Segment: -1, Block: -1, Message: "segment count is zero"}).Error())
}
