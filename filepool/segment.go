package filepool

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/joshuapare/filepool/internal/format"
)

func (p *Pool) segmentHeader(v *view) format.SegmentHeader {
	off := p.geo.SegmentHeaderOffset(v.segment)
	return format.SegmentHeader(v.data[off : off+format.SegmentHeaderSize])
}

func (p *Pool) blockHeader(v *view, block uint32) format.BlockHeader {
	off := p.geo.BlockOffset(block)
	return format.BlockHeader(v.data[off : off+format.BlockHeaderSize])
}

// body returns the user bytes of an allocation starting at block. Its
// capacity runs to the end of the span.
func (p *Pool) body(v *view, block, size uint32) []byte {
	start := p.geo.BlockOffset(block) + format.BlockBodyOffset
	end := p.geo.BlockOffset(block + p.blockHeader(v, block).Span())
	return v.data[start : start+int(size) : end]
}

// allocateBlocks claims n contiguous blocks in a segment. The search starts
// right after the segment's headers.
func (p *Pool) allocateBlocks(v *view, seg format.SegmentHeader, n uint32) (uint32, bool) {
	if seg.FreeBlocks() < n {
		return 0, false
	}
	hint := p.geo.ReservedBlocks(v.segment)
	bm := seg.Bitmap()
	start, ok := firstFit(bm, n, hint)
	if !ok && hint > 0 {
		start, ok = firstFit(bm, n, 0)
	}
	if !ok {
		return 0, false
	}

	seg.SetBits(start, n)
	seg.SetFreeBlocks(seg.FreeBlocks() - n)

	bh := p.blockHeader(v, start)
	bh.SetSpan(n)
	bh.SetFlags(0)
	return start, true
}

// firstFit finds the first run of n clear bits at or after from.
func firstFit(bm *bitset.BitSet, n, from uint32) (uint32, bool) {
	i := uint(from)
	for i < format.BlockCount {
		start, ok := bm.NextClear(i)
		if !ok || start+uint(n) > format.BlockCount {
			return 0, false
		}
		end, ok := bm.NextSet(start)
		if !ok || end > format.BlockCount {
			end = format.BlockCount
		}
		if end-start >= uint(n) {
			return uint32(start), true
		}
		i = end
	}
	return 0, false
}

// freeBlocks returns the span starting at block to the segment.
func (p *Pool) freeBlocks(seg format.SegmentHeader, block, span uint32) {
	seg.ClearBits(block, span)
	seg.SetFreeBlocks(seg.FreeBlocks() + span)
}

// checkSpan validates that block starts a live allocation and returns its
// span. Anything else means the caller handed in a stale or foreign
// pointer, which panics.
func (p *Pool) checkSpan(v *view, seg format.SegmentHeader, block uint32) uint32 {
	if block < p.geo.ReservedBlocks(v.segment) || block >= format.BlockCount {
		panic(fmt.Errorf("filepool: segment %d block %d is not an allocation: %w",
			v.segment, block, ErrInvalidHandle))
	}
	span := p.blockHeader(v, block).Span()
	if span == 0 || block+span > format.BlockCount {
		panic(fmt.Errorf("filepool: segment %d block %d has bad span %d: %w",
			v.segment, block, span, ErrInvalidHandle))
	}
	for i := block; i < block+span; i++ {
		if !seg.Test(i) {
			panic(fmt.Errorf("filepool: segment %d block %d is already free: %w",
				v.segment, i, ErrInvalidHandle))
		}
	}
	return span
}

// blockOf maps a body offset inside a segment to the block holding its
// header.
func (p *Pool) blockOf(v *view, offset uint32) uint32 {
	rel := offset - format.BlockBodyOffset
	if offset < format.BlockBodyOffset || rel&(p.geo.BlockSize-1) != 0 {
		panic(fmt.Errorf("filepool: segment %d offset %#x is not an allocation body: %w",
			v.segment, offset, ErrInvalidHandle))
	}
	return rel >> p.geo.BlockShift
}

// allocateSegment grows the file by one segment, initializes it and files it
// under class 0. The returned view carries one reference.
func (p *Pool) allocateSegment() (*view, error) {
	count := p.header.SegmentCount()
	if uint64(count)+1 > maxSegments(p.geo.SegmentShift) {
		return nil, fmt.Errorf("filepool: %d segments fill the RVA range: %w", count, ErrOutOfSpace)
	}
	size := p.geo.FileSize(count + 1)
	if err := p.m.Extend(size); err != nil {
		return nil, fmt.Errorf("filepool: grow to %d segments: %w: %w", count+1, ErrOutOfSpace, err)
	}

	p.header.SetSegmentCount(count + 1)
	v, err := p.referenceSegment(count)
	if err != nil {
		p.header.SetSegmentCount(count)
		return nil, err
	}

	bh := p.blockHeader(v, 0)
	bh.SetSpan(p.geo.SegmentHeaderSpan)
	bh.SetFlags(0)
	p.segmentHeader(v).Init(p.geo.SegmentHeaderSpan)

	if err := p.insertFreeList(0, v); err != nil {
		p.releaseView(v)
		p.header.SetSegmentCount(count)
		return nil, err
	}

	p.log.Debug("segment added", "segment", count, "file_size", size)
	return v, nil
}
