package format

// Geometry is the block layout derived from a segment shift. Every segment
// holds BlockCount blocks, so the block size scales with the segment size.
type Geometry struct {
	SegmentShift uint32
	SegmentSize  uint32
	BlockShift   uint32
	BlockSize    uint32

	// FileHeaderSpan is the number of blocks taken by the pool header
	// (block header included). Only segment 0 carries it.
	FileHeaderSpan uint32

	// SegmentHeaderSpan is the number of blocks taken by a segment header
	// (block header included).
	SegmentHeaderSpan uint32
}

// ValidSegmentShift reports whether shift is within the supported range.
func ValidSegmentShift(shift uint32) bool {
	return shift >= MinSegmentShift && shift <= MaxSegmentShift
}

// ClampSegmentShift forces shift into [MinSegmentShift, MaxSegmentShift] and
// reports whether it had to be changed.
func ClampSegmentShift(shift uint32) (uint32, bool) {
	switch {
	case shift < MinSegmentShift:
		return MinSegmentShift, true
	case shift > MaxSegmentShift:
		return MaxSegmentShift, true
	}
	return shift, false
}

// NewGeometry computes the layout for a segment shift. The shift must already
// be valid.
func NewGeometry(segmentShift uint32) Geometry {
	g := Geometry{
		SegmentShift: segmentShift,
		SegmentSize:  1 << segmentShift,
		BlockShift:   segmentShift - BlockCountShift,
	}
	g.BlockSize = 1 << g.BlockShift
	g.FileHeaderSpan = uint32(g.Span(BlockHeaderSize + FileHeaderSize))
	g.SegmentHeaderSpan = uint32(g.Span(BlockHeaderSize + SegmentHeaderSize))
	return g
}

// Span returns the number of blocks needed to hold n bytes.
func (g Geometry) Span(n uint64) uint64 {
	return (n + uint64(g.BlockSize) - 1) >> g.BlockShift
}

// BlocksFor returns the number of blocks an allocation of size body bytes
// occupies, block header included.
func (g Geometry) BlocksFor(size uint32) uint64 {
	return g.Span(BlockHeaderSize + uint64(size))
}

// MaxAllocBlocks is the largest span a single allocation may have.
func (g Geometry) MaxAllocBlocks() uint32 {
	return BlockCount - g.SegmentHeaderSpan
}

// MaxAllocSize is the largest body size Alloc can satisfy.
func (g Geometry) MaxAllocSize() uint32 {
	return g.MaxAllocBlocks()<<g.BlockShift - BlockHeaderSize
}

// SegmentHeaderBlock returns the block holding the header of a segment.
func (g Geometry) SegmentHeaderBlock(segment uint32) uint32 {
	if segment == 0 {
		return g.FileHeaderSpan
	}
	return 0
}

// ReservedBlocks returns how many leading blocks of a segment are taken by
// headers.
func (g Geometry) ReservedBlocks(segment uint32) uint32 {
	return g.SegmentHeaderBlock(segment) + g.SegmentHeaderSpan
}

// SegmentHeaderOffset returns the byte offset of a segment header body
// within its segment.
func (g Geometry) SegmentHeaderOffset(segment uint32) int {
	return g.BlockOffset(g.SegmentHeaderBlock(segment)) + BlockBodyOffset
}

// BlockOffset returns the byte offset of a block within its segment.
func (g Geometry) BlockOffset(block uint32) int {
	return int(block << g.BlockShift)
}

// SegmentOffset returns the file offset of a segment.
func (g Geometry) SegmentOffset(segment uint32) int64 {
	return int64(segment) << g.SegmentShift
}

// FileSize returns the file size needed for count segments.
func (g Geometry) FileSize(count uint32) int64 {
	return int64(count) << g.SegmentShift
}

// SizeClass files a block count into one of FreeListCount classes. Class 0
// holds segments that are entirely free past their header, class 7 holds
// full segments. The thresholds are part of the file format: lists persisted
// by one writer are read back by another, so they must not change.
func (g Geometry) SizeClass(blocks uint32) int {
	if blocks >= BlockCount/64 {
		if blocks >= BlockCount/2 {
			if blocks >= BlockCount-g.SegmentHeaderSpan {
				return 0
			}
			return 1
		}
		if blocks >= BlockCount/16 {
			return 2
		}
		return 3
	}
	if blocks >= 4 {
		if blocks >= BlockCount/256 {
			return 4
		}
		return 5
	}
	if blocks >= 1 {
		return 6
	}
	return 7
}
