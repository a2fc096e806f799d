package format

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// BlockHeader is the 8-byte prefix of a span of blocks.
type BlockHeader []byte

// Span returns the number of blocks in the span, header block included.
func (h BlockHeader) Span() uint32 { return ReadU32(h, BlockSpanOffset) }

// SetSpan stores the span length.
func (h BlockHeader) SetSpan(v uint32) { PutU32(h, BlockSpanOffset, v) }

// Flags returns the reserved flags word.
func (h BlockHeader) Flags() uint32 { return ReadU32(h, BlockFlagsOffset) }

// SetFlags stores the reserved flags word.
func (h BlockHeader) SetFlags(v uint32) { PutU32(h, BlockFlagsOffset, v) }

// FileHeader is the pool header body in segment 0.
type FileHeader []byte

// ParseFileHeader validates the pool header at the start of b (the body of
// block 0, i.e. file offset BlockBodyOffset).
func ParseFileHeader(b []byte) (FileHeader, error) {
	if len(b) < FileHeaderSize {
		return nil, fmt.Errorf("pool header: %w", ErrTruncated)
	}
	h := FileHeader(b[:FileHeaderSize])
	if h.Magic() != Magic {
		return nil, fmt.Errorf("pool header: %w (0x%08x)", ErrSignatureMismatch, h.Magic())
	}
	if !ValidSegmentShift(h.SegmentShift()) {
		return nil, fmt.Errorf("pool header: %w (%d)", ErrBadShift, h.SegmentShift())
	}
	return h, nil
}

// Init writes a fresh header describing a single segment with every free
// list empty.
func (h FileHeader) Init(segmentShift uint32) {
	clear(h[:FileHeaderSize])
	PutU32(h, FileMagicOffset, Magic)
	PutU16(h, FileSegmentShiftOffset, uint16(segmentShift))
	h.SetSegmentCount(1)
	for i := 0; i < FreeListCount; i++ {
		h.SetFreeList(i, NoSegment)
	}
}

// Magic returns the stored file signature.
func (h FileHeader) Magic() uint32 { return ReadU32(h, FileMagicOffset) }

// SegmentShift returns log2 of the segment size the file was created with.
func (h FileHeader) SegmentShift() uint32 {
	return uint32(ReadU16(h, FileSegmentShiftOffset))
}

// SegmentCount returns the number of segments in the file.
func (h FileHeader) SegmentCount() uint32 { return ReadU32(h, FileSegmentCountOffset) }

// SetSegmentCount stores the number of segments in the file.
func (h FileHeader) SetSegmentCount(v uint32) { PutU32(h, FileSegmentCountOffset, v) }

// FreeList returns the head segment of a size class, or NoSegment.
func (h FileHeader) FreeList(class int) int64 {
	return ReadI64(h, FileFreeListsOffset+class*8)
}

// SetFreeList stores the head segment of a size class.
func (h FileHeader) SetFreeList(class int, segment int64) {
	PutI64(h, FileFreeListsOffset+class*8, segment)
}

// UserContext returns the caller-defined context word.
func (h FileHeader) UserContext() uint64 { return ReadU64(h, FileUserContextOffset) }

// SetUserContext stores the caller-defined context word.
func (h FileHeader) SetUserContext(v uint64) { PutU64(h, FileUserContextOffset, v) }

// SegmentHeader is a segment header body.
type SegmentHeader []byte

// Init marks the first used blocks as allocated, the rest free, and unlinks
// the segment from every free list.
func (h SegmentHeader) Init(used uint32) {
	clear(h[:SegmentHeaderSize])
	h.SetBits(0, used)
	h.SetFreeBlocks(BlockCount - used)
	h.SetFlink(NoSegment)
	h.SetBlink(NoSegment)
}

// FreeBlocks returns the number of clear bits in the bitmap.
func (h SegmentHeader) FreeBlocks() uint32 { return ReadU32(h, SegFreeBlocksOffset) }

// SetFreeBlocks stores the free block count.
func (h SegmentHeader) SetFreeBlocks(v uint32) { PutU32(h, SegFreeBlocksOffset, v) }

// Flink returns the next segment on the free list, or NoSegment.
func (h SegmentHeader) Flink() int64 { return ReadI64(h, SegFlinkOffset) }

// SetFlink stores the next segment on the free list.
func (h SegmentHeader) SetFlink(v int64) { PutI64(h, SegFlinkOffset, v) }

// Blink returns the previous segment on the free list, or NoSegment.
func (h SegmentHeader) Blink() int64 { return ReadI64(h, SegBlinkOffset) }

// SetBlink stores the previous segment on the free list.
func (h SegmentHeader) SetBlink(v int64) { PutI64(h, SegBlinkOffset, v) }

// Bitmap decodes a copy of the allocation bitmap. Changes to the returned
// set are not written back; use SetBits and ClearBits for that.
func (h SegmentHeader) Bitmap() *bitset.BitSet {
	return bitset.From(h.bitmapWords())
}

// Test reports whether block i is in use.
func (h SegmentHeader) Test(i uint32) bool {
	return h[SegBitmapOffset+int(i>>3)]&(1<<(i&7)) != 0
}

// SetBits marks blocks [start, start+n) as in use.
func (h SegmentHeader) SetBits(start, n uint32) {
	h.updateBits(start, n, (*bitset.BitSet).Set)
}

// ClearBits marks blocks [start, start+n) as free.
func (h SegmentHeader) ClearBits(start, n uint32) {
	h.updateBits(start, n, (*bitset.BitSet).Clear)
}

// The mapped bitmap is little-endian bytes with no alignment guarantee for
// the host, so mutations go through decoded words that are stored back.
func (h SegmentHeader) updateBits(start, n uint32, op func(*bitset.BitSet, uint) *bitset.BitSet) {
	if n == 0 {
		return
	}
	words := h.bitmapWords()
	bm := bitset.From(words)
	for i := start; i < start+n; i++ {
		op(bm, uint(i))
	}
	for w := start / 64; w <= (start+n-1)/64; w++ {
		PutU64(h, SegBitmapOffset+int(w)*8, words[w])
	}
}

func (h SegmentHeader) bitmapWords() []uint64 {
	words := make([]uint64, BlockCount/64)
	for i := range words {
		words[i] = ReadU64(h, SegBitmapOffset+i*8)
	}
	return words
}
