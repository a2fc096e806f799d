// Package format houses the on-disk layout of a file pool: the block header
// that prefixes every span of blocks, the pool header stored in segment 0 and
// the per-segment header carrying the allocation bitmap. It is pure layout
// math and byte access; it holds no state and never touches the file.
package format

const (
	// Magic identifies a pool file. Stored little-endian it reads "FPol".
	Magic uint32 = 0x6c6f5046

	// PageSize is the smallest file size treated as an existing pool.
	// Anything shorter is initialized from scratch.
	PageSize = 4096

	// BlockCountShift is log2 of the number of blocks in every segment.
	BlockCountShift = 10

	// BlockCount is the fixed number of blocks in every segment.
	BlockCount = 1 << BlockCountShift

	// BitmapSize is the number of bytes used by a segment allocation bitmap.
	BitmapSize = BlockCount / 8

	// FreeListCount is the number of size classes segments are filed under.
	FreeListCount = 8

	// NoSegment terminates free lists.
	NoSegment int64 = -1

	// MinSegmentShift and MaxSegmentShift bound the segment size to
	// 64 KiB .. 256 MiB.
	MinSegmentShift = 16
	MaxSegmentShift = 28

	// DefaultSegmentShift gives 256 KiB segments.
	DefaultSegmentShift = 18
)

// Block header layout (prefix of every span):
//
//	Offset  Size  Field
//	0x00    4     Span (blocks, including the header block)
//	0x04    4     Flags (reserved, zero)
//	0x08    ...   Body
const (
	BlockSpanOffset  = 0x00
	BlockFlagsOffset = 0x04
	BlockHeaderSize  = 0x08
	BlockBodyOffset  = BlockHeaderSize
)

// Pool header layout. It is the body of block 0 of segment 0, so it starts at
// file offset BlockBodyOffset.
//
//	Offset  Size  Field
//	0x00    4     Magic
//	0x04    2     Segment shift
//	0x06    2     Reserved
//	0x08    4     Segment count
//	0x0C    4     Reserved
//	0x10    64    Free list heads, FreeListCount x int64 (segment index or -1)
//	0x50    8     User context
const (
	FileMagicOffset        = 0x00
	FileSegmentShiftOffset = 0x04
	FileSegmentCountOffset = 0x08
	FileFreeListsOffset    = 0x10
	FileUserContextOffset  = FileFreeListsOffset + FreeListCount*8
	FileHeaderSize         = FileUserContextOffset + 8
)

// Segment header layout. It is the body of the first block of every segment
// except segment 0, where it follows the blocks holding the pool header.
//
//	Offset  Size  Field
//	0x00    4     Free block count
//	0x04    4     Reserved
//	0x08    8     Free list forward link (segment index or -1)
//	0x10    8     Free list backward link (segment index or -1)
//	0x18    128   Allocation bitmap, bit i = byte i/8 bit i%8, 1 = in use
const (
	SegFreeBlocksOffset = 0x00
	SegFlinkOffset      = 0x08
	SegBlinkOffset      = 0x10
	SegBitmapOffset     = 0x18
	SegmentHeaderSize   = SegBitmapOffset + BitmapSize
)
