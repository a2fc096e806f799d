package filepool

import (
	"fmt"

	"github.com/joshuapare/filepool/internal/format"
)

// Stats summarizes a pool. Collecting them maps every segment in turn.
type Stats struct {
	SegmentShift      uint32 `json:"segment_shift"`
	SegmentSize       uint32 `json:"segment_size"`
	BlockSize         uint32 `json:"block_size"`
	SegmentCount      uint32 `json:"segment_count"`
	FileHeaderSpan    uint32 `json:"file_header_span"`
	SegmentHeaderSpan uint32 `json:"segment_header_span"`
	MaxAllocSize      uint32 `json:"max_alloc_size"`

	FreeBlocks   uint64 `json:"free_blocks"`
	UsedBlocks   uint64 `json:"used_blocks"`
	HeaderBlocks uint64 `json:"header_blocks"`

	// FreeLists counts the segments filed under each size class.
	FreeLists [format.FreeListCount]int `json:"free_lists"`

	ResidentViews    int `json:"resident_views"`
	InactiveViews    int `json:"inactive_views"`
	MaxInactiveViews int `json:"max_inactive_views"`

	UserContext uint64 `json:"user_context"`
	ReadOnly    bool   `json:"read_only"`
}

// SegmentInfo describes one segment.
type SegmentInfo struct {
	Index       uint32 `json:"index"`
	FreeBlocks  uint32 `json:"free_blocks"`
	UsedBlocks  uint32 `json:"used_blocks"`
	Reserved    uint32 `json:"reserved_blocks"`
	Class       int    `json:"class"`
	Flink       int64  `json:"flink"`
	Blink       int64  `json:"blink"`
	Allocations int    `json:"allocations"`
}

// Stats walks every segment and free list.
func (p *Pool) Stats() (Stats, error) {
	if p.closed {
		return Stats{}, ErrClosed
	}
	s := Stats{
		SegmentShift:      p.geo.SegmentShift,
		SegmentSize:       p.geo.SegmentSize,
		BlockSize:         p.geo.BlockSize,
		SegmentCount:      p.header.SegmentCount(),
		FileHeaderSpan:    p.geo.FileHeaderSpan,
		SegmentHeaderSpan: p.geo.SegmentHeaderSpan,
		MaxAllocSize:      p.geo.MaxAllocSize(),
		MaxInactiveViews:  p.maxInactive,
		UserContext:       p.header.UserContext(),
		ReadOnly:          p.m.ReadOnly(),
	}
	for i := uint32(0); i < s.SegmentCount; i++ {
		info, err := p.SegmentInfo(i)
		if err != nil {
			return Stats{}, err
		}
		s.FreeBlocks += uint64(info.FreeBlocks)
		s.HeaderBlocks += uint64(info.Reserved)
		s.UsedBlocks += uint64(info.UsedBlocks)
		s.FreeLists[info.Class]++
	}
	s.ResidentViews = len(p.byIndex)
	s.InactiveViews = p.inactive.Len()
	return s, nil
}

// SegmentInfo reads the header of one segment and counts its allocations.
// UsedBlocks excludes header blocks.
func (p *Pool) SegmentInfo(index uint32) (SegmentInfo, error) {
	if p.closed {
		return SegmentInfo{}, ErrClosed
	}
	v, err := p.referenceSegment(index)
	if err != nil {
		return SegmentInfo{}, err
	}
	defer p.releaseView(v)

	seg := p.segmentHeader(v)
	info := SegmentInfo{
		Index:      index,
		FreeBlocks: seg.FreeBlocks(),
		Reserved:   p.geo.ReservedBlocks(index),
		Class:      p.geo.SizeClass(seg.FreeBlocks()),
		Flink:      seg.Flink(),
		Blink:      seg.Blink(),
	}
	err = p.walkSpans(v, seg, func(block, span uint32) bool {
		info.Allocations++
		info.UsedBlocks += span
		return true
	})
	return info, err
}

// Allocations calls fn for every live allocation in RVA order with its RVA
// and usable capacity in bytes. Returning false stops the walk.
func (p *Pool) Allocations(fn func(rva RVA, capacity uint32) bool) error {
	if p.closed {
		return ErrClosed
	}
	count := p.header.SegmentCount()
	for i := uint32(0); i < count; i++ {
		v, err := p.referenceSegment(i)
		if err != nil {
			return err
		}
		stopped := false
		err = p.walkSpans(v, p.segmentHeader(v), func(block, span uint32) bool {
			off := uintptr(p.geo.BlockOffset(block) + format.BlockBodyOffset)
			capacity := span<<p.geo.BlockShift - format.BlockHeaderSize
			if !fn(p.encode(v, v.base+off), capacity) {
				stopped = true
				return false
			}
			return true
		})
		p.releaseView(v)
		if err != nil || stopped {
			return err
		}
	}
	return nil
}

// walkSpans visits the allocations of a segment by following span lengths
// through the used runs of its bitmap.
func (p *Pool) walkSpans(v *view, seg format.SegmentHeader, fn func(block, span uint32) bool) error {
	block := p.geo.ReservedBlocks(v.segment)
	for block < format.BlockCount {
		if !seg.Test(block) {
			block++
			continue
		}
		span := p.blockHeader(v, block).Span()
		if span == 0 || block+span > format.BlockCount {
			return &ValidationError{
				Type:    "Span",
				Segment: int64(v.segment),
				Block:   int64(block),
				Message: fmt.Sprintf("bad span %d", span),
			}
		}
		if !fn(block, span) {
			return nil
		}
		block += span
	}
	return nil
}
