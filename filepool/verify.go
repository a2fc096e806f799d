package filepool

import (
	"fmt"

	"github.com/joshuapare/filepool/internal/format"
)

// ValidationError describes a broken pool invariant found by Check.
type ValidationError struct {
	Type    string
	Message string
	Segment int64 // -1 when not tied to a segment
	Block   int64 // -1 when not tied to a block
}

func (e *ValidationError) Error() string {
	switch {
	case e.Segment >= 0 && e.Block >= 0:
		return fmt.Sprintf("%s at segment %d block %d: %s", e.Type, e.Segment, e.Block, e.Message)
	case e.Segment >= 0:
		return fmt.Sprintf("%s at segment %d: %s", e.Type, e.Segment, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func invalid(typ string, segment, block int64, msg string, args ...any) *ValidationError {
	return &ValidationError{
		Type:    typ,
		Message: fmt.Sprintf(msg, args...),
		Segment: segment,
		Block:   block,
	}
}

// Check verifies the pool invariants and returns the first violation as a
// *ValidationError:
//   - the file holds every segment the header counts
//   - header blocks are marked used and carry their spans
//   - each free count matches the clear bits of its bitmap
//   - allocation spans chain through the used blocks without overlap
//   - every segment sits on exactly one free list, the one for its class,
//     and the lists are well-formed doubly-linked chains
func (p *Pool) Check() error {
	if p.closed {
		return ErrClosed
	}
	count := p.header.SegmentCount()
	if count == 0 {
		return invalid("Header", -1, -1, "segment count is zero")
	}
	if need := p.geo.FileSize(count); p.m.Size() < need {
		return invalid("Header", -1, -1, "file is %d bytes, %d segments need %d", p.m.Size(), count, need)
	}

	classes := make([]int, count)
	for i := uint32(0); i < count; i++ {
		class, err := p.checkSegment(i)
		if err != nil {
			return err
		}
		classes[i] = class
	}
	return p.checkFreeLists(classes)
}

func (p *Pool) checkSegment(index uint32) (int, error) {
	v, err := p.referenceSegment(index)
	if err != nil {
		return 0, err
	}
	defer p.releaseView(v)

	seg := p.segmentHeader(v)
	segment := int64(index)

	if index == 0 {
		if span := p.blockHeader(v, 0).Span(); span != p.geo.FileHeaderSpan {
			return 0, invalid("Header", 0, 0, "pool header span %d, want %d", span, p.geo.FileHeaderSpan)
		}
	}
	hb := p.geo.SegmentHeaderBlock(index)
	if span := p.blockHeader(v, hb).Span(); span != p.geo.SegmentHeaderSpan {
		return 0, invalid("Header", segment, int64(hb), "segment header span %d, want %d",
			span, p.geo.SegmentHeaderSpan)
	}
	reserved := p.geo.ReservedBlocks(index)
	for b := uint32(0); b < reserved; b++ {
		if !seg.Test(b) {
			return 0, invalid("Bitmap", segment, int64(b), "header block marked free")
		}
	}

	used := seg.Bitmap().Count()
	if free := seg.FreeBlocks(); uint(free) != format.BlockCount-used {
		return 0, invalid("FreeBlocks", segment, -1, "free count %d, bitmap has %d clear bits",
			free, format.BlockCount-used)
	}

	spanned := uint(reserved)
	var walkErr error
	err = p.walkSpans(v, seg, func(block, span uint32) bool {
		for b := block; b < block+span; b++ {
			if !seg.Test(b) {
				walkErr = invalid("Span", segment, int64(block),
					"span %d covers free block %d", span, b)
				return false
			}
		}
		spanned += uint(span)
		return true
	})
	if err != nil {
		return 0, err
	}
	if walkErr != nil {
		return 0, walkErr
	}
	if spanned != used {
		return 0, invalid("Span", segment, -1, "spans cover %d blocks, bitmap marks %d", spanned, used)
	}
	return p.geo.SizeClass(seg.FreeBlocks()), nil
}

// checkFreeLists walks every list from its head. classes holds the expected
// class of each segment.
func (p *Pool) checkFreeLists(classes []int) error {
	count := int64(len(classes))
	listed := make([]int, count)
	for i := range listed {
		listed[i] = -1
	}

	for class := 0; class < format.FreeListCount; class++ {
		prev := format.NoSegment
		cur := p.header.FreeList(class)
		for steps := int64(0); cur != format.NoSegment; steps++ {
			if cur < 0 || cur >= count {
				return invalid("FreeList", prev, -1, "class %d links to segment %d of %d", class, cur, count)
			}
			if steps >= count {
				return invalid("FreeList", cur, -1, "class %d list has a cycle", class)
			}
			if listed[cur] >= 0 {
				return invalid("FreeList", cur, -1, "on lists %d and %d", listed[cur], class)
			}
			listed[cur] = class
			if classes[cur] != class {
				return invalid("FreeList", cur, -1, "on list %d, size class is %d", class, classes[cur])
			}

			v, err := p.referenceSegment(uint32(cur))
			if err != nil {
				return err
			}
			seg := p.segmentHeader(v)
			blink, flink := seg.Blink(), seg.Flink()
			p.releaseView(v)

			if blink != prev {
				return invalid("FreeList", cur, -1, "back link %d, want %d", blink, prev)
			}
			prev, cur = cur, flink
		}
	}

	for i, class := range listed {
		if class < 0 {
			return invalid("FreeList", int64(i), -1, "not on any free list (size class %d)", classes[i])
		}
	}
	return nil
}
