package filepool

import (
	"fmt"

	"github.com/joshuapare/filepool/internal/format"
)

// Alloc reserves size bytes and returns them with the RVA of their first
// byte.
//
// The returned slice has length size and capacity up to the end of its
// span. It stays valid while its segment is referenced: Alloc hands back
// one reference, which the caller drops with Deref, DerefRVA or Free. Once
// released the slice must not be touched; keep the RVA instead.
func (p *Pool) Alloc(size uint32) ([]byte, RVA, error) {
	if err := p.writable(); err != nil {
		return nil, 0, err
	}
	need := p.geo.BlocksFor(size)
	if need > uint64(p.geo.MaxAllocBlocks()) {
		return nil, 0, fmt.Errorf("filepool: alloc %d bytes (max %d): %w",
			size, p.geo.MaxAllocSize(), ErrTooLarge)
	}
	n := uint32(need)

	// Lower classes have more free blocks; anything past the class of n
	// cannot hold n blocks.
	limit := p.geo.SizeClass(n)
	for class := 0; class <= limit; class++ {
		idx := p.header.FreeList(class)
		for idx != format.NoSegment {
			v, err := p.referenceSegment(uint32(idx))
			if err != nil {
				return nil, 0, err
			}
			seg := p.segmentHeader(v)
			next := seg.Flink()
			if block, ok := p.allocateBlocks(v, seg, n); ok {
				return p.finishAlloc(v, seg, class, block, size)
			}
			p.releaseView(v)
			idx = next
		}
	}

	v, err := p.allocateSegment()
	if err != nil {
		return nil, 0, err
	}
	seg := p.segmentHeader(v)
	block, ok := p.allocateBlocks(v, seg, n)
	if !ok {
		p.releaseView(v)
		return nil, 0, fmt.Errorf("filepool: fresh segment %d cannot hold %d blocks: %w",
			v.segment, n, ErrOutOfSpace)
	}
	return p.finishAlloc(v, seg, 0, block, size)
}

// finishAlloc refiles the segment after a successful block allocation. If
// the refile fails the blocks are given back.
func (p *Pool) finishAlloc(v *view, seg format.SegmentHeader, class int, block, size uint32) ([]byte, RVA, error) {
	if to := p.geo.SizeClass(seg.FreeBlocks()); to != class {
		if err := p.moveFreeList(class, to, v); err != nil {
			p.freeBlocks(seg, block, p.blockHeader(v, block).Span())
			p.releaseView(v)
			return nil, 0, err
		}
	}
	b := p.body(v, block, size)
	return b, p.encode(v, addrOf(b)), nil
}

// Free releases an allocation returned by Alloc (or a slice obtained through
// RefRVA on its RVA) together with the segment reference that came with it.
// Passing anything else panics with ErrInvalidHandle.
func (p *Pool) Free(b []byte) error {
	if err := p.writable(); err != nil {
		return err
	}
	v, off := p.mustFindView(b)
	if err := p.free(v, p.blockOf(v, off)); err != nil {
		return err
	}
	p.releaseView(v)
	return nil
}

// FreeRVA releases the allocation at rva. It reports false, without side
// effects, for the null RVA and for RVAs past the last segment.
func (p *Pool) FreeRVA(rva RVA) (bool, error) {
	if err := p.writable(); err != nil {
		return false, err
	}
	if rva == 0 {
		return false, nil
	}
	segment, off, ok := p.DecodeRVA(rva)
	if !ok {
		return false, nil
	}
	v, err := p.referenceSegment(segment)
	if err != nil {
		return false, err
	}
	defer p.releaseView(v)
	if err := p.free(v, p.blockOf(v, off)); err != nil {
		return false, err
	}
	return true, nil
}

// free returns the span at block and refiles the segment if its class
// changed. A refile failure restores the bitmap.
func (p *Pool) free(v *view, block uint32) error {
	seg := p.segmentHeader(v)
	span := p.checkSpan(v, seg, block)

	from := p.geo.SizeClass(seg.FreeBlocks())
	p.freeBlocks(seg, block, span)
	if to := p.geo.SizeClass(seg.FreeBlocks()); to != from {
		if err := p.moveFreeList(from, to, v); err != nil {
			seg.SetBits(block, span)
			seg.SetFreeBlocks(seg.FreeBlocks() - span)
			return err
		}
	}
	return nil
}

// Ref pins the segment holding b so it stays mapped. Each Ref needs a
// matching Deref.
func (p *Pool) Ref(b []byte) {
	v, _ := p.mustFindView(b)
	p.referenceView(v)
}

// Deref drops a reference taken by Alloc, Ref or RefRVA.
func (p *Pool) Deref(b []byte) {
	v, _ := p.mustFindView(b)
	p.releaseView(v)
}

// RefRVA maps the segment holding rva and returns the bytes from rva to the
// end of that segment, with one reference held. The null RVA and RVAs past
// the last segment yield nil.
func (p *Pool) RefRVA(rva RVA) ([]byte, error) {
	if p.closed {
		return nil, ErrClosed
	}
	if rva == 0 {
		return nil, nil
	}
	segment, off, ok := p.DecodeRVA(rva)
	if !ok {
		return nil, nil
	}
	v, err := p.referenceSegment(segment)
	if err != nil {
		return nil, err
	}
	return v.data[off:], nil
}

// DerefRVA drops a reference on the segment holding rva. It reports false
// for the null RVA, which RefRVA never references, for RVAs past the last
// segment and on a closed pool. Dropping a reference on a segment that is
// not mapped panics with ErrInvalidHandle.
func (p *Pool) DerefRVA(rva RVA) bool {
	if rva == 0 {
		return false
	}
	segment, _, ok := p.DecodeRVA(rva)
	if !ok {
		return false
	}
	v, mapped := p.byIndex[segment]
	if !mapped {
		panic(fmt.Errorf("filepool: segment %d is not mapped: %w", segment, ErrInvalidHandle))
	}
	p.releaseView(v)
	return true
}
