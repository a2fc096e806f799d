package filepool

import (
	"fmt"
	"unsafe"
)

// view is one mapped segment. Views with refs == 0 stay mapped on the
// inactive LRU until more than maxInactive of them pile up.
type view struct {
	segment uint32
	data    []byte
	base    uintptr
	refs    uint32
}

func viewLess(a, b *view) bool { return a.base < b.base }

// addrOf returns the address of the first byte b refers to. Mapped memory
// never moves, so the address identifies its view for as long as the view
// is mapped.
func addrOf(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}

// referenceSegment returns the view of a segment with one more reference,
// mapping it on a cache miss.
func (p *Pool) referenceSegment(index uint32) (*view, error) {
	if index != 0 && index >= p.header.SegmentCount() {
		return nil, fmt.Errorf("filepool: segment %d of %d: %w",
			index, p.header.SegmentCount(), ErrInvalidHandle)
	}
	if v, ok := p.byIndex[index]; ok {
		p.referenceView(v)
		return v, nil
	}
	return p.createView(index)
}

func (p *Pool) createView(index uint32) (*view, error) {
	data, err := p.m.MapRange(p.geo.SegmentOffset(index), int(p.geo.SegmentSize))
	if err != nil {
		return nil, fmt.Errorf("filepool: map segment %d: %w: %w", index, ErrIO, err)
	}
	v := &view{
		segment: index,
		data:    data,
		base:    addrOf(data),
		refs:    1,
	}
	p.byIndex[index] = v
	p.byBase.ReplaceOrInsert(v)
	return v, nil
}

func (p *Pool) referenceView(v *view) {
	if v.refs == 0 {
		p.inactive.Remove(v.segment)
	}
	v.refs++
}

// releaseView drops a reference. A view reaching zero joins the front of the
// inactive LRU, and the oldest inactive views are unmapped while there are
// more than maxInactive of them.
func (p *Pool) releaseView(v *view) {
	if v.refs == 0 {
		panic(fmt.Errorf("filepool: segment %d released more often than referenced: %w",
			v.segment, ErrInvalidHandle))
	}
	v.refs--
	if v.refs > 0 {
		return
	}
	if v.segment == 0 {
		panic(fmt.Errorf("filepool: segment 0 released: %w", ErrInvalidHandle))
	}
	p.inactive.Add(v.segment, v)
	for p.inactive.Len() > p.maxInactive {
		_, lru, ok := p.inactive.RemoveOldest()
		if !ok {
			break
		}
		p.destroyView(lru)
	}
}

func (p *Pool) destroyView(v *view) {
	if err := p.m.Unmap(v.data); err != nil {
		p.log.Warn("unmap segment failed", "segment", v.segment, "error", err)
	}
	delete(p.byIndex, v.segment)
	p.byBase.Delete(v)
	v.data = nil
	p.log.Debug("segment view evicted", "segment", v.segment)
}

// findViewByBase returns the view whose mapping contains addr, or nil.
func (p *Pool) findViewByBase(addr uintptr) *view {
	var found *view
	p.byBase.DescendLessOrEqual(&view{base: addr}, func(v *view) bool {
		found = v
		return false
	})
	if found != nil && addr < found.base+uintptr(p.geo.SegmentSize) {
		return found
	}
	return nil
}

// mustFindView resolves a caller-supplied slice to its view. A slice outside
// every mapped segment is a caller bug and panics.
func (p *Pool) mustFindView(b []byte) (*view, uint32) {
	if p.closed {
		panic(ErrClosed)
	}
	addr := addrOf(b)
	v := p.findViewByBase(addr)
	if v == nil {
		panic(fmt.Errorf("filepool: address %#x is not inside a mapped segment: %w",
			addr, ErrInvalidHandle))
	}
	return v, uint32(addr - v.base)
}
