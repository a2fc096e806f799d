package filepool

import "github.com/joshuapare/filepool/internal/format"

// Free lists thread segments through the flink/blink fields of their
// headers, one list per size class, heads stored in the pool header. Every
// segment is on exactly the list for SizeClass(free blocks).

// insertFreeList pushes the segment of v onto the head of a list. The old
// head is mapped before anything changes, so a mapping failure leaves the
// list untouched.
func (p *Pool) insertFreeList(class int, v *view) error {
	old := p.header.FreeList(class)
	var oldView *view
	if old != format.NoSegment {
		ov, err := p.referenceSegment(uint32(old))
		if err != nil {
			return err
		}
		oldView = ov
	}

	seg := p.segmentHeader(v)
	seg.SetBlink(format.NoSegment)
	seg.SetFlink(old)
	p.header.SetFreeList(class, int64(v.segment))

	if oldView != nil {
		p.segmentHeader(oldView).SetBlink(int64(v.segment))
		p.releaseView(oldView)
	}
	return nil
}

// removeFreeList unlinks the segment of v from a list, moving the list head
// when the segment was first.
func (p *Pool) removeFreeList(class int, v *view) error {
	seg := p.segmentHeader(v)
	flink, blink := seg.Flink(), seg.Blink()

	var next, prev *view
	if flink != format.NoSegment {
		fv, err := p.referenceSegment(uint32(flink))
		if err != nil {
			return err
		}
		next = fv
	}
	if blink != format.NoSegment {
		bv, err := p.referenceSegment(uint32(blink))
		if err != nil {
			if next != nil {
				p.releaseView(next)
			}
			return err
		}
		prev = bv
	}

	if next != nil {
		p.segmentHeader(next).SetBlink(blink)
		p.releaseView(next)
	}
	if prev != nil {
		p.segmentHeader(prev).SetFlink(flink)
		p.releaseView(prev)
	} else {
		p.header.SetFreeList(class, flink)
	}
	seg.SetFlink(format.NoSegment)
	seg.SetBlink(format.NoSegment)
	return nil
}

// moveFreeList refiles a segment from one class to another. Every segment
// the move touches is pinned first; once pinned, the remove and insert only
// hit mapped views and cannot fail halfway.
func (p *Pool) moveFreeList(from, to int, v *view) error {
	seg := p.segmentHeader(v)
	touched := [...]int64{seg.Flink(), seg.Blink(), p.header.FreeList(to)}

	pinned := make([]*view, 0, len(touched))
	defer func() {
		for _, pv := range pinned {
			p.releaseView(pv)
		}
	}()
	for _, idx := range touched {
		if idx == format.NoSegment || idx == int64(v.segment) {
			continue
		}
		pv, err := p.referenceSegment(uint32(idx))
		if err != nil {
			return err
		}
		pinned = append(pinned, pv)
	}

	if err := p.removeFreeList(from, v); err != nil {
		return err
	}
	return p.insertFreeList(to, v)
}
