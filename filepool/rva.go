package filepool

// RVA is a file-relative address: segment index shifted by the segment
// shift plus the byte offset inside the segment. Unlike a slice it survives
// eviction, Close and reopen. Zero is the null RVA.
type RVA uint32

func (p *Pool) encode(v *view, addr uintptr) RVA {
	return RVA(v.segment<<p.geo.SegmentShift + uint32(addr-v.base))
}

// EncodeRVA returns the RVA of the first byte of b, which must point into a
// mapped segment; anything else panics with ErrInvalidHandle. A nil slice
// encodes to the null RVA. Reference counts are unchanged.
func (p *Pool) EncodeRVA(b []byte) RVA {
	if b == nil {
		return 0
	}
	v, _ := p.mustFindView(b)
	return p.encode(v, addrOf(b))
}

// DecodeRVA splits rva into segment index and offset. It reports false when
// the segment is past the end of the pool or the pool is closed.
func (p *Pool) DecodeRVA(rva RVA) (segment, offset uint32, ok bool) {
	if p.closed {
		return 0, 0, false
	}
	segment = uint32(rva) >> p.geo.SegmentShift
	if segment >= p.header.SegmentCount() {
		return 0, 0, false
	}
	return segment, uint32(rva) & (p.geo.SegmentSize - 1), true
}
