// Package filepool implements a persistent heap stored in a single file.
//
// The file is a sequence of equally sized segments (64 KiB to 256 MiB, set
// by the segment shift when the file is created). Each segment is split into
// 1024 blocks tracked by a bitmap in its segment header; segment 0 also
// carries the pool header with the segment count, the free list heads and a
// caller-defined 64-bit context. Allocations are runs of whole blocks
// prefixed by an 8-byte block header and never cross a segment.
//
// Segments are filed on one of eight free lists by how many blocks they have
// free, so Alloc looks at the emptiest segments first and grows the file by
// one segment only when nothing else fits.
//
// # Pointers and RVAs
//
// Alloc returns the allocation as a []byte aliasing a mapped view of its
// segment, plus an RVA: the segment index shifted by the segment shift, plus
// the offset inside the segment. Slices are only valid while their segment
// is referenced; RVAs survive eviction, Close and reopen.
//
//	p, err := filepool.Open("data.pool", false, nil)
//	if err != nil {
//		return err
//	}
//	defer p.Close()
//
//	b, rva, err := p.Alloc(64)
//	if err != nil {
//		return err
//	}
//	copy(b, payload)
//	p.Deref(b) // b must not be used after this
//
//	b, err = p.RefRVA(rva)
//	...
//	p.DerefRVA(rva)
//
// Every reference taken by Alloc, Ref or RefRVA is dropped by exactly one
// Deref, DerefRVA or Free. Views without references are kept on an LRU of
// MaxInactiveViews entries before being unmapped. Handing the pool a slice
// it did not produce, or dropping more references than were taken, is a
// programming error and panics with an error wrapping ErrInvalidHandle.
//
// # Concurrency
//
// A Pool is not safe for concurrent use. Callers must serialize all calls,
// including the reference counting ones. Two pools must not open the same
// file for writing at the same time.
package filepool
