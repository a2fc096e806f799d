package format

import "encoding/binary"

// Field accessors for pool structures. Every multi-byte field in a pool file
// is little-endian regardless of the host; off is relative to b.

var le = binary.LittleEndian

// PutU16 stores v at b[off:].
func PutU16(b []byte, off int, v uint16) { le.PutUint16(b[off:], v) }

// PutU32 stores v at b[off:].
func PutU32(b []byte, off int, v uint32) { le.PutUint32(b[off:], v) }

// PutU64 stores v at b[off:].
func PutU64(b []byte, off int, v uint64) { le.PutUint64(b[off:], v) }

// PutI64 stores a signed segment link; NoSegment encodes as all ones.
func PutI64(b []byte, off int, v int64) { le.PutUint64(b[off:], uint64(v)) }

// ReadU16 loads the uint16 at b[off:].
func ReadU16(b []byte, off int) uint16 { return le.Uint16(b[off:]) }

// ReadU32 loads the uint32 at b[off:].
func ReadU32(b []byte, off int) uint32 { return le.Uint32(b[off:]) }

// ReadU64 loads the uint64 at b[off:].
func ReadU64(b []byte, off int) uint64 { return le.Uint64(b[off:]) }

// ReadI64 loads a signed segment link stored by PutI64.
func ReadI64(b []byte, off int) int64 { return int64(le.Uint64(b[off:])) }
