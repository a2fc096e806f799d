package filepool

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/google/btree"
	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/joshuapare/filepool/internal/format"
	"github.com/joshuapare/filepool/internal/mmfile"
)

// Pool is a persistent heap inside a single growable file.
//
// NOT thread-safe. Callers sharing a pool between goroutines must serialize
// every call, Close included.
type Pool struct {
	f        *os.File
	ownsFile bool
	closed   bool

	m   *mmfile.Mapping
	geo format.Geometry
	log *slog.Logger

	// first is segment 0. It is referenced for the life of the pool and
	// holds the pool header.
	first  *view
	header format.FileHeader

	byIndex     map[uint32]*view
	byBase      *btree.BTreeG[*view]
	inactive    *simplelru.LRU[uint32, *view]
	maxInactive int
}

// Create opens the pool stored in f, initializing it when f is shorter than
// one page. The caller keeps ownership of f: Close leaves it open.
//
// Initializing requires write access; a read-only request on a short file
// fails with ErrUnsupported. Opening a file without the pool magic fails with
// ErrBadFormat.
func Create(f *os.File, readOnly bool, params *Params) (*Pool, error) {
	return create(f, false, readOnly, params)
}

// Open opens or creates the pool file at path. The pool owns the file and
// closes it on Close. A file created by this call is removed again if the
// pool cannot be set up.
func Open(path string, readOnly bool, params *Params) (*Pool, error) {
	flag := os.O_RDWR | os.O_CREATE
	if readOnly {
		flag = os.O_RDONLY
	}
	_, statErr := os.Stat(path)
	created := errors.Is(statErr, fs.ErrNotExist)

	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, fmt.Errorf("filepool: open %s: %w", path, err)
	}
	p, err := create(f, true, readOnly, params)
	if err != nil {
		_ = f.Close()
		if created && !readOnly {
			_ = os.Remove(path)
		}
		return nil, err
	}
	return p, nil
}

func create(f *os.File, ownsFile, readOnly bool, params *Params) (*Pool, error) {
	cfg := resolve(params)

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("filepool: stat: %w: %w", ErrIO, err)
	}

	creating := st.Size() < format.PageSize
	shift := cfg.SegmentShift
	if creating {
		if readOnly {
			return nil, fmt.Errorf("filepool: %d-byte file cannot be initialized read-only: %w",
				st.Size(), ErrUnsupported)
		}
	} else {
		shift, err = readHeader(f, st.Size())
		if err != nil {
			return nil, err
		}
	}

	m, err := mmfile.New(f, readOnly)
	if err != nil {
		return nil, fmt.Errorf("filepool: %w: %w", ErrIO, err)
	}

	p := &Pool{
		f:           f,
		ownsFile:    ownsFile,
		m:           m,
		geo:         format.NewGeometry(shift),
		log:         cfg.Logger,
		byIndex:     make(map[uint32]*view),
		byBase:      btree.NewG[*view](8, viewLess),
		maxInactive: cfg.MaxInactiveViews,
	}
	// Sized one past the limit so Add never evicts on its own; releaseView
	// trims the list and unmaps what it drops.
	p.inactive, err = simplelru.NewLRU[uint32, *view](p.maxInactive+1, nil)
	if err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("filepool: view cache: %w", err)
	}

	if creating {
		if err := m.Extend(int64(p.geo.SegmentSize)); err != nil {
			_ = m.Close()
			return nil, fmt.Errorf("filepool: size first segment: %w: %w", ErrOutOfSpace, err)
		}
	}

	first, err := p.referenceSegment(0)
	if err != nil {
		_ = m.Close()
		return nil, err
	}
	p.first = first
	p.header = format.FileHeader(first.data[format.BlockBodyOffset : format.BlockBodyOffset+format.FileHeaderSize])

	if creating {
		p.initFirstSegment()
	}

	p.log.Debug("pool ready",
		"file", f.Name(),
		"created", creating,
		"read_only", readOnly,
		"segment_shift", p.geo.SegmentShift,
		"segments", p.header.SegmentCount())
	return p, nil
}

// readHeader validates the pool header of an existing file and returns its
// segment shift.
func readHeader(f *os.File, size int64) (uint32, error) {
	var buf [format.BlockBodyOffset + format.FileHeaderSize]byte
	if _, err := f.ReadAt(buf[:], 0); err != nil {
		return 0, fmt.Errorf("filepool: read header: %w: %w", ErrIO, err)
	}
	hdr, err := format.ParseFileHeader(buf[format.BlockBodyOffset:])
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBadFormat, err)
	}
	shift := hdr.SegmentShift()
	count := hdr.SegmentCount()
	if count == 0 {
		return 0, fmt.Errorf("%w: header records no segments", ErrBadFormat)
	}
	if uint64(count) > maxSegments(shift) {
		return 0, fmt.Errorf("%w: %d segments exceed the RVA range", ErrBadFormat, count)
	}
	if need := format.NewGeometry(shift).FileSize(count); size < need {
		return 0, fmt.Errorf("%w: file is %d bytes, %d segments need %d",
			ErrBadFormat, size, count, need)
	}
	return shift, nil
}

// initFirstSegment lays out segment 0 of a new file: pool header, then the
// segment header, with segment 0 filed under its size class.
func (p *Pool) initFirstSegment() {
	p.header.Init(p.geo.SegmentShift)

	fh := p.blockHeader(p.first, 0)
	fh.SetSpan(p.geo.FileHeaderSpan)
	fh.SetFlags(0)

	sh := p.blockHeader(p.first, p.geo.FileHeaderSpan)
	sh.SetSpan(p.geo.SegmentHeaderSpan)
	sh.SetFlags(0)

	seg := p.segmentHeader(p.first)
	seg.Init(p.geo.ReservedBlocks(0))
	p.header.SetFreeList(p.geo.SizeClass(seg.FreeBlocks()), 0)
}

// Close unmaps every view and releases the mapping. The file is closed only
// if the pool opened it. Close must not run concurrently with any other call.
func (p *Pool) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	for _, v := range p.byIndex {
		if err := p.m.Unmap(v.data); err != nil {
			errs = append(errs, err)
		}
	}
	clear(p.byIndex)
	p.byBase.Clear(false)
	p.inactive.Purge()
	p.first = nil
	p.header = nil

	if err := p.m.Close(); err != nil {
		errs = append(errs, err)
	}
	if p.ownsFile {
		if err := p.f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ReadOnly reports whether the pool was opened read-only.
func (p *Pool) ReadOnly() bool { return p.m.ReadOnly() }

// SegmentShift returns log2 of the segment size.
func (p *Pool) SegmentShift() uint32 { return p.geo.SegmentShift }

// SegmentCount returns the number of segments in the file, or zero once the
// pool is closed.
func (p *Pool) SegmentCount() uint32 {
	if p.closed {
		return 0
	}
	return p.header.SegmentCount()
}

// MaxAllocSize returns the largest size Alloc accepts.
func (p *Pool) MaxAllocSize() uint32 { return p.geo.MaxAllocSize() }

// UserContext returns the caller-defined value stored in the pool header,
// or zero once the pool is closed.
func (p *Pool) UserContext() uint64 {
	if p.closed {
		return 0
	}
	return p.header.UserContext()
}

// SetUserContext stores a caller-defined value in the pool header.
func (p *Pool) SetUserContext(v uint64) error {
	if err := p.writable(); err != nil {
		return err
	}
	p.header.SetUserContext(v)
	return nil
}

// Flush writes every mapped segment back to the file and syncs it.
func (p *Pool) Flush() error {
	if p.closed {
		return ErrClosed
	}
	if p.m.ReadOnly() {
		return nil
	}
	for _, v := range p.byIndex {
		if err := p.m.Flush(v.data); err != nil {
			return fmt.Errorf("filepool: flush segment %d: %w: %w", v.segment, ErrIO, err)
		}
	}
	if err := p.m.Sync(); err != nil {
		return fmt.Errorf("filepool: %w: %w", ErrIO, err)
	}
	return nil
}

func (p *Pool) writable() error {
	if p.closed {
		return ErrClosed
	}
	if p.m.ReadOnly() {
		return ErrReadOnly
	}
	return nil
}

// maxSegments is the segment count at which RVAs stop fitting in 32 bits.
func maxSegments(shift uint32) uint64 {
	return 1 << (32 - shift)
}
