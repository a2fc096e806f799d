package filepool

import (
	"io"
	"log/slog"

	"github.com/joshuapare/filepool/internal/format"
)

// DefaultMaxInactiveViews is the number of unreferenced segment views kept
// mapped before the least recently released ones are unmapped.
const DefaultMaxInactiveViews = 128

// Params configures a pool. The segment shift only applies when a file is
// initialized; an existing pool keeps the shift stored in its header.
type Params struct {
	// SegmentShift is log2 of the segment size, 16..28. Out-of-range values
	// are clamped.
	SegmentShift uint32

	// MaxInactiveViews bounds the unreferenced views kept mapped.
	MaxInactiveViews int

	// Logger receives diagnostics. Nil discards them.
	Logger *slog.Logger
}

// DefaultParams returns 256 KiB segments and DefaultMaxInactiveViews.
func DefaultParams() Params {
	return Params{
		SegmentShift:     format.DefaultSegmentShift,
		MaxInactiveViews: DefaultMaxInactiveViews,
	}
}

// resolve copies params, fills defaults and clamps the segment shift.
func resolve(params *Params) Params {
	var p Params
	if params == nil {
		p = DefaultParams()
	} else {
		p = *params
	}
	if p.Logger == nil {
		p.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if shift, clamped := format.ClampSegmentShift(p.SegmentShift); clamped {
		p.Logger.Warn("segment shift out of range, clamped",
			"requested", p.SegmentShift, "used", shift)
		p.SegmentShift = shift
	}
	if p.MaxInactiveViews < 0 {
		p.MaxInactiveViews = 0
	}
	return p
}
