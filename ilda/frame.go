package ilda

// Format is the record format code from an ILDA header.
type Format uint8

const (
	// Format3DIndexed is a 3D frame with indexed color (8-byte records).
	Format3DIndexed Format = 0
	// Format2DIndexed is a 2D frame with indexed color (6-byte records).
	Format2DIndexed Format = 1
	// FormatPalette defines a color palette (3-byte RGB records).
	FormatPalette Format = 2
	// FormatTruecolorPalette is the truecolor palette revision. Only palette
	// definition records are supported; format 3 point data is not.
	FormatTruecolorPalette Format = 3
	// Format3DTruecolor is a 3D frame with truecolor points (10-byte records).
	Format3DTruecolor Format = 4
	// Format2DTruecolor is a 2D frame with truecolor points (8-byte records).
	Format2DTruecolor Format = 5
)

// Status byte flags on point records.
const (
	// StatusLastPoint marks the final point of a frame.
	StatusLastPoint = 0x80
	// StatusBlanked marks a point the beam traverses with the laser off.
	StatusBlanked = 0x40
)

// Point is one point record of a frame. For 2D formats Z is zero. Indexed
// points carry ColorIndex and resolve their color against the frame's
// palette at consumption time; truecolor points carry R, G, B directly.
type Point struct {
	X, Y, Z    int16
	Blanked    bool
	LastPoint  bool
	Truecolor  bool
	ColorIndex uint8
	R, G, B    uint8
}

// RGB resolves the point's color. Truecolor points return their own
// channels, indexed points look up the palette.
func (p Point) RGB(pal Palette) (r, g, b uint8) {
	if p.Truecolor {
		return p.R, p.G, p.B
	}
	c := pal.Lookup(p.ColorIndex)
	return c.R, c.G, c.B
}

// Frame is one complete decoded animation frame. Palette is the table that
// was active when the frame was decoded: palette records apply to frames
// that follow them in file order, never to ones before.
type Frame struct {
	Format      Format
	Name        string
	Company     string
	Number      uint16
	TotalFrames uint16
	Projector   uint8
	Points      []Point
	Palette     Palette
}
