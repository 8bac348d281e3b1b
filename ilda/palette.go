// Package ilda decodes the ILDA image data transfer format: laser show
// files holding point-based animation frames with indexed or truecolor
// point encodings.
//
// Example:
//
//	frames, err := ilda.DecodeFile("show.ild")
//	if err != nil {
//	    // frames still holds everything decoded before the fault
//	}
//	for _, f := range frames {
//	    for i := range f.Points {
//	        r, g, b := f.Points[i].RGB(f.Palette)
//	        ...
//	    }
//	}
package ilda

// RGB is one palette entry.
type RGB struct {
	R, G, B uint8
}

// Palette is an ordered color lookup table of up to 256 entries, referenced
// by index from indexed-color frames.
type Palette []RGB

// MaxPaletteSize is the largest palette an ILDA file may declare.
const MaxPaletteSize = 256

// Lookup resolves a color index. Indexes beyond the palette wrap onto the
// last entry so corrupt indexes degrade instead of panicking.
func (p Palette) Lookup(index uint8) RGB {
	if len(p) == 0 {
		return RGB{R: 255, G: 255, B: 255}
	}
	if int(index) >= len(p) {
		return p[len(p)-1]
	}
	return p[index]
}

// Clone returns an independent copy of the palette. Frames hold clones so a
// later palette record never mutates colors of frames decoded before it.
func (p Palette) Clone() Palette {
	out := make(Palette, len(p))
	copy(out, p)
	return out
}

// DefaultPalette returns the standard 64-color ILDA palette, used for
// indexed-color frames in files that carry no palette record of their own.
func DefaultPalette() Palette {
	return defaultPalette.Clone()
}

var defaultPalette = Palette{
	{255, 0, 0}, {255, 16, 0}, {255, 32, 0}, {255, 48, 0},
	{255, 64, 0}, {255, 80, 0}, {255, 96, 0}, {255, 112, 0},
	{255, 128, 0}, {255, 144, 0}, {255, 160, 0}, {255, 176, 0},
	{255, 192, 0}, {255, 208, 0}, {255, 224, 0}, {255, 240, 0},
	{255, 255, 0}, {224, 255, 0}, {192, 255, 0}, {160, 255, 0},
	{128, 255, 0}, {96, 255, 0}, {64, 255, 0}, {32, 255, 0},
	{0, 255, 0}, {0, 255, 36}, {0, 255, 73}, {0, 255, 109},
	{0, 255, 146}, {0, 255, 182}, {0, 255, 219}, {0, 255, 255},
	{0, 227, 255}, {0, 198, 255}, {0, 170, 255}, {0, 142, 255},
	{0, 113, 255}, {0, 85, 255}, {0, 56, 255}, {0, 28, 255},
	{0, 0, 255}, {32, 0, 255}, {64, 0, 255}, {96, 0, 255},
	{128, 0, 255}, {160, 0, 255}, {192, 0, 255}, {224, 0, 255},
	{255, 0, 255}, {255, 32, 255}, {255, 64, 255}, {255, 96, 255},
	{255, 128, 255}, {255, 160, 255}, {255, 192, 255}, {255, 224, 255},
	{255, 255, 255}, {255, 224, 224}, {255, 192, 192}, {255, 160, 160},
	{255, 128, 128}, {255, 96, 96}, {255, 64, 64}, {255, 32, 32},
}
