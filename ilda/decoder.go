package ilda

import (
	"encoding/binary"
	"strings"

	"github.com/sirupsen/logrus"
)

// HeaderSize is the fixed size of an ILDA record header.
const HeaderSize = 32

// Record sizes per format, in bytes per point or palette entry.
const (
	recordSize3DIndexed   = 8  // x, y, z, status, color index
	recordSize2DIndexed   = 6  // x, y, status, color index
	recordSizePalette     = 3  // r, g, b
	recordSize3DTruecolor = 10 // x, y, z, status, b, g, r
	recordSize2DTruecolor = 8  // x, y, status, b, g, r
)

// Header is the fixed 32-byte record header that precedes every ILDA record.
type Header struct {
	Format      Format
	Name        string
	Company     string
	Records     uint16
	Number      uint16
	TotalFrames uint16
	Projector   uint8
}

func parseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, ErrShortRecord
	}
	if string(data[0:4]) != "ILDA" {
		return Header{}, ErrBadMagic
	}
	return Header{
		Format:      Format(data[7]),
		Name:        trimName(data[8:16]),
		Company:     trimName(data[16:24]),
		Records:     binary.BigEndian.Uint16(data[24:26]),
		Number:      binary.BigEndian.Uint16(data[26:28]),
		TotalFrames: binary.BigEndian.Uint16(data[28:30]),
		Projector:   data[30],
	}, nil
}

func trimName(b []byte) string {
	return strings.TrimRight(string(b), "\x00")
}

// Decode parses a complete ILDA file buffer into its ordered frame sequence.
//
// The buffer is a run of records, each a 32-byte header followed by point or
// palette entries. A record declaring zero entries terminates the stream.
// Palette records (formats 2 and 3) replace the active palette for every
// frame after them; frames decoded earlier keep the table they were decoded
// under. A malformed or short record returns the frames decoded so far
// together with a *DecodeError naming the record index and byte offset.
func Decode(data []byte) ([]Frame, error) {
	var frames []Frame
	palette := DefaultPalette()

	offset := 0
	for record := 0; offset < len(data); record++ {
		start := offset
		hdr, err := parseHeader(data[offset:])
		if err != nil {
			return frames, &DecodeError{Record: record, Offset: start, Err: err}
		}
		offset += HeaderSize

		if hdr.Records == 0 {
			logrus.WithFields(logrus.Fields{
				"function": "Decode",
				"record":   record,
				"frames":   len(frames),
			}).Debug("Terminator record, ending frame stream")
			break
		}

		switch hdr.Format {
		case Format3DIndexed, Format2DIndexed, Format3DTruecolor, Format2DTruecolor:
			points, n, err := decodePoints(data[offset:], hdr.Format, int(hdr.Records))
			if err != nil {
				return frames, &DecodeError{Record: record, Offset: start, Format: hdr.Format, Err: err}
			}
			offset += n
			frames = append(frames, Frame{
				Format:      hdr.Format,
				Name:        hdr.Name,
				Company:     hdr.Company,
				Number:      hdr.Number,
				TotalFrames: hdr.TotalFrames,
				Projector:   hdr.Projector,
				Points:      points,
				Palette:     palette.Clone(),
			})

		case FormatPalette, FormatTruecolorPalette:
			if hdr.Format == FormatTruecolorPalette && int(hdr.Records) > MaxPaletteSize {
				// A table cannot exceed 256 entries, so this is format 3
				// point data, which is not supported for playback.
				return frames, &DecodeError{Record: record, Offset: start, Format: hdr.Format, Err: ErrUnsupportedFormat}
			}
			pal, n, err := decodePalette(data[offset:], int(hdr.Records))
			if err != nil {
				return frames, &DecodeError{Record: record, Offset: start, Format: hdr.Format, Err: err}
			}
			offset += n
			palette = pal
			logrus.WithFields(logrus.Fields{
				"function": "Decode",
				"record":   record,
				"entries":  len(pal),
			}).Debug("Palette record applied")

		default:
			return frames, &DecodeError{Record: record, Offset: start, Format: hdr.Format, Err: ErrUnsupportedFormat}
		}
	}

	return frames, nil
}

func decodePoints(data []byte, format Format, records int) ([]Point, int, error) {
	recSize := 0
	switch format {
	case Format3DIndexed:
		recSize = recordSize3DIndexed
	case Format2DIndexed:
		recSize = recordSize2DIndexed
	case Format3DTruecolor:
		recSize = recordSize3DTruecolor
	case Format2DTruecolor:
		recSize = recordSize2DTruecolor
	}

	if len(data) < records*recSize {
		// The declared point count must match the records present; a frame
		// is produced whole or not at all.
		return nil, 0, ErrShortRecord
	}

	points := make([]Point, 0, records)
	off := 0
	for i := 0; i < records; i++ {
		rec := data[off : off+recSize]
		p := Point{
			X: int16(binary.BigEndian.Uint16(rec[0:2])),
			Y: int16(binary.BigEndian.Uint16(rec[2:4])),
		}

		var status byte
		switch format {
		case Format3DIndexed:
			p.Z = int16(binary.BigEndian.Uint16(rec[4:6]))
			status = rec[6]
			p.ColorIndex = rec[7]
		case Format2DIndexed:
			status = rec[4]
			p.ColorIndex = rec[5]
		case Format3DTruecolor:
			p.Z = int16(binary.BigEndian.Uint16(rec[4:6]))
			status = rec[6]
			// Truecolor records store channels in BGR order.
			p.B, p.G, p.R = rec[7], rec[8], rec[9]
			p.Truecolor = true
		case Format2DTruecolor:
			status = rec[4]
			p.B, p.G, p.R = rec[5], rec[6], rec[7]
			p.Truecolor = true
		}

		p.Blanked = status&StatusBlanked != 0
		p.LastPoint = status&StatusLastPoint != 0
		points = append(points, p)
		off += recSize
	}

	return points, off, nil
}

func decodePalette(data []byte, records int) (Palette, int, error) {
	if len(data) < records*recordSizePalette {
		return nil, 0, ErrShortRecord
	}

	size := records
	if size > MaxPaletteSize {
		size = MaxPaletteSize
	}
	pal := make(Palette, 0, size)
	off := 0
	for i := 0; i < records; i++ {
		if i < MaxPaletteSize {
			pal = append(pal, RGB{R: data[off], G: data[off+1], B: data[off+2]})
		}
		off += recordSizePalette
	}

	return pal, off, nil
}
