package iwp

import (
	"encoding/binary"

	"github.com/sirupsen/logrus"
)

// BlankingRule selects how the codec derives the blanking flag for point
// commands. The wire format reserves no explicit bit for it, so devices rely
// on a sentinel convention.
type BlankingRule uint8

const (
	// BlankOnZeroColor treats a point whose color channels are all zero as
	// blanked. This matches the common device convention for 16-bit points.
	BlankOnZeroColor BlankingRule = iota
	// NeverBlank treats every point as visible.
	NeverBlank
)

// Options controls decoding behavior.
type Options struct {
	// Lenient makes Decode skip a single unknown type byte and keep going
	// instead of stopping at it. The error is still reported either way.
	Lenient bool
	// Blanking selects the blanking sentinel convention.
	Blanking BlankingRule
}

// Blanked reports whether the command is a point the laser should traverse
// unlit, per the configured blanking rule.
func (o Options) Blanked(c Command) bool {
	if o.Blanking == NeverBlank {
		return false
	}
	switch p := c.(type) {
	case PointRGB16:
		return p.R == 0 && p.G == 0 && p.B == 0
	case PointRGB8:
		return p.R == 0 && p.G == 0 && p.B == 0
	}
	return false
}

// Decode parses a raw buffer into the command sequence it contains.
//
// Decoding walks the buffer command by command until it is exhausted. On any
// fault the commands decoded before it are returned alongside the error: a
// buffer ending mid-command yields a *TruncatedError, an unrecognized tag a
// *UnknownCommandTypeError (after which decoding continues only in lenient
// mode), and a zero scan period a *MalformedCommandError (the command is
// skipped, decoding continues). Callers on a noisy transport may keep the
// partial result or discard it.
func Decode(data []byte, opts Options) ([]Command, error) {
	cmds := make([]Command, 0, len(data)/pointRGB8WireSize+1)
	var deferred error

	offset := 0
	for offset < len(data) {
		tag := CommandType(data[offset])
		switch tag {
		case TypeBlank:
			cmds = append(cmds, Blank{Offset: offset})
			offset += blankWireSize

		case TypeScanPeriod:
			if offset+scanPeriodWireSize > len(data) {
				return cmds, truncated(data, offset, tag, scanPeriodWireSize)
			}
			micros := binary.BigEndian.Uint32(data[offset+1:])
			if micros == 0 {
				if deferred == nil {
					deferred = &MalformedCommandError{Field: "micros", Value: 0, Offset: offset}
				}
				offset += scanPeriodWireSize
				continue
			}
			cmds = append(cmds, ScanPeriod{Offset: offset, Micros: micros})
			offset += scanPeriodWireSize

		case TypePointRGB8:
			if offset+pointRGB8WireSize > len(data) {
				return cmds, truncated(data, offset, tag, pointRGB8WireSize)
			}
			cmds = append(cmds, PointRGB8{
				Offset: offset,
				X:      binary.BigEndian.Uint16(data[offset+1:]),
				Y:      binary.BigEndian.Uint16(data[offset+3:]),
				R:      data[offset+5],
				G:      data[offset+6],
				B:      data[offset+7],
			})
			offset += pointRGB8WireSize

		case TypePointRGB16:
			if offset+pointRGB16WireSize > len(data) {
				return cmds, truncated(data, offset, tag, pointRGB16WireSize)
			}
			cmds = append(cmds, PointRGB16{
				Offset: offset,
				X:      binary.BigEndian.Uint16(data[offset+1:]),
				Y:      binary.BigEndian.Uint16(data[offset+3:]),
				R:      binary.BigEndian.Uint16(data[offset+5:]),
				G:      binary.BigEndian.Uint16(data[offset+7:]),
				B:      binary.BigEndian.Uint16(data[offset+9:]),
			})
			offset += pointRGB16WireSize

		default:
			err := &UnknownCommandTypeError{Offset: offset, Byte: byte(tag)}
			if !opts.Lenient {
				return cmds, err
			}
			logrus.WithFields(logrus.Fields{
				"function": "Decode",
				"offset":   offset,
				"byte":     byte(tag),
			}).Debug("Skipping unknown command type in lenient mode")
			if deferred == nil {
				deferred = err
			}
			offset++
		}
	}

	return cmds, deferred
}

func truncated(data []byte, offset int, tag CommandType, need int) *TruncatedError {
	return &TruncatedError{
		Offset: offset,
		Type:   tag,
		Need:   need,
		Have:   len(data) - offset,
	}
}

// Encode serializes a command sequence into its wire representation. It is
// the exact inverse of Decode: for any valid sequence c decoded from a
// buffer, Decode(Encode(c)) yields c again.
func Encode(cmds []Command) []byte {
	size := 0
	for _, c := range cmds {
		size += c.WireSize()
	}
	buf := make([]byte, 0, size)
	for _, c := range cmds {
		buf = c.appendWire(buf)
	}
	return buf
}
