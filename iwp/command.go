// Package iwp implements the ILDA Wave Protocol, a UDP wire protocol for
// real-time laser point streaming.
//
// An IWP datagram is a sequence of commands. Each command starts with a one
// byte type tag followed by a fixed-size big-endian payload:
//
//	0x00  Blank        no payload, terminates the current frame
//	0x01  ScanPeriod   u32 scan period in microseconds
//	0x02  PointRGB8    u16 x, u16 y, u8 r, u8 g, u8 b
//	0x03  PointRGB16   u16 x, u16 y, u16 r, u16 g, u16 b
//
// Example:
//
//	cmds, err := iwp.Decode(datagram, iwp.Options{})
//	if err != nil {
//	    // cmds still holds everything decoded before the fault
//	}
package iwp

import "encoding/binary"

// CommandType identifies the wire type of an IWP command.
type CommandType byte

const (
	// TypeBlank terminates the current frame (laser off).
	TypeBlank CommandType = 0x00
	// TypeScanPeriod carries the scan period in microseconds.
	TypeScanPeriod CommandType = 0x01
	// TypePointRGB8 carries a point with 8-bit color channels.
	TypePointRGB8 CommandType = 0x02
	// TypePointRGB16 carries a point with 16-bit color channels.
	TypePointRGB16 CommandType = 0x03
)

// Wire sizes per command type, including the leading tag byte.
const (
	blankWireSize      = 1
	scanPeriodWireSize = 1 + 4
	pointRGB8WireSize  = 1 + 2 + 2 + 1 + 1 + 1
	pointRGB16WireSize = 1 + 2 + 2 + 2 + 2 + 2
)

// Command is a single decoded IWP command. Commands are immutable values;
// Offset reports where the command's tag byte sat in the source buffer, for
// diagnostics only (it does not participate in the wire encoding).
type Command interface {
	// Type returns the wire type tag of the command.
	Type() CommandType
	// ByteOffset returns the command's tag position in the source buffer.
	ByteOffset() int
	// WireSize returns the encoded size in bytes, tag included.
	WireSize() int

	appendWire(dst []byte) []byte
}

// Blank is a type 0 command: turn the laser off and terminate the frame.
type Blank struct {
	Offset int
}

// ScanPeriod is a type 1 command carrying the scan period in microseconds.
type ScanPeriod struct {
	Offset int
	Micros uint32
}

// PointRGB8 is a type 2 command: a point with 8-bit color channels.
type PointRGB8 struct {
	Offset  int
	X, Y    uint16
	R, G, B uint8
}

// PointRGB16 is a type 3 command: a point with 16-bit color channels.
type PointRGB16 struct {
	Offset        int
	X, Y, R, G, B uint16
}

// NewScanPeriod validates and constructs a ScanPeriod command. The period
// must be greater than zero.
func NewScanPeriod(micros uint32) (ScanPeriod, error) {
	if micros == 0 {
		return ScanPeriod{}, &MalformedCommandError{Field: "micros", Value: 0}
	}
	return ScanPeriod{Micros: micros}, nil
}

// NewPointRGB8 validates and constructs a PointRGB8 command. Coordinates
// must fit in 16 bits and color channels in 8 bits.
func NewPointRGB8(x, y, r, g, b int) (PointRGB8, error) {
	if err := checkRange("x", x, 0xFFFF); err != nil {
		return PointRGB8{}, err
	}
	if err := checkRange("y", y, 0xFFFF); err != nil {
		return PointRGB8{}, err
	}
	if err := checkRange("r", r, 0xFF); err != nil {
		return PointRGB8{}, err
	}
	if err := checkRange("g", g, 0xFF); err != nil {
		return PointRGB8{}, err
	}
	if err := checkRange("b", b, 0xFF); err != nil {
		return PointRGB8{}, err
	}
	return PointRGB8{X: uint16(x), Y: uint16(y), R: uint8(r), G: uint8(g), B: uint8(b)}, nil
}

// NewPointRGB16 validates and constructs a PointRGB16 command. All fields
// must fit in 16 bits.
func NewPointRGB16(x, y, r, g, b int) (PointRGB16, error) {
	fields := [...]struct {
		name  string
		value int
	}{{"x", x}, {"y", y}, {"r", r}, {"g", g}, {"b", b}}
	for _, f := range fields {
		if err := checkRange(f.name, f.value, 0xFFFF); err != nil {
			return PointRGB16{}, err
		}
	}
	return PointRGB16{X: uint16(x), Y: uint16(y), R: uint16(r), G: uint16(g), B: uint16(b)}, nil
}

func checkRange(field string, value, max int) error {
	if value < 0 || value > max {
		return &MalformedCommandError{Field: field, Value: value}
	}
	return nil
}

// Type implements Command.
func (Blank) Type() CommandType { return TypeBlank }

// ByteOffset implements Command.
func (c Blank) ByteOffset() int { return c.Offset }

// WireSize implements Command.
func (Blank) WireSize() int { return blankWireSize }

func (Blank) appendWire(dst []byte) []byte {
	return append(dst, byte(TypeBlank))
}

// Type implements Command.
func (ScanPeriod) Type() CommandType { return TypeScanPeriod }

// ByteOffset implements Command.
func (c ScanPeriod) ByteOffset() int { return c.Offset }

// WireSize implements Command.
func (ScanPeriod) WireSize() int { return scanPeriodWireSize }

func (c ScanPeriod) appendWire(dst []byte) []byte {
	dst = append(dst, byte(TypeScanPeriod))
	return binary.BigEndian.AppendUint32(dst, c.Micros)
}

// Type implements Command.
func (PointRGB8) Type() CommandType { return TypePointRGB8 }

// ByteOffset implements Command.
func (c PointRGB8) ByteOffset() int { return c.Offset }

// WireSize implements Command.
func (PointRGB8) WireSize() int { return pointRGB8WireSize }

func (c PointRGB8) appendWire(dst []byte) []byte {
	dst = append(dst, byte(TypePointRGB8))
	dst = binary.BigEndian.AppendUint16(dst, c.X)
	dst = binary.BigEndian.AppendUint16(dst, c.Y)
	return append(dst, c.R, c.G, c.B)
}

// Type implements Command.
func (PointRGB16) Type() CommandType { return TypePointRGB16 }

// ByteOffset implements Command.
func (c PointRGB16) ByteOffset() int { return c.Offset }

// WireSize implements Command.
func (PointRGB16) WireSize() int { return pointRGB16WireSize }

func (c PointRGB16) appendWire(dst []byte) []byte {
	dst = append(dst, byte(TypePointRGB16))
	dst = binary.BigEndian.AppendUint16(dst, c.X)
	dst = binary.BigEndian.AppendUint16(dst, c.Y)
	dst = binary.BigEndian.AppendUint16(dst, c.R)
	dst = binary.BigEndian.AppendUint16(dst, c.G)
	return binary.BigEndian.AppendUint16(dst, c.B)
}
