package iwp

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDecodeSingleCommands tests decoding of each command type in isolation.
func TestDecodeSingleCommands(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Command
	}{
		{
			name: "blank",
			data: []byte{0x00},
			want: Blank{},
		},
		{
			name: "scan period 1000us",
			data: []byte{0x01, 0x00, 0x00, 0x03, 0xE8},
			want: ScanPeriod{Micros: 1000},
		},
		{
			name: "point rgb8 red",
			data: []byte{0x02, 0x00, 0x0A, 0x00, 0x14, 0xFF, 0x00, 0x00},
			want: PointRGB8{X: 10, Y: 20, R: 255},
		},
		{
			name: "point rgb16 center",
			data: []byte{0x03, 0x80, 0x00, 0x80, 0x00, 0xFF, 0xFF, 0x00, 0x00, 0x00, 0x00},
			want: PointRGB16{X: 32768, Y: 32768, R: 65535},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds, err := Decode(tt.data, Options{})
			require.NoError(t, err)
			require.Len(t, cmds, 1)
			assert.Equal(t, tt.want, cmds[0])
		})
	}
}

// TestDecodeRGB8ExampleRoundTrip checks the canonical type 2 example: the
// 8-byte buffer decodes to one point and re-encodes to the identical bytes.
func TestDecodeRGB8ExampleRoundTrip(t *testing.T) {
	data := []byte{0x02, 0x00, 0x0A, 0x00, 0x14, 0xFF, 0x00, 0x00}

	cmds, err := Decode(data, Options{})
	require.NoError(t, err)
	require.Len(t, cmds, 1)

	p, ok := cmds[0].(PointRGB8)
	require.True(t, ok)
	assert.Equal(t, PointRGB8{X: 10, Y: 20, R: 255, G: 0, B: 0}, p)

	assert.Equal(t, data, Encode(cmds))
}

// TestDecodeMixedStream tests a datagram carrying several command types,
// verifying each command records its source offset.
func TestDecodeMixedStream(t *testing.T) {
	var buf []byte
	buf = append(buf, 0x01, 0x00, 0x00, 0x03, 0xE8)                               // period @0
	buf = append(buf, 0x03, 0x80, 0x00, 0x80, 0x00, 0xFF, 0xFF, 0x00, 0x00, 0x00, 0x00) // point @5
	buf = append(buf, 0x02, 0x40, 0x00, 0xC0, 0x00, 0x00, 0xFF, 0x00)             // point @16
	buf = append(buf, 0x00)                                                       // blank @24

	cmds, err := Decode(buf, Options{})
	require.NoError(t, err)
	require.Len(t, cmds, 4)

	assert.Equal(t, ScanPeriod{Offset: 0, Micros: 1000}, cmds[0])
	assert.Equal(t, PointRGB16{Offset: 5, X: 32768, Y: 32768, R: 65535}, cmds[1])
	assert.Equal(t, PointRGB8{Offset: 16, X: 16384, Y: 49152, G: 255}, cmds[2])
	assert.Equal(t, Blank{Offset: 24}, cmds[3])
}

// TestDecodeTruncated verifies that a buffer ending mid-command returns the
// fully contained prefix plus a TruncatedError citing the right offset.
func TestDecodeTruncated(t *testing.T) {
	tests := []struct {
		name       string
		data       []byte
		wantCmds   int
		wantOffset int
		wantNeed   int
	}{
		{
			name:       "period cut after tag",
			data:       []byte{0x00, 0x01, 0x00, 0x00},
			wantCmds:   1,
			wantOffset: 1,
			wantNeed:   5,
		},
		{
			name:       "rgb8 cut mid-coordinates",
			data:       []byte{0x02, 0x00, 0x0A, 0x00},
			wantCmds:   0,
			wantOffset: 0,
			wantNeed:   8,
		},
		{
			name: "rgb16 cut after full rgb8",
			data: []byte{
				0x02, 0x00, 0x0A, 0x00, 0x14, 0xFF, 0x00, 0x00,
				0x03, 0x80, 0x00,
			},
			wantCmds:   1,
			wantOffset: 8,
			wantNeed:   11,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds, err := Decode(tt.data, Options{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrTruncated))

			var te *TruncatedError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, tt.wantOffset, te.Offset)
			assert.Equal(t, tt.wantNeed, te.Need)
			assert.Equal(t, len(tt.data)-tt.wantOffset, te.Have)

			assert.Len(t, cmds, tt.wantCmds)
		})
	}
}

// TestDecodeUnknownType tests strict vs lenient handling of an unknown tag.
func TestDecodeUnknownType(t *testing.T) {
	data := []byte{
		0x00,
		0x7F, // not a command type
		0x02, 0x00, 0x0A, 0x00, 0x14, 0xFF, 0x00, 0x00,
	}

	t.Run("strict stops at the unknown byte", func(t *testing.T) {
		cmds, err := Decode(data, Options{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnknownCommandType))

		var ue *UnknownCommandTypeError
		require.True(t, errors.As(err, &ue))
		assert.Equal(t, 1, ue.Offset)
		assert.Equal(t, byte(0x7F), ue.Byte)

		require.Len(t, cmds, 1)
		assert.Equal(t, Blank{}, cmds[0])
	})

	t.Run("lenient skips the byte and continues", func(t *testing.T) {
		cmds, err := Decode(data, Options{Lenient: true})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnknownCommandType))

		require.Len(t, cmds, 2)
		assert.Equal(t, PointRGB8{Offset: 2, X: 10, Y: 20, R: 255}, cmds[1])
	})
}

// TestDecodeZeroScanPeriod verifies a zero period is skipped as malformed
// while decoding continues.
func TestDecodeZeroScanPeriod(t *testing.T) {
	data := []byte{
		0x01, 0x00, 0x00, 0x00, 0x00, // invalid: period must be > 0
		0x00,
	}

	cmds, err := Decode(data, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedCommand))

	require.Len(t, cmds, 1)
	assert.Equal(t, Blank{Offset: 5}, cmds[0])
}

// TestDecodeEmptyBuffer verifies an empty buffer is an empty sequence.
func TestDecodeEmptyBuffer(t *testing.T) {
	cmds, err := Decode(nil, Options{})
	require.NoError(t, err)
	assert.Empty(t, cmds)
}

// TestEncodeDecodeRoundTrip verifies Decode(Encode(c)) == c for a decoded
// sequence of every command type.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	var buf []byte
	buf = append(buf, 0x01, 0x00, 0x01, 0x86, 0xA0)
	for i := 0; i < 32; i++ {
		buf = append(buf, 0x03,
			byte(i), byte(i*3), byte(i*5), byte(i*7),
			0xFF, byte(i), 0x00, 0x80, byte(i), byte(i))
	}
	buf = append(buf, 0x02, 0x12, 0x34, 0x56, 0x78, 0x9A, 0xBC, 0xDE)
	buf = append(buf, 0x00)

	cmds, err := Decode(buf, Options{})
	require.NoError(t, err)

	encoded := Encode(cmds)
	require.True(t, bytes.Equal(buf, encoded), "encode must reproduce the source bytes")

	again, err := Decode(encoded, Options{})
	require.NoError(t, err)
	assert.Equal(t, cmds, again)
}

// TestOptionsBlanked tests the blanking sentinel conventions.
func TestOptionsBlanked(t *testing.T) {
	zero16 := PointRGB16{X: 100, Y: 100}
	lit16 := PointRGB16{X: 100, Y: 100, G: 1}
	zero8 := PointRGB8{X: 5, Y: 5}

	def := Options{}
	assert.True(t, def.Blanked(zero16))
	assert.False(t, def.Blanked(lit16))
	assert.True(t, def.Blanked(zero8))
	assert.False(t, def.Blanked(Blank{}))

	never := Options{Blanking: NeverBlank}
	assert.False(t, never.Blanked(zero16))
	assert.False(t, never.Blanked(zero8))
}
