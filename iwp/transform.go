package iwp

// ILDA files use signed 16-bit coordinates centered on the origin with Y
// growing upward; IWP devices expect unsigned 16-bit coordinates with Y
// growing downward. These helpers convert between the two, matching the
// transform projectors apply on transmission.

// TransformXY maps a signed ILDA coordinate pair onto the unsigned IWP
// coordinate space: x shifts by 0x8000, y is mirrored then shifted.
func TransformXY(x, y int16) (uint16, uint16) {
	xn := uint16(int32(x) + 0x8000)
	yn := uint16(-int32(y) + 0x8000)
	return xn, yn
}

// Scale8To16 widens an 8-bit color channel to the full 16-bit range
// (0xFF maps to 0xFFFF).
func Scale8To16(c uint8) uint16 {
	return uint16(c) * 257
}
