package bit

// Combine combines two 8 bit values into a single 16 bit value.
// The high byte will be the most significant one.
func Combine(high, low uint8) uint16 {
	return (uint16(high) << 8) | uint16(low)
}

// Low returns the low (LSB) part of a 16 bit number.
func Low(value uint16) uint8 {
	return uint8(value)
}

// High returns the high (MSB) part of a 16 bit number.
func High(value uint16) uint8 {
	return uint8(value >> 8)
}

// IsSet will check if the bit at the specified index is set to 1 or not.
func IsSet(index, value uint8) bool {
	return ((value >> index) & 1) == 1
}

// Set will return the passed byte with the bit at the specified index set to 1.
func Set(index, value uint8) uint8 {
	return value | (1 << index)
}

// Clear will return the passed byte with the bit at the specified index set to 0.
func Clear(index, value uint8) uint8 {
	return value &^ (1 << index)
}

// SetTo sets or clears the bit at index depending on on.
func SetTo(index, value uint8, on bool) uint8 {
	if on {
		return Set(index, value)
	}
	return Clear(index, value)
}

// GetBitValue returns a byte set to the value of the bit at the specified index.
func GetBitValue(index, value uint8) uint8 {
	return (value >> index) & 1
}

// FromBool returns 1 for true and 0 for false.
func FromBool(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// ColorCode returns the 2-bit colour index of pixel x (0 is leftmost) from
// the two planar bytes of a tile row.
func ColorCode(low, high uint8, x uint8) uint8 {
	shift := 7 - x
	return ((high>>shift)&1)<<1 | (low>>shift)&1
}
