package buffer

import "errors"

// A 32-bit value never needs more than 5 LEB128 bytes.
const maxLeb128Len = 5

var (
	ErrLeb128Truncated = errors.New("buffer: truncated LEB128 value")
	ErrLeb128TooLong   = errors.New("buffer: LEB128 value exceeds 32 bits")
)

// Uleb128 decodes an unsigned LEB128 value from the front of b and returns it
// with the number of bytes consumed.
func Uleb128(b []byte) (uint32, int, error) {
	var result uint32
	for i := 0; i < maxLeb128Len; i++ {
		if i >= len(b) {
			return 0, 0, ErrLeb128Truncated
		}
		c := b[i]
		result |= uint32(c&0x7f) << (7 * i)
		if c&0x80 == 0 {
			return result, i + 1, nil
		}
	}
	return 0, 0, ErrLeb128TooLong
}

// Sleb128 decodes a signed LEB128 value from the front of b and returns it
// with the number of bytes consumed.
func Sleb128(b []byte) (int32, int, error) {
	var result uint32
	var shift uint
	for i := 0; i < maxLeb128Len; i++ {
		if i >= len(b) {
			return 0, 0, ErrLeb128Truncated
		}
		c := b[i]
		result |= uint32(c&0x7f) << shift
		shift += 7
		if c&0x80 == 0 {
			if shift < 32 && c&0x40 != 0 {
				result |= ^uint32(0) << shift
			}
			return int32(result), i + 1, nil
		}
	}
	return 0, 0, ErrLeb128TooLong
}

// SkipUleb128 returns the encoded length of the unsigned LEB128 value at the
// front of b.
func SkipUleb128(b []byte) (int, error) {
	_, n, err := Uleb128(b)
	return n, err
}

// SkipSleb128 returns the encoded length of the signed LEB128 value at the
// front of b.
func SkipSleb128(b []byte) (int, error) {
	_, n, err := Sleb128(b)
	return n, err
}
