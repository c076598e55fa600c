package permission

import (
	"encoding/binary"
	"errors"
)

const maskEncodedLen = 8

var ErrInvalidMaskEncoding = errors.New("invalid mask encoding")

// EncodeMask serialises a mask as 8 big-endian bytes.
func EncodeMask(m Mask) []byte {
	b := make([]byte, maskEncodedLen)
	binary.BigEndian.PutUint64(b, uint64(m))
	return b
}

// DecodeMask parses the output of [EncodeMask]. Any other length is rejected.
func DecodeMask(data []byte) (Mask, error) {
	if len(data) != maskEncodedLen {
		return 0, ErrInvalidMaskEncoding
	}
	return Mask(binary.BigEndian.Uint64(data)), nil
}
