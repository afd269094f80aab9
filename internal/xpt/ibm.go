package xpt

import (
	"encoding/binary"
	"math"
)

// IBM System/360 doubles use a 7-bit base-16 exponent with a bias of 64 and
// a 56-bit fraction. Transport files may truncate the trailing fraction
// bytes; truncated values are padded with zeros before conversion.

// ibmToFloat converts a (possibly truncated) IBM double to IEEE 754.
// b must be 2 to 8 bytes.
func ibmToFloat(b []byte) float64 {
	var buf [8]byte
	copy(buf[:], b)

	bits := binary.BigEndian.Uint64(buf[:])
	frac := bits & 0x00ffffffffffffff
	if frac == 0 {
		return 0
	}

	exp := int((bits >> 56) & 0x7f)
	// fraction * 16^(exp-64), with the fraction scaled down by 2^56
	v := float64(frac) * math.Pow(2, float64((exp-64)*4-56))
	if bits&0x8000000000000000 != 0 {
		return -v
	}
	return v
}

// isMissing reports whether a numeric field holds a SAS missing value.
// Missing values store '.', '.A'..'.Z' (as 'A'..'Z'), or '._' (as '_') in
// the first byte with the remaining bytes zero.
func isMissing(b []byte) bool {
	if len(b) == 0 {
		return true
	}
	c := b[0]
	if c != '.' && c != '_' && (c < 'A' || c > 'Z') {
		return false
	}
	for _, rest := range b[1:] {
		if rest != 0 {
			return false
		}
	}
	return true
}
