package permission

// Mask is a capability bitmask. Named capabilities occupy single bits.
type Mask uint64

const (
	Follow       Mask = 0x01
	Comment      Mask = 0x02
	Post         Mask = 0x04
	WriteArticle Mask = 0x08
	Administer   Mask = 0x80

	// All grants every bit of the low byte, including bits not yet named.
	All Mask = 0xFF
)

// Has reports whether every bit of capability is set in mask.
// A zero capability is never granted.
func Has(mask, capability Mask) bool {
	if capability == 0 {
		return false
	}
	return mask&capability == capability
}

// Has reports whether capability is granted by m.
func (m Mask) Has(capability Mask) bool {
	return Has(m, capability)
}

// With returns m with the capability bits set.
func (m Mask) With(capability Mask) Mask {
	return m | capability
}

// Without returns m with the capability bits cleared.
func (m Mask) Without(capability Mask) Mask {
	return m &^ capability
}

func (m Mask) Raw() uint64 {
	return uint64(m)
}

// singleBit reports whether m has exactly one bit set.
func singleBit(m Mask) bool {
	return m != 0 && m&(m-1) == 0
}
