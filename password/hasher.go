package password

// Hasher produces and checks one-way credential hashes.
//
// Verify never fails loudly: any mismatch, including a malformed or foreign
// encoded hash, reports false.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) bool
	// Identifies reports whether encodedHash was produced by this algorithm.
	Identifies(encodedHash string) bool
}

// Upgrader is implemented by hashers that can tell when a stored hash was
// produced with weaker parameters than the current configuration.
type Upgrader interface {
	NeedsUpgrade(encodedHash string) (bool, error)
}

// Multi hashes with Primary and verifies with whichever configured hasher
// identifies the stored hash.
type Multi struct {
	Primary  Hasher
	Fallback []Hasher
}

// NewMulti builds a [Multi] hasher.
func NewMulti(primary Hasher, fallback ...Hasher) *Multi {
	return &Multi{Primary: primary, Fallback: fallback}
}

func (m *Multi) Hash(password string) (string, error) {
	return m.Primary.Hash(password)
}

func (m *Multi) Verify(password, encodedHash string) bool {
	h := m.pick(encodedHash)
	if h == nil {
		return false
	}
	return h.Verify(password, encodedHash)
}

func (m *Multi) Identifies(encodedHash string) bool {
	return m.pick(encodedHash) != nil
}

// NeedsUpgrade is true for hashes from a fallback algorithm, or when the
// primary reports weaker parameters.
func (m *Multi) NeedsUpgrade(encodedHash string) (bool, error) {
	if !m.Primary.Identifies(encodedHash) {
		return m.pick(encodedHash) != nil, nil
	}
	if up, ok := m.Primary.(Upgrader); ok {
		return up.NeedsUpgrade(encodedHash)
	}
	return false, nil
}

func (m *Multi) pick(encodedHash string) Hasher {
	if m.Primary != nil && m.Primary.Identifies(encodedHash) {
		return m.Primary
	}
	for _, h := range m.Fallback {
		if h != nil && h.Identifies(encodedHash) {
			return h
		}
	}
	return nil
}
