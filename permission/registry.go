package permission

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrRegistryFrozen      = errors.New("registry frozen")
	ErrEmptyPermissionName = errors.New("permission name cannot be empty")
	ErrDuplicatePermission = errors.New("permission already registered")
	ErrBitCollision        = errors.New("permission bit already assigned")
	ErrInvalidBit          = errors.New("permission bit must be a single bit")
	ErrUnknownPermission   = errors.New("permission not registered")
)

// Registry maps permission names to their capability bits.
// Every name owns exactly one bit and no two names share a bit.
type Registry struct {
	mu         sync.RWMutex
	nameToMask map[string]Mask
	maskToName map[Mask]string
	frozen     bool
}

// NewRegistry creates an empty, unfrozen [Registry].
func NewRegistry() *Registry {
	return &Registry{
		nameToMask: make(map[string]Mask),
		maskToName: make(map[Mask]string),
	}
}

// DefaultRegistry returns a frozen registry holding the named capabilities.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, p := range []struct {
		name string
		bit  Mask
	}{
		{"follow", Follow},
		{"comment", Comment},
		{"post", Post},
		{"write_article", WriteArticle},
		{"administer", Administer},
	} {
		if err := r.Register(p.name, p.bit); err != nil {
			panic("permission: default registry: " + err.Error())
		}
	}
	r.Freeze()
	return r
}

// Register binds name to bit. Must be called before [Registry.Freeze].
func (r *Registry) Register(name string, bit Mask) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return ErrRegistryFrozen
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyPermissionName
	}
	if !singleBit(bit) {
		return ErrInvalidBit
	}
	if _, exists := r.nameToMask[name]; exists {
		return ErrDuplicatePermission
	}
	if _, taken := r.maskToName[bit]; taken {
		return ErrBitCollision
	}

	r.nameToMask[name] = bit
	r.maskToName[bit] = name
	return nil
}

// Bit returns the bit for the named permission, or false if not registered.
func (r *Registry) Bit(name string) (Mask, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bit, ok := r.nameToMask[name]
	return bit, ok
}

// Name returns the permission name for the given bit, or false if unassigned.
func (r *Registry) Name(bit Mask) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.maskToName[bit]
	return name, ok
}

// Parse folds the named permissions into a single mask.
func (r *Registry) Parse(names []string) (Mask, error) {
	var m Mask
	for _, name := range names {
		bit, ok := r.Bit(strings.TrimSpace(name))
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnknownPermission, name)
		}
		m |= bit
	}
	return m, nil
}

// Names lists the registered names whose bits are set in m, ordered by bit.
func (r *Registry) Names(m Mask) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bits := make([]Mask, 0, len(r.maskToName))
	for bit := range r.maskToName {
		if m&bit != 0 {
			bits = append(bits, bit)
		}
	}
	sort.Slice(bits, func(i, j int) bool { return bits[i] < bits[j] })

	out := make([]string, 0, len(bits))
	for _, bit := range bits {
		out = append(out, r.maskToName[bit])
	}
	return out
}

// Freeze prevents further registrations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Count returns the number of registered permissions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nameToMask)
}
