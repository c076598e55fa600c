package permission

import (
	"errors"
	"strings"
	"sync"
	"unicode/utf8"
)

// MaxRoleNameLength bounds role names, matching the storage column width.
const MaxRoleNameLength = 20

const (
	RoleUser          = "User"
	RoleMember        = "Member"
	RoleAdministrator = "Administrator"
)

var (
	ErrRoleManagerFrozen = errors.New("role manager frozen")
	ErrRoleNameEmpty     = errors.New("role name empty")
	ErrRoleNameTooLong   = errors.New("role name too long")
	ErrRoleExists        = errors.New("role already registered")
)

// Definition is one canonical (name, mask) pair.
type Definition struct {
	Name        string
	Permissions Mask
}

// RoleManager holds the canonical role definitions a deployment reconciles
// its role storage against. Registration order is preserved.
type RoleManager struct {
	registry *Registry

	mu     sync.RWMutex
	order  []string
	roles  map[string]Mask
	frozen bool
}

// NewRoleManager creates an empty manager resolving permission names through registry.
func NewRoleManager(registry *Registry) *RoleManager {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &RoleManager{
		registry: registry,
		roles:    make(map[string]Mask),
	}
}

// DefaultRoles returns the frozen canonical definitions: User, Member and Administrator.
func DefaultRoles() *RoleManager {
	rm := NewRoleManager(DefaultRegistry())
	for _, def := range []Definition{
		{Name: RoleUser, Permissions: Follow | Comment | Post},
		{Name: RoleMember, Permissions: Follow | Comment | Post | WriteArticle},
		{Name: RoleAdministrator, Permissions: All},
	} {
		if err := rm.RegisterMask(def.Name, def.Permissions); err != nil {
			panic("permission: default roles: " + err.Error())
		}
	}
	rm.Freeze()
	return rm
}

// RegisterRole defines roleName as the union of the named permissions.
func (rm *RoleManager) RegisterRole(roleName string, permissionNames []string) error {
	mask, err := rm.registry.Parse(permissionNames)
	if err != nil {
		return err
	}
	return rm.RegisterMask(roleName, mask)
}

// RegisterMask defines roleName with a raw mask.
func (rm *RoleManager) RegisterMask(roleName string, mask Mask) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.frozen {
		return ErrRoleManagerFrozen
	}
	if err := ValidateRoleName(roleName); err != nil {
		return err
	}
	if _, exists := rm.roles[roleName]; exists {
		return ErrRoleExists
	}

	rm.roles[roleName] = mask
	rm.order = append(rm.order, roleName)
	return nil
}

// GetMask returns the canonical mask for roleName.
func (rm *RoleManager) GetMask(roleName string) (Mask, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	mask, ok := rm.roles[roleName]
	return mask, ok
}

// Definitions returns the canonical definitions in registration order.
func (rm *RoleManager) Definitions() []Definition {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	out := make([]Definition, 0, len(rm.order))
	for _, name := range rm.order {
		out = append(out, Definition{Name: name, Permissions: rm.roles[name]})
	}
	return out
}

// Registry exposes the registry used to resolve permission names.
func (rm *RoleManager) Registry() *Registry {
	return rm.registry
}

func (rm *RoleManager) Freeze() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.frozen = true
}

func (rm *RoleManager) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.roles)
}

// ValidateRoleName enforces a non-empty name of at most [MaxRoleNameLength] characters.
func ValidateRoleName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrRoleNameEmpty
	}
	if utf8.RuneCountInString(name) > MaxRoleNameLength {
		return ErrRoleNameTooLong
	}
	return nil
}
