// Package memory is a mutex-guarded, process-local implementation of the
// store contract. It enforces the same unique constraints as the SQL
// backends and is used by tests, examples and the CLI's demo mode.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/spellauth/permission"
	"github.com/MrEthical07/spellauth/store"
)

type edge struct {
	follower string
	followed string
}

// Store implements store.Backend.
type Store struct {
	mu sync.RWMutex

	users      map[string]store.UserRecord
	byEmail    map[string]string
	byUsername map[string]string

	roles      map[string]store.RoleRecord
	roleByName map[string]string

	edges map[edge]struct{}
}

var _ store.Backend = (*Store)(nil)

func New() *Store {
	return &Store{
		users:      make(map[string]store.UserRecord),
		byEmail:    make(map[string]string),
		byUsername: make(map[string]string),
		roles:      make(map[string]store.RoleRecord),
		roleByName: make(map[string]string),
		edges:      make(map[edge]struct{}),
	}
}

// Emails compare case-insensitively, matching the SQL backends' lower() index.
func emailKey(email string) string {
	return strings.ToLower(email)
}

func (s *Store) CreateUser(_ context.Context, rec store.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[rec.ID]; ok {
		return store.ErrConstraintViolation
	}
	if _, ok := s.byEmail[emailKey(rec.Email)]; ok {
		return store.ErrConstraintViolation
	}
	if _, ok := s.byUsername[rec.Username]; ok {
		return store.ErrConstraintViolation
	}
	if rec.RoleID != "" {
		if _, ok := s.roles[rec.RoleID]; !ok {
			return store.ErrRoleNotFound
		}
	}

	s.users[rec.ID] = rec
	s.byEmail[emailKey(rec.Email)] = rec.ID
	s.byUsername[rec.Username] = rec.ID
	return nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (store.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.users[id]
	if !ok {
		return store.UserRecord{}, store.ErrUserNotFound
	}
	return s.withLiveRole(rec), nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (store.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[emailKey(email)]
	if !ok {
		return store.UserRecord{}, store.ErrUserNotFound
	}
	return s.withLiveRole(s.users[id]), nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (store.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return store.UserRecord{}, store.ErrUserNotFound
	}
	return s.withLiveRole(s.users[id]), nil
}

func (s *Store) UpdateUser(_ context.Context, rec store.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.users[rec.ID]
	if !ok {
		return store.ErrUserNotFound
	}
	if owner, ok := s.byEmail[emailKey(rec.Email)]; ok && owner != rec.ID {
		return store.ErrConstraintViolation
	}
	if owner, ok := s.byUsername[rec.Username]; ok && owner != rec.ID {
		return store.ErrConstraintViolation
	}
	if rec.RoleID != "" {
		if _, ok := s.roles[rec.RoleID]; !ok {
			return store.ErrRoleNotFound
		}
	}

	delete(s.byEmail, emailKey(cur.Email))
	delete(s.byUsername, cur.Username)

	rec.PasswordHash = cur.PasswordHash
	rec.Since = cur.Since
	s.users[rec.ID] = rec
	s.byEmail[emailKey(rec.Email)] = rec.ID
	s.byUsername[rec.Username] = rec.ID
	return nil
}

func (s *Store) UpdatePasswordHash(_ context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[id]
	if !ok {
		return store.ErrUserNotFound
	}
	rec.PasswordHash = hash
	s.users[id] = rec
	return nil
}

func (s *Store) TouchLastSeen(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[id]
	if !ok {
		return store.ErrUserNotFound
	}
	rec.LastSeen = at
	s.users[id] = rec
	return nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[id]
	if !ok {
		return store.ErrUserNotFound
	}
	delete(s.users, id)
	delete(s.byEmail, emailKey(rec.Email))
	delete(s.byUsername, rec.Username)

	for e := range s.edges {
		if e.follower == id || e.followed == id {
			delete(s.edges, e)
		}
	}
	return nil
}

// withLiveRole clears a role reference whose row is gone. Callers hold mu.
func (s *Store) withLiveRole(rec store.UserRecord) store.UserRecord {
	if rec.RoleID != "" {
		if _, ok := s.roles[rec.RoleID]; !ok {
			rec.RoleID = ""
		}
	}
	return rec
}

func (s *Store) GetRoleByID(_ context.Context, id string) (store.RoleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.roles[id]
	if !ok {
		return store.RoleRecord{}, store.ErrRoleNotFound
	}
	return rec, nil
}

func (s *Store) GetRoleByName(_ context.Context, name string) (store.RoleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.roleByName[name]
	if !ok {
		return store.RoleRecord{}, store.ErrRoleNotFound
	}
	return s.roles[id], nil
}

func (s *Store) CreateRole(_ context.Context, rec store.RoleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[rec.ID]; ok {
		return store.ErrConstraintViolation
	}
	if _, ok := s.roleByName[rec.Name]; ok {
		return store.ErrConstraintViolation
	}
	s.roles[rec.ID] = rec
	s.roleByName[rec.Name] = rec.ID
	return nil
}

func (s *Store) UpdateRolePermissions(_ context.Context, id string, mask permission.Mask) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.roles[id]
	if !ok {
		return store.ErrRoleNotFound
	}
	rec.Permissions = mask
	s.roles[id] = rec
	return nil
}

func (s *Store) ListRoles(_ context.Context) ([]store.RoleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.RoleRecord, 0, len(s.roles))
	for _, rec := range s.roles {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// DeleteRole removes a role. Users referencing it read back role-less.
func (s *Store) DeleteRole(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.roles[id]
	if !ok {
		return store.ErrRoleNotFound
	}
	delete(s.roles, id)
	delete(s.roleByName, rec.Name)
	return nil
}

func (s *Store) Follow(_ context.Context, followerID, followedID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[followerID]; !ok {
		return store.ErrUserNotFound
	}
	if _, ok := s.users[followedID]; !ok {
		return store.ErrUserNotFound
	}
	s.edges[edge{follower: followerID, followed: followedID}] = struct{}{}
	return nil
}

func (s *Store) Unfollow(_ context.Context, followerID, followedID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.edges, edge{follower: followerID, followed: followedID})
	return nil
}

func (s *Store) IsFollowing(_ context.Context, followerID, followedID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.edges[edge{follower: followerID, followed: followedID}]
	return ok, nil
}

func (s *Store) Followers(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for e := range s.edges {
		if e.followed == userID {
			out = append(out, e.follower)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) Following(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for e := range s.edges {
		if e.follower == userID {
			out = append(out, e.followed)
		}
	}
	sort.Strings(out)
	return out, nil
}
