package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/spellauth/permission"
	"github.com/MrEthical07/spellauth/store"
)

const entryVersionV1 = 1

var (
	ErrMiss             = errors.New("principal cache miss")
	ErrCacheUnavailable = errors.New("principal cache unavailable")
)

// Entry is one cached principal. Role is nil for role-less accounts.
type Entry struct {
	User store.UserRecord
	Role *store.RoleRecord
}

type wireEntry struct {
	Version  int              `json:"v"`
	User     store.UserRecord `json:"u"`
	RoleID   string           `json:"rid,omitempty"`
	RoleName string           `json:"rn,omitempty"`
	RoleMask []byte           `json:"rm,omitempty"`
}

// Principals is a Redis-backed principal cache.
type Principals struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewPrincipals(rdb redis.UniversalClient, prefix string, ttl time.Duration) *Principals {
	return &Principals{redis: rdb, prefix: prefix, ttl: ttl}
}

func (p *Principals) key(id string) string {
	return p.prefix + ":" + id
}

// Get returns the cached principal for id, or ErrMiss.
func (p *Principals) Get(ctx context.Context, id string) (*Entry, error) {
	data, err := p.redis.Get(ctx, p.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	entry, err := decodeEntry(data)
	if err != nil {
		_ = p.redis.Del(ctx, p.key(id)).Err()
		return nil, ErrMiss
	}
	return entry, nil
}

// Set stores e under its user ID for the configured TTL.
func (p *Principals) Set(ctx context.Context, e *Entry) error {
	if e == nil || e.User.ID == "" {
		return errors.New("cache: entry without user id")
	}
	data, err := encodeEntry(e)
	if err != nil {
		return err
	}
	if err := p.redis.Set(ctx, p.key(e.User.ID), data, p.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

// Delete evicts the given ids. Missing keys are ignored.
func (p *Principals) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			keys = append(keys, p.key(id))
		}
	}
	if len(keys) == 0 {
		return nil
	}
	if err := p.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

func encodeEntry(e *Entry) ([]byte, error) {
	w := wireEntry{
		Version: entryVersionV1,
		User:    e.User,
	}
	if e.Role != nil {
		w.RoleID = e.Role.ID
		w.RoleName = e.Role.Name
		w.RoleMask = permission.EncodeMask(e.Role.Permissions)
	}
	return json.Marshal(w)
}

func decodeEntry(data []byte) (*Entry, error) {
	var w wireEntry
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	if w.Version != entryVersionV1 {
		return nil, fmt.Errorf("cache: unsupported entry version %d", w.Version)
	}

	e := &Entry{User: w.User}
	if w.RoleID != "" {
		mask, err := permission.DecodeMask(w.RoleMask)
		if err != nil {
			return nil, err
		}
		e.Role = &store.RoleRecord{ID: w.RoleID, Name: w.RoleName, Permissions: mask}
	}
	return e, nil
}
