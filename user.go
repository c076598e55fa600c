package spellauth

import (
	"github.com/MrEthical07/spellauth/store"
)

func userFromRecord(rec store.UserRecord, role *store.RoleRecord) *User {
	u := &User{
		ID:           rec.ID,
		Email:        rec.Email,
		Username:     rec.Username,
		Confirmed:    rec.Confirmed,
		AboutMe:      rec.AboutMe,
		Avatar:       rec.Avatar,
		Since:        rec.Since,
		LastSeen:     rec.LastSeen,
		passwordHash: rec.PasswordHash,
	}
	if role != nil {
		u.Role = &Role{
			ID:          role.ID,
			Name:        role.Name,
			Permissions: role.Permissions,
		}
	}
	return u
}

func (u *User) record() store.UserRecord {
	rec := store.UserRecord{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		PasswordHash: u.passwordHash,
		Confirmed:    u.Confirmed,
		AboutMe:      u.AboutMe,
		Avatar:       u.Avatar,
		Since:        u.Since,
		LastSeen:     u.LastSeen,
	}
	if u.Role != nil {
		rec.RoleID = u.Role.ID
	}
	return rec
}

func (u *User) roleRecord() *store.RoleRecord {
	if u.Role == nil {
		return nil
	}
	return &store.RoleRecord{
		ID:          u.Role.ID,
		Name:        u.Role.Name,
		Permissions: u.Role.Permissions,
	}
}
