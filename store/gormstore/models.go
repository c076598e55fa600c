package gormstore

import (
	"strings"
	"time"

	"github.com/MrEthical07/spellauth/permission"
	"github.com/MrEthical07/spellauth/store"
)

type roleRow struct {
	ID          string `gorm:"primaryKey;size:36"`
	Name        string `gorm:"size:20;not null;uniqueIndex"`
	Permissions int64  `gorm:"not null;default:0"`
}

func (roleRow) TableName() string { return "roles" }

type userRow struct {
	ID           string `gorm:"primaryKey;size:36"`
	Email        string `gorm:"size:64;not null"`
	EmailKey     string `gorm:"size:64;not null;uniqueIndex"`
	Username     string `gorm:"size:64;not null;uniqueIndex"`
	PasswordHash string `gorm:"not null;default:''"`
	Confirmed    bool   `gorm:"not null;default:false"`
	AboutMe      string `gorm:"size:120"`
	Avatar       string `gorm:"size:120"`
	Since        time.Time
	LastSeen     time.Time
	RoleID       *string  `gorm:"size:36;index"`
	Role         *roleRow `gorm:"foreignKey:RoleID;constraint:OnDelete:SET NULL"`
}

func (userRow) TableName() string { return "users" }

type followRow struct {
	FollowerID string `gorm:"primaryKey;size:36"`
	FollowedID string `gorm:"primaryKey;size:36;index"`
	CreatedAt  time.Time
}

func (followRow) TableName() string { return "follows" }

func toUserRow(rec store.UserRecord) userRow {
	row := userRow{
		ID:           rec.ID,
		Email:        rec.Email,
		EmailKey:     strings.ToLower(rec.Email),
		Username:     rec.Username,
		PasswordHash: rec.PasswordHash,
		Confirmed:    rec.Confirmed,
		AboutMe:      rec.AboutMe,
		Avatar:       rec.Avatar,
		Since:        rec.Since.UTC(),
		LastSeen:     rec.LastSeen.UTC(),
	}
	if rec.RoleID != "" {
		id := rec.RoleID
		row.RoleID = &id
	}
	return row
}

func (r userRow) record() store.UserRecord {
	rec := store.UserRecord{
		ID:           r.ID,
		Email:        r.Email,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		Confirmed:    r.Confirmed,
		AboutMe:      r.AboutMe,
		Avatar:       r.Avatar,
		Since:        r.Since.UTC(),
		LastSeen:     r.LastSeen.UTC(),
	}
	if r.RoleID != nil {
		rec.RoleID = *r.RoleID
	}
	return rec
}

func (r roleRow) record() store.RoleRecord {
	return store.RoleRecord{ID: r.ID, Name: r.Name, Permissions: permission.Mask(r.Permissions)}
}
