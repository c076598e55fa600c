// Package gormstore implements the store contract on gorm. SQLite is the
// default dialect; any gorm dialector with unique-index and foreign-key
// support works through NewWithDialector.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/MrEthical07/spellauth/permission"
	"github.com/MrEthical07/spellauth/store"
)

// Store implements store.Backend.
type Store struct {
	db *gorm.DB
}

var _ store.Backend = (*Store)(nil)

type Options struct {
	// Debug routes SQL through gorm's default logger instead of discarding it.
	Debug bool
}

// OpenSQLite opens (or creates) the SQLite database at path with foreign
// keys enforced and migrates the schema. Use "file:name?mode=memory" style
// paths for an in-memory database.
func OpenSQLite(path string, opts Options) (*Store, error) {
	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&_foreign_keys=on"
	} else {
		dsn += "?_foreign_keys=on"
	}
	return NewWithDialector(sqlite.Open(dsn), opts)
}

// NewWithDialector opens a gorm connection and migrates the schema.
func NewWithDialector(dialector gorm.Dialector, opts Options) (*Store, error) {
	gormLogger := logger.Discard
	if opts.Debug {
		gormLogger = logger.Default
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("gormstore: open: %w", err)
	}

	if db.Dialector.Name() == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("gormstore: sql handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&roleRow{}, &userRow{}, &followRow{}); err != nil {
		return nil, fmt.Errorf("gormstore: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func mapError(err error, fkErr error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return store.ErrConstraintViolation
	case errors.Is(err, gorm.ErrForeignKeyViolated) && fkErr != nil:
		return fkErr
	}
	return fmt.Errorf("gormstore: %w", err)
}

func (s *Store) CreateUser(ctx context.Context, rec store.UserRecord) error {
	row := toUserRow(rec)
	err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&row).Error
	return mapError(err, store.ErrRoleNotFound)
}

func (s *Store) getUser(ctx context.Context, query string, arg any) (store.UserRecord, error) {
	var row userRow
	err := s.db.WithContext(ctx).Where(query, arg).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.UserRecord{}, store.ErrUserNotFound
	}
	if err != nil {
		return store.UserRecord{}, mapError(err, nil)
	}
	return row.record(), nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (store.UserRecord, error) {
	return s.getUser(ctx, "id = ?", id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (store.UserRecord, error) {
	return s.getUser(ctx, "email_key = ?", strings.ToLower(email))
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (store.UserRecord, error) {
	return s.getUser(ctx, "username = ?", username)
}

func (s *Store) UpdateUser(ctx context.Context, rec store.UserRecord) error {
	row := toUserRow(rec)
	res := s.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", rec.ID).Updates(map[string]any{
		"email":     row.Email,
		"email_key": row.EmailKey,
		"username":  row.Username,
		"confirmed": row.Confirmed,
		"about_me":  row.AboutMe,
		"avatar":    row.Avatar,
		"last_seen": row.LastSeen,
		"role_id":   row.RoleID,
	})
	if res.Error != nil {
		return mapError(res.Error, store.ErrRoleNotFound)
	}
	if res.RowsAffected == 0 {
		return store.ErrUserNotFound
	}
	return nil
}

func (s *Store) updateUserColumn(ctx context.Context, id, column string, value any) error {
	res := s.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return mapError(res.Error, nil)
	}
	if res.RowsAffected == 0 {
		return store.ErrUserNotFound
	}
	return nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return s.updateUserColumn(ctx, id, "password_hash", hash)
}

func (s *Store) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	return s.updateUserColumn(ctx, id, "last_seen", at.UTC())
}

// DeleteUser removes the user and its follow edges in one transaction.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("follower_id = ? OR followed_id = ?", id, id).Delete(&followRow{}).Error; err != nil {
			return mapError(err, nil)
		}
		res := tx.Where("id = ?", id).Delete(&userRow{})
		if res.Error != nil {
			return mapError(res.Error, nil)
		}
		if res.RowsAffected == 0 {
			return store.ErrUserNotFound
		}
		return nil
	})
}

func (s *Store) getRole(ctx context.Context, query string, arg any) (store.RoleRecord, error) {
	var row roleRow
	err := s.db.WithContext(ctx).Where(query, arg).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.RoleRecord{}, store.ErrRoleNotFound
	}
	if err != nil {
		return store.RoleRecord{}, mapError(err, nil)
	}
	return row.record(), nil
}

func (s *Store) GetRoleByID(ctx context.Context, id string) (store.RoleRecord, error) {
	return s.getRole(ctx, "id = ?", id)
}

func (s *Store) GetRoleByName(ctx context.Context, name string) (store.RoleRecord, error) {
	return s.getRole(ctx, "name = ?", name)
}

func (s *Store) CreateRole(ctx context.Context, rec store.RoleRecord) error {
	row := roleRow{ID: rec.ID, Name: rec.Name, Permissions: int64(rec.Permissions)}
	return mapError(s.db.WithContext(ctx).Create(&row).Error, nil)
}

func (s *Store) UpdateRolePermissions(ctx context.Context, id string, mask permission.Mask) error {
	res := s.db.WithContext(ctx).Model(&roleRow{}).Where("id = ?", id).Update("permissions", int64(mask))
	if res.Error != nil {
		return mapError(res.Error, nil)
	}
	if res.RowsAffected == 0 {
		return store.ErrRoleNotFound
	}
	return nil
}

func (s *Store) ListRoles(ctx context.Context) ([]store.RoleRecord, error) {
	var rows []roleRow
	if err := s.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, mapError(err, nil)
	}
	out := make([]store.RoleRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.record())
	}
	return out, nil
}

// DeleteRole removes a role; the foreign key clears users' role_id.
func (s *Store) DeleteRole(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&roleRow{})
	if res.Error != nil {
		return mapError(res.Error, nil)
	}
	if res.RowsAffected == 0 {
		return store.ErrRoleNotFound
	}
	return nil
}

func (s *Store) Follow(ctx context.Context, followerID, followedID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&userRow{}).Where("id IN ?", []string{followerID, followedID}).Count(&n).Error; err != nil {
			return mapError(err, nil)
		}
		want := int64(2)
		if followerID == followedID {
			want = 1
		}
		if n != want {
			return store.ErrUserNotFound
		}
		row := followRow{FollowerID: followerID, FollowedID: followedID, CreatedAt: time.Now().UTC()}
		err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
		return mapError(err, store.ErrUserNotFound)
	})
}

func (s *Store) Unfollow(ctx context.Context, followerID, followedID string) error {
	err := s.db.WithContext(ctx).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Delete(&followRow{}).Error
	return mapError(err, nil)
}

func (s *Store) IsFollowing(ctx context.Context, followerID, followedID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&followRow{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&n).Error
	if err != nil {
		return false, mapError(err, nil)
	}
	return n > 0, nil
}

func (s *Store) Followers(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&followRow{}).
		Where("followed_id = ?", userID).Order("follower_id").
		Pluck("follower_id", &ids).Error
	return ids, mapError(err, nil)
}

func (s *Store) Following(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&followRow{}).
		Where("follower_id = ?", userID).Order("followed_id").
		Pluck("followed_id", &ids).Error
	return ids, mapError(err, nil)
}
