// Package postgres implements the store contract on PostgreSQL through a
// pgx connection pool. Schema changes are goose migrations embedded in the
// migrations sub-package; run Migrate before first use.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/MrEthical07/spellauth/permission"
	"github.com/MrEthical07/spellauth/store"
	"github.com/MrEthical07/spellauth/store/postgres/migrations"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// Store implements store.Backend.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Backend = (*Store)(nil)

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open creates and pings a connection pool for dsn.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("postgres: new pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return pool, nil
}

// Migrate applies every pending embedded migration to the database at dsn.
func Migrate(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("postgres: open for migrate: %w", err)
	}
	defer db.Close()

	return MigrateDB(ctx, db)
}

func MigrateDB(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetDialect("pgx")

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

// mapError translates driver failures onto the store sentinels. fkErr is
// returned for foreign-key violations, whose meaning depends on the query.
func mapError(err error, fkErr error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", store.ErrConstraintViolation, pgErr.ConstraintName)
		case codeForeignKeyViolation:
			if fkErr != nil {
				return fkErr
			}
		}
	}
	return fmt.Errorf("postgres: %w", err)
}

func nullableID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

const userColumns = `id, email, username, password_hash, confirmed, about_me, avatar, since, last_seen, role_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (store.UserRecord, error) {
	var (
		rec    store.UserRecord
		roleID *string
	)
	err := row.Scan(&rec.ID, &rec.Email, &rec.Username, &rec.PasswordHash, &rec.Confirmed,
		&rec.AboutMe, &rec.Avatar, &rec.Since, &rec.LastSeen, &roleID)
	if err != nil {
		return store.UserRecord{}, err
	}
	if roleID != nil {
		rec.RoleID = *roleID
	}
	rec.Since = rec.Since.UTC()
	rec.LastSeen = rec.LastSeen.UTC()
	return rec, nil
}

func (s *Store) CreateUser(ctx context.Context, rec store.UserRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.Email, rec.Username, rec.PasswordHash, rec.Confirmed,
		rec.AboutMe, rec.Avatar, rec.Since, rec.LastSeen, nullableID(rec.RoleID))
	return mapError(err, store.ErrRoleNotFound)
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (store.UserRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	rec, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.UserRecord{}, store.ErrUserNotFound
	}
	if err != nil {
		return store.UserRecord{}, mapError(err, nil)
	}
	return rec, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (store.UserRecord, error) {
	return s.getUser(ctx, `id = $1`, id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (store.UserRecord, error) {
	return s.getUser(ctx, `lower(email) = lower($1)`, email)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (store.UserRecord, error) {
	return s.getUser(ctx, `username = $1`, username)
}

func (s *Store) UpdateUser(ctx context.Context, rec store.UserRecord) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users
		    SET email = $2, username = $3, confirmed = $4, about_me = $5,
		        avatar = $6, last_seen = $7, role_id = $8
		  WHERE id = $1`,
		rec.ID, rec.Email, rec.Username, rec.Confirmed, rec.AboutMe,
		rec.Avatar, rec.LastSeen, nullableID(rec.RoleID))
	if err != nil {
		return mapError(err, store.ErrRoleNotFound)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrUserNotFound
	}
	return nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return s.execUser(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
}

func (s *Store) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	return s.execUser(ctx, `UPDATE users SET last_seen = $2 WHERE id = $1`, id, at)
}

// DeleteUser relies on ON DELETE CASCADE to drop follow edges.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.execUser(ctx, `DELETE FROM users WHERE id = $1`, id)
}

func (s *Store) execUser(ctx context.Context, query string, args ...any) error {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return mapError(err, nil)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrUserNotFound
	}
	return nil
}

func scanRole(row rowScanner) (store.RoleRecord, error) {
	var (
		rec  store.RoleRecord
		mask int64
	)
	if err := row.Scan(&rec.ID, &rec.Name, &mask); err != nil {
		return store.RoleRecord{}, err
	}
	rec.Permissions = permission.Mask(mask)
	return rec, nil
}

func (s *Store) getRole(ctx context.Context, where string, arg any) (store.RoleRecord, error) {
	rec, err := scanRole(s.pool.QueryRow(ctx, `SELECT id, name, permissions FROM roles WHERE `+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return store.RoleRecord{}, store.ErrRoleNotFound
	}
	if err != nil {
		return store.RoleRecord{}, mapError(err, nil)
	}
	return rec, nil
}

func (s *Store) GetRoleByID(ctx context.Context, id string) (store.RoleRecord, error) {
	return s.getRole(ctx, `id = $1`, id)
}

func (s *Store) GetRoleByName(ctx context.Context, name string) (store.RoleRecord, error) {
	return s.getRole(ctx, `name = $1`, name)
}

func (s *Store) CreateRole(ctx context.Context, rec store.RoleRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO roles (id, name, permissions) VALUES ($1, $2, $3)`,
		rec.ID, rec.Name, int64(rec.Permissions))
	return mapError(err, nil)
}

func (s *Store) UpdateRolePermissions(ctx context.Context, id string, mask permission.Mask) error {
	tag, err := s.pool.Exec(ctx, `UPDATE roles SET permissions = $2 WHERE id = $1`, id, int64(mask))
	if err != nil {
		return mapError(err, nil)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrRoleNotFound
	}
	return nil
}

func (s *Store) ListRoles(ctx context.Context) ([]store.RoleRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, permissions FROM roles ORDER BY name`)
	if err != nil {
		return nil, mapError(err, nil)
	}
	defer rows.Close()

	var out []store.RoleRecord
	for rows.Next() {
		rec, err := scanRole(rows)
		if err != nil {
			return nil, mapError(err, nil)
		}
		out = append(out, rec)
	}
	return out, mapError(rows.Err(), nil)
}

func (s *Store) Follow(ctx context.Context, followerID, followedID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO follows (follower_id, followed_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		followerID, followedID)
	return mapError(err, store.ErrUserNotFound)
}

func (s *Store) Unfollow(ctx context.Context, followerID, followedID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM follows WHERE follower_id = $1 AND followed_id = $2`,
		followerID, followedID)
	return mapError(err, nil)
}

func (s *Store) IsFollowing(ctx context.Context, followerID, followedID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM follows WHERE follower_id = $1 AND followed_id = $2)`,
		followerID, followedID).Scan(&exists)
	if err != nil {
		return false, mapError(err, nil)
	}
	return exists, nil
}

func (s *Store) Followers(ctx context.Context, userID string) ([]string, error) {
	return s.queryIDs(ctx, `SELECT follower_id FROM follows WHERE followed_id = $1 ORDER BY follower_id`, userID)
}

func (s *Store) Following(ctx context.Context, userID string) ([]string, error) {
	return s.queryIDs(ctx, `SELECT followed_id FROM follows WHERE follower_id = $1 ORDER BY followed_id`, userID)
}

func (s *Store) queryIDs(ctx context.Context, query string, arg string) ([]string, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, mapError(err, nil)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, mapError(err, nil)
	}
	return ids, nil
}
