// Package profiles persists per-identity profile records.
package profiles

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/wizardkeep/warden/core"
)

const schema = `
create table if not exists profiles (
	address    text primary key,
	name       text not null default '',
	email      text not null default '',
	bio        text not null default '',
	twitter    text not null default '',
	discord    text not null default '',
	website    text not null default '',
	avatar_url text not null default '',
	role       text not null default 'user',
	created_at timestamptz not null default now(),
	updated_at timestamptz not null default now()
)`

const profileColumns = `address, name, email, bio, twitter, discord, website, avatar_url, role, created_at, updated_at`

// PostgresStore implements ProfileStore on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// Open connects to PostgreSQL through the pgx stdlib driver.
func Open(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	return &PostgresStore{db: db}, nil
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Init creates the profiles table if it does not exist.
func (s *PostgresStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init profiles schema: %w", err)
	}
	return nil
}

// Close closes the underlying pool.
func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) Get(ctx context.Context, address string) (*core.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+profileColumns+` from profiles where address = $1`, address)

	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, core.ErrNoProfile
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get profile: %v", core.ErrUpstreamUnavailable, err)
	}
	return p, nil
}

func (s *PostgresStore) Create(ctx context.Context, profile *core.Profile) error {
	_, err := s.db.ExecContext(ctx,
		`insert into profiles(address, name, email, bio, twitter, discord, website, avatar_url, role)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		profile.Address, profile.Name, profile.Email, profile.Bio,
		profile.Twitter, profile.Discord, profile.Website, profile.AvatarURL, profile.Role,
	)
	if err != nil {
		return fmt.Errorf("%w: create profile: %v", core.ErrUpstreamUnavailable, err)
	}
	return nil
}

// Update applies a partial update. Nil fields pass NULL and coalesce back
// to the stored value, so one statement covers every combination.
func (s *PostgresStore) Update(ctx context.Context, address string, upd core.ProfileUpdate) (*core.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`update profiles set
			name       = coalesce($2, name),
			email      = coalesce($3, email),
			bio        = coalesce($4, bio),
			twitter    = coalesce($5, twitter),
			discord    = coalesce($6, discord),
			website    = coalesce($7, website),
			avatar_url = coalesce($8, avatar_url),
			updated_at = now()
		 where address = $1
		 returning `+profileColumns,
		address, upd.Name, upd.Email, upd.Bio, upd.Twitter, upd.Discord, upd.Website, upd.AvatarURL,
	)

	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, core.ErrNoProfile
	}
	if err != nil {
		return nil, fmt.Errorf("%w: update profile: %v", core.ErrUpstreamUnavailable, err)
	}
	return p, nil
}

func (s *PostgresStore) SetRole(ctx context.Context, address string, role core.Role) (*core.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`update profiles set role = $2, updated_at = now() where address = $1 returning `+profileColumns,
		address, role,
	)

	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, core.ErrNoProfile
	}
	if err != nil {
		return nil, fmt.Errorf("%w: set role: %v", core.ErrUpstreamUnavailable, err)
	}
	return p, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*core.Profile, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+profileColumns+` from profiles order by created_at asc`)
	if err != nil {
		return nil, fmt.Errorf("%w: list profiles: %v", core.ErrUpstreamUnavailable, err)
	}
	defer rows.Close()

	var res []*core.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: list profiles: %v", core.ErrUpstreamUnavailable, err)
		}
		res = append(res, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list profiles: %v", core.ErrUpstreamUnavailable, err)
	}
	return res, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*core.Profile, error) {
	var p core.Profile
	err := row.Scan(
		&p.Address, &p.Name, &p.Email, &p.Bio, &p.Twitter, &p.Discord,
		&p.Website, &p.AvatarURL, &p.Role, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
