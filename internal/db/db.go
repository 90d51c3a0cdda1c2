package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

const schema = `
	CREATE TABLE IF NOT EXISTS user(
		id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		username VARCHAR(150) NOT NULL UNIQUE,
		first_name VARCHAR(150) NOT NULL DEFAULT '',
		last_name VARCHAR(150) NOT NULL DEFAULT '',
		email VARCHAR(254) NOT NULL DEFAULT '',
		password BLOB NOT NULL,
		is_staff BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS category(
		id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		title VARCHAR(256) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		slug VARCHAR(64) NOT NULL UNIQUE,
		is_published BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS location(
		id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		name VARCHAR(256) NOT NULL,
		is_published BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS post(
		id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		author_id INTEGER NOT NULL REFERENCES user(id) ON DELETE CASCADE,
		category_id INTEGER REFERENCES category(id) ON DELETE SET NULL,
		location_id INTEGER REFERENCES location(id) ON DELETE SET NULL,
		title VARCHAR(256) NOT NULL,
		text TEXT NOT NULL,
		pub_date TIMESTAMP NOT NULL,
		is_published BOOLEAN NOT NULL DEFAULT TRUE,
		image TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_post_pub_date ON post(pub_date);
	CREATE INDEX IF NOT EXISTS idx_post_author ON post(author_id);
	CREATE INDEX IF NOT EXISTS idx_post_category ON post(category_id);
	CREATE TABLE IF NOT EXISTS comment(
		id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		post_id INTEGER NOT NULL REFERENCES post(id) ON DELETE CASCADE,
		author_id INTEGER NOT NULL REFERENCES user(id) ON DELETE CASCADE,
		text TEXT NOT NULL,
		is_published BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_comment_post ON comment(post_id, created_at);
`

type Store struct {
	DB *sql.DB
}

// Open connects to the sqlite file at path and creates the schema if missing.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// sqlite serialises writers anyway
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "ping sqlite")
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "create schema")
	}
	return &Store{DB: conn}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

// timestamp normalises times before they are written so that the text
// representation sqlite stores compares lexically in time order.
func timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func notFound(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return errors.Wrap(err, msg)
}
