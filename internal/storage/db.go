package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"task-manager/internal/logutil"
	"task-manager/internal/models"
	"task-manager/internal/storage/migrations"

	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const memoryPath = ":memory:"

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateUsername is returned when the usuarios UNIQUE constraint rejects an insert.
	ErrDuplicateUsername = errors.New("username already exists")
)

// DB wraps a pooled sql.DB connection.
type DB struct {
	conn *sql.DB
}

type options struct {
	maxOpenConns int
}

// Option customizes NewDB.
type Option func(*options)

// WithMaxOpenConns bounds the number of pooled connections.
func WithMaxOpenConns(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxOpenConns = n
		}
	}
}

// NewDB opens a database connection pool and runs migrations.
func NewDB(ctx context.Context, path string, opts ...Option) (*DB, error) {
	o := options{maxOpenConns: 4}
	for _, opt := range opts {
		opt(&o)
	}

	dsn := path
	if path == memoryPath {
		// every connection to :memory: is a distinct database
		o.maxOpenConns = 1
	} else {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		dsn = withPragmas(path)
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(o.maxOpenConns)
	conn.SetMaxIdleConns(o.maxOpenConns)
	if path == memoryPath {
		conn.SetConnMaxLifetime(0)
		conn.SetConnMaxIdleTime(0)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

func withPragmas(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

func (db *DB) migrate(ctx context.Context) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db.conn, migrations.Migrations)
	if err != nil {
		return err
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return err
	}

	log := logutil.GetOrDefault(ctx)
	for _, r := range results {
		log.Debug().
			Str("component", "goose").
			Int64("version", r.Source.Version).
			Str("file", r.Source.Path).
			Dur("duration", r.Duration).
			Msg("migration applied")
	}
	return nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// CreateUser inserts a new user. Uniqueness is left to the usuarios constraint,
// whose rejection is reported as ErrDuplicateUsername.
func (db *DB) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	registeredAt := time.Now().UTC()
	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO usuarios (usuario, "contraseña_hash", fecha_registro) VALUES (?, ?, ?)`,
		username, passwordHash, registeredAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateUsername
		}
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &models.User{
		ID:           id,
		Username:     username,
		PasswordHash: passwordHash,
		RegisteredAt: registeredAt,
	}, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, usuario, "contraseña_hash", fecha_registro FROM usuarios WHERE id = ?`,
		id,
	)
	return scanUser(row)
}

// GetUserByUsername retrieves a user by exact username.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, usuario, "contraseña_hash", fecha_registro FROM usuarios WHERE usuario = ?`,
		username,
	)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.RegisteredAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// CountUsers returns the number of registered users.
func (db *DB) CountUsers(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM usuarios").Scan(&count)
	return count, err
}
