package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// DBTestSuite provides a test suite for database operations
type DBTestSuite struct {
	suite.Suite
	db  *DB
	ctx context.Context
}

// SetupTest runs before each test
func (suite *DBTestSuite) SetupTest() {
	suite.ctx = context.Background()
	db, err := NewDB(suite.ctx, ":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
}

// TearDownTest runs after each test
func (suite *DBTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *DBTestSuite) TestCreateUser() {
	before := time.Now().UTC().Add(-time.Second)

	user, err := suite.db.CreateUser(suite.ctx, "alice", "hash-1")
	require.NoError(suite.T(), err)

	assert.NotZero(suite.T(), user.ID)
	assert.Equal(suite.T(), "alice", user.Username)
	assert.True(suite.T(), user.RegisteredAt.After(before), "RegisteredAt should be set on creation")
}

func (suite *DBTestSuite) TestCreateUserAssignsDistinctIDs() {
	first, err := suite.db.CreateUser(suite.ctx, "alice", "hash-1")
	require.NoError(suite.T(), err)
	second, err := suite.db.CreateUser(suite.ctx, "bob", "hash-2")
	require.NoError(suite.T(), err)

	assert.NotEqual(suite.T(), first.ID, second.ID)
}

func (suite *DBTestSuite) TestCreateUserDuplicate() {
	first, err := suite.db.CreateUser(suite.ctx, "alice", "hash-1")
	require.NoError(suite.T(), err)

	_, err = suite.db.CreateUser(suite.ctx, "alice", "hash-2")
	require.ErrorIs(suite.T(), err, ErrDuplicateUsername)

	// The original record must be untouched
	stored, err := suite.db.GetUserByUsername(suite.ctx, "alice")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), first.ID, stored.ID)
	assert.Equal(suite.T(), "hash-1", stored.PasswordHash)

	count, err := suite.db.CountUsers(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, count)
}

func (suite *DBTestSuite) TestGetUserByUsername() {
	created, err := suite.db.CreateUser(suite.ctx, "alice", "hash-1")
	require.NoError(suite.T(), err)

	user, err := suite.db.GetUserByUsername(suite.ctx, "alice")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), created.ID, user.ID)
	assert.Equal(suite.T(), "hash-1", user.PasswordHash)
	assert.WithinDuration(suite.T(), created.RegisteredAt, user.RegisteredAt, time.Second)
}

func (suite *DBTestSuite) TestGetUserByUsernameIsExactMatch() {
	_, err := suite.db.CreateUser(suite.ctx, "alice", "hash-1")
	require.NoError(suite.T(), err)

	for _, name := range []string{"Alice", "alice ", "ali"} {
		_, err := suite.db.GetUserByUsername(suite.ctx, name)
		assert.ErrorIs(suite.T(), err, ErrNotFound, "lookup of %q should not match", name)
	}
}

func (suite *DBTestSuite) TestGetUserByID() {
	created, err := suite.db.CreateUser(suite.ctx, "alice", "hash-1")
	require.NoError(suite.T(), err)

	user, err := suite.db.GetUserByID(suite.ctx, created.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "alice", user.Username)

	_, err = suite.db.GetUserByID(suite.ctx, created.ID+100)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestCountUsers() {
	count, err := suite.db.CountUsers(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 0, count)

	for _, name := range []string{"alice", "bob", "carol"} {
		_, err := suite.db.CreateUser(suite.ctx, name, "hash")
		require.NoError(suite.T(), err)
	}

	count, err = suite.db.CountUsers(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 3, count)
}

func (suite *DBTestSuite) TestTareasTableExists() {
	user, err := suite.db.CreateUser(suite.ctx, "alice", "hash")
	require.NoError(suite.T(), err)

	_, err = suite.db.conn.ExecContext(suite.ctx,
		"INSERT INTO tareas (usuario_id, titulo) VALUES (?, ?)", user.ID, "primera")
	require.NoError(suite.T(), err)

	var completed bool
	err = suite.db.conn.QueryRowContext(suite.ctx,
		"SELECT completada FROM tareas WHERE usuario_id = ?", user.ID).Scan(&completed)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), completed)
}

func TestNewDBOnDisk(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "tareas.db")

	db, err := NewDB(ctx, path, WithMaxOpenConns(2))
	require.NoError(t, err)
	_, err = db.CreateUser(ctx, "alice", "hash")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Reopening runs migrations again and keeps existing rows
	db, err = NewDB(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	count, err := db.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNewDBInvalidPath(t *testing.T) {
	_, err := NewDB(context.Background(), t.TempDir())
	assert.Error(t, err)
}

func TestNewDBConcurrent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			path := ":memory:"
			if i%2 == 1 {
				path = filepath.Join(dir, fmt.Sprintf("db-%d.db", i))
			}
			db, err := NewDB(ctx, path)
			if err != nil {
				errs[i] = err
				return
			}
			defer db.Close()
			_, errs[i] = db.CreateUser(ctx, "alice", "hash")
		}()
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "database %d", i)
	}
}

func TestDBSuite(t *testing.T) {
	suite.Run(t, new(DBTestSuite))
}
