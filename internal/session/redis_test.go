package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// RedisStoreTestSuite runs the Redis store against an in-process server
type RedisStoreTestSuite struct {
	suite.Suite
	ctx   context.Context
	mr    *miniredis.Miniredis
	store *RedisStore
}

func (suite *RedisStoreTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.mr = miniredis.RunT(suite.T())

	rdb := redis.NewClient(&redis.Options{Addr: suite.mr.Addr()})
	suite.T().Cleanup(func() { rdb.Close() })
	suite.store = NewRedisStore(rdb, "")
}

func (suite *RedisStoreTestSuite) TestCreateAndGet() {
	require.NoError(suite.T(), suite.store.Create(suite.ctx, newSession("tok-1", time.Minute)))

	got, err := suite.store.Get(suite.ctx, "tok-1")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(7), got.UserID)
	assert.Equal(suite.T(), "alice", got.Username)
	assert.True(suite.T(), suite.mr.Exists("session:tok-1"))
}

func (suite *RedisStoreTestSuite) TestKeyTTLMatchesLifetime() {
	require.NoError(suite.T(), suite.store.Create(suite.ctx, newSession("tok-1", time.Minute)))

	ttl := suite.mr.TTL("session:tok-1")
	assert.Greater(suite.T(), ttl, 50*time.Second)
	assert.LessOrEqual(suite.T(), ttl, time.Minute)
}

func (suite *RedisStoreTestSuite) TestKeyExpires() {
	require.NoError(suite.T(), suite.store.Create(suite.ctx, newSession("tok-1", time.Minute)))

	suite.mr.FastForward(2 * time.Minute)

	_, err := suite.store.Get(suite.ctx, "tok-1")
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *RedisStoreTestSuite) TestGetUnknown() {
	_, err := suite.store.Get(suite.ctx, "missing")
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	_, err = suite.store.Get(suite.ctx, "")
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *RedisStoreTestSuite) TestDelete() {
	require.NoError(suite.T(), suite.store.Create(suite.ctx, newSession("tok-1", time.Minute)))
	require.NoError(suite.T(), suite.store.Delete(suite.ctx, "tok-1"))

	_, err := suite.store.Get(suite.ctx, "tok-1")
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	assert.NoError(suite.T(), suite.store.Delete(suite.ctx, "tok-1"))
	assert.NoError(suite.T(), suite.store.Delete(suite.ctx, ""))
}

func (suite *RedisStoreTestSuite) TestCreateRejectsExpired() {
	err := suite.store.Create(suite.ctx, newSession("tok-old", -time.Second))
	assert.ErrorIs(suite.T(), err, ErrExpired)
	assert.False(suite.T(), suite.mr.Exists("session:tok-old"))
}

func (suite *RedisStoreTestSuite) TestServerErrorSurfaces() {
	suite.mr.Close()

	_, err := suite.store.Get(suite.ctx, "tok-1")
	require.Error(suite.T(), err)
	assert.NotErrorIs(suite.T(), err, ErrNotFound)
}

func TestRedisStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisStoreTestSuite))
}

func TestRedisStoreLiveServer(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set, skipping live redis test")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	defer rdb.Close()

	ctx := context.Background()
	require.NoError(t, rdb.Ping(ctx).Err())
	store := NewRedisStore(rdb, "test-session:"+uuid.NewString()+":")

	require.NoError(t, store.Create(ctx, newSession("tok-1", time.Minute)))
	got, err := store.Get(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	ttl, err := rdb.TTL(ctx, store.key("tok-1")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, store.Delete(ctx, "tok-1"))
	_, err = store.Get(ctx, "tok-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewRedisStoreDefaultPrefix(t *testing.T) {
	store := NewRedisStore(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), "")
	assert.Equal(t, "session:abc", store.key("abc"))
}
