package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medconsult-api/internal/model"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisBackend) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mr, NewRedisBackendFromClient(client, "test:")
}

func TestRedisBackend_UsesCollectionKeys(t *testing.T) {
	mr, backend := setupTestRedis(t)
	s := New(backend, nil, nil)
	ctx := context.Background()

	require.NoError(t, s.Users.SaveAll(ctx, []model.User{{ID: "user_1", Name: "Bob", Role: model.RolePatient}}))
	require.NoError(t, s.Appointments.SaveAll(ctx, nil))
	require.NoError(t, s.Prescriptions.SaveAll(ctx, nil))

	assert.True(t, mr.Exists("test:medf_users_v1"))
	assert.True(t, mr.Exists("test:medf_appts_v1"))
	assert.True(t, mr.Exists("test:medf_presc_v1"))

	users, err := s.Users.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Bob", users[0].Name)
}

func TestRedisBackend_MissingKey(t *testing.T) {
	_, backend := setupTestRedis(t)

	_, err := backend.Read(context.Background(), Appointments)
	assert.ErrorIs(t, err, ErrNotExist)
	assert.NoError(t, backend.Ping(context.Background()))
}

func TestRedisBackend_CorruptValueLoadsEmpty(t *testing.T) {
	mr, backend := setupTestRedis(t)
	require.NoError(t, mr.Set("test:medf_presc_v1", "garbage"))

	prescs, err := New(backend, nil, nil).Prescriptions.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, prescs)
}
