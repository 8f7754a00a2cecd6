package database

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokenledger-backend/config"
	"tokenledger-backend/internal/models"
)

func TestConnect_MemoryDriverHasNoDatabase(t *testing.T) {
	_, err := Connect(&config.Config{StorageDriver: config.StorageDriverMemory}, nil)
	assert.Error(t, err)
}

func TestConnect_SQLite(t *testing.T) {
	cfg := &config.Config{
		StorageDriver: config.StorageDriverSQLite,
		SQLitePath:    fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	}
	db, err := Connect(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, model := range []interface{}{&models.User{}, &models.TokenBalance{}, &models.TokenTransaction{}, &models.PaymentReceipt{}} {
		assert.True(t, db.Migrator().HasTable(model))
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestConnectRedis(t *testing.T) {
	ctx := context.Background()

	client, err := ConnectRedis(ctx, &config.Config{})
	require.NoError(t, err)
	assert.Nil(t, client)

	mr := miniredis.RunT(t)
	client, err = ConnectRedis(ctx, &config.Config{RedisAddr: mr.Host(), RedisPort: mr.Port()})
	require.NoError(t, err)
	require.NotNil(t, client)
	defer client.Close()
	assert.NoError(t, client.Set(ctx, "k", "v", 0).Err())

	mr.Close()
	_, err = ConnectRedis(ctx, &config.Config{RedisAddr: mr.Host(), RedisPort: mr.Port()})
	assert.Error(t, err)
}
