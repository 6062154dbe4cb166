package redis

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"degenjudge/internal/domain"
	"degenjudge/internal/storage"
)

// setupTestRedis starts a Redis container and returns a connected client.
func setupTestRedis(t *testing.T) (*goredis.Client, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForLog("Ready to accept connections").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start redis container")

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err, "failed to get redis endpoint")

	client, err := Connect(ctx, addr)
	require.NoError(t, err, "failed to connect to redis")

	cleanup := func() {
		_ = client.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}
	return client, cleanup
}

func TestTokenMetadataStore_InsertAndGetByMint(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTokenMetadataStore(client)

	meta := &domain.TokenMetadata{
		Mint:      "RedisMint1",
		Name:      "Redis Token",
		Symbol:    "RDS",
		Icon:      "https://example.com/rds.png",
		FetchedAt: 1700000000000,
	}
	require.NoError(t, store.Insert(ctx, meta))

	got, err := store.GetByMint(ctx, "RedisMint1")
	require.NoError(t, err)
	assert.Equal(t, *meta, *got)

	raw, err := client.Get(ctx, DefaultKeyPrefix+"RedisMint1").Result()
	require.NoError(t, err)
	assert.Contains(t, raw, `"symbol":"RDS"`)
}

func TestTokenMetadataStore_FirstWriterWins(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTokenMetadataStore(client)

	require.NoError(t, store.Insert(ctx, &domain.TokenMetadata{Mint: "Dup", Name: "First"}))
	err := store.Insert(ctx, &domain.TokenMetadata{Mint: "Dup", Name: "Second"})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByMint(ctx, "Dup")
	require.NoError(t, err)
	assert.Equal(t, "First", got.Name)
}

func TestTokenMetadataStore_NotFound(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	_, err := NewTokenMetadataStore(client).GetByMint(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTokenMetadataStore_TTL(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTokenMetadataStore(client, WithKeyPrefix("test:"), WithTTL(time.Hour))
	require.NoError(t, store.Insert(ctx, &domain.TokenMetadata{Mint: "Expiring"}))

	ttl, err := client.TTL(ctx, "test:Expiring").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Hour)
}

func TestTokenMetadataStore_InvalidInput(t *testing.T) {
	store := NewTokenMetadataStore(nil)
	assert.ErrorIs(t, store.Insert(context.Background(), nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Insert(context.Background(), &domain.TokenMetadata{}), storage.ErrInvalidInput)
}
