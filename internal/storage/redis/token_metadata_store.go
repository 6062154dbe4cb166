// Package redis implements storage.TokenMetadataStore on Redis so several
// analyzer processes can share resolved metadata.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"degenjudge/internal/domain"
	"degenjudge/internal/storage"
)

// DefaultKeyPrefix namespaces metadata keys.
const DefaultKeyPrefix = "degenjudge:token_metadata:"

// TokenMetadataStore stores one JSON document per mint. Insert uses SETNX,
// so the first writer wins across processes.
type TokenMetadataStore struct {
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

// Option configures TokenMetadataStore.
type Option func(*TokenMetadataStore)

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *TokenMetadataStore) {
		s.prefix = prefix
	}
}

// WithTTL expires entries after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *TokenMetadataStore) {
		s.ttl = ttl
	}
}

// NewTokenMetadataStore creates a store on an existing client.
func NewTokenMetadataStore(client goredis.UniversalClient, opts ...Option) *TokenMetadataStore {
	s := &TokenMetadataStore{client: client, prefix: DefaultKeyPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect dials addr and verifies the connection.
func Connect(ctx context.Context, addr string) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Compile-time interface check.
var _ storage.TokenMetadataStore = (*TokenMetadataStore)(nil)

// Insert adds new metadata. Returns ErrDuplicateKey if mint exists.
func (s *TokenMetadataStore) Insert(ctx context.Context, m *domain.TokenMetadata) error {
	if err := storage.ValidateTokenMetadata(m); err != nil {
		return err
	}

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode token metadata: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.key(m.Mint), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("insert token metadata: %w", err)
	}
	if !ok {
		return storage.ErrDuplicateKey
	}
	return nil
}

// GetByMint retrieves metadata by mint address. Returns ErrNotFound if not exists.
func (s *TokenMetadataStore) GetByMint(ctx context.Context, mint string) (*domain.TokenMetadata, error) {
	data, err := s.client.Get(ctx, s.key(mint)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token metadata by mint: %w", err)
	}

	var m domain.TokenMetadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode token metadata %s: %w", mint, err)
	}
	return &m, nil
}

func (s *TokenMetadataStore) key(mint string) string {
	return s.prefix + mint
}
