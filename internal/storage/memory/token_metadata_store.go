// Package memory provides the process-local metadata cache.
package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"degenjudge/internal/domain"
	"degenjudge/internal/storage"
)

// TokenMetadataStore is an in-memory implementation of storage.TokenMetadataStore.
// It is safe for concurrent use and is meant to live for the whole process.
type TokenMetadataStore struct {
	entries sync.Map // mint -> domain.TokenMetadata
	size    atomic.Int64
}

// NewTokenMetadataStore creates a new in-memory token metadata store.
func NewTokenMetadataStore() *TokenMetadataStore {
	return &TokenMetadataStore{}
}

// Insert adds new metadata. Returns ErrDuplicateKey if mint already exists.
func (s *TokenMetadataStore) Insert(_ context.Context, m *domain.TokenMetadata) error {
	if err := storage.ValidateTokenMetadata(m); err != nil {
		return err
	}
	if _, loaded := s.entries.LoadOrStore(m.Mint, *m); loaded {
		return storage.ErrDuplicateKey
	}
	s.size.Add(1)
	return nil
}

// GetByMint retrieves metadata by mint address. Returns ErrNotFound if not exists.
func (s *TokenMetadataStore) GetByMint(_ context.Context, mint string) (*domain.TokenMetadata, error) {
	v, ok := s.entries.Load(mint)
	if !ok {
		return nil, storage.ErrNotFound
	}
	m := v.(domain.TokenMetadata)
	return &m, nil
}

// Len returns the number of cached mints.
func (s *TokenMetadataStore) Len() int {
	return int(s.size.Load())
}

var _ storage.TokenMetadataStore = (*TokenMetadataStore)(nil)
