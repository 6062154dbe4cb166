package storage

import (
	"context"

	"degenjudge/internal/domain"
)

// TokenMetadataStore caches resolved token display metadata by mint.
// Entries are append-only: the first writer for a mint wins.
type TokenMetadataStore interface {
	// Insert adds new metadata. Returns ErrDuplicateKey if the mint exists.
	Insert(ctx context.Context, m *domain.TokenMetadata) error

	// GetByMint retrieves metadata by mint address. Returns ErrNotFound if not exists.
	GetByMint(ctx context.Context, mint string) (*domain.TokenMetadata, error)
}

// ValidateTokenMetadata checks the fields every store requires.
func ValidateTokenMetadata(m *domain.TokenMetadata) error {
	if m == nil || m.Mint == "" {
		return ErrInvalidInput
	}
	return nil
}
