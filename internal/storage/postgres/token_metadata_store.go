package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"degenjudge/internal/domain"
	"degenjudge/internal/storage"
)

// TokenMetadataStore implements storage.TokenMetadataStore using PostgreSQL.
// It lets resolved metadata survive restarts and be shared between replicas.
type TokenMetadataStore struct {
	pool *Pool
}

// NewTokenMetadataStore creates a new TokenMetadataStore.
func NewTokenMetadataStore(pool *Pool) *TokenMetadataStore {
	return &TokenMetadataStore{pool: pool}
}

var _ storage.TokenMetadataStore = (*TokenMetadataStore)(nil)

const insertTokenMetadata = `
	INSERT INTO token_metadata (mint, name, symbol, icon, fallback, fetched_at)
	VALUES (@mint, @name, @symbol, @icon, @fallback, @fetched_at)
	ON CONFLICT (mint) DO NOTHING
`

const selectTokenMetadata = `
	SELECT mint, name, symbol, icon, fallback, fetched_at
	FROM token_metadata
	WHERE mint = $1
`

// tokenMetadataRow mirrors the token_metadata columns read back.
type tokenMetadataRow struct {
	Mint      string `db:"mint"`
	Name      string `db:"name"`
	Symbol    string `db:"symbol"`
	Icon      string `db:"icon"`
	Fallback  bool   `db:"fallback"`
	FetchedAt int64  `db:"fetched_at"`
}

// Insert adds new metadata. Returns ErrDuplicateKey if mint exists.
// Conflicts resolve in the database so concurrent replicas agree on one row.
func (s *TokenMetadataStore) Insert(ctx context.Context, m *domain.TokenMetadata) error {
	if err := storage.ValidateTokenMetadata(m); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, insertTokenMetadata, pgx.NamedArgs{
		"mint":       m.Mint,
		"name":       m.Name,
		"symbol":     m.Symbol,
		"icon":       m.Icon,
		"fallback":   m.Fallback,
		"fetched_at": m.FetchedAt,
	})
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token metadata: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrDuplicateKey
	}
	return nil
}

// GetByMint retrieves metadata by mint address. Returns ErrNotFound if not exists.
func (s *TokenMetadataStore) GetByMint(ctx context.Context, mint string) (*domain.TokenMetadata, error) {
	rows, err := s.pool.Query(ctx, selectTokenMetadata, mint)
	if err != nil {
		return nil, fmt.Errorf("get token metadata by mint: %w", err)
	}

	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[tokenMetadataRow])
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token metadata by mint: %w", err)
	}

	return &domain.TokenMetadata{
		Mint:      row.Mint,
		Name:      row.Name,
		Symbol:    row.Symbol,
		Icon:      row.Icon,
		Fallback:  row.Fallback,
		FetchedAt: row.FetchedAt,
	}, nil
}
