package solana

import "context"

// RPCClient defines the Solana RPC HTTP interface used by the analyzer.
type RPCClient interface {
	// GetSignaturesForAddress retrieves signatures for an address, newest first.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)

	// GetTransaction retrieves a jsonParsed transaction by signature.
	// Returns nil, nil when the node has no record of the transaction.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetAsset retrieves DAS asset data for a mint. Returns ErrNotFound on a null result.
	GetAsset(ctx context.Context, mint string) (*Asset, error)
}

// Well-known mints.
const (
	WrappedSOLMint = "So11111111111111111111111111111111111111112"
	USDCMint       = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

// LamportsPerSOL is the native subunit divisor.
const LamportsPerSOL = 1_000_000_000
