// Package solanatest provides an in-memory RPCClient and transaction
// builders for tests.
package solanatest

import (
	"context"
	"sync"
	"sync/atomic"

	"degenjudge/internal/solana"
)

// Client is a scriptable solana.RPCClient. Nil funcs return zero values.
type Client struct {
	SignaturesFunc  func(ctx context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error)
	TransactionFunc func(ctx context.Context, signature string) (*solana.Transaction, error)
	AssetFunc       func(ctx context.Context, mint string) (*solana.Asset, error)

	SignatureCalls   atomic.Int32
	TransactionCalls atomic.Int32
	AssetCalls       atomic.Int32

	mu        sync.Mutex
	assetMint []string
}

// GetSignaturesForAddress implements solana.RPCClient.
func (c *Client) GetSignaturesForAddress(ctx context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	c.SignatureCalls.Add(1)
	if c.SignaturesFunc == nil {
		return nil, nil
	}
	return c.SignaturesFunc(ctx, address, opts)
}

// GetTransaction implements solana.RPCClient.
func (c *Client) GetTransaction(ctx context.Context, signature string) (*solana.Transaction, error) {
	c.TransactionCalls.Add(1)
	if c.TransactionFunc == nil {
		return nil, nil
	}
	return c.TransactionFunc(ctx, signature)
}

// GetAsset implements solana.RPCClient.
func (c *Client) GetAsset(ctx context.Context, mint string) (*solana.Asset, error) {
	c.AssetCalls.Add(1)
	c.mu.Lock()
	c.assetMint = append(c.assetMint, mint)
	c.mu.Unlock()
	if c.AssetFunc == nil {
		return nil, solana.ErrNotFound
	}
	return c.AssetFunc(ctx, mint)
}

// AssetMints returns the mints passed to GetAsset, in call order.
func (c *Client) AssetMints() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.assetMint...)
}

var _ solana.RPCClient = (*Client)(nil)
