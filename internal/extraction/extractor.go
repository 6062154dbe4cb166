// Package extraction classifies a wallet's balance changes in one
// transaction into buy and sell events.
package extraction

import (
	"math/big"

	"github.com/shopspring/decimal"

	"degenjudge/internal/domain"
	"degenjudge/internal/solana"
)

// Epsilon is the smallest token or native change treated as real.
var Epsilon = decimal.New(1, -6)

var lamportsPerSOL = decimal.NewFromInt(solana.LamportsPerSOL)

// DefaultExcludedMints are quote assets, never treated as traded tokens.
var DefaultExcludedMints = []string{
	solana.WrappedSOLMint,
	solana.USDCMint,
}

// Extractor derives TransferEvents from balance snapshots.
type Extractor struct {
	excluded map[string]struct{}
}

// New creates an Extractor ignoring the given mints.
// With no arguments DefaultExcludedMints is used.
func New(excluded ...string) *Extractor {
	if len(excluded) == 0 {
		excluded = DefaultExcludedMints
	}
	e := &Extractor{excluded: make(map[string]struct{}, len(excluded))}
	for _, m := range excluded {
		e.excluded[m] = struct{}{}
	}
	return e
}

// Extract returns at most one event per mint, in post-snapshot order.
//
// A buy is a token increase paired with a native outflow; a sell is a token
// decrease paired with a native inflow. The whole native change of the
// wallet is attributed to every mint that moved in the transaction.
func (e *Extractor) Extract(tx *solana.Transaction, wallet, signature string, blockTime int64) []domain.TransferEvent {
	if tx == nil || tx.Meta == nil {
		return nil
	}
	meta := tx.Meta
	if meta.PreTokenBalances == nil || meta.PostTokenBalances == nil {
		return nil
	}

	idx := tx.AccountIndex(wallet)
	if idx < 0 {
		return nil
	}

	native := nativeOutflow(meta, idx)
	pre, _ := ownedBalances(meta.PreTokenBalances, wallet)
	post, order := ownedBalances(meta.PostTokenBalances, wallet)

	var events []domain.TransferEvent
	for _, mint := range order {
		if _, skip := e.excluded[mint]; skip {
			continue
		}

		delta := post[mint].Sub(pre[mint])
		if delta.Abs().LessThan(Epsilon) {
			continue
		}

		isBuy := delta.IsPositive()
		if isBuy && !native.IsPositive() {
			continue
		}
		if !isBuy && !native.IsNegative() {
			continue
		}

		amount := native.Abs()
		if amount.LessThan(Epsilon) {
			continue
		}

		events = append(events, domain.TransferEvent{
			Mint:      mint,
			Timestamp: blockTime,
			Signature: signature,
			IsBuy:     isBuy,
			SolAmount: amount,
		})
	}
	return events
}

// nativeOutflow is (pre - post) in SOL; positive means the wallet paid.
func nativeOutflow(meta *solana.TransactionMeta, idx int) decimal.Decimal {
	var pre, post uint64
	if idx < len(meta.PreBalances) {
		pre = meta.PreBalances[idx]
	}
	if idx < len(meta.PostBalances) {
		post = meta.PostBalances[idx]
	}
	diff := decimal.NewFromBigInt(new(big.Int).SetUint64(pre), 0).
		Sub(decimal.NewFromBigInt(new(big.Int).SetUint64(post), 0))
	return diff.Div(lamportsPerSOL)
}

// ownedBalances sums ui amounts per mint for accounts owned by wallet and
// returns mints in first-seen order.
func ownedBalances(balances []solana.TokenBalance, wallet string) (map[string]decimal.Decimal, []string) {
	sums := make(map[string]decimal.Decimal)
	var order []string
	for _, b := range balances {
		if b.Owner != wallet {
			continue
		}
		cur, seen := sums[b.Mint]
		if !seen {
			order = append(order, b.Mint)
		}
		sums[b.Mint] = cur.Add(b.UITokenAmount.Value())
	}
	return sums, order
}
