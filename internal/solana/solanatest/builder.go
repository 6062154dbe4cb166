package solanatest

import (
	"degenjudge/internal/solana"
)

// StartingLamports is the wallet balance before every built transaction.
const StartingLamports = 10 * solana.LamportsPerSOL

// TxBuilder assembles jsonParsed-shaped transactions.
type TxBuilder struct {
	tx *solana.Transaction
}

// NewTx starts a transaction whose first account key is wallet. Token
// balance snapshots are present and empty.
func NewTx(wallet string, blockTime int64) *TxBuilder {
	bt := blockTime
	return &TxBuilder{tx: &solana.Transaction{
		BlockTime: &bt,
		Message: solana.TransactionMessage{
			AccountKeys: []solana.AccountKey{{Pubkey: wallet, Signer: true, Writable: true}},
		},
		Meta: &solana.TransactionMeta{
			PreBalances:       []uint64{StartingLamports},
			PostBalances:      []uint64{StartingLamports},
			PreTokenBalances:  []solana.TokenBalance{},
			PostTokenBalances: []solana.TokenBalance{},
		},
	}}
}

// SpendLamports sets the wallet's native outflow. Negative values are inflows.
func (b *TxBuilder) SpendLamports(lamports int64) *TxBuilder {
	b.tx.Meta.PostBalances[0] = uint64(int64(StartingLamports) - lamports)
	return b
}

// Spend sets the wallet's native outflow in SOL.
func (b *TxBuilder) Spend(sol float64) *TxBuilder {
	return b.SpendLamports(int64(sol * solana.LamportsPerSOL))
}

// Key appends an account key and returns its index.
func (b *TxBuilder) Key(pubkey string) int {
	b.tx.Message.AccountKeys = append(b.tx.Message.AccountKeys, solana.AccountKey{Pubkey: pubkey})
	b.tx.Meta.PreBalances = append(b.tx.Meta.PreBalances, 0)
	b.tx.Meta.PostBalances = append(b.tx.Meta.PostBalances, 0)
	return len(b.tx.Message.AccountKeys) - 1
}

// PreToken adds a pre-snapshot token balance owned by owner.
func (b *TxBuilder) PreToken(mint, owner, uiAmount string) *TxBuilder {
	b.tx.Meta.PreTokenBalances = append(b.tx.Meta.PreTokenBalances, tokenBalance(len(b.tx.Meta.PreTokenBalances)+1, mint, owner, uiAmount))
	return b
}

// PostToken adds a post-snapshot token balance owned by owner.
func (b *TxBuilder) PostToken(mint, owner, uiAmount string) *TxBuilder {
	b.tx.Meta.PostTokenBalances = append(b.tx.Meta.PostTokenBalances, tokenBalance(len(b.tx.Meta.PostTokenBalances)+1, mint, owner, uiAmount))
	return b
}

// WithoutTokenSnapshots drops both token balance snapshots.
func (b *TxBuilder) WithoutTokenSnapshots() *TxBuilder {
	b.tx.Meta.PreTokenBalances = nil
	b.tx.Meta.PostTokenBalances = nil
	return b
}

// Build returns the transaction.
func (b *TxBuilder) Build() *solana.Transaction {
	return b.tx
}

// Buy is a transaction in which wallet spends sol and receives tokens of mint.
func Buy(wallet, mint string, blockTime int64, sol float64) *solana.Transaction {
	return NewTx(wallet, blockTime).
		Spend(sol).
		PreToken(mint, wallet, "0").
		PostToken(mint, wallet, "1000").
		Build()
}

// Sell is a transaction in which wallet sends tokens of mint and receives sol.
func Sell(wallet, mint string, blockTime int64, sol float64) *solana.Transaction {
	return NewTx(wallet, blockTime).
		Spend(-sol).
		PreToken(mint, wallet, "1000").
		PostToken(mint, wallet, "0").
		Build()
}

func tokenBalance(index int, mint, owner, uiAmount string) solana.TokenBalance {
	return solana.TokenBalance{
		AccountIndex: index,
		Mint:         mint,
		Owner:        owner,
		UITokenAmount: solana.UITokenAmount{
			UIAmountString: uiAmount,
		},
	}
}
