package domain

import "github.com/shopspring/decimal"

// SignatureRecord is one entry of getSignaturesForAddress.
type SignatureRecord struct {
	Signature string
	BlockTime *int64 // unix seconds, nil when the node has no estimate
}

// TransferEvent is a classified buy or sell of a mint by the tracked wallet.
// Events are immutable once created and ordered by Timestamp.
type TransferEvent struct {
	Mint      string
	Timestamp int64 // unix seconds (block time)
	Signature string
	IsBuy     bool
	SolAmount decimal.Decimal // native amount paid or received, always >= 0
}
