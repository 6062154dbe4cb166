package solana

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// SignatureInfo from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts defines optional pagination parameters for getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // Start searching backwards from this signature
	Until  string // Search until this signature
	Limit  int    // Maximum number of signatures to return
}

// Transaction is the subset of a jsonParsed getTransaction result the analyzer reads.
type Transaction struct {
	Slot      int64
	BlockTime *int64
	Meta      *TransactionMeta
	Message   TransactionMessage
}

// TransactionMessage contains the parsed account key list.
type TransactionMessage struct {
	AccountKeys []AccountKey
}

// AccountIndex returns the position of address in the account key list, or -1.
func (t *Transaction) AccountIndex(address string) int {
	for i, key := range t.Message.AccountKeys {
		if key.Pubkey == address {
			return i
		}
	}
	return -1
}

// AccountKey is either a raw key string or a parsed {pubkey, signer, writable} object.
type AccountKey struct {
	Pubkey   string
	Signer   bool
	Writable bool
}

// UnmarshalJSON accepts both account key encodings.
func (k *AccountKey) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		k.Pubkey = raw
		return nil
	}

	var parsed struct {
		Pubkey   string `json:"pubkey"`
		Signer   bool   `json:"signer"`
		Writable bool   `json:"writable"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("account key: %w", err)
	}
	if parsed.Pubkey == "" {
		return errors.New("account key: object without pubkey")
	}
	k.Pubkey = parsed.Pubkey
	k.Signer = parsed.Signer
	k.Writable = parsed.Writable
	return nil
}

// TransactionMeta holds balance snapshots. Token balance slices are nil when
// the node omitted them.
type TransactionMeta struct {
	Err               interface{}    `json:"err"`
	Fee               uint64         `json:"fee"`
	PreBalances       []uint64       `json:"preBalances"`
	PostBalances      []uint64       `json:"postBalances"`
	PreTokenBalances  []TokenBalance `json:"preTokenBalances"`
	PostTokenBalances []TokenBalance `json:"postTokenBalances"`
}

// TokenBalance is one token account snapshot entry.
type TokenBalance struct {
	AccountIndex  int           `json:"accountIndex"`
	Mint          string        `json:"mint"`
	Owner         string        `json:"owner"`
	ProgramID     string        `json:"programId"`
	UITokenAmount UITokenAmount `json:"uiTokenAmount"`
}

// UITokenAmount is a balance already scaled by the token decimals.
type UITokenAmount struct {
	Amount         string   `json:"amount"`
	Decimals       int      `json:"decimals"`
	UIAmount       *float64 `json:"uiAmount"`
	UIAmountString string   `json:"uiAmountString"`
}

// Value returns the ui amount, preferring the exact string form.
// A null amount (empty account) is zero.
func (a UITokenAmount) Value() decimal.Decimal {
	if a.UIAmountString != "" {
		if d, err := decimal.NewFromString(a.UIAmountString); err == nil {
			return d
		}
	}
	if a.UIAmount != nil {
		return decimal.NewFromFloat(*a.UIAmount)
	}
	return decimal.Zero
}

// Asset is the subset of a DAS getAsset result used for display metadata.
type Asset struct {
	ID        string          `json:"id"`
	Interface string          `json:"interface"`
	Content   *AssetContent   `json:"content"`
	TokenInfo *AssetTokenInfo `json:"token_info"`
	Name      string          `json:"name"`
	Symbol    string          `json:"symbol"`
	Image     string          `json:"image"`
}

// AssetContent is the "content" object of a DAS asset.
type AssetContent struct {
	JSONURI  string         `json:"json_uri"`
	Files    []AssetFile    `json:"files"`
	Metadata *AssetMetadata `json:"metadata"`
	Links    *AssetLinks    `json:"links"`
}

// AssetFile is one entry of content.files.
type AssetFile struct {
	URI  string `json:"uri"`
	Mime string `json:"mime"`
}

// AssetMetadata is content.metadata.
type AssetMetadata struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Image  string `json:"image"`
}

// AssetLinks is content.links.
type AssetLinks struct {
	Image       string `json:"image"`
	ExternalURL string `json:"external_url"`
}

// AssetTokenInfo is the fungible token_info object.
type AssetTokenInfo struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}
