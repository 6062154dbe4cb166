package domain

// TokenMetadata is the display metadata of a mint.
// Entries are immutable once stored; Fallback marks a synthesized entry
// cached after every lookup attempt failed.
type TokenMetadata struct {
	Mint      string `json:"mint"`
	Name      string `json:"name"`
	Symbol    string `json:"symbol"`
	Icon      string `json:"icon"`
	Fallback  bool   `json:"fallback"`
	FetchedAt int64  `json:"fetchedAt"` // when metadata was resolved (ms)
}
