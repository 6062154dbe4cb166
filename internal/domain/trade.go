package domain

import "github.com/shopspring/decimal"

// TradingPeriod is one buy→sell round trip for a mint.
// Timestamps are unix seconds; LastSellTimestamp is 0 until the first sell.
type TradingPeriod struct {
	FirstBuyTimestamp      int64           `json:"firstBuyTimestamp"`
	LastSellTimestamp      int64           `json:"lastSellTimestamp"`
	TotalBoughtSol         decimal.Decimal `json:"totalBoughtSol"`
	TotalSoldSol           decimal.Decimal `json:"totalSoldSol"`
	Profit                 decimal.Decimal `json:"profit"` // TotalSoldSol - TotalBoughtSol
	HoldingPeriodDays      int             `json:"holdingPeriodDays"`
	HoldingPeriodFormatted string          `json:"holdingPeriodFormatted"`
}

// TokenTrade is the per-mint analysis result.
// Totals aggregate every period; timestamps and holding fields come from BestPeriod.
type TokenTrade struct {
	Mint   string `json:"mint"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Icon   string `json:"icon"`

	FirstBuyTimestamp      int64           `json:"firstBuyTimestamp"`
	LastSellTimestamp      int64           `json:"lastSellTimestamp"`
	TotalBoughtSol         decimal.Decimal `json:"totalBoughtSol"`
	TotalSoldSol           decimal.Decimal `json:"totalSoldSol"`
	HoldingPeriodDays      int             `json:"holdingPeriodDays"`
	HoldingPeriodFormatted string          `json:"holdingPeriodFormatted"`
	IsHolding              bool            `json:"isHolding"`

	Periods    []TradingPeriod `json:"tradingPeriods"`
	BestPeriod *TradingPeriod  `json:"bestPeriod"`
}

// Profit returns the best period profit, or zero when there is none.
func (t *TokenTrade) Profit() decimal.Decimal {
	if t.BestPeriod == nil {
		return decimal.Zero
	}
	return t.BestPeriod.Profit
}

// NetProfit returns aggregated sold minus aggregated bought.
func (t *TokenTrade) NetProfit() decimal.Decimal {
	return t.TotalSoldSol.Sub(t.TotalBoughtSol)
}
