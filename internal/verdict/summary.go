// Package verdict turns a wallet's trades into a courtroom-style verdict.
package verdict

import (
	"sort"

	"github.com/shopspring/decimal"

	"degenjudge/internal/domain"
)

// notableTokens is how many trade names the summary carries.
const notableTokens = 5

// TradeHighlight describes the best or worst trade.
type TradeHighlight struct {
	Name          string          `json:"name"`
	Symbol        string          `json:"symbol"`
	Profit        decimal.Decimal `json:"profit"`
	HoldingPeriod string          `json:"holdingPeriod"`
}

// Summary is the aggregate performance handed to a Generator.
// Profit is net per trade: aggregated sold minus aggregated bought.
type Summary struct {
	TotalTrades   int             `json:"totalTrades"`
	WinningTrades int             `json:"winningTrades"`
	LosingTrades  int             `json:"losingTrades"`
	WinRate       decimal.Decimal `json:"winRate"` // percent
	TotalProfit   decimal.Decimal `json:"totalProfit"`
	BestTrade     *TradeHighlight `json:"bestTrade"`
	WorstTrade    *TradeHighlight `json:"worstTrade"`
	TradeNames    []string        `json:"tradeNames"`
}

// IsProfitable reports whether the wallet made money overall.
func (s Summary) IsProfitable() bool {
	return s.TotalProfit.IsPositive()
}

// Summarize computes the performance summary of trades. A trade with zero
// net profit counts as a loss.
func Summarize(trades []domain.TokenTrade) Summary {
	s := Summary{
		TotalTrades: len(trades),
		WinRate:     decimal.Zero,
		TotalProfit: decimal.Zero,
		TradeNames:  []string{},
	}
	if len(trades) == 0 {
		return s
	}

	for i := range trades {
		p := trades[i].NetProfit()
		s.TotalProfit = s.TotalProfit.Add(p)
		if p.IsPositive() {
			s.WinningTrades++
		} else {
			s.LosingTrades++
		}
	}
	s.WinRate = decimal.NewFromInt(int64(s.WinningTrades)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(len(trades))))

	ranked := make([]domain.TokenTrade, len(trades))
	copy(ranked, trades)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].NetProfit().GreaterThan(ranked[j].NetProfit())
	})
	s.BestTrade = highlight(ranked[0])
	s.WorstTrade = highlight(ranked[len(ranked)-1])

	for i := 0; i < len(trades) && i < notableTokens; i++ {
		name := trades[i].Name
		if name == "" {
			name = trades[i].Symbol
		}
		s.TradeNames = append(s.TradeNames, name)
	}
	return s
}

func highlight(t domain.TokenTrade) *TradeHighlight {
	return &TradeHighlight{
		Name:          t.Name,
		Symbol:        t.Symbol,
		Profit:        t.NetProfit(),
		HoldingPeriod: t.HoldingPeriodFormatted,
	}
}
