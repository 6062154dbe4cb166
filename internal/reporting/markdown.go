package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Wallet Report\n\n")
	sb.WriteString(fmt.Sprintf("Wallet: `%s`\n\n", r.Address))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.UTC().Format(time.RFC3339)))

	// Summary
	s := r.Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Trades | %d |\n", s.TotalTrades))
	sb.WriteString(fmt.Sprintf("| Winning Trades | %d |\n", s.WinningTrades))
	sb.WriteString(fmt.Sprintf("| Losing Trades | %d |\n", s.LosingTrades))
	sb.WriteString(fmt.Sprintf("| Win Rate | %s%% |\n", s.WinRate.StringFixed(1)))
	sb.WriteString(fmt.Sprintf("| Total Profit/Loss | %s SOL |\n", s.TotalProfit.StringFixed(4)))
	if s.BestTrade != nil {
		sb.WriteString(fmt.Sprintf("| Best Trade | %s (%s SOL) |\n", s.BestTrade.Symbol, s.BestTrade.Profit.StringFixed(4)))
	}
	if s.WorstTrade != nil {
		sb.WriteString(fmt.Sprintf("| Worst Trade | %s (%s SOL) |\n", s.WorstTrade.Symbol, s.WorstTrade.Profit.StringFixed(4)))
	}
	sb.WriteString("\n")

	// Trades
	sb.WriteString("## Trades\n\n")
	if len(r.Trades) > 0 {
		sb.WriteString("| # | Token | Bought (SOL) | Sold (SOL) | Best Profit (SOL) | Periods | Held | Holding |\n")
		sb.WriteString("|---|-------|--------------|------------|-------------------|---------|------|---------|\n")
		for i := range r.Trades {
			t := &r.Trades[i]
			holding := "no"
			if t.IsHolding {
				holding = "yes"
			}
			sb.WriteString(fmt.Sprintf("| %d | %s (%s) | %s | %s | %s | %d | %s | %s |\n",
				i+1, escape(t.Name), escape(t.Symbol),
				t.TotalBoughtSol.StringFixed(4), t.TotalSoldSol.StringFixed(4), t.Profit().StringFixed(4),
				len(t.Periods), t.HoldingPeriodFormatted, holding))
		}
	} else {
		sb.WriteString("No completed round trips found.\n")
	}
	sb.WriteString("\n")

	// Verdict
	if r.Verdict != nil {
		sb.WriteString("## Verdict\n\n")
		sb.WriteString(r.Verdict.Analysis)
		sb.WriteString("\n")
	}

	return sb.String()
}

// escape keeps token names from breaking table cells.
func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
