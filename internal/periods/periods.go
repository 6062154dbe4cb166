// Package periods groups a mint's buy and sell events into round-trip
// holding periods.
//
// Only presence is tracked: every buy raises a counter and every sell
// lowers it. A period opens when the counter leaves zero and closes when
// it returns to zero. A trailing period is kept only if it has a sell.
package periods

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"degenjudge/internal/domain"
)

const (
	secondsPerMinute = 60
	secondsPerHour   = 60 * secondsPerMinute
	secondsPerDay    = 24 * secondsPerHour
)

// Result is the outcome of replaying one mint's events.
type Result struct {
	Periods []domain.TradingPeriod
	// Holding is true when the presence counter ended above zero.
	Holding bool
}

// Reconstruct replays events in timestamp order. Events with equal
// timestamps keep their input order. The input slice is not modified.
func Reconstruct(events []domain.TransferEvent) Result {
	ordered := make([]domain.TransferEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp < ordered[j].Timestamp
	})

	var (
		counter int
		open    *domain.TradingPeriod
		out     []domain.TradingPeriod
	)

	for _, ev := range ordered {
		if ev.IsBuy {
			prev := counter
			counter++
			if prev == 0 {
				if open != nil {
					out = append(out, *open)
				}
				open = newPeriod(ev)
			} else if open != nil {
				open.TotalBoughtSol = open.TotalBoughtSol.Add(ev.SolAmount)
			}
			continue
		}

		if counter > 0 {
			counter--
		}
		if open == nil {
			continue
		}
		open.TotalSoldSol = open.TotalSoldSol.Add(ev.SolAmount)
		open.LastSellTimestamp = ev.Timestamp
		open.Profit = open.TotalSoldSol.Sub(open.TotalBoughtSol)
		open.HoldingPeriodDays = HoldingPeriodDays(open.FirstBuyTimestamp, ev.Timestamp)
		open.HoldingPeriodFormatted = FormatHoldingPeriod(open.FirstBuyTimestamp, ev.Timestamp)
		if counter == 0 {
			out = append(out, *open)
			open = nil
		}
	}

	if open != nil && open.LastSellTimestamp > 0 {
		out = append(out, *open)
	}

	return Result{Periods: out, Holding: counter > 0}
}

func newPeriod(ev domain.TransferEvent) *domain.TradingPeriod {
	return &domain.TradingPeriod{
		FirstBuyTimestamp:      ev.Timestamp,
		TotalBoughtSol:         ev.SolAmount,
		TotalSoldSol:           decimal.Zero,
		Profit:                 decimal.Zero,
		HoldingPeriodFormatted: FormatHoldingPeriod(0, 0),
	}
}

// FormatHoldingPeriod renders the time between first and last in the
// largest whole unit: days, else hours, else minutes (at least one).
func FormatHoldingPeriod(first, last int64) string {
	if first == 0 || last == 0 {
		return "0 days"
	}
	diff := last - first
	if diff < 0 {
		return "1 minute"
	}

	if days := diff / secondsPerDay; days > 0 {
		return plural(days, "day")
	}
	if hours := diff / secondsPerHour; hours > 0 {
		return plural(hours, "hour")
	}
	minutes := diff / secondsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return plural(minutes, "minute")
}

// HoldingPeriodDays is the number of whole days between first and last.
func HoldingPeriodDays(first, last int64) int {
	if first == 0 || last == 0 {
		return 0
	}
	days := (last - first) / secondsPerDay
	if days < 0 {
		return 0
	}
	return int(days)
}

func plural(n int64, unit string) string {
	if n > 1 {
		return fmt.Sprintf("%d %ss", n, unit)
	}
	return fmt.Sprintf("%d %s", n, unit)
}

// BestPeriod returns the first period with the highest profit, or nil.
func BestPeriod(periods []domain.TradingPeriod) *domain.TradingPeriod {
	if len(periods) == 0 {
		return nil
	}
	best := 0
	for i := 1; i < len(periods); i++ {
		if periods[i].Profit.GreaterThan(periods[best].Profit) {
			best = i
		}
	}
	p := periods[best]
	return &p
}

// BuildTrade reconstructs periods for mint and assembles its TokenTrade.
// It reports false when no period was completed. Display fields are left
// empty for the metadata enricher.
func BuildTrade(mint string, events []domain.TransferEvent) (domain.TokenTrade, bool) {
	res := Reconstruct(events)
	if len(res.Periods) == 0 {
		return domain.TokenTrade{}, false
	}

	best := BestPeriod(res.Periods)
	bought, sold := decimal.Zero, decimal.Zero
	for _, p := range res.Periods {
		bought = bought.Add(p.TotalBoughtSol)
		sold = sold.Add(p.TotalSoldSol)
	}

	return domain.TokenTrade{
		Mint:                   mint,
		FirstBuyTimestamp:      best.FirstBuyTimestamp,
		LastSellTimestamp:      best.LastSellTimestamp,
		TotalBoughtSol:         bought,
		TotalSoldSol:           sold,
		HoldingPeriodDays:      best.HoldingPeriodDays,
		HoldingPeriodFormatted: best.HoldingPeriodFormatted,
		IsHolding:              res.Holding,
		Periods:                res.Periods,
		BestPeriod:             best,
	}, true
}
