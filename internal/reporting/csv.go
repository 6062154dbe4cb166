package reporting

import (
	"encoding/csv"
	"io"
	"strconv"
)

var csvHeader = []string{
	"rank", "mint", "name", "symbol",
	"total_bought_sol", "total_sold_sol", "net_profit_sol", "best_profit_sol",
	"first_buy", "last_sell", "holding_period_days", "holding_period", "periods", "is_holding",
}

// WriteCSV writes one row per trade.
func WriteCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for i := range r.Trades {
		t := &r.Trades[i]
		row := []string{
			strconv.Itoa(i + 1),
			t.Mint,
			t.Name,
			t.Symbol,
			t.TotalBoughtSol.String(),
			t.TotalSoldSol.String(),
			t.NetProfit().String(),
			t.Profit().String(),
			timestamp(t.FirstBuyTimestamp),
			timestamp(t.LastSellTimestamp),
			strconv.Itoa(t.HoldingPeriodDays),
			t.HoldingPeriodFormatted,
			strconv.Itoa(len(t.Periods)),
			strconv.FormatBool(t.IsHolding),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
