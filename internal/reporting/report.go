// Package reporting renders wallet analyses as Markdown or CSV.
package reporting

import (
	"time"

	"degenjudge/internal/domain"
	"degenjudge/internal/verdict"
)

// Report is one wallet analysis ready for rendering.
type Report struct {
	Address     string
	GeneratedAt time.Time
	Summary     verdict.Summary
	Trades      []domain.TokenTrade // ranked, most profitable first
	Verdict     *verdict.Verdict    // nil when no verdict was requested
}

// New builds a report from ranked trades.
func New(address string, trades []domain.TokenTrade, generatedAt time.Time) *Report {
	return &Report{
		Address:     address,
		GeneratedAt: generatedAt,
		Summary:     verdict.Summarize(trades),
		Trades:      trades,
	}
}

// WithVerdict attaches the judge's ruling.
func (r *Report) WithVerdict(v verdict.Verdict) *Report {
	r.Verdict = &v
	return r
}

func timestamp(unix int64) string {
	if unix == 0 {
		return "-"
	}
	return time.Unix(unix, 0).UTC().Format(time.RFC3339)
}
