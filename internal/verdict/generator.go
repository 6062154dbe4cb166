package verdict

import (
	"context"

	"degenjudge/internal/domain"
)

// UnavailableMessage is returned when no verdict could be produced.
const UnavailableMessage = "The Judge is currently unavailable. Too many degens in the courtroom today."

// Verdict is the judge's ruling on a wallet.
type Verdict struct {
	Success  bool   `json:"success"`
	Analysis string `json:"analysis"`
}

// Generator produces a verdict for a list of trades. Implementations never
// fail: an unavailable backend yields Success false and UnavailableMessage.
type Generator interface {
	Generate(ctx context.Context, trades []domain.TokenTrade) Verdict
}

// Unavailable returns the failure verdict.
func Unavailable() Verdict {
	return Verdict{Success: false, Analysis: UnavailableMessage}
}
