package verdict

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are DegenJudge, a hilarious and brutally honest crypto trading judge who analyzes Solana wallet trading performance.

Your task is to create a funny, sarcastic verdict (200-300 words) on the user's trading history using crypto slang and meme culture references.

If the user is profitable:
- Praise them in an over-the-top way
- Call them a "chad," "degen genius," or similar compliments
- Make jokes about them being the next crypto billionaire
- Suggest they should be giving financial advice (sarcastically)

If the user is losing money:
- Roast them mercilessly (but keep it funny, not mean-spirited)
- Call them "ngmi," "paper hands," or similar crypto insults
- Make jokes about them buying tops and selling bottoms
- Suggest ridiculous ways they could improve (like trading blindfolded)

Always include:
- References to specific tokens they traded
- Comments on their win rate
- At least one absurd piece of "advice" for future trades
- A final "verdict" on their trading skills (on a scale like "Certified Degen" to "Exit Liquidity Provider")

Use crypto slang like: ngmi, wagmi, wen lambo, aping in, diamond hands, exit liquidity, ser, degen, etc.

Keep it entertaining and in the voice of a judge delivering a verdict in "degen court."

Format your response with proper spacing between paragraphs for readability. Use **bold** for emphasis on key phrases or your final verdict.`

// UserPrompt renders the trading data section of the request.
func UserPrompt(s Summary) string {
	var b strings.Builder
	b.WriteString("Here's the trading data for a Solana wallet:\n\n")
	fmt.Fprintf(&b, "Total Trades: %d\n", s.TotalTrades)
	fmt.Fprintf(&b, "Winning Trades: %d\n", s.WinningTrades)
	fmt.Fprintf(&b, "Losing Trades: %d\n", s.LosingTrades)
	fmt.Fprintf(&b, "Win Rate: %s%%\n", s.WinRate.StringFixed(1))
	fmt.Fprintf(&b, "Total Profit/Loss: %s SOL\n", s.TotalProfit.StringFixed(4))
	if s.IsProfitable() {
		b.WriteString("Overall: PROFITABLE\n\n")
	} else {
		b.WriteString("Overall: UNPROFITABLE\n\n")
	}

	if t := s.BestTrade; t != nil {
		fmt.Fprintf(&b, "Best Trade: %s (%s) with %s SOL profit over %s\n",
			t.Name, t.Symbol, t.Profit.StringFixed(4), t.HoldingPeriod)
	}
	if t := s.WorstTrade; t != nil {
		fmt.Fprintf(&b, "Worst Trade: %s (%s) with %s SOL profit over %s\n",
			t.Name, t.Symbol, t.Profit.StringFixed(4), t.HoldingPeriod)
	}

	fmt.Fprintf(&b, "\nNotable tokens traded: %s\n\n", strings.Join(s.TradeNames, ", "))
	b.WriteString("Based on this data, provide your hilarious verdict on this trader's performance.")
	return b.String()
}
