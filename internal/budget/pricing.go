// Package budget prices token usage and tracks spend against an optional
// limit.
package budget

import (
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/shopspring/decimal"

	"github.com/armatrix/orchestra-go/llm"
)

// ModelPricing holds per-model token prices in USD per million tokens.
type ModelPricing struct {
	InputPerMTok      decimal.Decimal
	OutputPerMTok     decimal.Decimal
	CacheWritePerMTok decimal.Decimal
	CacheReadPerMTok  decimal.Decimal

	// Long-context rates apply to input and output when the total input of a
	// call exceeds LongContextThreshold. Zero threshold disables them.
	LongInputPerMTok     decimal.Decimal
	LongOutputPerMTok    decimal.Decimal
	LongContextThreshold int
}

var million = decimal.NewFromInt(1_000_000)

func perMTok(tokens int, rate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(int64(tokens)).Mul(rate).Div(million)
}

// Cost returns the price of one usage record.
func (p ModelPricing) Cost(u llm.Usage) decimal.Decimal {
	in, out := p.InputPerMTok, p.OutputPerMTok
	totalInput := u.InputTokens + u.CacheReadTokens + u.CacheWriteTokens
	if p.LongContextThreshold > 0 && totalInput > p.LongContextThreshold {
		in, out = p.LongInputPerMTok, p.LongOutputPerMTok
	}
	return perMTok(u.InputTokens, in).
		Add(perMTok(u.CacheReadTokens, p.CacheReadPerMTok)).
		Add(perMTok(u.CacheWriteTokens, p.CacheWritePerMTok)).
		Add(perMTok(u.OutputTokens, out))
}

// DefaultPricing is the built-in price table keyed by model name.
var DefaultPricing = map[string]ModelPricing{
	string(anthropic.ModelClaudeOpus4_6): {
		InputPerMTok:         decimal.NewFromInt(5),
		OutputPerMTok:        decimal.NewFromInt(25),
		CacheWritePerMTok:    decimal.NewFromFloat(6.25),
		CacheReadPerMTok:     decimal.NewFromFloat(0.5),
		LongInputPerMTok:     decimal.NewFromInt(10),
		LongOutputPerMTok:    decimal.NewFromFloat(37.5),
		LongContextThreshold: 200_000,
	},
	string(anthropic.ModelClaudeSonnet4_5): {
		InputPerMTok:         decimal.NewFromInt(3),
		OutputPerMTok:        decimal.NewFromInt(15),
		CacheWritePerMTok:    decimal.NewFromFloat(3.75),
		CacheReadPerMTok:     decimal.NewFromFloat(0.3),
		LongInputPerMTok:     decimal.NewFromInt(6),
		LongOutputPerMTok:    decimal.NewFromFloat(22.5),
		LongContextThreshold: 200_000,
	},
	string(anthropic.ModelClaudeHaiku4_5): {
		InputPerMTok:      decimal.NewFromInt(1),
		OutputPerMTok:     decimal.NewFromInt(5),
		CacheWritePerMTok: decimal.NewFromFloat(1.25),
		CacheReadPerMTok:  decimal.NewFromFloat(0.1),
	},
}
