package budget

import (
	"sync"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armatrix/orchestra-go/llm"
)

var (
	opus   = string(anthropic.ModelClaudeOpus4_6)
	sonnet = string(anthropic.ModelClaudeSonnet4_5)
	haiku  = string(anthropic.ModelClaudeHaiku4_5)
)

func assertDecimal(t *testing.T, want float64, got decimal.Decimal) {
	t.Helper()
	expected := decimal.NewFromFloat(want)
	assert.True(t, expected.Equal(got), "expected %s, got %s", expected, got)
}

func TestModelPricing_Cost(t *testing.T) {
	p := DefaultPricing[sonnet]
	// 100K input at $3 + 100K output at $15
	assertDecimal(t, 1.8, p.Cost(llm.Usage{InputTokens: 100_000, OutputTokens: 100_000}))
}

func TestModelPricing_LongContextPremium(t *testing.T) {
	p := DefaultPricing[opus]
	u := llm.Usage{InputTokens: 300_000, OutputTokens: 1_000}
	// 300K at $10 + 1K at $37.5
	assertDecimal(t, 3.0375, p.Cost(u))
}

func TestModelPricing_CacheTokens(t *testing.T) {
	p := DefaultPricing[haiku]
	u := llm.Usage{InputTokens: 1_000, CacheReadTokens: 10_000, CacheWriteTokens: 2_000}
	// 1K*$1 + 10K*$0.1 + 2K*$1.25, per million
	assertDecimal(t, 0.0045, p.Cost(u))
}

func TestTracker_Record(t *testing.T) {
	tr := NewTracker(decimal.Zero, nil)

	cost := tr.Record(llm.Usage{Model: haiku, InputTokens: 1_000_000})
	assertDecimal(t, 1, cost)
	tr.Record(llm.Usage{Model: sonnet, OutputTokens: 1_000_000})
	tr.Record(llm.Usage{Model: haiku, OutputTokens: 1_000_000})

	assertDecimal(t, 21, tr.TotalCost())
	assert.Equal(t, 1_000_000, tr.TotalUsage().InputTokens)
	assert.Equal(t, 2_000_000, tr.TotalUsage().OutputTokens)

	spend := tr.PerModel()
	require.Len(t, spend, 2)
	assert.Equal(t, haiku, spend[0].Model)
	assertDecimal(t, 6, spend[0].Cost)
	assert.Equal(t, sonnet, spend[1].Model)
}

func TestTracker_UnknownModel(t *testing.T) {
	tr := NewTracker(decimal.Zero, nil)
	cost := tr.Record(llm.Usage{Model: "mystery", InputTokens: 500})
	assert.True(t, cost.IsZero())
	assert.Equal(t, 500, tr.TotalUsage().InputTokens)
}

func TestTracker_Unlimited(t *testing.T) {
	tr := NewTracker(decimal.Zero, nil)
	tr.Record(llm.Usage{Model: opus, InputTokens: 10_000_000})
	assert.False(t, tr.Exhausted())
	assert.True(t, Unlimited.Equal(tr.Remaining()))
}

func TestTracker_Exhaustion(t *testing.T) {
	tr := NewTracker(decimal.NewFromInt(2), nil)
	tr.Record(llm.Usage{Model: haiku, InputTokens: 1_000_000})
	assert.False(t, tr.Exhausted())
	assertDecimal(t, 1, tr.Remaining())

	tr.Record(llm.Usage{Model: haiku, InputTokens: 1_000_000})
	assert.True(t, tr.Exhausted(), "reaching the limit exactly exhausts it")
}

func TestTracker_CustomPricing(t *testing.T) {
	tr := NewTracker(decimal.Zero, map[string]ModelPricing{
		"local": {InputPerMTok: decimal.NewFromInt(2)},
	})
	tr.Record(llm.Usage{Model: "local", InputTokens: 500_000})
	tr.Record(llm.Usage{Model: haiku, InputTokens: 500_000})
	assertDecimal(t, 1, tr.TotalCost())
}

func TestTracker_Concurrent(t *testing.T) {
	tr := NewTracker(decimal.Zero, nil)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Record(llm.Usage{Model: haiku, InputTokens: 10_000})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1_000_000, tr.TotalUsage().InputTokens)
	assertDecimal(t, 1, tr.TotalCost())
}
