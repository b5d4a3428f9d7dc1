package budget

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/armatrix/orchestra-go/llm"
)

// Unlimited is reported by Remaining when no limit is set.
var Unlimited = decimal.New(1, 18)

// ModelSpend is the accumulated usage and cost of one model.
type ModelSpend struct {
	Model string
	Usage llm.Usage
	Cost  decimal.Decimal
}

// Tracker accumulates token usage and cost across inference calls.
// It is safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	limit    decimal.Decimal // zero means unlimited
	total    decimal.Decimal
	usage    llm.Usage
	perModel map[string]*ModelSpend
	pricing  map[string]ModelPricing
}

// NewTracker creates a tracker. A zero limit means unlimited; a nil pricing
// table uses DefaultPricing.
func NewTracker(limit decimal.Decimal, pricing map[string]ModelPricing) *Tracker {
	if pricing == nil {
		pricing = DefaultPricing
	}
	return &Tracker{
		limit:    limit,
		perModel: make(map[string]*ModelSpend),
		pricing:  pricing,
	}
}

// Record adds one usage record and returns its cost. Usage of models missing
// from the pricing table is counted at zero cost.
func (t *Tracker) Record(u llm.Usage) decimal.Decimal {
	cost := decimal.Zero
	if p, ok := t.pricing[u.Model]; ok {
		cost = p.Cost(u)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.usage.InputTokens += u.InputTokens
	t.usage.OutputTokens += u.OutputTokens
	t.usage.CacheReadTokens += u.CacheReadTokens
	t.usage.CacheWriteTokens += u.CacheWriteTokens
	t.total = t.total.Add(cost)

	spend, ok := t.perModel[u.Model]
	if !ok {
		spend = &ModelSpend{Model: u.Model, Usage: llm.Usage{Model: u.Model}}
		t.perModel[u.Model] = spend
	}
	spend.Usage.Add(u)
	spend.Cost = spend.Cost.Add(cost)
	return cost
}

// TotalCost returns the cumulative cost.
func (t *Tracker) TotalCost() decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// TotalUsage returns the cumulative token usage across all models.
func (t *Tracker) TotalUsage() llm.Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usage
}

// PerModel returns spend per model, sorted by model name.
func (t *Tracker) PerModel() []ModelSpend {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ModelSpend, 0, len(t.perModel))
	for _, s := range t.perModel {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out
}

// Remaining returns the budget left, or Unlimited without a limit.
func (t *Tracker) Remaining() decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.limit.IsZero() {
		return Unlimited
	}
	return t.limit.Sub(t.total)
}

// Exhausted reports whether spend reached the limit. Always false without a
// limit.
func (t *Tracker) Exhausted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.limit.IsZero() {
		return false
	}
	return t.total.GreaterThanOrEqual(t.limit)
}
