package valuation

import (
	"fmt"

	"github.com/aristath/fundpulse/internal/domain"
)

// Source ids used by the default strategy.
const (
	SourceSina          = "sina"
	SourceTiantian      = "tiantian"
	SourceEastmoneyBulk = "eastmoney_bulk"
	SourceHistoryNAV    = "history_nav"
)

// DefaultOrder lists adapters per kind, fastest and most specific first.
// Exchange-traded instruments start with the low-latency exchange feed and
// end with the slow bulk list; funds start with the dedicated estimate feed
// and end with the last confirmed NAV.
func DefaultOrder() map[domain.InstrumentKind][]string {
	return map[domain.InstrumentKind][]string{
		domain.KindExchangeTraded: {SourceSina, SourceTiantian, SourceEastmoneyBulk},
		domain.KindFund:           {SourceTiantian, SourceEastmoneyBulk, SourceHistoryNAV},
		domain.KindIndex:          {SourceSina},
	}
}

// StrategyTable maps an instrument kind to its ordered adapter chain. It is
// built once at startup and read-only afterwards.
type StrategyTable struct {
	chains map[domain.InstrumentKind][]Adapter
}

// NewStrategyTable resolves adapter ids into chains. Unknown ids, duplicate
// ids and adapters that do not support the kind they are listed under are
// configuration errors.
func NewStrategyTable(order map[domain.InstrumentKind][]string, adapters ...Adapter) (*StrategyTable, error) {
	byID := make(map[string]Adapter, len(adapters))
	for _, a := range adapters {
		if _, dup := byID[a.ID()]; dup {
			return nil, fmt.Errorf("duplicate adapter id %q", a.ID())
		}
		byID[a.ID()] = a
	}

	chains := make(map[domain.InstrumentKind][]Adapter, len(order))
	for kind, ids := range order {
		seen := make(map[string]bool, len(ids))
		for _, id := range ids {
			a, ok := byID[id]
			if !ok {
				return nil, fmt.Errorf("strategy for %s references unknown adapter %q", kind, id)
			}
			if !a.Supports(kind) {
				return nil, fmt.Errorf("adapter %q does not support %s", id, kind)
			}
			if seen[id] {
				return nil, fmt.Errorf("adapter %q listed twice for %s", id, kind)
			}
			seen[id] = true
			chains[kind] = append(chains[kind], a)
		}
	}
	return &StrategyTable{chains: chains}, nil
}

// Chain returns the ordered adapters for a kind (nil if none).
func (t *StrategyTable) Chain(kind domain.InstrumentKind) []Adapter {
	return t.chains[kind]
}

// Describe returns adapter ids per kind for status reporting.
func (t *StrategyTable) Describe() map[string][]string {
	out := make(map[string][]string, len(t.chains))
	for kind, chain := range t.chains {
		ids := make([]string, len(chain))
		for i, a := range chain {
			ids[i] = a.ID()
		}
		out[string(kind)] = ids
	}
	return out
}
