package holdings

import "fmt"

// ApplyTrade returns the units and average cost after a trade. Buys blend
// the cost by weight; sells reduce units (never below zero) and leave the
// average cost unchanged, including a sell that closes the position. Only a
// buy that leaves no units resets the cost.
func ApplyTrade(oldUnits, oldCost, tradeUnits, tradePrice float64, side Side) (float64, float64, error) {
	if tradeUnits < 0 || tradePrice < 0 {
		return 0, 0, fmt.Errorf("trade units and price must not be negative")
	}

	switch side {
	case Buy:
		total := oldUnits + tradeUnits
		if total <= 0 {
			return 0, 0, nil
		}
		return total, (oldUnits*oldCost + tradeUnits*tradePrice) / total, nil
	case Sell:
		remaining := oldUnits - tradeUnits
		if remaining < 0 {
			remaining = 0
		}
		return remaining, oldCost, nil
	default:
		return 0, 0, fmt.Errorf("unknown trade side %q", side)
	}
}
