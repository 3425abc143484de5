package integration

import (
	"sort"

	"github.com/shopspring/decimal"
)

var cent = decimal.New(1, -2)

// AllocateShipping splits total across packages in proportion to their weights
// (package subtotals) using largest remainders: every share is floored to cents and
// the leftover cents go to the shares that lost the most, lowest index first on ties.
// Parts always sum to total and are never negative. Zero weights split evenly.
func AllocateShipping(total decimal.Decimal, weights []decimal.Decimal) []decimal.Decimal {
	n := len(weights)
	if n == 0 {
		return nil
	}
	parts := make([]decimal.Decimal, n)
	for i := range parts {
		parts[i] = decimal.Zero
	}
	if !total.IsPositive() {
		parts[0] = total
		return parts
	}

	sum := decimal.Zero
	for _, w := range weights {
		if w.IsPositive() {
			sum = sum.Add(w)
		}
	}

	remainders := make([]decimal.Decimal, n)
	allocated := decimal.Zero
	for i, w := range weights {
		var share decimal.Decimal
		switch {
		case sum.IsZero():
			share = total.Div(decimal.NewFromInt(int64(n)))
		case w.IsPositive():
			share = total.Mul(w).Div(sum)
		default:
			share = decimal.Zero
		}
		parts[i] = share.RoundFloor(2)
		remainders[i] = share.Sub(parts[i])
		allocated = allocated.Add(parts[i])
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]].GreaterThan(remainders[order[b]])
	})

	left := total.Sub(allocated)
	for k := 0; left.GreaterThanOrEqual(cent); k++ {
		i := order[k%n]
		parts[i] = parts[i].Add(cent)
		left = left.Sub(cent)
	}
	// sub-cent residue when total itself is not whole cents
	if !left.IsZero() {
		parts[order[0]] = parts[order[0]].Add(left)
	}
	return parts
}
