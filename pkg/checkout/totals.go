package checkout

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MinorUnitsPerMajor is the gateway's subdivision of the currency (paise per rupee).
const MinorUnitsPerMajor = 100

var (
	minorFactor = decimal.NewFromInt(MinorUnitsPerMajor)
	maxMinor    = decimal.NewFromInt(1 << 62)
)

// PricedLine is a cart line with its price resolved from the catalog.
type PricedLine struct {
	Price    decimal.Decimal
	Quantity int
}

// LineTotal returns price × quantity.
func LineTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}

// ComputeTotal sums price × quantity across every line.
func ComputeTotal(lines []PricedLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(LineTotal(line.Price, line.Quantity))
	}
	return total
}

// ToMinorUnits converts a major-unit amount to the integer minor units the
// gateway expects, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	minor := amount.Mul(minorFactor).Round(0)
	if minor.Abs().Cmp(maxMinor) > 0 {
		return 0, fmt.Errorf("amount %s out of range", amount.String())
	}
	return minor.IntPart(), nil
}
