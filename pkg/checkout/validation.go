package checkout

import (
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// StockLine pairs a requested quantity with the stock on hand for one item.
type StockLine struct {
	ItemID    uuid.UUID
	Name      string
	Requested int
	Available int
}

// StockViolation is returned to callers for every under-stocked line.
type StockViolation struct {
	ItemID    uuid.UUID `json:"item_id"`
	Name      string    `json:"name,omitempty"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// ValidateStock checks every line and reports all of the ones whose requested
// quantity exceeds what is available, not just the first.
func ValidateStock(lines []StockLine) error {
	var violations []StockViolation
	for _, line := range lines {
		if line.Requested > line.Available {
			violations = append(violations, StockViolation{
				ItemID:    line.ItemID,
				Name:      line.Name,
				Requested: line.Requested,
				Available: line.Available,
			})
		}
	}
	if len(violations) == 0 {
		return nil
	}
	return InsufficientStock(violations)
}

// InsufficientStock builds the typed error carrying the offending lines.
func InsufficientStock(violations []StockViolation) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("insufficient stock for %d item(s)", len(violations))).
		WithDetails(map[string]any{"lines": violations})
}

// StockViolations extracts the offending lines from an insufficient stock error.
func StockViolations(err error) []StockViolation {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		return nil
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		return nil
	}
	lines, _ := details["lines"].([]StockViolation)
	return lines
}
