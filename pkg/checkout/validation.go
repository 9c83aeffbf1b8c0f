package checkout

import (
	"fmt"

	"github.com/angelmondragon/cloudcore-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/cloudcore-storefront/pkg/errors"
)

// StockValidationInput describes one cart line against the catalog. Listed is
// false when the catalog no longer carries the product.
type StockValidationInput struct {
	ProductID   int64
	ProductName string
	Listed      bool
	Stock       int
	Quantity    int
}

// StockViolationDetail exposes the data returned to callers when a validation fails.
type StockViolationDetail struct {
	ProductID   int64                     `json:"product_id"`
	ProductName string                    `json:"product_name,omitempty"`
	Requested   int                       `json:"requested"`
	Available   int                       `json:"available"`
	Reason      enums.CartItemWarningType `json:"reason"`
}

// ValidateStock ensures every line is still listed and asks for no more than
// the displayed stock.
func ValidateStock(items []StockValidationInput) error {
	var violations []StockViolationDetail
	for _, item := range items {
		switch {
		case !item.Listed:
			violations = append(violations, StockViolationDetail{
				ProductID: item.ProductID,
				Requested: item.Quantity,
				Reason:    enums.CartItemWarningTypeNotAvailable,
			})
		case item.Quantity > item.Stock:
			violations = append(violations, StockViolationDetail{
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
				Requested:   item.Quantity,
				Available:   item.Stock,
				Reason:      enums.CartItemWarningTypeExceedsStock,
			})
		}
	}
	if len(violations) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("stock not available for %d item(s)", len(violations))).WithDetails(map[string]any{
		"violations": violations,
	})
}
