package enums

import "fmt"

// CartItemWarningType flags a cart line that cannot be fulfilled as asked.
// Adding to the cart only reports it; checkout refuses it.
type CartItemWarningType string

const (
	// CartItemWarningTypeExceedsStock: quantity above the displayed stock.
	CartItemWarningTypeExceedsStock CartItemWarningType = "exceeds_stock"
	// CartItemWarningTypeNotAvailable: product no longer in the catalog.
	CartItemWarningTypeNotAvailable CartItemWarningType = "not_available"
)

func (c CartItemWarningType) String() string {
	return string(c)
}

func (c CartItemWarningType) IsValid() bool {
	switch c {
	case CartItemWarningTypeExceedsStock, CartItemWarningTypeNotAvailable:
		return true
	}
	return false
}

// ParseCartItemWarningType converts raw input into a CartItemWarningType.
func ParseCartItemWarningType(value string) (CartItemWarningType, error) {
	if w := CartItemWarningType(value); w.IsValid() {
		return w, nil
	}
	return "", fmt.Errorf("invalid cart item warning type %q", value)
}
