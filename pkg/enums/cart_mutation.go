package enums

import "fmt"

// CartMutation names an operation that rewrites the persisted cart.
type CartMutation string

const (
	CartMutationAdd    CartMutation = "add"
	CartMutationRemove CartMutation = "remove"
	CartMutationClear  CartMutation = "clear"
)

var validCartMutations = []CartMutation{
	CartMutationAdd,
	CartMutationRemove,
	CartMutationClear,
}

func (c CartMutation) String() string {
	return string(c)
}

// IsValid reports whether the value matches a known cart mutation.
func (c CartMutation) IsValid() bool {
	for _, candidate := range validCartMutations {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCartMutation converts the raw string to CartMutation.
func ParseCartMutation(value string) (CartMutation, error) {
	for _, candidate := range validCartMutations {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cart mutation %q", value)
}
