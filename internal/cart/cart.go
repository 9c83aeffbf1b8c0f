package cart

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"math"
	"time"

	"github.com/angelmondragon/cloudcore-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/cloudcore-storefront/pkg/errors"
	"github.com/angelmondragon/cloudcore-storefront/pkg/kv"
	"github.com/angelmondragon/cloudcore-storefront/pkg/logger"
)

// Line is one cart entry. The JSON shape is the persisted snapshot format.
type Line struct {
	ProductID int64 `json:"id"`
	Quantity  int   `json:"quantity"`
}

type mutationRecorder interface {
	IncCartMutation(op string)
}

// Cart is the in-memory view of one visitor's persisted cart. It is not safe
// for concurrent use; Sessions serializes access per visitor.
type Cart struct {
	store   kv.Store
	key     string
	ttl     time.Duration
	logg    *logger.Logger
	metrics mutationRecorder
	lines   []Line
}

func newCart(store kv.Store, key string, ttl time.Duration, logg *logger.Logger, metrics mutationRecorder) *Cart {
	return &Cart{store: store, key: key, ttl: ttl, logg: logg, metrics: metrics}
}

// Key returns the storage key the snapshot lives under.
func (c *Cart) Key() string {
	return c.key
}

// Load rehydrates the cart from storage. A missing or malformed snapshot yields
// an empty cart; only a storage failure is returned.
func (c *Cart) Load(ctx context.Context) error {
	raw, err := c.store.Get(ctx, c.key)
	if err != nil {
		if stdErrors.Is(err, kv.ErrNotFound) {
			c.lines = nil
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	lines, err := decodeSnapshot(raw)
	if err != nil {
		ctx = c.logg.WithFields(ctx, map[string]any{"cart_key": c.key, "reason": err.Error()})
		c.logg.Warn(ctx, "discarding corrupt cart snapshot")
		c.lines = nil
		return nil
	}
	c.lines = lines
	return nil
}

// Add merges quantity into the line for productID, appending a new line when
// the product is not in the cart yet.
func (c *Cart) Add(ctx context.Context, productID int64, quantity int) error {
	if productID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id must be positive")
	}
	if quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}

	next := c.Lines()
	merged := false
	for i := range next {
		if next[i].ProductID == productID {
			if quantity > math.MaxInt-next[i].Quantity {
				return pkgerrors.New(pkgerrors.CodeValidation, "quantity too large").
					WithDetails(map[string]any{"product_id": productID, "current": next[i].Quantity})
			}
			next[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		next = append(next, Line{ProductID: productID, Quantity: quantity})
	}
	return c.commit(ctx, enums.CartMutationAdd, next)
}

// Remove drops the line for productID. Removing an absent product is a no-op
// that still rewrites the snapshot.
func (c *Cart) Remove(ctx context.Context, productID int64) error {
	next := make([]Line, 0, len(c.lines))
	for _, line := range c.lines {
		if line.ProductID != productID {
			next = append(next, line)
		}
	}
	return c.commit(ctx, enums.CartMutationRemove, next)
}

// Clear empties the cart and deletes the persisted snapshot.
func (c *Cart) Clear(ctx context.Context) error {
	if err := c.store.Delete(ctx, c.key); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	c.lines = nil
	c.record(enums.CartMutationClear)
	return nil
}

// Settle removes the quantities of an accepted order. Lines added or topped up
// after the order was read keep the difference. When nothing is left the
// snapshot is deleted, exactly like Clear.
func (c *Cart) Settle(ctx context.Context, ordered []Line) error {
	orderedQty := make(map[int64]int, len(ordered))
	for _, line := range ordered {
		orderedQty[line.ProductID] += line.Quantity
	}

	next := make([]Line, 0, len(c.lines))
	for _, line := range c.lines {
		line.Quantity -= orderedQty[line.ProductID]
		if line.Quantity > 0 {
			next = append(next, line)
		}
	}
	if len(next) == 0 {
		return c.Clear(ctx)
	}
	return c.commit(ctx, enums.CartMutationRemove, next)
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Quantity returns the quantity held for productID, zero when absent.
func (c *Cart) Quantity(productID int64) int {
	for _, line := range c.lines {
		if line.ProductID == productID {
			return line.Quantity
		}
	}
	return 0
}

// Len returns the number of distinct products in the cart.
func (c *Cart) Len() int {
	return len(c.lines)
}

// Units returns the sum of all line quantities.
func (c *Cart) Units() int {
	total := 0
	for _, line := range c.lines {
		total += line.Quantity
	}
	return total
}

func (c *Cart) commit(ctx context.Context, op enums.CartMutation, next []Line) error {
	payload, err := json.Marshal(next)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart")
	}
	if err := c.store.Set(ctx, c.key, string(payload), c.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart")
	}
	c.lines = next
	c.record(op)
	return nil
}

func (c *Cart) record(op enums.CartMutation) {
	if c.metrics != nil {
		c.metrics.IncCartMutation(op.String())
	}
}

func decodeSnapshot(raw string) ([]Line, error) {
	var lines []Line
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	seen := make(map[int64]struct{}, len(lines))
	for _, line := range lines {
		if line.ProductID <= 0 {
			return nil, fmt.Errorf("invalid product id %d", line.ProductID)
		}
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("non-positive quantity %d for product %d", line.Quantity, line.ProductID)
		}
		if _, dup := seen[line.ProductID]; dup {
			return nil, fmt.Errorf("duplicate product %d", line.ProductID)
		}
		seen[line.ProductID] = struct{}{}
	}
	return lines, nil
}
