package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cloudcore-storefront/internal/cart"
	"github.com/angelmondragon/cloudcore-storefront/pkg/commerce"
	"github.com/angelmondragon/cloudcore-storefront/pkg/config"
	"github.com/angelmondragon/cloudcore-storefront/pkg/enums"
)

// ProductLookup resolves cart lines against the current catalog snapshot.
type ProductLookup interface {
	Lookup(id int64) (commerce.Product, bool)
}

type imageResolver interface {
	ImageURL(image string) string
}

// Tiers are the two flat delivery fees. An address containing LowToken
// (case-insensitive) pays Low; every other address, the empty one included,
// pays High.
type Tiers struct {
	Low      decimal.Decimal
	High     decimal.Decimal
	LowToken string
}

// DefaultTiers returns the storefront's stock delivery tiers.
func DefaultTiers() Tiers {
	return Tiers{
		Low:      decimal.NewFromInt(70),
		High:     decimal.NewFromInt(150),
		LowToken: "dhaka",
	}
}

// TiersFromConfig parses the configured tier amounts.
func TiersFromConfig(cfg config.PricingConfig) (Tiers, error) {
	low, err := decimal.NewFromString(strings.TrimSpace(cfg.LowTier))
	if err != nil {
		return Tiers{}, fmt.Errorf("parse low delivery tier %q: %w", cfg.LowTier, err)
	}
	high, err := decimal.NewFromString(strings.TrimSpace(cfg.HighTier))
	if err != nil {
		return Tiers{}, fmt.Errorf("parse high delivery tier %q: %w", cfg.HighTier, err)
	}
	if low.IsNegative() || high.IsNegative() {
		return Tiers{}, fmt.Errorf("delivery tiers must be non-negative")
	}
	token := strings.ToLower(strings.TrimSpace(cfg.LowTierToken))
	if token == "" {
		return Tiers{}, fmt.Errorf("low tier token must not be empty")
	}
	return Tiers{Low: low, High: high, LowToken: token}, nil
}

// Engine derives cart amounts. It holds no state besides its configuration.
type Engine struct {
	tiers  Tiers
	images imageResolver
}

// NewEngine builds a pricing engine. images may be nil, in which case quotes
// carry no image URLs.
func NewEngine(tiers Tiers, images imageResolver) *Engine {
	tiers.LowToken = strings.ToLower(tiers.LowToken)
	return &Engine{tiers: tiers, images: images}
}

// Subtotal sums quantity × price over the lines whose product resolves.
// Dangling lines contribute zero.
func (e *Engine) Subtotal(lines []cart.Line, catalog ProductLookup) decimal.Decimal {
	subtotal := decimal.Zero
	for _, line := range lines {
		product, ok := catalog.Lookup(line.ProductID)
		if !ok {
			continue
		}
		subtotal = subtotal.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return subtotal
}

// DeliveryCharge picks the delivery tier for address.
func (e *Engine) DeliveryCharge(address string) decimal.Decimal {
	if e.tiers.LowToken != "" && strings.Contains(strings.ToLower(address), e.tiers.LowToken) {
		return e.tiers.Low
	}
	return e.tiers.High
}

// Total is the subtotal plus the delivery charge.
func (e *Engine) Total(lines []cart.Line, catalog ProductLookup, address string) decimal.Decimal {
	return e.Subtotal(lines, catalog).Add(e.DeliveryCharge(address))
}

// QuoteLine is a cart line joined with its catalog product.
type QuoteLine struct {
	ProductID int64                       `json:"product_id"`
	Name      string                      `json:"name"`
	ImageURL  string                      `json:"image_url,omitempty"`
	Quantity  int                         `json:"quantity"`
	UnitPrice decimal.Decimal             `json:"unit_price"`
	LineTotal decimal.Decimal             `json:"line_total"`
	Stock     int                         `json:"stock"`
	Warnings  []enums.CartItemWarningType `json:"warnings,omitempty"`
}

// ExceedsStock reports whether the requested quantity is above the displayed stock.
func (l QuoteLine) ExceedsStock() bool {
	return l.Quantity > l.Stock
}

// Quote is the priced view of a cart.
type Quote struct {
	Lines          []QuoteLine     `json:"lines"`
	Missing        []int64         `json:"missing"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DeliveryCharge decimal.Decimal `json:"delivery_charge"`
	Total          decimal.Decimal `json:"total"`
	Units          int             `json:"units"`
}

// Quote prices every resolvable line and reports the rest as missing.
func (e *Engine) Quote(lines []cart.Line, catalog ProductLookup, address string) Quote {
	quote := Quote{
		Lines:   make([]QuoteLine, 0, len(lines)),
		Missing: []int64{},
	}
	subtotal := decimal.Zero
	for _, line := range lines {
		product, ok := catalog.Lookup(line.ProductID)
		if !ok {
			quote.Missing = append(quote.Missing, line.ProductID)
			continue
		}
		lineTotal := product.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		priced := QuoteLine{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  line.Quantity,
			UnitPrice: product.Price,
			LineTotal: lineTotal,
			Stock:     product.Stock,
		}
		if e.images != nil {
			priced.ImageURL = e.images.ImageURL(product.Image)
		}
		if priced.ExceedsStock() {
			priced.Warnings = append(priced.Warnings, enums.CartItemWarningTypeExceedsStock)
		}
		quote.Lines = append(quote.Lines, priced)
		quote.Units += line.Quantity
		subtotal = subtotal.Add(lineTotal)
	}
	quote.Subtotal = subtotal
	quote.DeliveryCharge = e.DeliveryCharge(address)
	quote.Total = subtotal.Add(quote.DeliveryCharge)
	return quote
}
