package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/cloudcore-storefront/internal/cart"
	"github.com/angelmondragon/cloudcore-storefront/pkg/commerce"
	"github.com/angelmondragon/cloudcore-storefront/pkg/config"
	"github.com/angelmondragon/cloudcore-storefront/pkg/enums"
)

type staticCatalog map[int64]commerce.Product

func (c staticCatalog) Lookup(id int64) (commerce.Product, bool) {
	p, ok := c[id]
	return p, ok
}

type prefixImages string

func (p prefixImages) ImageURL(image string) string {
	return string(p) + image
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestDeliveryCharge(t *testing.T) {
	engine := NewEngine(DefaultTiers(), nil)

	low := []string{"Dhaka", "house 4, DHAKA 1207", "Mirpur, dhaka", "xdhakax"}
	high := []string{"", "Chittagong", "Sylhet", "Dhak a"}

	for _, address := range low {
		assert.True(t, engine.DeliveryCharge(address).Equal(dec("70")), "address %q", address)
	}
	for _, address := range high {
		assert.True(t, engine.DeliveryCharge(address).Equal(dec("150")), "address %q", address)
	}
}

func TestSubtotalIgnoresDanglingLines(t *testing.T) {
	engine := NewEngine(DefaultTiers(), nil)
	catalog := staticCatalog{
		1: {ID: 1, Price: dec("500")},
		2: {ID: 2, Price: dec("120.50")},
	}

	assert.True(t, engine.Subtotal(nil, catalog).IsZero())

	lines := []cart.Line{{ProductID: 1, Quantity: 2}, {ProductID: 99, Quantity: 5}, {ProductID: 2, Quantity: 2}}
	assert.Equal(t, "1241", engine.Subtotal(lines, catalog).String())
}

func TestTotalScenarios(t *testing.T) {
	engine := NewEngine(DefaultTiers(), nil)
	catalog := staticCatalog{1: {ID: 1, Price: dec("500")}}

	lines := []cart.Line{{ProductID: 1, Quantity: 2}}
	assert.Equal(t, "1000", engine.Subtotal(lines, catalog).String())
	assert.Equal(t, "70", engine.DeliveryCharge("Dhaka").String())
	assert.Equal(t, "1070", engine.Total(lines, catalog, "Dhaka").String())

	assert.Equal(t, "0", engine.Subtotal(nil, catalog).String())
	assert.Equal(t, "150", engine.DeliveryCharge("Chittagong").String())
	assert.Equal(t, "150", engine.Total(nil, catalog, "Chittagong").String())
}

func TestQuote(t *testing.T) {
	engine := NewEngine(DefaultTiers(), prefixImages("http://cdn/"))
	catalog := staticCatalog{
		1: {ID: 1, Name: "Linen Shirt", Image: "shirt.jpg", Price: dec("500"), Stock: 1},
		2: {ID: 2, Name: "Scarf", Image: "scarf.jpg", Price: dec("80"), Stock: 10},
	}
	lines := []cart.Line{{ProductID: 1, Quantity: 2}, {ProductID: 42, Quantity: 1}, {ProductID: 2, Quantity: 3}}

	quote := engine.Quote(lines, catalog, "Banani, Dhaka")

	require.Len(t, quote.Lines, 2)
	assert.Equal(t, []int64{42}, quote.Missing)
	assert.Equal(t, 5, quote.Units)

	first := quote.Lines[0]
	assert.Equal(t, "Linen Shirt", first.Name)
	assert.Equal(t, "http://cdn/shirt.jpg", first.ImageURL)
	assert.Equal(t, "1000", first.LineTotal.String())
	assert.True(t, first.ExceedsStock())
	assert.Equal(t, []enums.CartItemWarningType{enums.CartItemWarningTypeExceedsStock}, first.Warnings)

	assert.False(t, quote.Lines[1].ExceedsStock())
	assert.Empty(t, quote.Lines[1].Warnings)

	assert.Equal(t, "1240", quote.Subtotal.String())
	assert.Equal(t, "70", quote.DeliveryCharge.String())
	assert.Equal(t, "1310", quote.Total.String())
}

func TestQuoteEmptyCart(t *testing.T) {
	quote := NewEngine(DefaultTiers(), nil).Quote(nil, staticCatalog{}, "")
	assert.NotNil(t, quote.Lines)
	assert.NotNil(t, quote.Missing)
	assert.True(t, quote.Subtotal.IsZero())
	assert.Equal(t, "150", quote.Total.String())
}

func TestTiersFromConfig(t *testing.T) {
	tiers, err := TiersFromConfig(config.PricingConfig{LowTier: "60.5", HighTier: "120", LowTierToken: " Dhaka "})
	require.NoError(t, err)
	assert.Equal(t, "dhaka", tiers.LowToken)

	engine := NewEngine(tiers, nil)
	assert.Equal(t, "60.5", engine.DeliveryCharge("dhaka").String())
	assert.Equal(t, "120", engine.DeliveryCharge("khulna").String())

	_, err = TiersFromConfig(config.PricingConfig{LowTier: "abc", HighTier: "150", LowTierToken: "dhaka"})
	assert.Error(t, err)
	_, err = TiersFromConfig(config.PricingConfig{LowTier: "70", HighTier: "-1", LowTierToken: "dhaka"})
	assert.Error(t, err)
	_, err = TiersFromConfig(config.PricingConfig{LowTier: "70", HighTier: "150"})
	assert.Error(t, err)
}
