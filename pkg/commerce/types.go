package commerce

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Category is the product category reference returned by the catalog endpoint.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Product mirrors one entry of the merchant catalog.
type Product struct {
	ID             int64           `json:"id"`
	UniqueID       string          `json:"unique_id"`
	Name           string          `json:"name"`
	ShortDesc      string          `json:"short_desc"`
	Image          string          `json:"image"`
	Category       Category        `json:"category"`
	Price          decimal.Decimal `json:"price"`
	Stock          int             `json:"stock"`
	DiscountAmount LooseString     `json:"discount_amount"`
	IsDiscount     int             `json:"is_discount"`
	DiscountDate   *string         `json:"discount_date"`
}

// Discounted reports whether the merchant flagged the product as discounted.
func (p Product) Discounted() bool {
	return p.IsDiscount != 0
}

// LooseString accepts a JSON string, number or null. The upstream API is not
// consistent about how it encodes discount amounts.
type LooseString string

func (s *LooseString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*s = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var str string
		if err := json.Unmarshal(trimmed, &str); err != nil {
			return err
		}
		*s = LooseString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(trimmed, &num); err != nil {
		return err
	}
	*s = LooseString(num.String())
	return nil
}

// OrderRequest is the body of POST /public/order/create. Product ids and
// quantities travel as parallel comma-joined strings, not JSON arrays.
type OrderRequest struct {
	ProductIDs     string       `json:"product_ids"`
	Quantities     string       `json:"s_product_qty"`
	Phone          string       `json:"c_phone"`
	Name           string       `json:"c_name"`
	Courier        string       `json:"courier"`
	Address        string       `json:"address"`
	Advance        *json.Number `json:"advance"`
	CODAmount      json.Number  `json:"cod_amount"`
	DiscountAmount *json.Number `json:"discount_amount"`
	DeliveryCharge json.Number  `json:"delivery_charge"`
}

// JoinInts renders values as the comma-joined list the order endpoint expects.
func JoinInts[T ~int | ~int64](values []T) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, strconv.FormatInt(int64(v), 10))
	}
	return strings.Join(parts, ",")
}

// Amount converts a decimal into the bare JSON number the API expects.
func Amount(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// OrderResponse is what the order endpoint answered. Status is nil when the body
// carried no boolean status flag.
type OrderResponse struct {
	HTTPStatus int
	Status     *bool
	Message    string
	// Decoded is false when the body was not a JSON object.
	Decoded bool
}
