package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/cloudcore-storefront/api/middleware"
	"github.com/angelmondragon/cloudcore-storefront/api/responses"
	"github.com/angelmondragon/cloudcore-storefront/api/validators"
	"github.com/angelmondragon/cloudcore-storefront/internal/cart"
	"github.com/angelmondragon/cloudcore-storefront/internal/pricing"
	"github.com/angelmondragon/cloudcore-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/cloudcore-storefront/pkg/errors"
	"github.com/angelmondragon/cloudcore-storefront/pkg/logger"
)

const maxAddressLength = 512

// CartSessions runs a callback against one visitor's cart.
type CartSessions interface {
	WithCart(ctx context.Context, sessionID string, fn func(*cart.Cart) error) error
}

// Quoter prices a cart against the catalog.
type Quoter interface {
	Quote(lines []cart.Line, catalog pricing.ProductLookup, address string) pricing.Quote
}

// CartDeps groups what the cart handlers need.
type CartDeps struct {
	Sessions CartSessions
	Catalog  CatalogService
	Pricing  Quoter
	Logger   *logger.Logger
}

type cartResponse struct {
	SessionID string        `json:"session_id"`
	Items     []cart.Line   `json:"items"`
	Count     int           `json:"count"`
	Quote     pricing.Quote `json:"quote"`
}

type addItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

type addItemResponse struct {
	cartResponse
	Warnings []enums.CartItemWarningType `json:"warnings,omitempty"`
}

func (d CartDeps) view(ctx context.Context, sessionID string, c *cart.Cart, address string) cartResponse {
	// a missing catalog only hides prices; lines still show up as missing
	if err := d.Catalog.EnsureLoaded(ctx); err != nil {
		d.Logger.Warn(ctx, "cart priced without catalog")
	}
	lines := c.Lines()
	return cartResponse{
		SessionID: sessionID,
		Items:     lines,
		Count:     c.Len(),
		Quote:     d.Pricing.Quote(lines, d.Catalog, address),
	}
}

func addressParam(r *http.Request) string {
	return validators.SanitizeString(r.URL.Query().Get("address"), maxAddressLength)
}

// CartFetch returns the visitor's cart together with its quote.
func CartFetch(deps CartDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sessionID := middleware.CartSessionFromContext(ctx)
		var resp cartResponse
		err := deps.Sessions.WithCart(ctx, sessionID, func(c *cart.Cart) error {
			resp = deps.view(ctx, sessionID, c, addressParam(r))
			return nil
		})
		if err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// CartQuote returns only the priced view of the cart.
func CartQuote(deps CartDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sessionID := middleware.CartSessionFromContext(ctx)
		var resp cartResponse
		err := deps.Sessions.WithCart(ctx, sessionID, func(c *cart.Cart) error {
			resp = deps.view(ctx, sessionID, c, addressParam(r))
			return nil
		})
		if err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}
		responses.WriteSuccess(w, resp.Quote)
	}
}

// CartAddItem merges a product into the cart. Exceeding the displayed stock is
// reported as a warning, not refused.
func CartAddItem(deps CartDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body addItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}
		if err := ensureCatalog(ctx, deps.Catalog, deps.Logger); err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}
		product, ok := deps.Catalog.Lookup(body.ProductID)
		if !ok {
			responses.WriteError(ctx, deps.Logger, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
			return
		}

		sessionID := middleware.CartSessionFromContext(ctx)
		var resp addItemResponse
		err := deps.Sessions.WithCart(ctx, sessionID, func(c *cart.Cart) error {
			if err := c.Add(ctx, body.ProductID, body.Quantity); err != nil {
				return err
			}
			if c.Quantity(body.ProductID) > product.Stock {
				resp.Warnings = append(resp.Warnings, enums.CartItemWarningTypeExceedsStock)
			}
			resp.cartResponse = deps.view(ctx, sessionID, c, addressParam(r))
			return nil
		})
		if err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}

// CartRemoveItem drops a product from the cart; absent products are ignored.
func CartRemoveItem(deps CartDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		productID, err := validators.ParsePathID(r, "productId")
		if err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}
		sessionID := middleware.CartSessionFromContext(ctx)
		var resp cartResponse
		err = deps.Sessions.WithCart(ctx, sessionID, func(c *cart.Cart) error {
			if err := c.Remove(ctx, productID); err != nil {
				return err
			}
			resp = deps.view(ctx, sessionID, c, addressParam(r))
			return nil
		})
		if err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// CartClear empties the cart and deletes its persisted snapshot.
func CartClear(deps CartDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sessionID := middleware.CartSessionFromContext(ctx)
		var resp cartResponse
		err := deps.Sessions.WithCart(ctx, sessionID, func(c *cart.Cart) error {
			if err := c.Clear(ctx); err != nil {
				return err
			}
			resp = deps.view(ctx, sessionID, c, addressParam(r))
			return nil
		})
		if err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}
