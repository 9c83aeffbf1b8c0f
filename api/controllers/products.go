package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/cloudcore-storefront/api/responses"
	"github.com/angelmondragon/cloudcore-storefront/api/validators"
	"github.com/angelmondragon/cloudcore-storefront/internal/catalog"
	"github.com/angelmondragon/cloudcore-storefront/pkg/commerce"
	pkgerrors "github.com/angelmondragon/cloudcore-storefront/pkg/errors"
	"github.com/angelmondragon/cloudcore-storefront/pkg/logger"
	"github.com/angelmondragon/cloudcore-storefront/pkg/pagination"
)

// CatalogService is the catalog surface the HTTP layer reads from.
type CatalogService interface {
	EnsureLoaded(ctx context.Context) error
	Refresh(ctx context.Context) error
	Snapshot() catalog.Snapshot
	Lookup(id int64) (commerce.Product, bool)
	Featured(n int) []commerce.Product
	ByCategory(categoryID int64) []commerce.Product
	ImageURL(p commerce.Product) string
}

type productView struct {
	commerce.Product
	ImageURL string `json:"image_url"`
}

type productListResponse struct {
	Products   []productView `json:"products"`
	Loading    bool          `json:"loading"`
	Error      string        `json:"error,omitempty"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

func productID(p commerce.Product) int64 { return p.ID }

func toProductViews(svc CatalogService, products []commerce.Product) []productView {
	out := make([]productView, 0, len(products))
	for _, p := range products {
		out = append(out, productView{Product: p, ImageURL: svc.ImageURL(p)})
	}
	return out
}

// ensureCatalog loads the catalog on first use. A failure is only fatal when
// there is no earlier snapshot to serve.
func ensureCatalog(ctx context.Context, svc CatalogService, logg *logger.Logger) error {
	err := svc.EnsureLoaded(ctx)
	if err == nil {
		return nil
	}
	if snap := svc.Snapshot(); snap.RefreshedAt != nil {
		logg.Warn(ctx, "serving stale catalog")
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "catalog unavailable")
}

// ProductList returns the catalog, optionally filtered by category_id. Passing
// limit or cursor pages through the result in catalog order.
func ProductList(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		categoryID, filtered, err := validators.ParseOptionalQueryID(r, "category_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))
		if err := ensureCatalog(ctx, svc, logg); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		snap := svc.Snapshot()
		products := snap.Products
		if filtered {
			products = svc.ByCategory(categoryID)
		}

		var next string
		if limit > 0 || cursor != "" {
			products, next, err = pagination.Slice(products, productID, pagination.Params{Limit: limit, Cursor: cursor})
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor").WithDetails(map[string]any{"field": "cursor"}))
				return
			}
		}
		responses.WriteSuccess(w, productListResponse{
			Products:   toProductViews(svc, products),
			Loading:    snap.Loading,
			Error:      snap.Error,
			NextCursor: next,
		})
	}
}

// ProductFeatured returns the first products of the catalog for the home page.
func ProductFeatured(svc CatalogService, count int, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		n, err := validators.ParseQueryInt(r, "limit", count, 1, 100)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := ensureCatalog(ctx, svc, logg); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"products": toProductViews(svc, svc.Featured(n))})
	}
}

// ProductDetail returns a single product by id.
func ProductDetail(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := validators.ParsePathID(r, "productId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := ensureCatalog(ctx, svc, logg); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		product, ok := svc.Lookup(id)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
			return
		}
		responses.WriteSuccess(w, productView{Product: product, ImageURL: svc.ImageURL(product)})
	}
}

// ProductRefresh forces a catalog fetch and returns the resulting state.
func ProductRefresh(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if err := svc.Refresh(ctx); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "catalog refresh failed"))
			return
		}
		snap := svc.Snapshot()
		responses.WriteSuccess(w, map[string]any{
			"products":     len(snap.Products),
			"refreshed_at": snap.RefreshedAt,
		})
	}
}
