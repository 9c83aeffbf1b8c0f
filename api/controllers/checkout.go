package controllers

import (
	"net/http"

	"github.com/angelmondragon/cloudcore-storefront/api/middleware"
	"github.com/angelmondragon/cloudcore-storefront/api/responses"
	"github.com/angelmondragon/cloudcore-storefront/api/validators"
	"github.com/angelmondragon/cloudcore-storefront/internal/orders"
	"github.com/angelmondragon/cloudcore-storefront/pkg/logger"
)

type checkoutRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Courier string `json:"courier"`
}

// Checkout submits the visitor's cart as an order.
func Checkout(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body checkoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Submit(ctx, middleware.CartSessionFromContext(ctx), orders.Form{
			Name:    body.Name,
			Phone:   body.Phone,
			Address: body.Address,
			Courier: body.Courier,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
