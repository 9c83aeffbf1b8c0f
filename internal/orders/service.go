package orders

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cloudcore-storefront/internal/cart"
	"github.com/angelmondragon/cloudcore-storefront/internal/pricing"
	"github.com/angelmondragon/cloudcore-storefront/pkg/checkout"
	"github.com/angelmondragon/cloudcore-storefront/pkg/commerce"
	"github.com/angelmondragon/cloudcore-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/cloudcore-storefront/pkg/errors"
	"github.com/angelmondragon/cloudcore-storefront/pkg/logger"
)

const (
	msgEmptyCart  = "Your cart is empty!"
	msgRejected   = "Order failed! Please try again."
	msgUnexpected = "Something went wrong. Please try again."
)

type cartSessions interface {
	WithCart(ctx context.Context, sessionID string, fn func(*cart.Cart) error) error
}

type catalogReader interface {
	pricing.ProductLookup
	EnsureLoaded(ctx context.Context) error
}

type orderGateway interface {
	CreateOrder(ctx context.Context, req commerce.OrderRequest) (*commerce.OrderResponse, error)
}

type submissionObserver interface {
	ObserveOrderSubmission(outcome string, duration time.Duration)
}

// Service submits the visitor's cart to the merchant's order endpoint.
type Service interface {
	Submit(ctx context.Context, sessionID string, form Form) (*Result, error)
}

// Deps wires the submission service. Metrics and Reference are optional.
type Deps struct {
	Sessions  cartSessions
	Catalog   catalogReader
	Pricing   *pricing.Engine
	Gateway   orderGateway
	Guard     Guard
	Logger    *logger.Logger
	Metrics   submissionObserver
	Reference func() string
}

// Result describes an accepted order.
type Result struct {
	Reference      string                `json:"reference"`
	Subtotal       decimal.Decimal       `json:"subtotal"`
	DeliveryCharge decimal.Decimal       `json:"delivery_charge"`
	Total          decimal.Decimal       `json:"total"`
	Message        string                `json:"message,omitempty"`
	State          enums.SubmissionState `json:"state"`
	CartCleared    bool                  `json:"cart_cleared"`
}

type service struct {
	sessions  cartSessions
	catalog   catalogReader
	pricing   *pricing.Engine
	gateway   orderGateway
	guard     Guard
	logg      *logger.Logger
	metrics   submissionObserver
	reference func() string
	now       func() time.Time
}

// NewService builds the submission service.
func NewService(deps Deps) (Service, error) {
	if deps.Sessions == nil {
		return nil, fmt.Errorf("cart sessions required")
	}
	if deps.Catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if deps.Pricing == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	if deps.Gateway == nil {
		return nil, fmt.Errorf("order gateway required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	guard := deps.Guard
	if guard == nil {
		guard = NewLocalGuard()
	}
	reference := deps.Reference
	if reference == nil {
		reference = RandomReference
	}
	return &service{
		sessions:  deps.Sessions,
		catalog:   deps.Catalog,
		pricing:   deps.Pricing,
		gateway:   deps.Gateway,
		guard:     guard,
		logg:      deps.Logger,
		metrics:   deps.Metrics,
		reference: reference,
		now:       time.Now,
	}, nil
}

// RandomReference returns a display-only six digit order reference. It is not
// the merchant's order id.
func RandomReference() string {
	return strconv.Itoa(100000 + rand.IntN(900000))
}

// Accepted is the acceptance rule for an order response: HTTP 200, or a body
// whose status flag is true.
func Accepted(resp *commerce.OrderResponse) bool {
	if resp == nil {
		return false
	}
	return resp.HTTPStatus == http.StatusOK || (resp.Status != nil && *resp.Status)
}

func (s *service) Submit(ctx context.Context, sessionID string, form Form) (*Result, error) {
	started := s.now()
	ctx = s.logg.WithSessionID(ctx, sessionID)
	track := newTracker(ctx, s.logg)

	release, acquired, err := s.guard.TryAcquire(ctx, sessionID)
	if err != nil {
		s.observe(enums.SubmissionOutcomeFailed, started)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, msgUnexpected)
	}
	if !acquired {
		s.observe(enums.SubmissionOutcomeInFlight, started)
		return nil, pkgerrors.New(pkgerrors.CodeSubmissionInFlight, "an order submission is already in progress for this cart")
	}
	defer release()

	track.to(enums.SubmissionStateValidating)

	form = form.Normalize()
	if err := form.Validate(); err != nil {
		track.to(enums.SubmissionStateRejected)
		s.observe(enums.SubmissionOutcomeInvalidForm, started)
		return nil, err
	}

	var lines []cart.Line
	if err := s.sessions.WithCart(ctx, sessionID, func(c *cart.Cart) error {
		lines = c.Lines()
		return nil
	}); err != nil {
		track.to(enums.SubmissionStateFailed)
		s.observe(enums.SubmissionOutcomeFailed, started)
		return nil, err
	}
	if len(lines) == 0 {
		track.to(enums.SubmissionStateRejected)
		s.observe(enums.SubmissionOutcomeEmptyCart, started)
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, msgEmptyCart)
	}

	if err := s.catalog.EnsureLoaded(ctx); err != nil {
		track.to(enums.SubmissionStateFailed)
		s.observe(enums.SubmissionOutcomeFailed, started)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, msgUnexpected)
	}
	if err := s.checkStock(lines); err != nil {
		track.to(enums.SubmissionStateRejected)
		s.observe(enums.SubmissionOutcomeStockConflict, started)
		return nil, err
	}

	subtotal := s.pricing.Subtotal(lines, s.catalog)
	delivery := s.pricing.DeliveryCharge(form.Address)
	req := buildOrderRequest(lines, form, subtotal, delivery)

	track.to(enums.SubmissionStateSubmitting)
	resp, err := s.gateway.CreateOrder(ctx, req)
	if err == nil && resp == nil {
		err = fmt.Errorf("order endpoint returned no response")
	}
	if err != nil {
		track.to(enums.SubmissionStateFailed)
		s.observe(enums.SubmissionOutcomeFailed, started)
		s.logg.Error(ctx, "order submission failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, msgUnexpected)
	}

	if !Accepted(resp) {
		if !resp.Decoded {
			track.to(enums.SubmissionStateFailed)
			s.observe(enums.SubmissionOutcomeFailed, started)
			err := fmt.Errorf("order endpoint answered %d with an unreadable body", resp.HTTPStatus)
			s.logg.Error(ctx, "order submission failed", err)
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, msgUnexpected)
		}
		track.to(enums.SubmissionStateRejected)
		s.observe(enums.SubmissionOutcomeRejected, started)
		rejectCtx := s.logg.WithFields(ctx, map[string]any{"http_status": resp.HTTPStatus, "upstream_message": resp.Message})
		s.logg.Warn(rejectCtx, "order rejected by commerce api")
		return nil, pkgerrors.New(pkgerrors.CodeOrderRejected, msgRejected).
			WithDetails(map[string]any{"http_status": resp.HTTPStatus, "message": resp.Message})
	}

	track.to(enums.SubmissionStateAccepted)
	result := &Result{
		Reference:      s.reference(),
		Subtotal:       subtotal,
		DeliveryCharge: delivery,
		Total:          subtotal.Add(delivery),
		Message:        resp.Message,
	}
	ctx = s.logg.WithOrderRef(ctx, result.Reference)

	// the order exists upstream now; clearing must not be abandoned with the request.
	// Only the submitted lines go: the lock was released during the call.
	clearCtx := context.WithoutCancel(ctx)
	if err := s.sessions.WithCart(clearCtx, sessionID, func(c *cart.Cart) error {
		return c.Settle(clearCtx, lines)
	}); err != nil {
		s.logg.Error(clearCtx, "clear cart after accepted order", err)
		track.to(enums.SubmissionStateIdle)
		result.State = enums.SubmissionStateAccepted
	} else {
		track.to(enums.SubmissionStateCartCleared)
		result.State = enums.SubmissionStateCartCleared
		result.CartCleared = true
	}

	s.observe(enums.SubmissionOutcomeAccepted, started)
	s.logg.Info(s.logg.WithField(ctx, "total", result.Total.String()), "order accepted")
	return result, nil
}

func (s *service) checkStock(lines []cart.Line) error {
	items := make([]checkout.StockValidationInput, 0, len(lines))
	for _, line := range lines {
		product, ok := s.catalog.Lookup(line.ProductID)
		items = append(items, checkout.StockValidationInput{
			ProductID:   line.ProductID,
			ProductName: product.Name,
			Listed:      ok,
			Stock:       product.Stock,
			Quantity:    line.Quantity,
		})
	}
	return checkout.ValidateStock(items)
}

func (s *service) observe(outcome enums.SubmissionOutcome, started time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveOrderSubmission(outcome.String(), s.now().Sub(started))
}

func buildOrderRequest(lines []cart.Line, form Form, subtotal, delivery decimal.Decimal) commerce.OrderRequest {
	ids := make([]int64, 0, len(lines))
	qtys := make([]int, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
		qtys = append(qtys, line.Quantity)
	}
	return commerce.OrderRequest{
		ProductIDs:     commerce.JoinInts(ids),
		Quantities:     commerce.JoinInts(qtys),
		Phone:          form.Phone,
		Name:           form.Name,
		Courier:        form.Courier,
		Address:        form.Address,
		CODAmount:      commerce.Amount(subtotal),
		DeliveryCharge: commerce.Amount(delivery),
	}
}
