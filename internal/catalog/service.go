package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/angelmondragon/cloudcore-storefront/pkg/commerce"
	pkgerrors "github.com/angelmondragon/cloudcore-storefront/pkg/errors"
	"github.com/angelmondragon/cloudcore-storefront/pkg/logger"
)

// DefaultErrorMessage is reported when a failed refresh carries no message.
const DefaultErrorMessage = "Something went wrong"

const refreshKey = "catalog"

type productSource interface {
	ListProducts(ctx context.Context) ([]commerce.Product, error)
	ImageURL(image string) string
}

type refreshObserver interface {
	ObserveCatalogRefresh(duration time.Duration, products int, err error)
}

// Snapshot is a point-in-time copy of the catalog state.
type Snapshot struct {
	Products    []commerce.Product `json:"products"`
	Loading     bool               `json:"loading"`
	Error       string             `json:"error,omitempty"`
	RefreshedAt *time.Time         `json:"refreshed_at,omitempty"`
}

// Service holds the catalog snapshot fetched from the commerce API.
type Service struct {
	source  productSource
	logg    *logger.Logger
	metrics refreshObserver
	group   singleflight.Group
	now     func() time.Time

	mu          sync.RWMutex
	products    []commerce.Product
	index       map[int64]int
	loading     bool
	errMessage  string
	loaded      bool
	refreshedAt time.Time
}

// NewService builds a catalog service. metrics may be nil.
func NewService(source productSource, logg *logger.Logger, metrics refreshObserver) (*Service, error) {
	if source == nil {
		return nil, fmt.Errorf("product source required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		source:  source,
		logg:    logg,
		metrics: metrics,
		now:     time.Now,
		index:   map[int64]int{},
	}, nil
}

// Refresh fetches the catalog once. Concurrent callers share the in-flight
// fetch. On failure the previous snapshot is kept and the error recorded.
func (s *Service) Refresh(ctx context.Context) error {
	ch := s.group.DoChan(refreshKey, func() (any, error) {
		return nil, s.fetch(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EnsureLoaded refreshes only when no snapshot has ever been loaded.
func (s *Service) EnsureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.Refresh(ctx)
}

func (s *Service) fetch(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.errMessage = ""
	s.mu.Unlock()

	started := s.now()
	products, err := s.source.ListProducts(ctx)
	if s.metrics != nil {
		s.metrics.ObserveCatalogRefresh(s.now().Sub(started), len(products), err)
	}

	if err != nil {
		message := failureMessage(err)
		s.mu.Lock()
		s.loading = false
		s.errMessage = message
		s.mu.Unlock()
		s.logg.Error(s.logg.WithField(ctx, "error_message", message), "catalog refresh failed", err)
		return err
	}

	unique, index, dropped := dedupe(products)
	if len(dropped) > 0 {
		s.logg.Warn(s.logg.WithField(ctx, "duplicate_ids", dropped), "dropped duplicate catalog products")
	}

	s.mu.Lock()
	s.products = unique
	s.index = index
	s.loading = false
	s.loaded = true
	s.refreshedAt = s.now()
	s.mu.Unlock()

	s.logg.Info(s.logg.WithField(ctx, "products", len(unique)), "catalog refreshed")
	return nil
}

// Snapshot returns the current products together with the loading and error state.
func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Products: append([]commerce.Product(nil), s.products...),
		Loading:  s.loading,
		Error:    s.errMessage,
	}
	if snap.Products == nil {
		snap.Products = []commerce.Product{}
	}
	if s.loaded {
		refreshedAt := s.refreshedAt
		snap.RefreshedAt = &refreshedAt
	}
	return snap
}

// Products returns a copy of the product list in upstream order.
func (s *Service) Products() []commerce.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]commerce.Product, len(s.products))
	copy(out, s.products)
	return out
}

// Lookup finds a product by id in the current snapshot.
func (s *Service) Lookup(id int64) (commerce.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return commerce.Product{}, false
	}
	return s.products[i], true
}

// Featured returns the first n products.
func (s *Service) Featured(n int) []commerce.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 {
		return []commerce.Product{}
	}
	if n > len(s.products) {
		n = len(s.products)
	}
	out := make([]commerce.Product, n)
	copy(out, s.products[:n])
	return out
}

// ByCategory returns the products whose category id matches.
func (s *Service) ByCategory(categoryID int64) []commerce.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []commerce.Product{}
	for _, p := range s.products {
		if p.Category.ID == categoryID {
			out = append(out, p)
		}
	}
	return out
}

// ImageURL resolves a product image against the asset host.
func (s *Service) ImageURL(p commerce.Product) string {
	return s.source.ImageURL(p.Image)
}

// Run refreshes the catalog every interval until ctx is done.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// failures are already logged and recorded on the snapshot
			_ = s.Refresh(ctx)
		}
	}
}

func dedupe(products []commerce.Product) ([]commerce.Product, map[int64]int, []int64) {
	unique := make([]commerce.Product, 0, len(products))
	index := make(map[int64]int, len(products))
	var dropped []int64
	for _, p := range products {
		if _, dup := index[p.ID]; dup {
			dropped = append(dropped, p.ID)
			continue
		}
		index[p.ID] = len(unique)
		unique = append(unique, p)
	}
	return unique, index, dropped
}

func failureMessage(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		if msg := strings.TrimSpace(typed.Message()); msg != "" {
			return msg
		}
		return DefaultErrorMessage
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return DefaultErrorMessage
}
