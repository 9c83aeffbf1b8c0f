package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storefront"

// StorefrontMetrics records catalog, cart and checkout activity. A nil receiver
// or one built without a registerer is a no-op.
type StorefrontMetrics struct {
	catalogRefresh  *prometheus.CounterVec
	catalogDuration prometheus.Histogram
	catalogProducts prometheus.Gauge
	cartMutations   *prometheus.CounterVec
	orderOutcomes   *prometheus.CounterVec
	orderDuration   prometheus.Histogram
}

// New registers the storefront metrics on the provided registerer.
func New(reg prometheus.Registerer) *StorefrontMetrics {
	if reg == nil {
		return &StorefrontMetrics{}
	}
	m := &StorefrontMetrics{
		catalogRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_refresh_total",
			Help:      "Catalog fetches from the commerce API by result.",
		}, []string{"result"}),
		catalogDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "catalog_refresh_duration_seconds",
			Help:      "Duration of catalog fetches in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
		catalogProducts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_products",
			Help:      "Products in the current catalog snapshot.",
		}),
		cartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Cart store mutations by operation.",
		}, []string{"op"}),
		orderOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_submissions_total",
			Help:      "Order submission attempts by terminal outcome.",
		}, []string{"outcome"}),
		orderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_submission_duration_seconds",
			Help:      "Round trip of order submissions to the commerce API.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		m.catalogRefresh,
		m.catalogDuration,
		m.catalogProducts,
		m.cartMutations,
		m.orderOutcomes,
		m.orderDuration,
	)
	return m
}

// ObserveCatalogRefresh records one catalog fetch.
func (m *StorefrontMetrics) ObserveCatalogRefresh(duration time.Duration, products int, err error) {
	if m == nil || m.catalogRefresh == nil {
		return
	}
	m.catalogDuration.Observe(duration.Seconds())
	if err != nil {
		m.catalogRefresh.WithLabelValues("failure").Inc()
		return
	}
	m.catalogRefresh.WithLabelValues("success").Inc()
	m.catalogProducts.Set(float64(products))
}

// IncCartMutation counts an add/remove/clear against the cart store.
func (m *StorefrontMetrics) IncCartMutation(op string) {
	if m == nil || m.cartMutations == nil {
		return
	}
	m.cartMutations.WithLabelValues(normalizeLabel(op)).Inc()
}

// ObserveOrderSubmission records where a submission attempt ended.
func (m *StorefrontMetrics) ObserveOrderSubmission(outcome string, duration time.Duration) {
	if m == nil || m.orderOutcomes == nil {
		return
	}
	m.orderOutcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
	if duration > 0 {
		m.orderDuration.Observe(duration.Seconds())
	}
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
