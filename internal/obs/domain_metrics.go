package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CheckoutSubmissionTotal counts checkout submission outcomes.
	CheckoutSubmissionTotal *prometheus.CounterVec
	// SlotResolutionTotal counts slot reference resolution outcomes by phase.
	SlotResolutionTotal *prometheus.CounterVec
	// OrderResolutionLatency records the end-to-end snapshot resolution latency per order.
	OrderResolutionLatency prometheus.Histogram
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CheckoutSubmissionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_submission_total",
			Help:      "Count of checkout submissions by result.",
		}, []string{"result"})
		SlotResolutionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_resolution_total",
			Help:      "Count of set slot reference resolutions by result and phase.",
		}, []string{"result", "phase"})
		OrderResolutionLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_resolution_duration_ms",
			Help:      "Latency of snapshot resolution per order in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		})

		mustRegisterCollector(reg, CheckoutSubmissionTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CheckoutSubmissionTotal = v
			}
		})
		mustRegisterCollector(reg, SlotResolutionTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SlotResolutionTotal = v
			}
		})
		mustRegisterCollector(reg, OrderResolutionLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				OrderResolutionLatency = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
