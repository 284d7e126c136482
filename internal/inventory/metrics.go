package inventory

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics.
var (
	itemsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "inventory_items",
			Help: "Number of items currently in the inventory",
		},
	)

	itemsAdded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inventory_items_added_total",
			Help: "Total number of items added",
		},
	)

	itemsRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inventory_items_removed_total",
			Help: "Total number of items removed",
		},
	)

	validationRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_validation_rejections_total",
			Help: "Total number of rejected item candidates by reason",
		},
		[]string{"reason"},
	)
)
