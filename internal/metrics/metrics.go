package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sewain_orders_created_total",
		Help: "Total number of rental orders successfully created.",
	})

	OrdersCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sewain_orders_cancelled_total",
		Help: "Total number of rental orders cancelled by their owners.",
	})

	StatusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sewain_order_status_transitions_total",
		Help: "Total number of successful order status transitions.",
	},
		[]string{"to"},
	)

	ReviewsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sewain_reviews_created_total",
		Help: "Total number of product reviews accepted.",
	})

	OperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sewain_operation_errors_total",
		Help: "Total number of errors encountered during specific operations.",
	},
		[]string{"operation"},
	)

	ProductCacheItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sewain_product_cache_items",
		Help: "Current number of items in the product cache.",
	})
)
