package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 注文コアのカウンタ。/metrics で公開する。
var (
	CheckoutAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "checkout_attempts_total",
		Help:      "Total number of checkout attempts.",
	})

	CheckoutFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "checkout_failures_total",
		Help:      "Total number of failed checkouts.",
	})

	OrdersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "orders_placed_total",
		Help:      "Total number of orders created.",
	})

	//コミット済み注文のカート掃除に失敗した回数。注文は失敗しない。
	CartClearFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "cart_clear_failures_total",
		Help:      "Total number of best-effort cart clears that failed after checkout.",
	})

	OrderStatusUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "order_status_updates_total",
		Help:      "Total number of successful order status transitions.",
	}, []string{"status"})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
