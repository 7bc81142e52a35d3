// internal/services/metrics.go
package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	purchasesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "beatmarket",
			Name:      "purchases_total",
			Help:      "Completed purchases by license name.",
		},
		[]string{"license"},
	)

	purchaseVolumeUSD = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "beatmarket",
			Name:      "purchase_volume_usd_total",
			Help:      "Gross purchase volume in USD.",
		},
	)

	fundsReleasedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "beatmarket",
			Name:      "funds_released_total",
			Help:      "Purchases settled to producer wallets.",
		},
	)

	fundsReleasedUSD = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "beatmarket",
			Name:      "funds_released_usd_total",
			Help:      "Seller earnings released in USD.",
		},
	)

	disputesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "beatmarket",
			Name:      "disputes_total",
			Help:      "Dispute transitions by outcome.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		purchasesTotal,
		purchaseVolumeUSD,
		fundsReleasedTotal,
		fundsReleasedUSD,
		disputesTotal,
	)
}
