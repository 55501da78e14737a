package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CouponsIssued counts coupons created through survey intake.
	CouponsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "golmok_coupons_issued_total",
		Help: "Total number of coupons issued",
	})

	// RedeemDuration tracks redemption latency by outcome.
	RedeemDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "golmok_coupon_redeem_duration_seconds",
			Help:    "Duration of coupon redemption requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		},
		[]string{"result"},
	)

	// DrawsRun counts raffle draw executions.
	DrawsRun = promauto.NewCounter(prometheus.CounterOpts{
		Name: "golmok_raffle_draws_total",
		Help: "Total number of raffle draws executed",
	})
)

// RecordCouponIssued increments the issuance counter.
func RecordCouponIssued() {
	CouponsIssued.Inc()
}

// RecordRedemption records one redemption attempt and its latency.
func RecordRedemption(result string, seconds float64) {
	RedeemDuration.WithLabelValues(result).Observe(seconds)
}

// RecordDraw increments the draw counter.
func RecordDraw() {
	DrawsRun.Inc()
}
