package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gin-gonic/gin" // Gin web framework
)

// Business event counters exposed at /metrics
var (
	// RegisteredUsers counts successful registrations, labelled by whether a referral code was used
	RegisteredUsers = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "promo_registered_users_total",
		Help: "Total number of registered users.",
	}, []string{"referred"})

	// Logins counts successful logins
	Logins = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "promo_logins_total",
		Help: "Total number of successful logins.",
	})

	// WithdrawalRequests counts accepted withdrawal requests
	WithdrawalRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "promo_withdrawal_requests_total",
		Help: "Total number of accepted withdrawal requests.",
	})

	// AdminBalanceOps counts admin balance mutations, labelled by action
	AdminBalanceOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "promo_admin_balance_ops_total",
		Help: "Total number of admin balance mutations.",
	}, []string{"action"})
)

func init() {
	prometheus.MustRegister(RegisteredUsers, Logins, WithdrawalRequests, AdminBalanceOps)
}

// Handler returns the /metrics endpoint handler
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request) // Serve the default prometheus registry
	}
}
