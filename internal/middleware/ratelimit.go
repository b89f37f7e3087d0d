package middleware

import (
	"net"      // Splitting host from port
	"net/http" // HTTP status codes
	"sync"     // Mutex for the visitor map
	"time"     // Visitor expiry

	"github.com/gin-gonic/gin" // Gin web framework
	"golang.org/x/time/rate"   // Token bucket rate limiter
)

// visitor tracks one client's limiter and last activity
type visitor struct {
	limiter  *rate.Limiter // Token bucket for this client
	lastSeen time.Time     // Last request time, used for cleanup
}

// ipRateLimiter keeps a token bucket per client IP
type ipRateLimiter struct {
	mu       sync.Mutex          // Protects visitors
	visitors map[string]*visitor // Per-IP state
	rps      rate.Limit          // Refill rate
	burst    int                 // Bucket size
}

// newIPRateLimiter creates a limiter and starts its cleanup loop
func newIPRateLimiter(rps float64, burst int) *ipRateLimiter {
	rl := &ipRateLimiter{
		visitors: make(map[string]*visitor), // Empty visitor map
		rps:      rate.Limit(rps),           // Refill rate
		burst:    burst,                     // Bucket size
	}
	go rl.cleanup() // Evict idle visitors in the background
	return rl
}

// getLimiter returns the limiter for an IP, creating it on first sight
func (rl *ipRateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	v, exists := rl.visitors[ip]
	if !exists {
		limiter := rate.NewLimiter(rl.rps, rl.burst)                      // New bucket for a new client
		rl.visitors[ip] = &visitor{limiter: limiter, lastSeen: time.Now()} // Track it
		return limiter
	}
	v.lastSeen = time.Now() // Refresh activity
	return v.limiter
}

// cleanup drops visitors idle for more than ten minutes
func (rl *ipRateLimiter) cleanup() {
	for {
		time.Sleep(10 * time.Minute)
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if time.Since(v.lastSeen) > 10*time.Minute {
				delete(rl.visitors, ip) // Evict idle client
			}
		}
		rl.mu.Unlock()
	}
}

// RateLimit limits requests per client IP. Applied to the admin API,
// where the static password would otherwise be open to unbounded guessing.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	rl := newIPRateLimiter(rps, burst) // Shared limiter state
	return func(c *gin.Context) {
		ip, _, err := net.SplitHostPort(c.Request.RemoteAddr) // Strip the port
		if err != nil {
			ip = c.Request.RemoteAddr // Already a bare host
		}
		if !rl.getLimiter(ip).Allow() {
			// Over the limit, reject without touching the handler
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "error": "Слишком много запросов"})
			return
		}
		c.Next() // Within the limit, proceed
	}
}
