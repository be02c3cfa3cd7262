package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var requestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{Name: "launchdeck_http_requests_total", Help: "HTTP requests"},
	[]string{"method", "path", "status"},
)

func init() {
	prometheus.MustRegister(requestsTotal)
}

// Metrics counts requests per route and status. Uses the route template,
// not the raw path, to keep the label cardinality bounded.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		requestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
	}
}
