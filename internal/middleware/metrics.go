// Package middleware provides the Gin HTTP middleware for the FamilyVault API.
// Everything here is registered in internal/api/router.go ahead of the route
// handlers so every request is covered.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/familyvault/familyvault/internal/telemetry"
)

// MetricsMiddleware records http_requests_total{method, path, status} and
// http_request_duration_seconds{method, path} for every request.
//
// The path label uses c.FullPath() — the matched route template such as
// /api/v1/documents/:id/download — never the raw URL, so label cardinality
// stays bounded. Unmatched requests (404/405) are recorded under the sentinel
// "<no-route>".
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "<no-route>"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		telemetry.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		telemetry.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
