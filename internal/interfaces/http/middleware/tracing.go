// Package middleware provides the gin middleware of the CRM API.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/crm/backend/internal/infrastructure/logger"
)

// TracingConfig configures the request tracing middleware
type TracingConfig struct {
	ServiceName string
	Enabled     bool
	// SkipPathPrefixes are not traced; probes would otherwise flood the backend
	SkipPathPrefixes []string
	// TracerProvider overrides the global provider when set
	TracerProvider trace.TracerProvider
}

// DefaultTracingConfig traces everything under the service name crm-backend
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{ServiceName: "crm-backend", Enabled: true}
}

// TracingWithConfig wraps otelgin, which marks 5xx spans as failed. otelgin
// restores the request context when it returns, so span attributes are added
// by TracingAttributeInjector further down the chain.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	opts := []otelgin.Option{otelgin.WithFilter(func(r *http.Request) bool {
		for _, prefix := range cfg.SkipPathPrefixes {
			if strings.HasPrefix(r.URL.Path, prefix) {
				return false
			}
		}
		return true
	})}
	if cfg.TracerProvider != nil {
		opts = append(opts, otelgin.WithTracerProvider(cfg.TracerProvider))
	}
	return otelgin.Middleware(cfg.ServiceName, opts...)
}

// TracingAttributeInjector tags the current span with the request id and,
// once the JWT middleware has run, the user id. Use it right after
// TracingWithConfig and again after authentication.
func TracingAttributeInjector() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if requestID := getRequestID(c); requestID != "" {
				span.SetAttributes(attribute.String("request_id", requestID))
			}
			if userID := GetJWTUserID(c); userID != "" {
				span.SetAttributes(attribute.String("user_id", userID))
			}
		}
		c.Next()
	}
}

// getRequestID retrieves the request ID from the gin context or header
func getRequestID(c *gin.Context) string {
	if id := c.GetString(logger.GinRequestIDKey); id != "" {
		return id
	}
	headerID := c.GetHeader(RequestIDHeader)
	if len(headerID) > MaxRequestIDLength {
		return headerID[:MaxRequestIDLength]
	}
	return headerID
}
