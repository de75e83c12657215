// Package llm implements text generation against hosted chat-completion APIs.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"resty.dev/v3"

	"github.com/crm/backend/internal/infrastructure/logger"
)

const maxLoggedBody = 512

type startedAtKey struct{}

// StatusError is returned when the provider answers with a non-2xx status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm provider returned status %d: %s", e.StatusCode, truncate(e.Body, maxLoggedBody))
}

// NewRestyClient creates an HTTP client that logs each provider call at debug level.
// Only the request path is logged.
func NewRestyClient(name string, timeout time.Duration, log *zap.Logger) *resty.Client {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	client.AddRequestMiddleware(func(_ *resty.Client, r *resty.Request) error {
		r.SetContext(context.WithValue(r.Context(), startedAtKey{}, time.Now()))
		return nil
	})
	client.AddResponseMiddleware(func(_ *resty.Client, r *resty.Response) error {
		ctx := r.Request.Context()
		startedAt, _ := ctx.Value(startedAtKey{}).(time.Time)
		fields := []zap.Field{
			zap.String("client", name),
			zap.String("request_id", logger.GetRequestID(ctx)),
			zap.Int("status", r.StatusCode()),
			zap.Duration("latency", time.Since(startedAt)),
		}
		if r.Request.RawRequest != nil {
			fields = append(fields,
				zap.String("method", r.Request.RawRequest.Method),
				zap.String("path", r.Request.RawRequest.URL.Path),
			)
		}
		if r.IsError() {
			fields = append(fields, zap.String("resp_body", truncate(r.String(), maxLoggedBody)))
		}
		log.Debug("HTTP client request", fields...)
		return nil
	})
	return client
}

func normalizeBaseURL(baseURL string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
