package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler_Health(t *testing.T) {
	h := NewHealthHandler("CRM Backend API", "1.0.0", nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	h.Health(c)

	require.Equal(t, http.StatusOK, w.Code)
	var data HealthResponse
	dataOf(t, w, &data)
	assert.Equal(t, "ok", data.Status)
	assert.Equal(t, "CRM Backend API", data.Name)
	assert.NotEmpty(t, data.GoVersion)
	assert.NotEmpty(t, data.Uptime)
}

func TestHealthHandler_Ready(t *testing.T) {
	up := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	t.Run("all up", func(t *testing.T) {
		h := NewHealthHandler("crm", "1", map[string]Pinger{"store": up, "redis": up})
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/health/ready", nil)

		h.Ready(c)

		require.Equal(t, http.StatusOK, w.Code)
		var data ReadyResponse
		dataOf(t, w, &data)
		assert.True(t, data.Ready)
		assert.Equal(t, map[string]string{"store": "up", "redis": "up"}, data.Checks)
	})

	t.Run("one down", func(t *testing.T) {
		h := NewHealthHandler("crm", "1", map[string]Pinger{"store": up, "redis": down})
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/health/ready", nil)

		h.Ready(c)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		resp := decode(t, w)
		assert.False(t, resp.Success)
		data := resp.Data.(map[string]any)
		assert.Equal(t, false, data["ready"])
		assert.Equal(t, "down", data["checks"].(map[string]any)["redis"])
	})

	t.Run("no checks", func(t *testing.T) {
		h := NewHealthHandler("crm", "1", nil)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/health/ready", nil)

		h.Ready(c)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
