package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appidentity "github.com/crm/backend/internal/application/identity"
	"github.com/crm/backend/internal/domain/document"
	"github.com/crm/backend/internal/infrastructure/auth"
	"github.com/crm/backend/internal/infrastructure/config"
	"github.com/crm/backend/internal/infrastructure/event"
	"github.com/crm/backend/internal/interfaces/http/middleware"
	"github.com/crm/backend/internal/testutil"
)

// apiFixture wires a store, event bus and auth stack the way the server does
type apiFixture struct {
	store       document.Store
	bus         *event.InMemoryEventBus
	jwt         *auth.JWTService
	revocations *auth.MemoryRevocationList
	authService *appidentity.AuthService
	engine      *gin.Engine
	api         *gin.RouterGroup
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	log := zap.NewNop()
	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-32-characters-long",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "test-issuer",
		MaxRefreshCount:        10,
	})
	store := testutil.NewDocumentStore(t)
	revocations := auth.NewMemoryRevocationList()
	bus := event.NewInMemoryEventBus(log)
	authService := appidentity.NewAuthService(store, jwtService, revocations, bus, log)
	authService.RegisterHandlers(bus)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	cfg := middleware.DefaultJWTConfig(jwtService)
	cfg.Revocations = revocations
	api := engine.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddlewareWithConfig(cfg))

	return &apiFixture{
		store:       store,
		bus:         bus,
		jwt:         jwtService,
		revocations: revocations,
		authService: authService,
		engine:      engine,
		api:         api,
	}
}

// signIn registers an account with the role and returns its access token
func (f *apiFixture) signIn(t *testing.T, email, role string) (string, *appidentity.LoginResult) {
	t.Helper()
	ctx := context.Background()
	_, err := f.authService.Register(ctx, appidentity.RegisterInput{
		Name:     "Test " + role,
		Email:    email,
		Password: "password123",
		Role:     role,
	})
	require.NoError(t, err)
	result, err := f.authService.Login(ctx, appidentity.LoginInput{Email: email, Password: "password123"})
	require.NoError(t, err)
	return result.AccessToken, result
}

func (f *apiFixture) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			raw, _ := json.Marshal(b)
			reader = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

// dataOf decodes the response data into out
func dataOf(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success, w.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func errCodeOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	resp := decode(t, w)
	require.NotNil(t, resp.Error, w.Body.String())
	return resp.Error.Code
}

func loginInput(email string) appidentity.LoginInput {
	return appidentity.LoginInput{Email: email, Password: "password123"}
}
