package handler

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crm/backend/internal/application/chatbot"
	"github.com/crm/backend/internal/domain/chat"
	"github.com/crm/backend/internal/domain/document"
	"github.com/crm/backend/internal/infrastructure/cache"
	"github.com/crm/backend/internal/interfaces/http/dto"
	"github.com/crm/backend/internal/interfaces/http/middleware"
	"github.com/crm/backend/internal/testutil"
)

func setupChatbotRouter(t *testing.T, gen chat.TextGenerator, limiter *middleware.RateLimiter) *apiFixture {
	t.Helper()
	f := newAPIFixture(t)
	testutil.Seed(t, f.store, document.CollectionCustomers, map[string]document.Fields{
		"cust-1": {"name": "Acme", "riskLevel": "High"},
	})
	assembler := chatbot.NewContextAssembler(f.store, cache.NewInMemorySnapshotCache(), chatbot.DefaultAssemblerConfig(), nil, zap.NewNop())
	assembler.RegisterHandlers(f.bus)
	svc := chatbot.NewService(assembler, chatbot.NewResponder(gen, "", nil, zap.NewNop()), zap.NewNop())
	svc.RegisterHandlers(f.bus)
	h := NewChatbotHandler(svc)

	f.api.POST("/chatbot/open", h.Open)
	f.api.POST("/chatbot/close", h.Close)
	f.api.GET("/chatbot/messages", h.Transcript)
	if limiter != nil {
		f.api.POST("/chatbot/messages", middleware.RateLimitByUser(limiter), h.Send)
	} else {
		f.api.POST("/chatbot/messages", h.Send)
	}
	f.api.POST("/chatbot/context/refresh", h.RefreshContext)
	return f
}

func TestChatbotHandler_SendAndTranscript(t *testing.T) {
	gen := &testutil.StubGenerator{Answer: "Acme is high risk."}
	f := setupChatbotRouter(t, gen, nil)
	token, _ := f.signIn(t, "ana@example.com", "user")

	var view chatbot.SessionView
	w := f.do(http.MethodPost, "/api/v1/chatbot/open", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	dataOf(t, w, &view)
	assert.True(t, view.Open)
	assert.Empty(t, view.Messages)

	var sent SendMessageResponse
	w = f.do(http.MethodPost, "/api/v1/chatbot/messages", SendMessageRequest{Question: "Who is risky?"}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	dataOf(t, w, &sent)
	require.Len(t, sent.Messages, 2)
	assert.Equal(t, chat.RoleUser, sent.Messages[0].Role)
	assert.Equal(t, "Acme is high risk.", sent.Messages[1].Content)
	require.Equal(t, 1, gen.Calls())
	assert.Contains(t, gen.Prompts[0], "Acme")
	assert.NotContains(t, gen.Prompts[0], "password_hash")

	w = f.do(http.MethodGet, "/api/v1/chatbot/messages", nil, token)
	dataOf(t, w, &view)
	assert.Len(t, view.Messages, 2)
	assert.False(t, view.Awaiting)
}

func TestChatbotHandler_UpstreamFailureIsBotMessage(t *testing.T) {
	f := setupChatbotRouter(t, &testutil.StubGenerator{Err: errors.New("status 503")}, nil)
	token, _ := f.signIn(t, "ana@example.com", "user")
	f.do(http.MethodPost, "/api/v1/chatbot/open", nil, token)

	w := f.do(http.MethodPost, "/api/v1/chatbot/messages", SendMessageRequest{Question: "Hello?"}, token)

	require.Equal(t, http.StatusOK, w.Code)
	var sent SendMessageResponse
	dataOf(t, w, &sent)
	assert.Equal(t, chat.ErrorMessage, sent.Messages[1].Content)
}

func TestChatbotHandler_SendRejections(t *testing.T) {
	f := setupChatbotRouter(t, &testutil.StubGenerator{Answer: "ok"}, nil)
	token, _ := f.signIn(t, "ana@example.com", "user")

	t.Run("widget closed", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/v1/chatbot/messages", SendMessageRequest{Question: "Hi"}, token)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidState, errCodeOf(t, w))
	})

	t.Run("missing question", func(t *testing.T) {
		f.do(http.MethodPost, "/api/v1/chatbot/open", nil, token)
		w := f.do(http.MethodPost, "/api/v1/chatbot/messages", map[string]string{}, token)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("blank question", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/v1/chatbot/messages", SendMessageRequest{Question: "   "}, token)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidInput, errCodeOf(t, w))
	})
}

func TestChatbotHandler_TranscriptSurvivesClose(t *testing.T) {
	f := setupChatbotRouter(t, &testutil.StubGenerator{Answer: "ok"}, nil)
	token, _ := f.signIn(t, "ana@example.com", "user")
	f.do(http.MethodPost, "/api/v1/chatbot/open", nil, token)
	f.do(http.MethodPost, "/api/v1/chatbot/messages", SendMessageRequest{Question: "Hi"}, token)

	var view chatbot.SessionView
	dataOf(t, f.do(http.MethodPost, "/api/v1/chatbot/close", nil, token), &view)
	assert.False(t, view.Open)
	dataOf(t, f.do(http.MethodPost, "/api/v1/chatbot/open", nil, token), &view)
	assert.Len(t, view.Messages, 2)
}

func TestChatbotHandler_SendIsRateLimitedPerUser(t *testing.T) {
	limiter := middleware.NewRateLimiter(1, time.Minute)
	defer limiter.Stop()
	f := setupChatbotRouter(t, &testutil.StubGenerator{Answer: "ok"}, limiter)
	ana, _ := f.signIn(t, "ana@example.com", "user")
	bo, _ := f.signIn(t, "bo@example.com", "user")
	f.do(http.MethodPost, "/api/v1/chatbot/open", nil, ana)
	f.do(http.MethodPost, "/api/v1/chatbot/open", nil, bo)

	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/v1/chatbot/messages", SendMessageRequest{Question: "1"}, ana).Code)
	w := f.do(http.MethodPost, "/api/v1/chatbot/messages", SendMessageRequest{Question: "2"}, ana)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/v1/chatbot/messages", SendMessageRequest{Question: "1"}, bo).Code)
}

func TestChatbotHandler_RefreshContext(t *testing.T) {
	f := setupChatbotRouter(t, &testutil.StubGenerator{Answer: "ok"}, nil)
	token, _ := f.signIn(t, "ana@example.com", "user")

	var info chatbot.ContextInfo
	w := f.do(http.MethodPost, "/api/v1/chatbot/context/refresh", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	dataOf(t, w, &info)
	assert.True(t, info.Loaded)
	assert.GreaterOrEqual(t, info.DocumentCount, 2)
}
