package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/dinhkhaphancs/live-quiz-runtime/internal/game"
	"github.com/dinhkhaphancs/live-quiz-runtime/internal/model"
	"github.com/dinhkhaphancs/live-quiz-runtime/internal/quizstore"
	"github.com/dinhkhaphancs/live-quiz-runtime/internal/store"
	"github.com/dinhkhaphancs/live-quiz-runtime/pkg/dispatch"
)

func correctIndex(i int) *int { return &i }

func sampleQuiz() *quizstore.Quiz {
	return &quizstore.Quiz{
		ID:    "quiz-1",
		Title: "General Knowledge",
		Questions: []quizstore.Question{
			{ID: "q1", Type: quizstore.QuestionSingleMCQ, Text: "2+2?", Options: []string{"3", "4"}, CorrectOptionIndex: correctIndex(1), TimeLimitSeconds: 30},
		},
	}
}

type testEnv struct {
	handler *Handler
	router  *gin.Engine
	store   store.SessionStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sessions := store.NewMemoryStore(time.Hour, 0)
	quizzes := quizstore.NewMemoryStore()
	quizzes.Seed(sampleQuiz())
	controller := game.NewController(sessions, quizzes)
	hub := dispatch.NewHub()
	go hub.Run(context.Background())

	h := NewHandler(sessions, quizzes, controller, hub, "http://localhost:8080")

	router := gin.New()
	group := router.Group("/multiplayer")
	group.POST("/create-session", h.CreateSession)
	group.GET("/session/:code", h.GetSession)
	group.GET("/session/:code/participants", h.Participants)
	group.POST("/session/:code/join", h.Join)
	group.POST("/session/:code/start", h.Start)
	group.POST("/session/:code/end", h.End)
	group.POST("/session/:code/validate", h.Validate)
	group.GET("/session/:code/qr", h.QRCode)

	return &testEnv{handler: h, router: router, store: sessions}
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateSessionDefaultsModeAndTimeLimit(t *testing.T) {
	env := newTestEnv(t)

	w := doJSON(t, env.router, http.MethodPost, "/multiplayer/create-session", createSessionRequest{
		QuizID: "quiz-1", HostID: "host-1",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var body struct {
		Data createSessionResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data.Code, 6)
	require.Equal(t, model.ModeLive, body.Data.Mode)
	require.Equal(t, 30, body.Data.PerQuestionTimeLimit)
	require.Equal(t, 1, body.Data.TotalQuestions)
	require.Contains(t, body.Data.JoinURL, body.Data.Code)
}

func TestCreateSessionUnknownQuizFails(t *testing.T) {
	env := newTestEnv(t)

	w := doJSON(t, env.router, http.MethodPost, "/multiplayer/create-session", createSessionRequest{
		QuizID: "does-not-exist", HostID: "host-1",
	})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestJoinThenGetSessionReflectsParticipant(t *testing.T) {
	env := newTestEnv(t)
	session, err := env.store.Create(context.Background(), "quiz-1", "host-1", model.ModeLive, 30, 1)
	require.NoError(t, err)

	w := doJSON(t, env.router, http.MethodPost, "/multiplayer/session/"+session.Code+"/join", joinSessionRequest{
		UserID: "user-1", Username: "Alice",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, env.router, http.MethodGet, "/multiplayer/session/"+session.Code+"/participants", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data []participantResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	require.Equal(t, "Alice", body.Data[0].Username)
}

func TestJoinRejectsNewParticipantAfterSessionStarted(t *testing.T) {
	env := newTestEnv(t)
	session, err := env.store.Create(context.Background(), "quiz-1", "host-1", model.ModeLive, 30, 1)
	require.NoError(t, err)
	require.NoError(t, env.store.SetStatus(context.Background(), session.Code, model.StatusActive))

	w := doJSON(t, env.router, http.MethodPost, "/multiplayer/session/"+session.Code+"/join", joinSessionRequest{
		UserID: "latecomer", Username: "Eve",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	updated, err := env.store.Get(context.Background(), session.Code)
	require.NoError(t, err)
	require.NotContains(t, updated.Participants, "latecomer")
}

func TestJoinAllowsReconnectAfterSessionStarted(t *testing.T) {
	env := newTestEnv(t)
	session, err := env.store.Create(context.Background(), "quiz-1", "host-1", model.ModeLive, 30, 1)
	require.NoError(t, err)
	_, _, err = env.store.UpsertParticipant(context.Background(), session.Code, "user-1", "Alice")
	require.NoError(t, err)
	require.NoError(t, env.store.SetStatus(context.Background(), session.Code, model.StatusActive))

	w := doJSON(t, env.router, http.MethodPost, "/multiplayer/session/"+session.Code+"/join", joinSessionRequest{
		UserID: "user-1", Username: "Alice",
	})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestStartRejectsNonHost(t *testing.T) {
	env := newTestEnv(t)
	session, err := env.store.Create(context.Background(), "quiz-1", "host-1", model.ModeLive, 30, 1)
	require.NoError(t, err)

	w := doJSON(t, env.router, http.MethodPost, "/multiplayer/session/"+session.Code+"/start", startSessionRequest{
		HostID: "not-the-host",
	})
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestStartActivatesSessionAndAppliesTimeLimitOverride(t *testing.T) {
	env := newTestEnv(t)
	session, err := env.store.Create(context.Background(), "quiz-1", "host-1", model.ModeLive, 30, 1)
	require.NoError(t, err)

	w := doJSON(t, env.router, http.MethodPost, "/multiplayer/session/"+session.Code+"/start", startSessionRequest{
		HostID: "host-1", PerQuestionTimeLimit: 15,
	})
	require.Equal(t, http.StatusOK, w.Code)

	updated, err := env.store.Get(context.Background(), session.Code)
	require.NoError(t, err)
	require.Equal(t, model.StatusActive, updated.Status)
	require.Equal(t, 15, updated.PerQuestionTimeLimit)
}

func TestEndRequiresHostAndCompletesSession(t *testing.T) {
	env := newTestEnv(t)
	session, err := env.store.Create(context.Background(), "quiz-1", "host-1", model.ModeLive, 30, 1)
	require.NoError(t, err)

	w := doJSON(t, env.router, http.MethodPost, "/multiplayer/session/"+session.Code+"/end", actionRequest{HostID: "host-1"})
	require.Equal(t, http.StatusOK, w.Code)

	updated, err := env.store.Get(context.Background(), session.Code)
	require.NoError(t, err)
	require.Equal(t, model.StatusCompleted, updated.Status)
}

func TestValidateUnknownSessionReturnsInvalidWithoutError(t *testing.T) {
	env := newTestEnv(t)

	w := doJSON(t, env.router, http.MethodPost, "/multiplayer/session/ZZZZZZ/validate", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data validateSessionResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.False(t, body.Data.Valid)
}

func TestValidateKnownSessionReportsQuizTitle(t *testing.T) {
	env := newTestEnv(t)
	session, err := env.store.Create(context.Background(), "quiz-1", "host-1", model.ModeLive, 30, 1)
	require.NoError(t, err)

	w := doJSON(t, env.router, http.MethodPost, "/multiplayer/session/"+session.Code+"/validate", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data validateSessionResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.True(t, body.Data.Valid)
	require.Equal(t, "General Knowledge", body.Data.QuizTitle)
}

func TestQRCodeReturnsPNG(t *testing.T) {
	env := newTestEnv(t)
	session, err := env.store.Create(context.Background(), "quiz-1", "host-1", model.ModeLive, 30, 1)
	require.NoError(t, err)

	w := doJSON(t, env.router, http.MethodGet, "/multiplayer/session/"+session.Code+"/qr", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "image/png", w.Header().Get("Content-Type"))
	require.NotEmpty(t, w.Body.Bytes())
}
