package wsapi

import (
	"context"
	"encoding/json"
	"testing"
	"time"

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
			{ID: "q2", Type: quizstore.QuestionSingleMCQ, Text: "3+3?", Options: []string{"6", "7"}, CorrectOptionIndex: correctIndex(0), TimeLimitSeconds: 30},
		},
	}
}

type testEnv struct {
	svc     *Service
	store   store.SessionStore
	hub     *dispatch.Hub
	session *model.Session
}

func newTestEnv(t *testing.T, mode model.Mode) *testEnv {
	t.Helper()
	sessions := store.NewMemoryStore(time.Hour, 0)
	quizzes := quizstore.NewMemoryStore()
	quizzes.Seed(sampleQuiz())
	controller := game.NewController(sessions, quizzes)
	hub := dispatch.NewHub()
	go hub.Run(context.Background())

	svc := NewService(sessions, controller, hub)

	session, err := sessions.Create(context.Background(), "quiz-1", "host-1", mode, 30, 2)
	require.NoError(t, err)

	return &testEnv{svc: svc, store: sessions, hub: hub, session: session}
}

func connect(env *testEnv, userID string, isHost bool) *dispatch.Client {
	cl := &dispatch.Client{
		ID:     userID + "-conn",
		Code:   env.session.Code,
		UserID: userID,
		IsHost: isHost,
		Send:   make(chan []byte, 16),
	}
	env.hub.GetRegisterChan() <- cl
	time.Sleep(time.Millisecond)
	return cl
}

func drain(t *testing.T, cl *dispatch.Client) []dispatch.Event {
	t.Helper()
	var events []dispatch.Event
	for {
		select {
		case raw := <-cl.Send:
			var e dispatch.Event
			require.NoError(t, json.Unmarshal(raw, &e))
			events = append(events, e)
		case <-time.After(10 * time.Millisecond):
			return events
		}
	}
}

func envelope(t *testing.T, msgType dispatch.InboundType, payload interface{}) dispatch.Envelope {
	t.Helper()
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		raw = b
	}
	return dispatch.Envelope{Type: msgType, Payload: raw}
}

func eventTypes(events []dispatch.Event) []dispatch.EventType {
	out := make([]dispatch.EventType, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

func TestHandleJoinUpsertsParticipantAndBroadcasts(t *testing.T) {
	env := newTestEnv(t, model.ModeLive)
	host := connect(env, "host-1", true)
	participant := connect(env, "user-1", false)
	drain(t, host)
	drain(t, participant)

	ctx := context.Background()
	env.svc.HandleMessage(ctx, participant, envelope(t, dispatch.InboundJoin, joinPayload{Username: "Alice"}))

	participantEvents := drain(t, participant)
	require.Contains(t, eventTypes(participantEvents), dispatch.EventSessionState)

	hostEvents := drain(t, host)
	require.Contains(t, eventTypes(hostEvents), dispatch.EventSessionUpdate)

	session, err := env.store.Get(ctx, env.session.Code)
	require.NoError(t, err)
	require.Contains(t, session.Participants, "user-1")
	require.Equal(t, "Alice", session.Participants["user-1"].Username)
}

func TestHandleJoinRejectsLateJoinForNewParticipant(t *testing.T) {
	env := newTestEnv(t, model.ModeLive)
	ctx := context.Background()
	require.NoError(t, env.store.SetStatus(ctx, env.session.Code, model.StatusActive))

	latecomer := connect(env, "user-2", false)
	env.svc.HandleMessage(ctx, latecomer, envelope(t, dispatch.InboundJoin, joinPayload{Username: "Bob"}))

	events := drain(t, latecomer)
	require.Contains(t, eventTypes(events), dispatch.EventError)

	session, err := env.store.Get(ctx, env.session.Code)
	require.NoError(t, err)
	require.NotContains(t, session.Participants, "user-2")
}

func TestHandleStartQuizRequiresHost(t *testing.T) {
	env := newTestEnv(t, model.ModeLive)
	ctx := context.Background()
	_, _, err := env.store.UpsertParticipant(ctx, env.session.Code, "user-1", "Alice")
	require.NoError(t, err)
	participant := connect(env, "user-1", false)
	drain(t, participant)

	env.svc.HandleMessage(ctx, participant, envelope(t, dispatch.InboundStartQuiz, nil))

	events := drain(t, participant)
	require.Contains(t, eventTypes(events), dispatch.EventError)

	session, err := env.store.Get(ctx, env.session.Code)
	require.NoError(t, err)
	require.Equal(t, model.StatusWaiting, session.Status)
}

func TestHandleStartQuizActivatesAndAppliesTimeLimitOverride(t *testing.T) {
	env := newTestEnv(t, model.ModeLive)
	ctx := context.Background()
	host := connect(env, "host-1", true)
	drain(t, host)

	env.svc.HandleMessage(ctx, host, envelope(t, dispatch.InboundStartQuiz, startQuizPayload{PerQuestionTimeLimit: 15}))

	events := drain(t, host)
	require.Contains(t, eventTypes(events), dispatch.EventQuizStarted)
	require.Contains(t, eventTypes(events), dispatch.EventQuestion)

	session, err := env.store.Get(ctx, env.session.Code)
	require.NoError(t, err)
	require.Equal(t, model.StatusActive, session.Status)
	require.Equal(t, 15, session.PerQuestionTimeLimit)
	require.Equal(t, 0, session.CurrentQuestionIndex)
}

func TestHandleSubmitAnswerGradesAndBroadcastsLeaderboard(t *testing.T) {
	env := newTestEnv(t, model.ModeLive)
	ctx := context.Background()
	_, _, err := env.store.UpsertParticipant(ctx, env.session.Code, "user-1", "Alice")
	require.NoError(t, err)
	require.NoError(t, env.store.SetStatus(ctx, env.session.Code, model.StatusActive))
	require.NoError(t, env.store.SetCurrentQuestionIndex(ctx, env.session.Code, 0))

	participant := connect(env, "user-1", false)
	drain(t, participant)

	answer, err := json.Marshal(1)
	require.NoError(t, err)
	env.svc.HandleMessage(ctx, participant, envelope(t, dispatch.InboundSubmitAnswer, submitAnswerPayload{
		Answer: answer, Timestamp: 5,
	}))

	events := drain(t, participant)
	require.Contains(t, eventTypes(events), dispatch.EventAnswerResult)
	require.Contains(t, eventTypes(events), dispatch.EventLeaderboardUpdate)

	session, err := env.store.Get(ctx, env.session.Code)
	require.NoError(t, err)
	require.True(t, session.Participants["user-1"].Score > 0)
}

func TestHandleNextQuestionEndsQuizWhenExhausted(t *testing.T) {
	env := newTestEnv(t, model.ModeLive)
	ctx := context.Background()
	require.NoError(t, env.store.SetStatus(ctx, env.session.Code, model.StatusActive))
	require.NoError(t, env.store.SetCurrentQuestionIndex(ctx, env.session.Code, 1))

	host := connect(env, "host-1", true)
	drain(t, host)

	env.svc.HandleMessage(ctx, host, envelope(t, dispatch.InboundNextQuestion, nil))

	events := drain(t, host)
	require.Contains(t, eventTypes(events), dispatch.EventQuizEnded)

	session, err := env.store.Get(ctx, env.session.Code)
	require.NoError(t, err)
	require.Equal(t, model.StatusCompleted, session.Status)
}

func TestHandleRequestNextQuestionAdvancesOwnCursorOnly(t *testing.T) {
	env := newTestEnv(t, model.ModeSelfPaced)
	ctx := context.Background()
	_, _, err := env.store.UpsertParticipant(ctx, env.session.Code, "user-1", "Alice")
	require.NoError(t, err)
	require.NoError(t, env.store.SetStatus(ctx, env.session.Code, model.StatusActive))
	require.NoError(t, env.store.SetParticipantCursor(ctx, env.session.Code, "user-1", 0))

	participant := connect(env, "user-1", false)
	drain(t, participant)

	env.svc.HandleMessage(ctx, participant, envelope(t, dispatch.InboundRequestNextQuestion, nil))

	events := drain(t, participant)
	require.Contains(t, eventTypes(events), dispatch.EventQuestion)

	idx, err := env.store.GetParticipantCursor(ctx, env.session.Code, "user-1")
	require.NoError(t, err)
	require.Equal(t, 1, idx)
}

func TestHandleRequestNextQuestionCompletesIndividuallyWhenExhausted(t *testing.T) {
	env := newTestEnv(t, model.ModeSelfPaced)
	ctx := context.Background()
	_, _, err := env.store.UpsertParticipant(ctx, env.session.Code, "user-1", "Alice")
	require.NoError(t, err)
	require.NoError(t, env.store.SetStatus(ctx, env.session.Code, model.StatusActive))
	require.NoError(t, env.store.SetParticipantCursor(ctx, env.session.Code, "user-1", 1))

	participant := connect(env, "user-1", false)
	drain(t, participant)

	env.svc.HandleMessage(ctx, participant, envelope(t, dispatch.InboundRequestNextQuestion, nil))

	events := drain(t, participant)
	require.Contains(t, eventTypes(events), dispatch.EventQuizCompleted)

	session, err := env.store.Get(ctx, env.session.Code)
	require.NoError(t, err)
	require.Equal(t, model.StatusActive, session.Status, "self-paced completion is per-participant, the session itself doesn't end")
}

func TestHandleEndQuizRequiresHost(t *testing.T) {
	env := newTestEnv(t, model.ModeLive)
	ctx := context.Background()
	_, _, err := env.store.UpsertParticipant(ctx, env.session.Code, "user-1", "Alice")
	require.NoError(t, err)
	require.NoError(t, env.store.SetStatus(ctx, env.session.Code, model.StatusActive))

	participant := connect(env, "user-1", false)
	drain(t, participant)

	env.svc.HandleMessage(ctx, participant, envelope(t, dispatch.InboundEndQuiz, nil))

	events := drain(t, participant)
	require.Contains(t, eventTypes(events), dispatch.EventError)
}

func TestDisconnectMarksParticipantDisconnected(t *testing.T) {
	env := newTestEnv(t, model.ModeLive)
	ctx := context.Background()
	_, _, err := env.store.UpsertParticipant(ctx, env.session.Code, "user-1", "Alice")
	require.NoError(t, err)

	participant := connect(env, "user-1", false)

	env.hub.GetUnregisterChan() <- participant
	time.Sleep(5 * time.Millisecond)

	session, err := env.store.Get(ctx, env.session.Code)
	require.NoError(t, err)
	require.False(t, session.Participants["user-1"].Connected)
}

func TestHandlePingRepliesWithPong(t *testing.T) {
	env := newTestEnv(t, model.ModeLive)
	ctx := context.Background()
	_, _, err := env.store.UpsertParticipant(ctx, env.session.Code, "user-1", "Alice")
	require.NoError(t, err)

	participant := connect(env, "user-1", false)
	drain(t, participant)

	env.svc.HandleMessage(ctx, participant, envelope(t, dispatch.InboundPing, nil))

	events := drain(t, participant)
	require.Contains(t, eventTypes(events), dispatch.EventPong)
}

func TestHandleRequestAnswerStatsRequiresHost(t *testing.T) {
	env := newTestEnv(t, model.ModeLive)
	ctx := context.Background()
	_, _, err := env.store.UpsertParticipant(ctx, env.session.Code, "user-1", "Alice")
	require.NoError(t, err)

	participant := connect(env, "user-1", false)
	drain(t, participant)

	env.svc.HandleMessage(ctx, participant, envelope(t, dispatch.InboundRequestAnswerStats, nil))

	events := drain(t, participant)
	require.Contains(t, eventTypes(events), dispatch.EventError)
}
