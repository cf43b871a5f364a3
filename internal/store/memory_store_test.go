package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dinhkhaphancs/live-quiz-runtime/internal/apperr"
	"github.com/dinhkhaphancs/live-quiz-runtime/internal/model"
)

func newTestStore() *MemoryStore {
	return NewMemoryStore(24*time.Hour, 0)
}

func TestCreateAssignsUniqueCode(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	session, err := s.Create(ctx, "quiz-1", "host-1", model.ModeLive, 30, 5)
	require.NoError(t, err)
	require.Len(t, session.Code, codeLength)
	assert.Equal(t, model.StatusWaiting, session.Status)
	assert.Empty(t, session.Participants)
}

func TestUpsertParticipantJoinAndReconnect(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	session, err := s.Create(ctx, "quiz-1", "host-1", model.ModeLive, 30, 5)
	require.NoError(t, err)

	p, created, err := s.UpsertParticipant(ctx, session.Code, "user-1", "Alice")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Alice", p.Username)
	assert.True(t, p.Connected)

	require.NoError(t, s.SetParticipantConnected(ctx, session.Code, "user-1", false))

	rec := model.AnswerRecord{QuestionIndex: 0, PointsEarned: 1200, IsCorrect: true}
	require.NoError(t, s.RecordAnswer(ctx, session.Code, "user-1", rec))

	p2, created2, err := s.UpsertParticipant(ctx, session.Code, "user-1", "")
	require.NoError(t, err)
	assert.False(t, created2)
	assert.True(t, p2.Connected)
	assert.Equal(t, "Alice", p2.Username, "reconnect without a new username keeps the old one")
	require.Len(t, p2.Answers, 1, "reconnecting must not lose answer history")
	assert.Equal(t, 1200, p2.Score)
}

func TestHostCannotJoinAsParticipant(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	session, err := s.Create(ctx, "quiz-1", "host-1", model.ModeLive, 30, 5)
	require.NoError(t, err)

	_, _, err = s.UpsertParticipant(ctx, session.Code, "host-1", "Host")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))
}

func TestUpsertParticipantRejectsOverConfiguredLimit(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour, 1)
	session, err := s.Create(ctx, "quiz-1", "host-1", model.ModeLive, 30, 5)
	require.NoError(t, err)

	_, _, err = s.UpsertParticipant(ctx, session.Code, "user-1", "Alice")
	require.NoError(t, err)

	_, _, err = s.UpsertParticipant(ctx, session.Code, "user-2", "Bob")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrSessionFull)

	// Reconnecting an already-seated participant is never blocked by the cap.
	_, _, err = s.UpsertParticipant(ctx, session.Code, "user-1", "Alice")
	require.NoError(t, err)
}

func TestRecordAnswerRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	session, err := s.Create(ctx, "quiz-1", "host-1", model.ModeLive, 30, 5)
	require.NoError(t, err)
	_, _, err = s.UpsertParticipant(ctx, session.Code, "user-1", "Alice")
	require.NoError(t, err)

	rec := model.AnswerRecord{QuestionIndex: 0, PointsEarned: 1000, IsCorrect: true}
	require.NoError(t, s.RecordAnswer(ctx, session.Code, "user-1", rec))

	err = s.RecordAnswer(ctx, session.Code, "user-1", rec)
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestParticipantCursorDefaultsFromAnswers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	session, err := s.Create(ctx, "quiz-1", "host-1", model.ModeSelfPaced, 30, 5)
	require.NoError(t, err)
	_, _, err = s.UpsertParticipant(ctx, session.Code, "user-1", "Alice")
	require.NoError(t, err)

	idx, err := s.GetParticipantCursor(ctx, session.Code, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, idx, "no answers yet means the cursor starts at question 0")

	require.NoError(t, s.RecordAnswer(ctx, session.Code, "user-1", model.AnswerRecord{QuestionIndex: 0}))
	require.NoError(t, s.RecordAnswer(ctx, session.Code, "user-1", model.AnswerRecord{QuestionIndex: 1}))

	idx, err = s.GetParticipantCursor(ctx, session.Code, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, idx, "cursor defaults to the highest answered index, not one past it")

	require.NoError(t, s.SetParticipantCursor(ctx, session.Code, "user-1", 4))
	idx, err = s.GetParticipantCursor(ctx, session.Code, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 4, idx, "an explicit cursor overrides the answer-derived default")
}

func TestGetUnknownSessionReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	_, err := s.Get(ctx, "ZZZZZZ")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
