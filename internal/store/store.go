// Package store persists Session state: creation, atomic per-field
// mutation, participant bookkeeping, and per-participant progress cursors.
// A Redis-backed implementation shares state across frontend instances; an
// in-memory implementation backs tests and local development.
package store

import (
	"context"

	"github.com/dinhkhaphancs/live-quiz-runtime/internal/model"
)

// SessionStore is the persistence contract the game runtime depends on.
// Every mutating method is atomic with respect to other callers acting on
// the same session code.
type SessionStore interface {
	// Create allocates a new session with a unique code and returns it.
	Create(ctx context.Context, quizID, hostID string, mode model.Mode, perQuestionTimeLimit, totalQuestions int) (*model.Session, error)

	// Get returns the session for code, or ErrSessionNotFound.
	Get(ctx context.Context, code string) (*model.Session, error)

	// SetStatus transitions a session's lifecycle status.
	SetStatus(ctx context.Context, code string, status model.Status) error

	// SetPerQuestionTimeLimit overrides the session's per-question time
	// limit, as start_quiz's optional override does.
	SetPerQuestionTimeLimit(ctx context.Context, code string, seconds int) error

	// SetCurrentQuestionIndex advances the session-wide cursor used by the
	// synchronous (host-driven) play mode.
	SetCurrentQuestionIndex(ctx context.Context, code string, index int) error

	// UpsertParticipant joins userID to the session, or reconnects them if
	// they already hold a seat. created is true only the first time.
	UpsertParticipant(ctx context.Context, code, userID, username string) (participant *model.Participant, created bool, err error)

	// SetParticipantConnected flips a participant's connectivity flag.
	SetParticipantConnected(ctx context.Context, code, userID string, connected bool) error

	// RecordAnswer appends a graded AnswerRecord to a participant's
	// history and adds its points to their running score. Returns
	// ErrAlreadyAnswered if the participant already has a record for the
	// same question index.
	RecordAnswer(ctx context.Context, code, userID string, record model.AnswerRecord) error

	// SetParticipantCursor stores the independent progress cursor used by
	// the self-paced play mode.
	SetParticipantCursor(ctx context.Context, code, userID string, index int) error

	// GetParticipantCursor returns a participant's self-paced cursor,
	// defaulting to their highest answered question index (or 0 if they
	// haven't answered anything) when no cursor has been stored yet.
	GetParticipantCursor(ctx context.Context, code, userID string) (int, error)

	// IsHost reports whether userID is the session's host.
	IsHost(ctx context.Context, code, userID string) (bool, error)

	// Delete removes a session and all of its associated state.
	Delete(ctx context.Context, code string) error
}
