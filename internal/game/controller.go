// Package game implements GameController: question retrieval, answer
// validation across the question-type tagged variants, time-weighted
// scoring, and per-participant progress tracking.
package game

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dinhkhaphancs/live-quiz-runtime/internal/apperr"
	"github.com/dinhkhaphancs/live-quiz-runtime/internal/model"
	"github.com/dinhkhaphancs/live-quiz-runtime/internal/quizstore"
	"github.com/dinhkhaphancs/live-quiz-runtime/internal/store"
)

var logger = log.New(log.Writer(), "[game] ", log.LstdFlags)

// AnswerResult is returned to the submitting participant.
type AnswerResult struct {
	IsCorrect      bool
	PointsEarned   int
	NewTotalScore  int
	CorrectAnswer  interface{}
	QuestionType   quizstore.QuestionType
}

// QuestionPayload is the normalized shape GetByIndex returns: the quiz
// question stripped of its answer key, plus presentation metadata.
type QuestionPayload struct {
	ID            string                 `json:"id"`
	Question      string                 `json:"question"`
	QuestionType  quizstore.QuestionType `json:"questionType"`
	Type          quizstore.QuestionType `json:"type"`
	Options       []string               `json:"options,omitempty"`
	ImageURL      string                 `json:"imageUrl,omitempty"`
	DragItems     []string               `json:"dragItems,omitempty"`
	DropTargets   []string               `json:"dropTargets,omitempty"`
	TimeRemaining float64                `json:"time_remaining"`
}

// Controller is the GameController component.
type Controller struct {
	store   store.SessionStore
	quizzes quizstore.Store
}

// NewController wires a GameController to its SessionStore and QuizStore
// collaborators.
func NewController(sessions store.SessionStore, quizzes quizstore.Store) *Controller {
	return &Controller{store: sessions, quizzes: quizzes}
}

func (c *Controller) questionAt(ctx context.Context, quizID string, index int) (*quizstore.Question, int, error) {
	quiz, err := c.quizzes.FindByID(ctx, quizID)
	if err != nil {
		return nil, 0, err
	}
	if index < 0 || index >= len(quiz.Questions) {
		return nil, len(quiz.Questions), apperr.NotFound(fmt.Sprintf("question index %d out of range", index))
	}
	q := quiz.Questions[index]
	if q.Text == "" {
		return nil, len(quiz.Questions), apperr.Invalid("question has empty text")
	}
	return &q, len(quiz.Questions), nil
}

// GetByIndex fetches the quiz question at index and normalizes it into the
// payload shape sent over the wire, computing time_remaining from the
// session's question start time in synchronous mode, or the configured
// per-question time limit in self-paced mode.
func (c *Controller) GetByIndex(ctx context.Context, code string, index int) (*QuestionPayload, int, error) {
	session, err := c.store.Get(ctx, code)
	if err != nil {
		return nil, 0, err
	}
	q, total, err := c.questionAt(ctx, session.QuizID, index)
	if err != nil {
		return nil, total, err
	}

	timeRemaining := float64(session.PerQuestionTimeLimit)
	if !session.Mode.IsSelfPaced() {
		elapsed := time.Since(session.QuestionStartedAt).Seconds()
		timeRemaining = float64(session.PerQuestionTimeLimit) - elapsed
		if timeRemaining < 0 {
			timeRemaining = 0
		}
	}

	payload := &QuestionPayload{
		ID:            q.ID,
		Question:      q.Text,
		QuestionType:  q.Type,
		Type:          q.Type,
		Options:       q.Options,
		ImageURL:      q.ImageURL,
		DragItems:     q.DragItems,
		DropTargets:   q.DropTargets,
		TimeRemaining: timeRemaining,
	}
	return payload, total, nil
}

// GetCurrentQuestion returns the normalized question at the session's
// current cursor: the session-wide cursor in synchronous mode, or the
// caller's own cursor in self-paced mode.
func (c *Controller) GetCurrentQuestion(ctx context.Context, code, userID string) (*QuestionPayload, int, error) {
	session, err := c.store.Get(ctx, code)
	if err != nil {
		return nil, 0, err
	}
	index := session.CurrentQuestionIndex
	if session.Mode.IsSelfPaced() {
		index, err = c.store.GetParticipantCursor(ctx, code, userID)
		if err != nil {
			return nil, 0, err
		}
	}
	payload, total, err := c.GetByIndex(ctx, code, index)
	return payload, total, err
}

// SubmitAnswer validates and grades a participant's answer to the question
// at questionIndex, records it, and returns the result.
func (c *Controller) SubmitAnswer(ctx context.Context, code, userID string, questionIndex int, answer interface{}, clientTimestamp float64) (*AnswerResult, error) {
	session, err := c.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if session.Status != model.StatusActive {
		return nil, apperr.Invalid("session is not active")
	}
	q, _, err := c.questionAt(ctx, session.QuizID, questionIndex)
	if err != nil {
		return nil, err
	}

	correct, err := evaluate(*q, answer)
	if err != nil {
		return nil, err
	}

	points := scoreFor(correct, clientTimestamp, session.PerQuestionTimeLimit)

	record := model.AnswerRecord{
		QuestionIndex:   questionIndex,
		Answer:          answer,
		ClientTimestamp: clientTimestamp,
		IsCorrect:       correct,
		PointsEarned:    points,
	}
	if err := c.store.RecordAnswer(ctx, code, userID, record); err != nil {
		return nil, err
	}

	updated, err := c.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	newTotal := 0
	if p, ok := updated.Participants[userID]; ok {
		newTotal = p.Score
	}

	logger.Printf("session %s: %s answered question %d correct=%v points=%d", code, userID, questionIndex, correct, points)
	return &AnswerResult{
		IsCorrect:     correct,
		PointsEarned:  points,
		NewTotalScore: newTotal,
		CorrectAnswer: correctAnswerValue(*q),
		QuestionType:  q.Type,
	}, nil
}

func correctAnswerValue(q quizstore.Question) interface{} {
	switch q.Type {
	case quizstore.QuestionSingleMCQ, quizstore.QuestionTrueFalse:
		if q.CorrectOptionIndex == nil {
			return nil
		}
		return *q.CorrectOptionIndex
	case quizstore.QuestionMultiMCQ:
		return q.CorrectOptionIndices
	case quizstore.QuestionDragAndDrop:
		return q.CorrectMatches
	default:
		return nil
	}
}

// AdvanceQuestion moves the session-wide cursor to index, for the
// host-driven synchronous play mode.
func (c *Controller) AdvanceQuestion(ctx context.Context, code string, index int) error {
	return c.store.SetCurrentQuestionIndex(ctx, code, index)
}

// NextQuestion advances the session-wide cursor by one and returns the new
// question, or ok=false once every question has been shown. This composes
// AdvanceQuestion with question lookup; the inbound next_question handler
// this backs calls an equivalent of the original's `next_question` helper,
// which isn't defined anywhere in its game controller module, so this
// follows the shape of the surrounding primitives instead (advance the
// stored cursor, then fetch by index).
func (c *Controller) NextQuestion(ctx context.Context, code string) (*QuestionPayload, int, bool, error) {
	session, err := c.store.Get(ctx, code)
	if err != nil {
		return nil, 0, false, err
	}
	nextIndex := session.CurrentQuestionIndex + 1
	if nextIndex >= session.TotalQuestions {
		return nil, nextIndex, false, nil
	}
	if err := c.store.SetCurrentQuestionIndex(ctx, code, nextIndex); err != nil {
		return nil, 0, false, err
	}
	payload, _, err := c.GetByIndex(ctx, code, nextIndex)
	if err != nil {
		return nil, nextIndex, false, err
	}
	return payload, nextIndex, true, nil
}

// NextQuestionForParticipant is the self-paced equivalent of NextQuestion:
// it advances only the calling participant's own cursor.
func (c *Controller) NextQuestionForParticipant(ctx context.Context, code, userID string) (*QuestionPayload, int, bool, error) {
	session, err := c.store.Get(ctx, code)
	if err != nil {
		return nil, 0, false, err
	}
	current, err := c.store.GetParticipantCursor(ctx, code, userID)
	if err != nil {
		return nil, 0, false, err
	}
	nextIndex := current + 1
	if nextIndex >= session.TotalQuestions {
		return nil, nextIndex, false, nil
	}
	if err := c.store.SetParticipantCursor(ctx, code, userID, nextIndex); err != nil {
		return nil, 0, false, err
	}
	payload, _, err := c.GetByIndex(ctx, code, nextIndex)
	if err != nil {
		return nil, nextIndex, false, err
	}
	return payload, nextIndex, true, nil
}

// GetAnswerDistribution tallies, for the question at index, how many
// participants submitted each distinct answer value. Grounded on
// game_controller.py's get_answer_distribution.
func (c *Controller) GetAnswerDistribution(ctx context.Context, code string, index int) (map[string]int, error) {
	session, err := c.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	dist := make(map[string]int)
	for _, p := range session.Participants {
		if a, ok := p.AnswerForQuestion(index); ok {
			key := fmt.Sprintf("%v", a.Answer)
			dist[key]++
		}
	}
	return dist, nil
}

// CheckAllAnswered reports whether every currently connected participant
// has submitted an answer for the question at index. Grounded on
// game_controller.py's check_all_answered; advisory only, it never
// triggers an automatic cursor advance.
func (c *Controller) CheckAllAnswered(ctx context.Context, code string, index int) (bool, error) {
	session, err := c.store.Get(ctx, code)
	if err != nil {
		return false, err
	}
	connected := session.ConnectedParticipants()
	if len(connected) == 0 {
		return false, nil
	}
	for _, p := range connected {
		if _, ok := p.AnswerForQuestion(index); !ok {
			return false, nil
		}
	}
	return true, nil
}

// CalculateAccuracy returns the percentage of answered questions a
// participant got right. Grounded on leaderboard_manager.py's accuracy
// computation. The value is not rounded, and the answer_result reply does
// not include it.
func (c *Controller) CalculateAccuracy(ctx context.Context, code, userID string) (float64, error) {
	session, err := c.store.Get(ctx, code)
	if err != nil {
		return 0, err
	}
	p, ok := session.Participants[userID]
	if !ok {
		return 0, apperr.ErrParticipantNotFound
	}
	if len(p.Answers) == 0 {
		return 0, nil
	}
	correct := 0
	for _, a := range p.Answers {
		if a.IsCorrect {
			correct++
		}
	}
	return float64(correct) / float64(len(p.Answers)) * 100, nil
}
