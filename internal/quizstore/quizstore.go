// Package quizstore defines the read-only external collaborator the game
// runtime consults for quiz content, plus an in-memory implementation used
// by tests and local development.
package quizstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/dinhkhaphancs/live-quiz-runtime/internal/apperr"
)

// QuestionType tags the shape of a Question's correct answer and of the
// AnswerRecord values a GameController will accept for it.
type QuestionType string

const (
	QuestionSingleMCQ   QuestionType = "singleMcq"
	QuestionTrueFalse   QuestionType = "trueFalse"
	QuestionMultiMCQ    QuestionType = "multiMcq"
	QuestionDragAndDrop QuestionType = "dragAndDrop"
)

// Question is one quiz question as served by a Store. Only the fields
// relevant to its Type are populated.
type Question struct {
	ID                   string
	Type                 QuestionType
	Text                 string
	Options              []string
	CorrectOptionIndex   *int
	CorrectOptionIndices []int
	CorrectMatches       map[string]string
	DragItems            []string
	DropTargets          []string
	ImageURL             string
	TimeLimitSeconds     int
}

// Public returns a copy of q with the correct-answer fields stripped, safe
// to broadcast to participants before they submit an answer.
func (q Question) Public() Question {
	pub := q
	pub.CorrectOptionIndex = nil
	pub.CorrectOptionIndices = nil
	pub.CorrectMatches = nil
	return pub
}

// Quiz is the read-only quiz content a session is played against.
type Quiz struct {
	ID        string
	Title     string
	Questions []Question
}

// Store is the external, read-only collaborator consulted for quiz
// content. Quiz authoring itself is out of scope for this runtime.
type Store interface {
	FindByID(ctx context.Context, quizID string) (*Quiz, error)
}

// MemoryStore is a Store backed by an in-process map, used for tests and
// local development in place of the real quiz-content service.
type MemoryStore struct {
	mu     sync.RWMutex
	quizes map[string]*Quiz
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{quizes: make(map[string]*Quiz)}
}

// Seed registers a quiz for later lookup by FindByID.
func (m *MemoryStore) Seed(quiz *Quiz) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quizes[quiz.ID] = quiz
}

func (m *MemoryStore) FindByID(ctx context.Context, quizID string) (*Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quizes[quizID]
	if !ok {
		return nil, apperr.ErrQuizNotFound
	}
	return q, nil
}

// LoadSeedFile reads a JSON array of Quiz values from path and seeds each
// into store. Intended for local development in place of the real
// quiz-content service this runtime consults in production.
func LoadSeedFile(store *MemoryStore, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read quiz seed file: %w", err)
	}
	var quizzes []*Quiz
	if err := json.Unmarshal(raw, &quizzes); err != nil {
		return fmt.Errorf("decode quiz seed file: %w", err)
	}
	for _, quiz := range quizzes {
		store.Seed(quiz)
	}
	return nil
}
