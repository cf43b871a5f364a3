package store

import (
	"context"
	"sync"
	"time"

	"github.com/dinhkhaphancs/live-quiz-runtime/internal/apperr"
	"github.com/dinhkhaphancs/live-quiz-runtime/internal/model"
)

const maxCodeAttempts = 10

// MemoryStore is a SessionStore backed by an in-process map. It backs unit
// tests and local development; production deployments use the
// Redis-backed RedisStore so state survives restarts and is shared across
// frontend instances.
type MemoryStore struct {
	mu              sync.RWMutex
	sessions        map[string]*model.Session
	cursors         map[string]int // key: code + "|" + userID
	ttl             time.Duration
	maxParticipants int
}

// NewMemoryStore returns an empty MemoryStore with the given session TTL
// (only used to stamp Session.ExpiresAt; MemoryStore never actually expires
// entries on its own) and the configured per-session participant ceiling
// (SessionConfig.MaxParticipantsPerSession). maxParticipants <= 0 disables
// the check, matching an unset configuration default.
func NewMemoryStore(ttl time.Duration, maxParticipants int) *MemoryStore {
	return &MemoryStore{
		sessions:        make(map[string]*model.Session),
		cursors:         make(map[string]int),
		ttl:             ttl,
		maxParticipants: maxParticipants,
	}
}

func cursorKey(code, userID string) string { return code + "|" + userID }

func (m *MemoryStore) Create(ctx context.Context, quizID, hostID string, mode model.Mode, perQuestionTimeLimit, totalQuestions int) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var code string
	for i := 0; i < maxCodeAttempts; i++ {
		candidate, err := generateCode()
		if err != nil {
			return nil, apperr.Wrap(apperr.KindUnavailable, "generate session code", err)
		}
		if _, exists := m.sessions[candidate]; !exists {
			code = candidate
			break
		}
	}
	if code == "" {
		return nil, apperr.Unavailable("could not allocate a unique session code")
	}

	now := time.Now()
	session := &model.Session{
		Code:                 code,
		QuizID:               quizID,
		HostID:               hostID,
		Status:               model.StatusWaiting,
		Mode:                 mode,
		CurrentQuestionIndex: 0,
		TotalQuestions:       totalQuestions,
		PerQuestionTimeLimit: perQuestionTimeLimit,
		CreatedAt:            now,
		ExpiresAt:            now.Add(m.ttl),
		Participants:         make(map[string]*model.Participant),
	}
	m.sessions[code] = session
	return cloneSession(session), nil
}

func (m *MemoryStore) Get(ctx context.Context, code string) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[code]
	if !ok {
		return nil, apperr.ErrSessionNotFound
	}
	return cloneSession(s), nil
}

func (m *MemoryStore) SetStatus(ctx context.Context, code string, status model.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[code]
	if !ok {
		return apperr.ErrSessionNotFound
	}
	s.Status = status
	return nil
}

func (m *MemoryStore) SetPerQuestionTimeLimit(ctx context.Context, code string, seconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[code]
	if !ok {
		return apperr.ErrSessionNotFound
	}
	s.PerQuestionTimeLimit = seconds
	return nil
}

func (m *MemoryStore) SetCurrentQuestionIndex(ctx context.Context, code string, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[code]
	if !ok {
		return apperr.ErrSessionNotFound
	}
	s.CurrentQuestionIndex = index
	s.QuestionStartedAt = time.Now()
	return nil
}

func (m *MemoryStore) UpsertParticipant(ctx context.Context, code, userID, username string) (*model.Participant, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[code]
	if !ok {
		return nil, false, apperr.ErrSessionNotFound
	}
	if s.HostID == userID {
		return nil, false, apperr.Invalid("host cannot join as a participant")
	}
	if p, exists := s.Participants[userID]; exists {
		p.Connected = true
		if username != "" {
			p.Username = username
		}
		return cloneParticipant(p), false, nil
	}
	if m.maxParticipants > 0 && len(s.Participants) >= m.maxParticipants {
		return nil, false, apperr.ErrSessionFull
	}
	p := &model.Participant{
		UserID:    userID,
		Username:  username,
		JoinedAt:  time.Now(),
		Connected: true,
	}
	s.Participants[userID] = p
	return cloneParticipant(p), true, nil
}

func (m *MemoryStore) SetParticipantConnected(ctx context.Context, code, userID string, connected bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[code]
	if !ok {
		return apperr.ErrSessionNotFound
	}
	p, ok := s.Participants[userID]
	if !ok {
		return apperr.ErrParticipantNotFound
	}
	p.Connected = connected
	return nil
}

func (m *MemoryStore) RecordAnswer(ctx context.Context, code, userID string, record model.AnswerRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[code]
	if !ok {
		return apperr.ErrSessionNotFound
	}
	p, ok := s.Participants[userID]
	if !ok {
		return apperr.ErrParticipantNotFound
	}
	if _, exists := p.AnswerForQuestion(record.QuestionIndex); exists {
		return apperr.ErrAlreadyAnswered
	}
	record.AnsweredAt = time.Now()
	p.Answers = append(p.Answers, record)
	p.Score += record.PointsEarned
	return nil
}

func (m *MemoryStore) SetParticipantCursor(ctx context.Context, code, userID string, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[code]; !ok {
		return apperr.ErrSessionNotFound
	}
	m.cursors[cursorKey(code, userID)] = index
	return nil
}

func (m *MemoryStore) GetParticipantCursor(ctx context.Context, code, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[code]
	if !ok {
		return 0, apperr.ErrSessionNotFound
	}
	if idx, ok := m.cursors[cursorKey(code, userID)]; ok {
		return idx, nil
	}
	p, ok := s.Participants[userID]
	if !ok {
		return 0, apperr.ErrParticipantNotFound
	}
	// No explicit cursor stored yet: default to the highest answered
	// question index, or 0 if the participant hasn't answered anything.
	highest := 0
	for _, a := range p.Answers {
		if a.QuestionIndex > highest {
			highest = a.QuestionIndex
		}
	}
	return highest, nil
}

func (m *MemoryStore) IsHost(ctx context.Context, code, userID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[code]
	if !ok {
		return false, apperr.ErrSessionNotFound
	}
	return s.IsHost(userID), nil
}

func (m *MemoryStore) Delete(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, code)
	for k := range m.cursors {
		if len(k) > len(code) && k[:len(code)] == code && k[len(code)] == '|' {
			delete(m.cursors, k)
		}
	}
	return nil
}

func cloneSession(s *model.Session) *model.Session {
	out := *s
	out.Participants = make(map[string]*model.Participant, len(s.Participants))
	for k, v := range s.Participants {
		out.Participants[k] = cloneParticipant(v)
	}
	return &out
}

func cloneParticipant(p *model.Participant) *model.Participant {
	out := *p
	out.Answers = append([]model.AnswerRecord(nil), p.Answers...)
	return &out
}
