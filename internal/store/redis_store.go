package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/dinhkhaphancs/live-quiz-runtime/internal/apperr"
	"github.com/dinhkhaphancs/live-quiz-runtime/internal/model"
)

var logger = log.New(log.Writer(), "[store] ", log.LstdFlags)

// sessionKey is the Redis hash holding one session, grounded on
// session_manager.py's `session:<code>` key. The hash has a single field,
// "blob", holding the whole session as JSON.
func sessionKey(code string) string { return "session:" + code }

// participantCursorKey is the Redis string holding one participant's self-paced
// progress cursor, grounded on session_manager.py's
// `participant:<code>:<user>:question_index` key.
func participantCursorKey(code, userID string) string {
	return "participant:" + code + ":" + userID + ":question_index"
}

// RedisStore is the production SessionStore backing, sharing state across
// every frontend instance through a shared Redis deployment.
type RedisStore struct {
	client          *redis.Client
	ttl             time.Duration
	locks           *keyedMutex
	maxParticipants int
}

// NewRedisStore wraps an already-connected redis.Client. maxParticipants is
// the configured per-session participant ceiling
// (SessionConfig.MaxParticipantsPerSession); <= 0 disables the check.
func NewRedisStore(client *redis.Client, ttl time.Duration, maxParticipants int) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, locks: newKeyedMutex(), maxParticipants: maxParticipants}
}

func (r *RedisStore) Create(ctx context.Context, quizID, hostID string, mode model.Mode, perQuestionTimeLimit, totalQuestions int) (*model.Session, error) {
	var code string
	for i := 0; i < maxCodeAttempts; i++ {
		candidate, err := generateCode()
		if err != nil {
			return nil, apperr.Wrap(apperr.KindUnavailable, "generate session code", err)
		}
		exists, err := r.client.Exists(ctx, sessionKey(candidate)).Result()
		if err != nil {
			return nil, apperr.Wrap(apperr.KindUnavailable, "check session code uniqueness", err)
		}
		if exists == 0 {
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
		ExpiresAt:            now.Add(r.ttl),
		Participants:         make(map[string]*model.Participant),
	}
	if err := r.writeSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (r *RedisStore) Get(ctx context.Context, code string) (*model.Session, error) {
	return r.readSession(ctx, code)
}

func (r *RedisStore) SetStatus(ctx context.Context, code string, status model.Status) error {
	r.locks.Lock(code)
	defer r.locks.Unlock(code)

	s, err := r.readSession(ctx, code)
	if err != nil {
		return err
	}
	s.Status = status
	return r.writeSession(ctx, s)
}

func (r *RedisStore) SetPerQuestionTimeLimit(ctx context.Context, code string, seconds int) error {
	r.locks.Lock(code)
	defer r.locks.Unlock(code)

	s, err := r.readSession(ctx, code)
	if err != nil {
		return err
	}
	s.PerQuestionTimeLimit = seconds
	return r.writeSession(ctx, s)
}

func (r *RedisStore) SetCurrentQuestionIndex(ctx context.Context, code string, index int) error {
	r.locks.Lock(code)
	defer r.locks.Unlock(code)

	s, err := r.readSession(ctx, code)
	if err != nil {
		return err
	}
	s.CurrentQuestionIndex = index
	s.QuestionStartedAt = time.Now()
	return r.writeSession(ctx, s)
}

func (r *RedisStore) UpsertParticipant(ctx context.Context, code, userID, username string) (*model.Participant, bool, error) {
	r.locks.Lock(code)
	defer r.locks.Unlock(code)

	s, err := r.readSession(ctx, code)
	if err != nil {
		return nil, false, err
	}
	if s.HostID == userID {
		return nil, false, apperr.Invalid("host cannot join as a participant")
	}
	if p, exists := s.Participants[userID]; exists {
		p.Connected = true
		if username != "" {
			p.Username = username
		}
		if err := r.writeSession(ctx, s); err != nil {
			return nil, false, err
		}
		return cloneParticipant(p), false, nil
	}
	if r.maxParticipants > 0 && len(s.Participants) >= r.maxParticipants {
		return nil, false, apperr.ErrSessionFull
	}
	p := &model.Participant{
		UserID:    userID,
		Username:  username,
		JoinedAt:  time.Now(),
		Connected: true,
	}
	s.Participants[userID] = p
	if err := r.writeSession(ctx, s); err != nil {
		return nil, false, err
	}
	return cloneParticipant(p), true, nil
}

func (r *RedisStore) SetParticipantConnected(ctx context.Context, code, userID string, connected bool) error {
	r.locks.Lock(code)
	defer r.locks.Unlock(code)

	s, err := r.readSession(ctx, code)
	if err != nil {
		return err
	}
	p, ok := s.Participants[userID]
	if !ok {
		return apperr.ErrParticipantNotFound
	}
	p.Connected = connected
	return r.writeSession(ctx, s)
}

func (r *RedisStore) RecordAnswer(ctx context.Context, code, userID string, record model.AnswerRecord) error {
	r.locks.Lock(code)
	defer r.locks.Unlock(code)

	s, err := r.readSession(ctx, code)
	if err != nil {
		return err
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
	return r.writeSession(ctx, s)
}

func (r *RedisStore) SetParticipantCursor(ctx context.Context, code, userID string, index int) error {
	exists, err := r.client.Exists(ctx, sessionKey(code)).Result()
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "check session exists", err)
	}
	if exists == 0 {
		return apperr.ErrSessionNotFound
	}
	key := participantCursorKey(code, userID)
	if err := r.client.Set(ctx, key, index, r.ttl).Err(); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "set participant cursor", err)
	}
	return nil
}

func (r *RedisStore) GetParticipantCursor(ctx context.Context, code, userID string) (int, error) {
	s, err := r.readSession(ctx, code)
	if err != nil {
		return 0, err
	}
	val, err := r.client.Get(ctx, participantCursorKey(code, userID)).Result()
	if err == nil {
		idx, convErr := strconv.Atoi(val)
		if convErr != nil {
			return 0, apperr.Wrap(apperr.KindCorrupt, "parse participant cursor", convErr)
		}
		return idx, nil
	}
	if err != redis.Nil {
		return 0, apperr.Wrap(apperr.KindUnavailable, "get participant cursor", err)
	}

	p, ok := s.Participants[userID]
	if !ok {
		return 0, apperr.ErrParticipantNotFound
	}
	highest := 0
	for _, a := range p.Answers {
		if a.QuestionIndex > highest {
			highest = a.QuestionIndex
		}
	}
	return highest, nil
}

func (r *RedisStore) IsHost(ctx context.Context, code, userID string) (bool, error) {
	s, err := r.readSession(ctx, code)
	if err != nil {
		return false, err
	}
	return s.IsHost(userID), nil
}

func (r *RedisStore) Delete(ctx context.Context, code string) error {
	s, err := r.readSession(ctx, code)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil
		}
		return err
	}
	keys := []string{sessionKey(code)}
	for userID := range s.Participants {
		keys = append(keys, participantCursorKey(code, userID))
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "delete session", err)
	}
	return nil
}

// redisSession is the wire shape of a session hash: the scalar fields and
// the participant set are marshaled together into one JSON value stored in
// the hash's "blob" field. The scalar fields are not stored as separate
// hash fields.
type redisSession struct {
	Code                 string                     `json:"code"`
	QuizID               string                     `json:"quiz_id"`
	HostID               string                     `json:"host_id"`
	Status               model.Status               `json:"status"`
	Mode                 model.Mode                 `json:"mode"`
	CurrentQuestionIndex int                        `json:"current_question_index"`
	TotalQuestions       int                        `json:"total_questions"`
	PerQuestionTimeLimit int                        `json:"per_question_time_limit"`
	QuestionStartedAt    time.Time                  `json:"question_started_at"`
	CreatedAt            time.Time                  `json:"created_at"`
	ExpiresAt            time.Time                  `json:"expires_at"`
	Participants         map[string]*model.Participant `json:"participants"`
}

func (r *RedisStore) writeSession(ctx context.Context, s *model.Session) error {
	payload := redisSession{
		Code: s.Code, QuizID: s.QuizID, HostID: s.HostID, Status: s.Status, Mode: s.Mode,
		CurrentQuestionIndex: s.CurrentQuestionIndex, TotalQuestions: s.TotalQuestions,
		PerQuestionTimeLimit: s.PerQuestionTimeLimit, QuestionStartedAt: s.QuestionStartedAt,
		CreatedAt: s.CreatedAt, ExpiresAt: s.ExpiresAt, Participants: s.Participants,
	}
	blob, err := json.Marshal(payload)
	if err != nil {
		return apperr.Wrap(apperr.KindInvalid, "marshal session", err)
	}
	key := sessionKey(s.Code)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{"blob": blob})
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "persist session", err)
	}
	return nil
}

func (r *RedisStore) readSession(ctx context.Context, code string) (*model.Session, error) {
	blob, err := r.client.HGet(ctx, sessionKey(code), "blob").Result()
	if err == redis.Nil {
		return nil, apperr.ErrSessionNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "read session", err)
	}
	var payload redisSession
	if err := json.Unmarshal([]byte(blob), &payload); err != nil {
		logger.Printf("corrupt session blob for %s: %v", code, err)
		return nil, apperr.Wrap(apperr.KindCorrupt, fmt.Sprintf("decode session %s", code), err)
	}
	if payload.Participants == nil {
		payload.Participants = make(map[string]*model.Participant)
	}
	return &model.Session{
		Code: payload.Code, QuizID: payload.QuizID, HostID: payload.HostID,
		Status: payload.Status, Mode: payload.Mode,
		CurrentQuestionIndex: payload.CurrentQuestionIndex, TotalQuestions: payload.TotalQuestions,
		PerQuestionTimeLimit: payload.PerQuestionTimeLimit, QuestionStartedAt: payload.QuestionStartedAt,
		CreatedAt: payload.CreatedAt, ExpiresAt: payload.ExpiresAt, Participants: payload.Participants,
	}, nil
}
