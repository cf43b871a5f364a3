// Package wsapi wires the Dispatcher's message channel to GameController,
// SessionStore, and LeaderboardProjection: it decodes each inbound
// Envelope, applies the corresponding session operation, and sends the
// replies and broadcasts the Dispatcher contract requires.
package wsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dinhkhaphancs/live-quiz-runtime/internal/apperr"
	"github.com/dinhkhaphancs/live-quiz-runtime/internal/game"
	"github.com/dinhkhaphancs/live-quiz-runtime/internal/model"
	"github.com/dinhkhaphancs/live-quiz-runtime/internal/store"
	"github.com/dinhkhaphancs/live-quiz-runtime/pkg/dispatch"
)

var logger = log.New(log.Writer(), "[wsapi] ", log.LstdFlags)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Service implements dispatch.MessageHandler and hosts the websocket
// upgrade endpoint for one (session, user) connection.
type Service struct {
	store store.SessionStore
	game  *game.Controller
	hub   dispatch.SessionHub
}

// NewService wires the message-channel layer to its collaborators. It
// registers a disconnect callback on hub so a participant's persisted
// connectivity flag tracks the registry's own view of who is still
// connected, rather than staying true forever once a client ever joined.
func NewService(sessions store.SessionStore, gameController *game.Controller, hub dispatch.SessionHub) *Service {
	s := &Service{store: sessions, game: gameController, hub: hub}
	hub.OnDisconnect(func(code, userID string) {
		if err := sessions.SetParticipantConnected(context.Background(), code, userID, false); err != nil {
			logger.Printf("mark participant %s disconnected in session %s: %v", userID, code, err)
		}
	})
	return s
}

// HandleConnection upgrades an HTTP request to a websocket connection for
// the session code and user ID given in the URL, determines the caller's
// role, and starts its read/write pumps.
func (s *Service) HandleConnection(c *gin.Context) {
	code := c.Param("code")
	userID := c.Param("userId")

	if _, err := s.store.Get(c.Request.Context(), code); err != nil {
		c.JSON(statusFor(err), gin.H{"success": false, "error": err.Error()})
		return
	}
	isHost, err := s.store.IsHost(c.Request.Context(), code, userID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"success": false, "error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Printf("upgrade failed for session %s user %s: %v", code, userID, err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	cl := &dispatch.Client{
		ID:      uuid.NewString(),
		Code:    code,
		UserID:  userID,
		IsHost:  isHost,
		Conn:    conn,
		Send:    make(chan []byte, 256),
		Hub:     s.hub,
		Handler: s,
		Ctx:     ctx,
		Cancel:  cancel,
	}

	s.hub.Subscribe(code)
	s.hub.GetRegisterChan() <- cl

	go cl.ReadPump()
	go cl.WritePump()

	session, err := s.store.Get(ctx, code)
	if err == nil {
		s.hub.SendToUser(code, userID, dispatch.Event{Type: dispatch.EventSessionState, Payload: newSessionStateDTO(session)})
	}
}

func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindConflict, apperr.KindInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// HandleMessage implements dispatch.MessageHandler.
func (s *Service) HandleMessage(ctx context.Context, c *dispatch.Client, msg dispatch.Envelope) {
	var err error
	switch msg.Type {
	case dispatch.InboundJoin:
		err = s.handleJoin(ctx, c, msg.Payload)
	case dispatch.InboundStartQuiz:
		err = s.handleStartQuiz(ctx, c, msg.Payload)
	case dispatch.InboundSubmitAnswer:
		err = s.handleSubmitAnswer(ctx, c, msg.Payload)
	case dispatch.InboundNextQuestion:
		err = s.handleNextQuestion(ctx, c)
	case dispatch.InboundRequestNextQuestion:
		err = s.handleRequestNextQuestion(ctx, c)
	case dispatch.InboundEndQuiz:
		err = s.handleEndQuiz(ctx, c)
	case dispatch.InboundRequestLeaderboard:
		err = s.handleRequestLeaderboard(ctx, c)
	case dispatch.InboundRequestAnswerStats:
		err = s.handleRequestAnswerStats(ctx, c)
	case dispatch.InboundPing:
		s.hub.SendToUser(c.Code, c.UserID, dispatch.Event{Type: dispatch.EventPong, Payload: map[string]interface{}{"time": nowUnix()}})
		return
	default:
		logger.Printf("session %s: ignoring unknown message type %q", c.Code, msg.Type)
		return
	}
	if err != nil {
		s.sendError(c.Code, c.UserID, err)
	}
}

func nowUnix() int64 {
	return time.Now().Unix()
}

func (s *Service) sendError(code, userID string, err error) {
	message := err.Error()
	if apperr.Is(err, apperr.KindConflict) && err == apperr.ErrAlreadyAnswered {
		message = "Already answered"
	}
	s.hub.SendToUser(code, userID, dispatch.Event{Type: dispatch.EventError, Payload: errorDTO{Message: message}})
}

func (s *Service) requireHost(session *model.Session, userID, action string) error {
	if !session.IsHost(userID) {
		return apperr.Forbidden(fmt.Sprintf("Only host can %s", action))
	}
	return nil
}

func (s *Service) handleJoin(ctx context.Context, c *dispatch.Client, raw json.RawMessage) error {
	var payload joinPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return apperr.Invalid("malformed join payload")
		}
	}

	session, err := s.store.Get(ctx, c.Code)
	if err != nil {
		return err
	}

	if !c.IsHost {
		if session.Status != model.StatusWaiting {
			if _, exists := session.Participants[c.UserID]; !exists {
				return apperr.Conflict("session already started")
			}
		}
		if _, _, err := s.store.UpsertParticipant(ctx, c.Code, c.UserID, payload.Username); err != nil {
			return err
		}
	}

	session, err = s.store.Get(ctx, c.Code)
	if err != nil {
		return err
	}
	s.hub.SendToUser(c.Code, c.UserID, dispatch.Event{Type: dispatch.EventSessionState, Payload: newSessionStateDTO(session)})
	s.hub.BroadcastToSession(c.Code, dispatch.Event{Type: dispatch.EventSessionUpdate, Payload: newSessionUpdateDTO(session)})

	if session.Status == model.StatusActive {
		q, total, err := s.game.GetCurrentQuestion(ctx, c.Code, c.UserID)
		if err != nil {
			return err
		}
		index := session.CurrentQuestionIndex
		if session.Mode.IsSelfPaced() {
			index, _ = s.store.GetParticipantCursor(ctx, c.Code, c.UserID)
		}
		s.hub.SendToUser(c.Code, c.UserID, dispatch.Event{Type: dispatch.EventQuestion, Payload: questionEventDTO{Question: q, Index: index, Total: total}})
	}
	return nil
}

func (s *Service) handleStartQuiz(ctx context.Context, c *dispatch.Client, raw json.RawMessage) error {
	session, err := s.store.Get(ctx, c.Code)
	if err != nil {
		return err
	}
	if err := s.requireHost(session, c.UserID, "start the quiz"); err != nil {
		return err
	}

	var payload startQuizPayload
	if len(raw) > 0 {
		json.Unmarshal(raw, &payload)
	}
	if payload.PerQuestionTimeLimit > 0 {
		if err := s.store.SetPerQuestionTimeLimit(ctx, c.Code, payload.PerQuestionTimeLimit); err != nil {
			return err
		}
		session.PerQuestionTimeLimit = payload.PerQuestionTimeLimit
	}

	if err := s.store.SetStatus(ctx, c.Code, model.StatusActive); err != nil {
		return err
	}
	if err := s.game.AdvanceQuestion(ctx, c.Code, 0); err != nil {
		return err
	}
	if session.Mode.IsSelfPaced() {
		for userID := range session.Participants {
			if err := s.store.SetParticipantCursor(ctx, c.Code, userID, 0); err != nil {
				return err
			}
		}
	}

	s.hub.BroadcastToSession(c.Code, dispatch.Event{
		Type: dispatch.EventQuizStarted,
		Payload: map[string]interface{}{
			"message":                 "Quiz has started",
			"per_question_time_limit": session.PerQuestionTimeLimit,
		},
	})

	q, total, err := s.game.GetByIndex(ctx, c.Code, 0)
	if err != nil {
		return err
	}
	s.hub.BroadcastToSession(c.Code, dispatch.Event{Type: dispatch.EventQuestion, Payload: questionEventDTO{Question: q, Index: 0, Total: total}})
	return nil
}

func (s *Service) handleSubmitAnswer(ctx context.Context, c *dispatch.Client, raw json.RawMessage) error {
	var payload submitAnswerPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return apperr.Invalid("malformed submit_answer payload")
	}
	var answer interface{}
	if err := json.Unmarshal(payload.Answer, &answer); err != nil {
		return apperr.Invalid("malformed answer value")
	}

	session, err := s.store.Get(ctx, c.Code)
	if err != nil {
		return err
	}
	index := session.CurrentQuestionIndex
	if session.Mode.IsSelfPaced() {
		index, err = s.store.GetParticipantCursor(ctx, c.Code, c.UserID)
		if err != nil {
			return err
		}
	}

	result, err := s.game.SubmitAnswer(ctx, c.Code, c.UserID, index, answer, payload.Timestamp)
	if err != nil {
		return err
	}

	s.hub.SendToUser(c.Code, c.UserID, dispatch.Event{Type: dispatch.EventAnswerResult, Payload: answerResultDTO{
		IsCorrect: result.IsCorrect, Points: result.PointsEarned, CorrectAnswer: result.CorrectAnswer,
		NewTotalScore: result.NewTotalScore, QuestionType: result.QuestionType,
	}})

	updated, err := s.store.Get(ctx, c.Code)
	if err != nil {
		return err
	}
	s.hub.BroadcastToSession(c.Code, dispatch.Event{Type: dispatch.EventLeaderboardUpdate, Payload: leaderboardUpdateDTO{Leaderboard: leaderboardDTOs(updated)}})
	return nil
}

func (s *Service) handleNextQuestion(ctx context.Context, c *dispatch.Client) error {
	session, err := s.store.Get(ctx, c.Code)
	if err != nil {
		return err
	}
	if err := s.requireHost(session, c.UserID, "advance the question"); err != nil {
		return err
	}

	q, index, ok, err := s.game.NextQuestion(ctx, c.Code)
	if err != nil {
		return err
	}
	if !ok {
		return s.endQuiz(ctx, c.Code, dispatch.EventQuizEnded)
	}
	total := session.TotalQuestions
	s.hub.BroadcastToSession(c.Code, dispatch.Event{Type: dispatch.EventQuestion, Payload: questionEventDTO{Question: q, Index: index, Total: total}})
	return nil
}

func (s *Service) handleRequestNextQuestion(ctx context.Context, c *dispatch.Client) error {
	q, index, ok, err := s.game.NextQuestionForParticipant(ctx, c.Code, c.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return s.sendIndividualResults(ctx, c.Code, c.UserID)
	}
	session, err := s.store.Get(ctx, c.Code)
	if err != nil {
		return err
	}
	s.hub.SendToUser(c.Code, c.UserID, dispatch.Event{Type: dispatch.EventQuestion, Payload: questionEventDTO{Question: q, Index: index, Total: session.TotalQuestions}})
	return nil
}

func (s *Service) handleEndQuiz(ctx context.Context, c *dispatch.Client) error {
	session, err := s.store.Get(ctx, c.Code)
	if err != nil {
		return err
	}
	if err := s.requireHost(session, c.UserID, "end the quiz"); err != nil {
		return err
	}
	return s.endQuiz(ctx, c.Code, dispatch.EventQuizEnded)
}

func (s *Service) endQuiz(ctx context.Context, code string, eventType dispatch.EventType) error {
	if err := s.store.SetStatus(ctx, code, model.StatusCompleted); err != nil {
		return err
	}
	session, err := s.store.Get(ctx, code)
	if err != nil {
		return err
	}
	s.hub.BroadcastToSession(code, dispatch.Event{Type: eventType, Payload: resultsDTO{
		Message: "Quiz has ended",
		Results: finalEntryDTOs(session),
	}})
	return nil
}

func (s *Service) sendIndividualResults(ctx context.Context, code, userID string) error {
	session, err := s.store.Get(ctx, code)
	if err != nil {
		return err
	}
	all := finalEntryDTOs(session)
	var mine []finalEntryDTO
	for _, e := range all {
		if e.UserID == userID {
			mine = append(mine, e)
		}
	}
	s.hub.SendToUser(code, userID, dispatch.Event{Type: dispatch.EventQuizCompleted, Payload: resultsDTO{
		Message: "You've completed the quiz",
		Results: mine,
	}})
	return nil
}

func (s *Service) handleRequestLeaderboard(ctx context.Context, c *dispatch.Client) error {
	session, err := s.store.Get(ctx, c.Code)
	if err != nil {
		return err
	}
	s.hub.SendToUser(c.Code, c.UserID, dispatch.Event{Type: dispatch.EventLeaderboardReply, Payload: leaderboardUpdateDTO{
		Leaderboard:    leaderboardDTOs(session),
		TotalQuestions: session.TotalQuestions,
	}})
	return nil
}

func (s *Service) handleRequestAnswerStats(ctx context.Context, c *dispatch.Client) error {
	session, err := s.store.Get(ctx, c.Code)
	if err != nil {
		return err
	}
	if err := s.requireHost(session, c.UserID, "request answer stats"); err != nil {
		return err
	}
	dist, err := s.game.GetAnswerDistribution(ctx, c.Code, session.CurrentQuestionIndex)
	if err != nil {
		return err
	}
	s.hub.SendToUser(c.Code, c.UserID, dispatch.Event{Type: dispatch.EventAnswerStats, Payload: map[string]interface{}{"distribution": dist}})
	return nil
}
