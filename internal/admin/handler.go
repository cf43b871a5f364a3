// Package admin exposes SessionAdmin as an HTTP surface: creating and
// inspecting sessions, joining outside of the websocket channel, and the
// host actions that mirror their message-channel equivalents for clients
// that prefer a request/response flow.
package admin

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"github.com/dinhkhaphancs/live-quiz-runtime/internal/apperr"
	"github.com/dinhkhaphancs/live-quiz-runtime/internal/game"
	"github.com/dinhkhaphancs/live-quiz-runtime/internal/model"
	"github.com/dinhkhaphancs/live-quiz-runtime/internal/quizstore"
	"github.com/dinhkhaphancs/live-quiz-runtime/internal/store"
	"github.com/dinhkhaphancs/live-quiz-runtime/pkg/dispatch"
	"github.com/dinhkhaphancs/live-quiz-runtime/pkg/response"
)

// Handler serves the SessionAdmin HTTP endpoints.
type Handler struct {
	store     store.SessionStore
	quizzes   quizstore.Store
	game      *game.Controller
	hub       dispatch.SessionHub
	publicURL string
}

// NewHandler wires the admin endpoints to their collaborators. publicURL is
// the externally reachable base URL used to build join links and QR codes.
// hub lets Start/End push the same quiz_started/quiz_ended events already
// connected websocket clients expect, keeping the HTTP and channel-driven
// host flows in sync.
func NewHandler(sessions store.SessionStore, quizzes quizstore.Store, gameController *game.Controller, hub dispatch.SessionHub, publicURL string) *Handler {
	return &Handler{store: sessions, quizzes: quizzes, game: gameController, hub: hub, publicURL: publicURL}
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

func (h *Handler) fail(c *gin.Context, err error) {
	response.WithError(c, statusFor(err), "Request failed", err.Error())
}

// CreateSession handles POST /multiplayer/create-session.
func (h *Handler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.WithError(c, http.StatusBadRequest, "Invalid request data", err.Error())
		return
	}

	quiz, err := h.quizzes.FindByID(c, req.QuizID)
	if err != nil {
		h.fail(c, err)
		return
	}

	mode := req.Mode
	if mode == "" {
		mode = model.ModeLive
	}
	timeLimit := req.PerQuestionTimeLimit
	if timeLimit <= 0 {
		timeLimit = 30
	}

	session, err := h.store.Create(c, req.QuizID, req.HostID, mode, timeLimit, len(quiz.Questions))
	if err != nil {
		h.fail(c, err)
		return
	}

	response.WithSuccess(c, http.StatusCreated, response.MessageCreated, createSessionResponse{
		Code: session.Code, QuizID: session.QuizID, HostID: session.HostID,
		Mode: session.Mode, Status: session.Status,
		TotalQuestions: session.TotalQuestions, PerQuestionTimeLimit: session.PerQuestionTimeLimit,
		JoinURL: h.joinURL(session.Code),
	})
}

func (h *Handler) joinURL(code string) string {
	return fmt.Sprintf("%s/join/%s", h.publicURL, code)
}

// GetSession handles GET /multiplayer/session/:code.
func (h *Handler) GetSession(c *gin.Context) {
	session, err := h.store.Get(c, c.Param("code"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.WithSuccess(c, http.StatusOK, response.MessageFetched, newSessionResponse(session))
}

// Participants handles GET /multiplayer/session/:code/participants.
func (h *Handler) Participants(c *gin.Context) {
	session, err := h.store.Get(c, c.Param("code"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.WithSuccess(c, http.StatusOK, response.MessageListFetched, participantResponses(session))
}

// Join handles POST /multiplayer/session/:code/join, an HTTP alternative
// to sending a `join` message over the channel.
func (h *Handler) Join(c *gin.Context) {
	code := c.Param("code")
	var req joinSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.WithError(c, http.StatusBadRequest, "Invalid request data", err.Error())
		return
	}

	session, err := h.store.Get(c, code)
	if err != nil {
		h.fail(c, err)
		return
	}
	if session.Status != model.StatusWaiting {
		if _, exists := session.Participants[req.UserID]; !exists {
			h.fail(c, apperr.Conflict("session already started"))
			return
		}
	}

	_, created, err := h.store.UpsertParticipant(c, code, req.UserID, req.Username)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.WithSuccess(c, http.StatusOK, "Joined session", joinSessionResponse{
		UserID: req.UserID, Username: req.Username, Reconnect: !created,
	})
}

// Start handles POST /multiplayer/session/:code/start.
func (h *Handler) Start(c *gin.Context) {
	code := c.Param("code")
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.WithError(c, http.StatusBadRequest, "Invalid request data", err.Error())
		return
	}

	session, err := h.store.Get(c, code)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !session.IsHost(req.HostID) {
		h.fail(c, apperr.Forbidden("Only host can start the quiz"))
		return
	}

	if req.PerQuestionTimeLimit > 0 {
		if err := h.store.SetPerQuestionTimeLimit(c, code, req.PerQuestionTimeLimit); err != nil {
			h.fail(c, err)
			return
		}
		session.PerQuestionTimeLimit = req.PerQuestionTimeLimit
	}
	if err := h.store.SetStatus(c, code, model.StatusActive); err != nil {
		h.fail(c, err)
		return
	}
	if err := h.game.AdvanceQuestion(c, code, 0); err != nil {
		h.fail(c, err)
		return
	}
	if session.Mode.IsSelfPaced() {
		for userID := range session.Participants {
			if err := h.store.SetParticipantCursor(c, code, userID, 0); err != nil {
				h.fail(c, err)
				return
			}
		}
	}

	h.hub.BroadcastToSession(code, dispatch.Event{
		Type: dispatch.EventQuizStarted,
		Payload: map[string]interface{}{
			"message":                 "Quiz has started",
			"per_question_time_limit": session.PerQuestionTimeLimit,
		},
	})
	q, total, err := h.game.GetByIndex(c, code, 0)
	if err == nil {
		h.hub.BroadcastToSession(code, dispatch.Event{Type: dispatch.EventQuestion, Payload: questionEventDTO{Question: q, Index: 0, Total: total}})
	}

	response.WithSuccess(c, http.StatusOK, "Quiz started successfully", actionResponse{Message: "Quiz has started"})
}

// End handles POST /multiplayer/session/:code/end.
func (h *Handler) End(c *gin.Context) {
	code := c.Param("code")
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.WithError(c, http.StatusBadRequest, "Invalid request data", err.Error())
		return
	}

	session, err := h.store.Get(c, code)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !session.IsHost(req.HostID) {
		h.fail(c, apperr.Forbidden("Only host can end the quiz"))
		return
	}

	if err := h.store.SetStatus(c, code, model.StatusCompleted); err != nil {
		h.fail(c, err)
		return
	}

	final, err := h.store.Get(c, code)
	if err == nil {
		h.hub.BroadcastToSession(code, dispatch.Event{Type: dispatch.EventQuizEnded, Payload: resultsDTO{
			Message: "Quiz has ended",
			Results: finalEntryDTOs(final),
		}})
	}

	response.WithSuccess(c, http.StatusOK, "Quiz ended successfully", actionResponse{Message: "Quiz has ended"})
}

// Validate handles POST /multiplayer/session/:code/validate. It never
// errors on a missing session so clients can poll a join code cheaply.
func (h *Handler) Validate(c *gin.Context) {
	session, err := h.store.Get(c, c.Param("code"))
	if err != nil {
		response.WithSuccess(c, http.StatusOK, response.MessageFetched, validateSessionResponse{Valid: false})
		return
	}

	title := ""
	if quiz, err := h.quizzes.FindByID(c, session.QuizID); err == nil {
		title = quiz.Title
	}

	response.WithSuccess(c, http.StatusOK, response.MessageFetched, validateSessionResponse{
		Valid: true, Status: string(session.Status), QuizTitle: title,
		ParticipantCount: len(session.Participants),
	})
}

// QRCode handles GET /multiplayer/session/:code/qr, returning a PNG QR
// code encoding the session's join URL.
func (h *Handler) QRCode(c *gin.Context) {
	code := c.Param("code")
	if _, err := h.store.Get(c, code); err != nil {
		h.fail(c, err)
		return
	}

	png, err := qrcode.Encode(h.joinURL(code), qrcode.Medium, 256)
	if err != nil {
		response.WithError(c, http.StatusInternalServerError, "Failed to render QR code", err.Error())
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
