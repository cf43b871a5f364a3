package admin

import (
	"github.com/dinhkhaphancs/live-quiz-runtime/internal/game"
	"github.com/dinhkhaphancs/live-quiz-runtime/internal/leaderboard"
	"github.com/dinhkhaphancs/live-quiz-runtime/internal/model"
)

// createSessionRequest is the payload for POST /multiplayer/create-session.
type createSessionRequest struct {
	QuizID               string     `json:"quiz_id" binding:"required"`
	HostID               string     `json:"host_id" binding:"required"`
	Mode                 model.Mode `json:"mode"`
	PerQuestionTimeLimit int        `json:"per_question_time_limit"`
}

type createSessionResponse struct {
	Code                 string       `json:"code"`
	QuizID               string       `json:"quiz_id"`
	HostID               string       `json:"host_id"`
	Mode                 model.Mode   `json:"mode"`
	Status               model.Status `json:"status"`
	TotalQuestions       int          `json:"total_questions"`
	PerQuestionTimeLimit int          `json:"per_question_time_limit"`
	JoinURL              string       `json:"join_url"`
}

type joinSessionRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Username string `json:"username" binding:"required"`
}

type joinSessionResponse struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Reconnect bool   `json:"reconnect"`
}

type actionRequest struct {
	HostID string `json:"host_id" binding:"required"`
}

type startSessionRequest struct {
	HostID               string `json:"host_id" binding:"required"`
	PerQuestionTimeLimit int    `json:"per_question_time_limit"`
}

type actionResponse struct {
	Message string `json:"message"`
}

type participantResponse struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Score     int    `json:"score"`
	Connected bool   `json:"connected"`
}

func participantResponses(session *model.Session) []participantResponse {
	out := make([]participantResponse, 0, len(session.Participants))
	for _, p := range session.Participants {
		out = append(out, participantResponse{
			UserID: p.UserID, Username: p.Username, Score: p.Score, Connected: p.Connected,
		})
	}
	return out
}

type sessionResponse struct {
	Code                 string       `json:"code"`
	QuizID               string       `json:"quiz_id"`
	HostID               string       `json:"host_id"`
	Status               model.Status `json:"status"`
	Mode                 model.Mode   `json:"mode"`
	CurrentQuestionIndex int          `json:"current_question_index"`
	TotalQuestions       int          `json:"total_questions"`
	PerQuestionTimeLimit int          `json:"per_question_time_limit"`
	ParticipantCount     int          `json:"participant_count"`
}

func newSessionResponse(session *model.Session) sessionResponse {
	return sessionResponse{
		Code: session.Code, QuizID: session.QuizID, HostID: session.HostID,
		Status: session.Status, Mode: session.Mode,
		CurrentQuestionIndex: session.CurrentQuestionIndex,
		TotalQuestions:       session.TotalQuestions,
		PerQuestionTimeLimit: session.PerQuestionTimeLimit,
		ParticipantCount:     len(session.Participants),
	}
}

type validateSessionResponse struct {
	Valid            bool   `json:"valid"`
	Status           string `json:"status,omitempty"`
	QuizTitle        string `json:"quiz_title,omitempty"`
	ParticipantCount int    `json:"participant_count,omitempty"`
}

// questionEventDTO and resultsDTO mirror the shapes wsapi broadcasts over
// the message channel, so a host driving start/end through this HTTP
// surface still pushes the events already-connected clients expect.
type questionEventDTO struct {
	Question *game.QuestionPayload `json:"question"`
	Index    int                   `json:"index"`
	Total    int                   `json:"total"`
}

type leaderboardEntryDTO struct {
	Position        int    `json:"position"`
	UserID          string `json:"user_id"`
	Username        string `json:"username"`
	Score           int    `json:"score"`
	AnsweredCount   int    `json:"answered_count"`
	TotalQuestions  int    `json:"total_questions"`
	CurrentQuestion int    `json:"current_question"`
	IsConnected     bool   `json:"is_connected"`
}

type finalEntryDTO struct {
	leaderboardEntryDTO
	Accuracy       float64 `json:"accuracy"`
	CorrectAnswers int     `json:"correct_answers"`
	WrongAnswers   int     `json:"wrong_answers"`
}

func finalEntryDTOs(session *model.Session) []finalEntryDTO {
	final := leaderboard.BuildFinal(session)
	out := make([]finalEntryDTO, 0, len(final))
	for _, e := range final {
		out = append(out, finalEntryDTO{
			leaderboardEntryDTO: leaderboardEntryDTO{
				Position: e.Position, UserID: e.UserID, Username: e.Username, Score: e.Score,
				AnsweredCount: e.AnsweredCount, TotalQuestions: session.TotalQuestions,
				CurrentQuestion: session.CurrentQuestionIndex, IsConnected: e.Connected,
			},
			Accuracy:       e.Accuracy,
			CorrectAnswers: e.CorrectAnswers,
			WrongAnswers:   e.WrongAnswers,
		})
	}
	return out
}

type resultsDTO struct {
	Message string          `json:"message"`
	Results []finalEntryDTO `json:"results"`
}
