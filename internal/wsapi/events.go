package wsapi

import (
	"github.com/dinhkhaphancs/live-quiz-runtime/internal/game"
	"github.com/dinhkhaphancs/live-quiz-runtime/internal/leaderboard"
	"github.com/dinhkhaphancs/live-quiz-runtime/internal/model"
)

type participantDTO struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Score     int    `json:"score"`
	Connected bool   `json:"connected"`
}

func participantDTOs(session *model.Session) []participantDTO {
	out := make([]participantDTO, 0, len(session.Participants))
	for _, p := range session.Participants {
		out = append(out, participantDTO{
			UserID:    p.UserID,
			Username:  p.Username,
			Score:     p.Score,
			Connected: p.Connected,
		})
	}
	return out
}

type sessionStateDTO struct {
	Code                 string           `json:"code"`
	QuizID               string           `json:"quiz_id"`
	HostID               string           `json:"host_id"`
	Status               model.Status     `json:"status"`
	Mode                 model.Mode       `json:"mode"`
	CurrentQuestionIndex int              `json:"current_question_index"`
	TotalQuestions       int              `json:"total_questions"`
	PerQuestionTimeLimit int              `json:"per_question_time_limit"`
	Participants         []participantDTO `json:"participants"`
	ParticipantCount     int              `json:"participant_count"`
}

func newSessionStateDTO(session *model.Session) sessionStateDTO {
	return sessionStateDTO{
		Code: session.Code, QuizID: session.QuizID, HostID: session.HostID,
		Status: session.Status, Mode: session.Mode,
		CurrentQuestionIndex: session.CurrentQuestionIndex, TotalQuestions: session.TotalQuestions,
		PerQuestionTimeLimit: session.PerQuestionTimeLimit,
		Participants:         participantDTOs(session),
		ParticipantCount:     len(session.Participants),
	}
}

type sessionUpdateDTO struct {
	Status           model.Status     `json:"status"`
	ParticipantCount int              `json:"participant_count"`
	Participants     []participantDTO `json:"participants"`
}

func newSessionUpdateDTO(session *model.Session) sessionUpdateDTO {
	return sessionUpdateDTO{
		Status:           session.Status,
		ParticipantCount: len(session.Participants),
		Participants:     participantDTOs(session),
	}
}

type questionEventDTO struct {
	Question *game.QuestionPayload `json:"question"`
	Index    int                   `json:"index"`
	Total    int                   `json:"total"`
}

type answerResultDTO struct {
	IsCorrect     bool        `json:"is_correct"`
	Points        int         `json:"points"`
	CorrectAnswer interface{} `json:"correct_answer"`
	NewTotalScore int         `json:"new_total_score"`
	QuestionType  interface{} `json:"question_type"`
}

type leaderboardEntryDTO struct {
	Position         int     `json:"position"`
	UserID           string  `json:"user_id"`
	Username         string  `json:"username"`
	Score            int     `json:"score"`
	AnsweredCount    int     `json:"answered_count"`
	TotalQuestions   int     `json:"total_questions"`
	CurrentQuestion  int     `json:"current_question"`
	IsConnected      bool    `json:"is_connected"`
}

func leaderboardDTOs(session *model.Session) []leaderboardEntryDTO {
	entries := leaderboard.Build(session)
	out := make([]leaderboardEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, leaderboardEntryDTO{
			Position: e.Position, UserID: e.UserID, Username: e.Username, Score: e.Score,
			AnsweredCount: e.AnsweredCount, TotalQuestions: session.TotalQuestions,
			CurrentQuestion: session.CurrentQuestionIndex, IsConnected: e.Connected,
		})
	}
	return out
}

type leaderboardUpdateDTO struct {
	Leaderboard    []leaderboardEntryDTO `json:"leaderboard"`
	TotalQuestions int                   `json:"total_questions,omitempty"`
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

type errorDTO struct {
	Message string `json:"message"`
}
