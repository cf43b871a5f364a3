// Package model holds the data shapes shared by the session runtime:
// sessions, participants, recorded answers, and per-participant cursors.
package model

import "time"

// Status is the lifecycle stage of a Session.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Mode selects how participants progress through questions.
type Mode string

const (
	// ModeLive is host-driven: every participant sees the same question
	// at the same time, and the host advances the cursor for everyone.
	ModeLive Mode = "live"
	// ModeSelfPaced lets each participant advance independently.
	ModeSelfPaced Mode = "self_paced"
	// ModeTimedIndividual behaves identically to ModeSelfPaced; it exists
	// as a distinct label because the quiz author chose a per-question
	// timer that a self-paced participant still experiences on their own.
	ModeTimedIndividual Mode = "timed_individual"
)

// IsSelfPaced reports whether m lets participants advance independently.
func (m Mode) IsSelfPaced() bool {
	return m == ModeSelfPaced || m == ModeTimedIndividual
}

// AnswerRecord is one participant's graded submission for one question.
type AnswerRecord struct {
	QuestionIndex   int         `json:"question_index"`
	Answer          interface{} `json:"answer"`
	ClientTimestamp float64     `json:"client_timestamp"`
	IsCorrect       bool        `json:"is_correct"`
	PointsEarned    int         `json:"points_earned"`
	AnsweredAt      time.Time   `json:"answered_at"`
}

// Participant is one joined member of a Session.
type Participant struct {
	UserID    string         `json:"user_id"`
	Username  string         `json:"username"`
	JoinedAt  time.Time      `json:"joined_at"`
	Connected bool           `json:"connected"`
	Score     int            `json:"score"`
	Answers   []AnswerRecord `json:"answers"`
}

// AnswerForQuestion returns the participant's answer at the given question
// index, or false if they haven't answered it yet.
func (p *Participant) AnswerForQuestion(index int) (AnswerRecord, bool) {
	for _, a := range p.Answers {
		if a.QuestionIndex == index {
			return a, true
		}
	}
	return AnswerRecord{}, false
}

// Session is a live (or completed) multiplayer quiz run.
type Session struct {
	Code                  string                  `json:"code"`
	QuizID                string                  `json:"quiz_id"`
	HostID                string                  `json:"host_id"`
	Status                Status                  `json:"status"`
	Mode                  Mode                    `json:"mode"`
	CurrentQuestionIndex  int                     `json:"current_question_index"`
	TotalQuestions        int                     `json:"total_questions"`
	PerQuestionTimeLimit  int                     `json:"per_question_time_limit"`
	QuestionStartedAt     time.Time               `json:"question_started_at"`
	CreatedAt             time.Time               `json:"created_at"`
	ExpiresAt             time.Time               `json:"expires_at"`
	Participants          map[string]*Participant `json:"participants"`
}

// IsHost reports whether userID is the session's host.
func (s *Session) IsHost(userID string) bool {
	return s.HostID == userID
}

// ConnectedParticipants returns the subset of participants currently marked
// connected, used for "has everyone answered" checks.
func (s *Session) ConnectedParticipants() []*Participant {
	out := make([]*Participant, 0, len(s.Participants))
	for _, p := range s.Participants {
		if p.Connected {
			out = append(out, p)
		}
	}
	return out
}
