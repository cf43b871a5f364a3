package wsapi

import "encoding/json"

// joinPayload is the inbound `join` message payload.
type joinPayload struct {
	Username string `json:"username"`
}

// startQuizPayload is the inbound `start_quiz` message payload.
type startQuizPayload struct {
	PerQuestionTimeLimit int `json:"per_question_time_limit"`
}

// submitAnswerPayload is the inbound `submit_answer` message payload.
type submitAnswerPayload struct {
	Answer    json.RawMessage `json:"answer"`
	Timestamp float64         `json:"timestamp"`
}
