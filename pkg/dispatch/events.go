package dispatch

import "encoding/json"

// EventType tags an outbound Event's payload shape.
type EventType string

const (
	EventSessionState       EventType = "session_state"
	EventSessionUpdate      EventType = "session_update"
	EventQuizStarted        EventType = "quiz_started"
	EventQuestion           EventType = "question"
	EventAnswerResult       EventType = "answer_result"
	EventLeaderboardUpdate  EventType = "leaderboard_update"
	EventLeaderboardReply   EventType = "leaderboard_response"
	EventQuizEnded          EventType = "quiz_ended"
	EventQuizCompleted      EventType = "quiz_completed"
	EventError              EventType = "error"
	EventAnswerStats        EventType = "answer_stats"
	EventPong               EventType = "pong"
)

// Event is one outbound {type, payload} envelope.
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload"`
}

// InboundType tags an inbound client message's expected payload shape.
type InboundType string

const (
	InboundJoin                 InboundType = "join"
	InboundStartQuiz             InboundType = "start_quiz"
	InboundSubmitAnswer          InboundType = "submit_answer"
	InboundNextQuestion          InboundType = "next_question"
	InboundRequestNextQuestion   InboundType = "request_next_question"
	InboundEndQuiz               InboundType = "end_quiz"
	InboundRequestLeaderboard    InboundType = "request_leaderboard"
	InboundRequestAnswerStats    InboundType = "request_answer_stats"
	InboundPing                  InboundType = "ping"
)

// Envelope is the inbound {type, payload} message shape, payload left raw
// until the handler for Type knows how to decode it.
type Envelope struct {
	Type    InboundType `json:"type"`
	Payload json.RawMessage `json:"payload"`
}
