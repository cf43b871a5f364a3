// Package leaderboard projects a Session's participants into a stably
// ordered leaderboard, live or final, grounded on leaderboard_manager.py.
package leaderboard

import (
	"math"
	"sort"

	"github.com/dinhkhaphancs/live-quiz-runtime/internal/model"
)

// Entry is one row of a live leaderboard.
type Entry struct {
	Position      int    `json:"position"`
	UserID        string `json:"user_id"`
	Username      string `json:"username"`
	Score         int    `json:"score"`
	AnsweredCount int    `json:"answered_count"`
	Connected     bool   `json:"connected"`
}

// FinalEntry extends Entry with the stats only meaningful once a session
// has ended.
type FinalEntry struct {
	Entry
	Accuracy       float64 `json:"accuracy"`
	CorrectAnswers int     `json:"correct_answers"`
	WrongAnswers   int     `json:"wrong_answers"`
}

// Build returns the live leaderboard for a session: ordered by score
// descending, ties broken by fewer questions answered first (rewarding
// efficiency), then by user ID for a total, stable order.
func Build(session *model.Session) []Entry {
	entries := make([]Entry, 0, len(session.Participants))
	for _, p := range session.Participants {
		entries = append(entries, Entry{
			UserID:        p.UserID,
			Username:      p.Username,
			Score:         p.Score,
			AnsweredCount: len(p.Answers),
			Connected:     p.Connected,
		})
	}
	sortEntries(entries)
	for i := range entries {
		entries[i].Position = i + 1
	}
	return entries
}

// Rank returns the 1-based position of userID in the live leaderboard, or
// 0 if they aren't a participant.
func Rank(session *model.Session, userID string) int {
	for _, e := range Build(session) {
		if e.UserID == userID {
			return e.Position
		}
	}
	return 0
}

// BuildFinal returns the final results for a completed session: the live
// leaderboard plus each participant's accuracy and correct/wrong counts.
func BuildFinal(session *model.Session) []FinalEntry {
	live := Build(session)
	final := make([]FinalEntry, 0, len(live))
	for _, e := range live {
		p := session.Participants[e.UserID]
		correct, wrong := 0, 0
		for _, a := range p.Answers {
			if a.IsCorrect {
				correct++
			} else {
				wrong++
			}
		}
		accuracy := 0.0
		if total := correct + wrong; total > 0 {
			accuracy = roundTo1(float64(correct) / float64(total) * 100)
		}
		final = append(final, FinalEntry{
			Entry:          e,
			Accuracy:       accuracy,
			CorrectAnswers: correct,
			WrongAnswers:   wrong,
		})
	}
	return final
}

// roundTo1 rounds v to one decimal place, the precision final results
// report accuracy at.
func roundTo1(v float64) float64 {
	return math.Round(v*10) / 10
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].AnsweredCount != entries[j].AnsweredCount {
			return entries[i].AnsweredCount < entries[j].AnsweredCount
		}
		return entries[i].UserID < entries[j].UserID
	})
}
