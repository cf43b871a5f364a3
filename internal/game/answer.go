package game

import (
	"fmt"
	"sort"

	"github.com/dinhkhaphancs/live-quiz-runtime/internal/apperr"
	"github.com/dinhkhaphancs/live-quiz-runtime/internal/quizstore"
)

// evaluate checks a decoded answer value against a question's correct
// answer, dispatching on the question's declared type the way the original
// tagged-variant answer payload does: a single option index for
// singleMcq/trueFalse, a list of indices for multiMcq, and a mapping of
// drag items to drop targets for dragAndDrop.
func evaluate(q quizstore.Question, answer interface{}) (bool, error) {
	switch q.Type {
	case quizstore.QuestionSingleMCQ, quizstore.QuestionTrueFalse:
		return evaluateSingle(q, answer)
	case quizstore.QuestionMultiMCQ:
		return evaluateMulti(q, answer)
	case quizstore.QuestionDragAndDrop:
		return evaluateDragAndDrop(q, answer)
	default:
		return false, apperr.Invalid(fmt.Sprintf("unknown question type %q", q.Type))
	}
}

func evaluateSingle(q quizstore.Question, answer interface{}) (bool, error) {
	if q.CorrectOptionIndex == nil {
		return false, apperr.Corrupt("question has no correct option index recorded")
	}
	idx, ok := asInt(answer)
	if !ok {
		return false, apperr.ErrInvalidAnswerShape
	}
	return idx == *q.CorrectOptionIndex, nil
}

func evaluateMulti(q quizstore.Question, answer interface{}) (bool, error) {
	raw, ok := answer.([]interface{})
	if !ok {
		return false, apperr.ErrInvalidAnswerShape
	}
	selected := make([]int, 0, len(raw))
	for _, v := range raw {
		idx, ok := asInt(v)
		if !ok {
			return false, apperr.ErrInvalidAnswerShape
		}
		selected = append(selected, idx)
	}
	return sameIntSet(selected, q.CorrectOptionIndices), nil
}

func evaluateDragAndDrop(q quizstore.Question, answer interface{}) (bool, error) {
	raw, ok := answer.(map[string]interface{})
	if !ok {
		return false, apperr.ErrInvalidAnswerShape
	}
	if len(raw) != len(q.CorrectMatches) {
		return false, nil
	}
	for item, target := range q.CorrectMatches {
		got, ok := raw[item]
		if !ok {
			return false, nil
		}
		gotStr, ok := got.(string)
		if !ok || gotStr != target {
			return false, nil
		}
	}
	return true, nil
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

func sameIntSet(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	sa := append([]int(nil), a...)
	sb := append([]int(nil), b...)
	sort.Ints(sa)
	sort.Ints(sb)
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}
