package game

import (
	"encoding/json"
	"strings"

	game_constants "Soundcheck/constants/game"
	models "Soundcheck/models/postgres"
)

// NormalizeAnswer folds the comparison forms of a submitted answer: case,
// surrounding space and internal runs of whitespace are all ignored.
func NormalizeAnswer(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// AnswerCorrect evaluates a submission against the question's accepted
// answers. Malformed accepted-answer JSON counts as "no accepted answers",
// so a broken content row can never award points.
func AnswerCorrect(q *models.Question, answer string) bool {
	var accepted []string
	if err := json.Unmarshal(q.AcceptedAnswers, &accepted); err != nil {
		return false
	}
	normalized := NormalizeAnswer(answer)
	if normalized == "" {
		return false
	}
	for _, a := range accepted {
		if NormalizeAnswer(a) == normalized {
			return true
		}
	}
	return false
}

// AnswerDelta is the single place the scoring formula lives. Fixed points
// per correct answer; swap this out for time-weighted scoring if that ever
// lands.
func AnswerDelta(correct bool) int {
	if !correct {
		return 0
	}
	return game_constants.CorrectAnswerPoints
}
