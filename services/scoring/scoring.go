package scoring

import (
	"context"
	"log"

	models "Soundcheck/models/postgres"
	redis_models "Soundcheck/models/redis"
	"Soundcheck/services/broadcast"
	"Soundcheck/services/game"
	"Soundcheck/services/store"
	syncpkg "Soundcheck/sync"
)

// Engine applies score deltas from answer submissions, exactly once per
// (player, question). The scored-answer row is checked and created inside
// the same transaction that bumps the score, so two concurrent retries can
// only apply the delta once.
type Engine struct {
	store       store.SessionStore
	locks       *syncpkg.SessionLocks
	broadcaster *broadcast.Broadcaster
}

func NewEngine(sessionStore store.SessionStore, locks *syncpkg.SessionLocks,
	broadcaster *broadcast.Broadcaster) *Engine {
	return &Engine{store: sessionStore, locks: locks, broadcaster: broadcaster}
}

// Result is what the submitting player gets back. A retry returns the prior
// result unchanged with AlreadyScored set.
type Result struct {
	Correct       bool `json:"correct"`
	Delta         int  `json:"delta"`
	TotalScore    int  `json:"total_score"`
	AlreadyScored bool `json:"already_scored"`
}

// SubmitAnswer evaluates and scores an answer for the current question.
// Submissions for a question the session has advanced past fail with
// QuestionMismatch rather than silently scoring against the wrong cursor.
func (e *Engine) SubmitAnswer(ctx context.Context, sessionID, playerID string, questionID int, answer string) (*Result, error) {
	e.locks.Lock(sessionID)
	defer e.locks.Unlock(sessionID)

	var result Result
	err := e.store.Transact(ctx, sessionID, func(tx store.Tx) error {
		session := tx.Session()
		if session.Status != models.StatusInProgress {
			return game.ErrInvalidTransition
		}

		player, err := tx.Player(playerID)
		if err != nil {
			return err
		}

		if session.CurrentQuestionID != questionID {
			return game.ErrQuestionMismatch
		}

		prior, err := tx.ScoredAnswer(playerID, questionID)
		if err != nil {
			return err
		}
		if prior != nil {
			result = Result{
				Correct:       prior.Correct,
				Delta:         prior.Delta,
				TotalScore:    player.Score,
				AlreadyScored: true,
			}
			return nil
		}

		questions, err := tx.Questions()
		if err != nil {
			return err
		}
		var question *models.Question
		for i := range questions {
			if questions[i].OrderNum == questionID {
				question = &questions[i]
				break
			}
		}
		if question == nil {
			return game.ErrQuestionMismatch
		}

		correct := game.AnswerCorrect(question, answer)
		delta := game.AnswerDelta(correct)

		player.Score += delta
		if err := tx.SavePlayer(player); err != nil {
			return err
		}
		if err := tx.CreateScoredAnswer(&models.ScoredAnswer{
			PlayerID:   playerID,
			QuestionID: questionID,
			Answer:     answer,
			Correct:    correct,
			Delta:      delta,
		}); err != nil {
			return err
		}

		result = Result{Correct: correct, Delta: delta, TotalScore: player.Score}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// A retry changed nothing, so there is no new commit to broadcast
	if !result.AlreadyScored {
		if _, err := e.publish(ctx, sessionID); err != nil {
			return nil, err
		}
	}
	return &result, nil
}

// publish mirrors the state machine's helper: a failed fan-out degrades to
// serving the canonical snapshot directly, and only a failure of that read
// too reaches the caller.
func (e *Engine) publish(ctx context.Context, sessionID string) (*redis_models.SessionSnapshot, error) {
	snapshot, err := e.broadcaster.Publish(ctx, sessionID)
	if err == nil {
		return snapshot, nil
	}
	log.Printf("[BROADCAST-ERROR] session %s: %v", sessionID, err)
	return e.broadcaster.Snapshot(ctx, sessionID)
}
