package handlers

import (
	"Soundcheck/services/game"
	"Soundcheck/services/scoring"
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/zishang520/socket.io/v2/socket"
)

// HandleSubmitAnswer scores an answer for the question the payload names.
// The result goes only to the submitting socket; everybody else sees the
// score change through the next session_update.
func HandleSubmitAnswer(engine *scoring.Engine, client *socket.Socket) func(args ...interface{}) {
	return func(args ...interface{}) {
		payload, ok := eventPayload(args)
		if !ok {
			client.Emit("error", gin.H{"error": "Missing answer payload"})
			return
		}

		sessionID := stringField(payload, "session_id")
		playerID := stringField(payload, "player_id")
		questionID := intField(payload, "question_id")
		answer := stringField(payload, "answer")
		if sessionID == "" || playerID == "" || questionID == 0 {
			client.Emit("error", gin.H{"error": "Missing session_id, player_id or question_id"})
			return
		}

		result, err := engine.SubmitAnswer(context.Background(), sessionID, playerID, questionID, answer)
		if err != nil {
			log.Printf("[ANSWER-ERROR] Session %s question %d: %v", sessionID, questionID, err)
			client.Emit("error", gin.H{"error": game.Kind(err)})
			return
		}

		client.Emit("answer_result", result)
	}
}
