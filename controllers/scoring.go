package controllers

import (
	"net/http"

	"Soundcheck/services/scoring"

	"github.com/gin-gonic/gin"
)

type answerRequest struct {
	PlayerID   string `json:"player_id" binding:"required"`
	QuestionID int    `json:"question_id" binding:"required"`
	Answer     string `json:"answer"`
}

// @Summary Submits an answer for the current question
// @Description Scores the answer exactly once per player and question; a network retry returns the prior result unchanged. Answers for a question the session already advanced past are rejected with QuestionMismatch
// @Tags scoring
// @Accept json
// @Produce json
// @Param id path string true "Session id"
// @Param request body answerRequest true "Player credential, question cursor and answer text"
// @Success 200 {object} scoring.Result
// @Failure 422 {object} object{error=string}
// @Router /sessions/{id}/answer [post]
func SubmitAnswer(e *scoring.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req answerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "player_id and question_id are required"})
			return
		}

		result, err := e.SubmitAnswer(c.Request.Context(), c.Param("id"),
			req.PlayerID, req.QuestionID, req.Answer)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
