package controllers

import (
	"Soundcheck/services/game"

	"github.com/gin-gonic/gin"
)

// Ping godoc
// @Summary Health check
// @Description Returns pong if the server is up
// @Tags health
// @Produce json
// @Success 200 {object} object{message=string}
// @Router /ping [get]
func Ping(c *gin.Context) {
	c.JSON(200, gin.H{"message": "pong"})
}

// respondError maps a taxonomy error to its HTTP status and stable kind.
// Controllers never invent their own failure payloads, so players and the
// host UI can switch on "error" directly.
func respondError(c *gin.Context, err error) {
	c.JSON(game.HTTPStatus(err), gin.H{
		"error":  game.Kind(err),
		"detail": err.Error(),
	})
}
