package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"Soundcheck/services/game"
	"Soundcheck/services/gateways"

	"github.com/gin-gonic/gin"
)

// @Summary Artist image lookup
// @Description Resolves an artist name through Spotify and redirects the browser straight to the image URL. Failures never affect session state
// @Tags gateways
// @Param artist_name path string true "Artist name"
// @Success 307
// @Failure 404 {object} object{error=string}
// @Failure 502 {object} object{error=string}
// @Router /artist_image/{artist_name} [get]
func ArtistImage(gw gateways.ArtistGateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		if gw == nil {
			respondError(c, fmt.Errorf("%w: artist gateway not configured", game.ErrGatewayUnavailable))
			return
		}
		imageURL, err := gw.ArtistImage(c.Request.Context(), c.Param("artist_name"))
		if err != nil {
			if errors.Is(err, gateways.ErrArtistNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			respondError(c, err)
			return
		}
		c.Redirect(http.StatusTemporaryRedirect, imageURL)
	}
}

type vdjRequest struct {
	Script string `json:"script" binding:"required"`
}

// @Summary Dispatches a Virtual DJ script
// @Description Forwards the script to the local Virtual DJ instance and returns its text response. Connectivity failures are reported to the controller only
// @Tags gateways
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer host token"
// @Param request body vdjRequest true "VDJ script"
// @Success 200 {object} object{result=string}
// @Failure 502 {object} object{error=string}
// @Router /controller/vdj [post]
// @Security ApiKeyAuth
func RunDJScript(gw gateways.DJGateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req vdjRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": `a "script" parameter is required`})
			return
		}
		if gw == nil {
			respondError(c, fmt.Errorf("%w: DJ gateway not configured", game.ErrGatewayUnavailable))
			return
		}

		result, err := gw.RunScript(c.Request.Context(), req.Script)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"result": result})
	}
}
