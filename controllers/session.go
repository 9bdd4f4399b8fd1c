package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"Soundcheck/middleware"
	models "Soundcheck/models/postgres"
	"Soundcheck/services/broadcast"
	"Soundcheck/services/game"
	"Soundcheck/services/state"
	"Soundcheck/services/store"

	"github.com/gin-gonic/gin"
)

// @Summary Creates a new game session
// @Description Creates a session in LOBBY and returns its join code, the QR join URL and the host token that authorizes controller actions
// @Tags session
// @Produce json
// @Success 200 {object} object{session_id=string,join_code=string,join_url=string,host_token=string}
// @Failure 500 {object} object{error=string}
// @Router /sessions [post]
func CreateSession(sm *state.Machine) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := sm.CreateSession(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}

		hostToken, err := middleware.IssueHostToken(session.ID)
		if err != nil {
			respondError(c, fmt.Errorf("%w: signing host token: %v", game.ErrStoreUnavailable, err))
			return
		}

		baseURL := os.Getenv("PUBLIC_BASE_URL")
		c.JSON(http.StatusOK, gin.H{
			"session_id": session.ID,
			"join_code":  session.JoinCode,
			"join_url":   fmt.Sprintf("%s/join/%s", baseURL, session.JoinCode),
			"host_token": hostToken,
		})
	}
}

// @Summary Current session snapshot
// @Description Returns the latest committed snapshot of the session (same payload the realtime channel delivers)
// @Tags session
// @Produce json
// @Param id path string true "Session id"
// @Success 200 {object} redis.SessionSnapshot
// @Failure 404 {object} object{error=string}
// @Router /sessions/{id} [get]
func GetSession(b *broadcast.Broadcaster) gin.HandlerFunc {
	return func(c *gin.Context) {
		snapshot, err := b.Snapshot(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, snapshot)
	}
}

// @Summary Starts the session
// @Description Transitions LOBBY to IN_PROGRESS and activates the first question
// @Tags session
// @Produce json
// @Param Authorization header string true "Bearer host token"
// @Param id path string true "Session id"
// @Success 200 {object} redis.SessionSnapshot
// @Failure 409 {object} object{error=string}
// @Router /sessions/{id}/start [post]
// @Security ApiKeyAuth
func StartSession(sm *state.Machine) gin.HandlerFunc {
	return func(c *gin.Context) {
		snapshot, err := sm.StartSession(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, snapshot)
	}
}

type advanceRequest struct {
	ExpectedCursor int `json:"expected_cursor" binding:"required"`
}

// @Summary Advances to the next question
// @Description Moves the cursor forward, or completes the session after the last question. The caller supplies the cursor it believes is current; on mismatch nothing changes and the canonical snapshot is returned alongside a StaleCursor error
// @Tags session
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer host token"
// @Param id path string true "Session id"
// @Param request body advanceRequest true "Cursor the controller believes is current"
// @Success 200 {object} redis.SessionSnapshot
// @Failure 409 {object} object{error=string,snapshot=redis.SessionSnapshot}
// @Router /sessions/{id}/advance [post]
// @Security ApiKeyAuth
func AdvanceQuestion(sm *state.Machine, b *broadcast.Broadcaster) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req advanceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "expected_cursor is required"})
			return
		}

		sessionID := c.Param("id")
		snapshot, err := sm.AdvanceQuestion(c.Request.Context(), sessionID, req.ExpectedCursor)
		if err != nil {
			if errors.Is(err, game.ErrStaleCursor) {
				// Duplicate controller action: no-op beyond reporting the
				// canonical state it raced against
				current, _ := b.Snapshot(c.Request.Context(), sessionID)
				c.JSON(http.StatusConflict, gin.H{
					"error":    game.Kind(err),
					"snapshot": current,
				})
				return
			}
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, snapshot)
	}
}

type dashboardViewRequest struct {
	// Empty view clears the dashboard
	View string `json:"view"`
}

// @Summary Sets the dashboard view
// @Description Switches the audience screen between QR_CODE, LEADERBOARD, WINNER, INSTRUCTIONS or blank, subject to the current session status
// @Tags session
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer host token"
// @Param id path string true "Session id"
// @Param request body dashboardViewRequest true "Requested view, empty to blank the screen"
// @Success 200 {object} redis.SessionSnapshot
// @Failure 409 {object} object{error=string}
// @Router /sessions/{id}/dashboard_view [post]
// @Security ApiKeyAuth
func SetDashboardView(sm *state.Machine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dashboardViewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		var view *models.DashboardView
		if req.View != "" {
			v := models.DashboardView(req.View)
			switch v {
			case models.ViewQRCode, models.ViewLeaderboard, models.ViewWinner, models.ViewInstructions:
				view = &v
			default:
				respondError(c, game.ErrInvalidDashboardView)
				return
			}
		}

		snapshot, err := sm.SetDashboardView(c.Request.Context(), c.Param("id"), view)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, snapshot)
	}
}

type detectedArtistRequest struct {
	Artist   string `json:"artist" binding:"required"`
	ImageURL string `json:"image_url"`
}

// @Summary Records the detected artist
// @Description Writes the artist the DJ software detected for the current audio cue onto the session, last write wins. Legal only while the session is IN_PROGRESS
// @Tags session
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer host token"
// @Param id path string true "Session id"
// @Param request body detectedArtistRequest true "Detected artist and optional image URL"
// @Success 200 {object} redis.SessionSnapshot
// @Failure 409 {object} object{error=string}
// @Router /sessions/{id}/detected_artist [post]
// @Security ApiKeyAuth
func SetDetectedArtist(sm *state.Machine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req detectedArtistRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "artist is required"})
			return
		}

		snapshot, err := sm.RecordDetectedArtist(c.Request.Context(), c.Param("id"), req.Artist, req.ImageURL)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, snapshot)
	}
}

// @Summary Lists the question sequence
// @Description Host-only view of the ordered questions, including accepted answers and artists
// @Tags session
// @Produce json
// @Param Authorization header string true "Bearer host token"
// @Param id path string true "Session id"
// @Success 200 {array} postgres.Question
// @Router /sessions/{id}/questions [get]
// @Security ApiKeyAuth
func ListQuestions(s store.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		questions, err := s.Questions(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, questions)
	}
}
