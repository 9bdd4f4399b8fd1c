package controllers

import (
	"net/http"
	"sort"
	"strings"

	redis_models "Soundcheck/models/redis"
	"Soundcheck/services/redis"
	"Soundcheck/services/roster"
	"Soundcheck/services/store"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type joinRequest struct {
	Name string `json:"name" binding:"required"`
	// Id from a previous join attempt, for retry detection
	RetryID string `json:"retry_id"`
}

type joinByCodeRequest struct {
	Code    string `json:"code" binding:"required"`
	Name    string `json:"name" binding:"required"`
	RetryID string `json:"retry_id"`
}

// @Summary Joins a session
// @Description Adds a player to the roster and returns the player record. The returned id is the player's bearer credential for answers and leave; it is also remembered in the cookie session for reconnect
// @Tags roster
// @Accept json
// @Produce json
// @Param id path string true "Session id"
// @Param request body joinRequest true "Display name"
// @Success 200 {object} object{player_id=string,name=string,player_number=int,score=int,snapshot=redis.SessionSnapshot}
// @Failure 409 {object} object{error=string}
// @Router /sessions/{id}/join [post]
func JoinSession(rm *roster.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req joinRequest
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
			return
		}

		sessionID := c.Param("id")
		player, snapshot, err := rm.Join(c.Request.Context(), sessionID, strings.TrimSpace(req.Name), req.RetryID)
		if err != nil {
			respondError(c, err)
			return
		}

		// Remember the credential for GET /play/me reconnects
		cookieSession := sessions.Default(c)
		cookieSession.Set("player_id", player.ID)
		cookieSession.Set("session_id", sessionID)
		cookieSession.Save()

		c.JSON(http.StatusOK, gin.H{
			"player_id":     player.ID,
			"name":          player.Name,
			"player_number": player.PlayerNumber,
			"score":         player.Score,
			"snapshot":      snapshot,
		})
	}
}

// @Summary Joins a session by join code
// @Description Same as joining by id, but resolves the short code from the dashboard QR screen first
// @Tags roster
// @Accept json
// @Produce json
// @Param request body joinByCodeRequest true "Join code and display name"
// @Success 200 {object} object{player_id=string,session_id=string,player_number=int,snapshot=redis.SessionSnapshot}
// @Failure 404 {object} object{error=string}
// @Router /join [post]
func JoinByCode(rm *roster.Manager, s store.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req joinByCodeRequest
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "code and name are required"})
			return
		}

		session, err := s.ReadByJoinCode(c.Request.Context(), strings.ToUpper(strings.TrimSpace(req.Code)))
		if err != nil {
			respondError(c, err)
			return
		}

		player, snapshot, err := rm.Join(c.Request.Context(), session.ID, strings.TrimSpace(req.Name), req.RetryID)
		if err != nil {
			respondError(c, err)
			return
		}

		cookieSession := sessions.Default(c)
		cookieSession.Set("player_id", player.ID)
		cookieSession.Set("session_id", session.ID)
		cookieSession.Save()

		c.JSON(http.StatusOK, gin.H{
			"player_id":     player.ID,
			"session_id":    session.ID,
			"name":          player.Name,
			"player_number": player.PlayerNumber,
			"score":         player.Score,
			"snapshot":      snapshot,
		})
	}
}

type leaveRequest struct {
	PlayerID string `json:"player_id" binding:"required"`
}

// @Summary Leaves a session
// @Description Removes the player from the roster. Remaining player numbers are not compacted
// @Tags roster
// @Accept json
// @Produce json
// @Param id path string true "Session id"
// @Param request body leaveRequest true "Player credential"
// @Success 200 {object} redis.SessionSnapshot
// @Failure 404 {object} object{error=string}
// @Router /sessions/{id}/leave [post]
func LeaveSession(rm *roster.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req leaveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "player_id is required"})
			return
		}

		snapshot, err := rm.Leave(c.Request.Context(), c.Param("id"), req.PlayerID)
		if err != nil {
			respondError(c, err)
			return
		}

		cookieSession := sessions.Default(c)
		cookieSession.Delete("player_id")
		cookieSession.Delete("session_id")
		cookieSession.Save()

		c.JSON(http.StatusOK, snapshot)
	}
}

// @Summary Reconnect info
// @Description Returns the player credential remembered in the cookie session, so a refreshed browser can resume without rejoining
// @Tags roster
// @Produce json
// @Success 200 {object} object{player_id=string,session_id=string}
// @Failure 404 {object} object{error=string}
// @Router /play/me [get]
func Me() gin.HandlerFunc {
	return func(c *gin.Context) {
		cookieSession := sessions.Default(c)
		playerID, _ := cookieSession.Get("player_id").(string)
		sessionID, _ := cookieSession.Get("session_id").(string)
		if playerID == "" || sessionID == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "no active membership"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"player_id": playerID, "session_id": sessionID})
	}
}

// @Summary Session leaderboard
// @Description Players ordered best-to-worst. Served from the Redis leaderboard cache when warm, otherwise recomputed from the store
// @Tags roster
// @Produce json
// @Param id path string true "Session id"
// @Success 200 {array} object{position=int,name=string,player_number=int,score=int}
// @Failure 404 {object} object{error=string}
// @Router /sessions/{id}/leaderboard [get]
func GetLeaderboard(s store.SessionStore, rc *redis.RedisClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("id")
		rosterPlayers, err := s.ReadRoster(c.Request.Context(), sessionID)
		if err != nil {
			respondError(c, err)
			return
		}

		byNumber := make(map[int]redis_models.RosterEntry, len(rosterPlayers))
		for _, p := range rosterPlayers {
			byNumber[p.PlayerNumber] = redis_models.RosterEntry{
				Name:         p.Name,
				PlayerNumber: p.PlayerNumber,
				Score:        p.Score,
			}
		}

		ordered := make([]redis_models.RosterEntry, 0, len(rosterPlayers))
		if scores, order, err := rc.GetLeaderboard(sessionID); err == nil && len(order) == len(rosterPlayers) {
			for _, number := range order {
				entry, ok := byNumber[number]
				if !ok {
					continue
				}
				entry.Score = scores[number]
				ordered = append(ordered, entry)
			}
		} else {
			// Cache cold or stale: recompute from the store
			for _, entry := range byNumber {
				ordered = append(ordered, entry)
			}
			sort.Slice(ordered, func(i, j int) bool {
				if ordered[i].Score != ordered[j].Score {
					return ordered[i].Score > ordered[j].Score
				}
				return ordered[i].PlayerNumber < ordered[j].PlayerNumber
			})
		}

		entries := make([]gin.H, len(ordered))
		for i, entry := range ordered {
			entries[i] = gin.H{
				"position":      i + 1,
				"name":          entry.Name,
				"player_number": entry.PlayerNumber,
				"score":         entry.Score,
			}
		}
		c.JSON(http.StatusOK, entries)
	}
}
