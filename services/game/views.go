package game

import (
	models "Soundcheck/models/postgres"
)

// allowedViews is the exhaustive table of dashboard views legal in each
// session status. A nil view (blank screen) is always legal and therefore
// not listed here.
var allowedViews = map[models.SessionStatus]map[models.DashboardView]bool{
	models.StatusLobby: {
		models.ViewQRCode:       true,
		models.ViewInstructions: true,
	},
	models.StatusInProgress: {
		models.ViewLeaderboard:  true,
		models.ViewInstructions: true,
	},
	models.StatusComplete: {
		models.ViewWinner:      true,
		models.ViewLeaderboard: true,
	},
}

// ViewAllowed reports whether the dashboard may show view while the session
// is in status. view == nil clears the screen and is always allowed.
func ViewAllowed(status models.SessionStatus, view *models.DashboardView) bool {
	if view == nil {
		return true
	}
	return allowedViews[status][*view]
}
