package redis

import "Soundcheck/models/postgres"

// SessionSnapshot is the self-sufficient view of a session published to every
// subscriber after each committed transaction, and replayed as-is for
// reconnect catch-up. Seq increases by one per commit within a session so
// clients can suppress duplicates.
type SessionSnapshot struct {
	Seq                 int64                   `json:"seq"`
	SessionID           string                  `json:"session_id"`
	JoinCode            string                  `json:"join_code"`
	Status              postgres.SessionStatus  `json:"status"`
	CurrentQuestionID   int                     `json:"current_question_id"`
	DetectedArtist      *string                 `json:"detected_artist"`
	DetectedArtistImage *string                 `json:"detected_artist_image"`
	DashboardView       *postgres.DashboardView `json:"dashboard_view"`
	Roster              []RosterEntry           `json:"roster"`
}

// RosterEntry deliberately omits the player ID: ids are bearer credentials
// and must never reach other subscribers.
type RosterEntry struct {
	Name         string `json:"name"`
	PlayerNumber int    `json:"player_number"`
	Score        int    `json:"score"`
}
