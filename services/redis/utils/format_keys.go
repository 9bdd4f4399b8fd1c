package utils

/**
 * This file contains utility functions to format the keys for Redis
 * (key, value) pairs. It avoids having to call "fmt.Sprintf(...)"
 * with the same format spec every time, potentially confusing the key format.
 */

import "fmt"

func FormatSessionSeqKey(sessionID string) string {
	return fmt.Sprintf("session:%s:seq", sessionID)
}

func FormatSessionSnapshotKey(sessionID string) string {
	return fmt.Sprintf("session:%s:snapshot", sessionID)
}

func FormatSessionLeaderboardKey(sessionID string) string {
	return fmt.Sprintf("session:%s:leaderboard", sessionID)
}

// All processes share one events channel; snapshots carry their session id,
// so each relay routes them to the right local room.
func FormatSessionEventsChannel() string {
	return "session:events"
}
