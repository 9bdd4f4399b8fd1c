package sync

import (
	"context"
	"fmt"
	"log"

	redis_models "Soundcheck/models/redis"
	"Soundcheck/services/redis"
	"Soundcheck/services/store"
)

// SyncManager rebuilds the derived Redis caches from PostgreSQL. Postgres is
// the only authoritative state; everything in Redis (leaderboard ZSETs,
// cached snapshots) must survive being wiped, so on process start we replay
// it from the store.
type SyncManager struct {
	redisClient *redis.RedisClient
	store       store.SessionStore
}

// NewSyncManager creates a new instance of the synchronization manager
func NewSyncManager(redisClient *redis.RedisClient, sessionStore store.SessionStore) *SyncManager {
	return &SyncManager{
		redisClient: redisClient,
		store:       sessionStore,
	}
}

// WarmCaches rebuilds the leaderboard cache for every session that is still
// running. Called once at boot; failures are fatal because serving from a
// half-built cache would show stale scores to the dashboard.
func (sm *SyncManager) WarmCaches(ctx context.Context) error {
	sessions, err := sm.store.ActiveSessions(ctx)
	if err != nil {
		return fmt.Errorf("error listing active sessions: %w", err)
	}

	for _, session := range sessions {
		if err := sm.SyncSessionLeaderboard(ctx, session.ID); err != nil {
			return err
		}
	}

	log.Printf("[SYNC] Warmed caches for %d active sessions", len(sessions))
	return nil
}

// SyncSessionLeaderboard replaces one session's Redis leaderboard with the
// scores currently stored in PostgreSQL.
func (sm *SyncManager) SyncSessionLeaderboard(ctx context.Context, sessionID string) error {
	roster, err := sm.store.ReadRoster(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("error reading roster for session %s: %w", sessionID, err)
	}

	entries := make([]redis_models.RosterEntry, len(roster))
	for i, p := range roster {
		entries[i] = redis_models.RosterEntry{
			Name:         p.Name,
			PlayerNumber: p.PlayerNumber,
			Score:        p.Score,
		}
	}

	if err := sm.redisClient.UpdateLeaderboard(sessionID, entries); err != nil {
		return fmt.Errorf("error rebuilding leaderboard for session %s: %w", sessionID, err)
	}
	return nil
}
