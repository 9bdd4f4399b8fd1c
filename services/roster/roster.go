package roster

import (
	"context"
	"log"
	"time"

	game_constants "Soundcheck/constants/game"
	models "Soundcheck/models/postgres"
	redis_models "Soundcheck/models/redis"
	"Soundcheck/services/broadcast"
	"Soundcheck/services/game"
	"Soundcheck/services/store"
	syncpkg "Soundcheck/sync"
)

// Manager owns player join/leave and numbering. Numbers are assigned in
// join order starting at 1 and never reused or compacted: renumbering on
// leave would race renumber broadcasts against score updates.
type Manager struct {
	store       store.SessionStore
	locks       *syncpkg.SessionLocks
	broadcaster *broadcast.Broadcaster
	// Resolution of the late-join policy question: joins during IN_PROGRESS
	// are allowed only when this flag is set (ALLOW_LATE_JOIN env).
	allowLateJoin bool
}

func NewManager(sessionStore store.SessionStore, locks *syncpkg.SessionLocks,
	broadcaster *broadcast.Broadcaster, allowLateJoin bool) *Manager {
	return &Manager{
		store:         sessionStore,
		locks:         locks,
		broadcaster:   broadcaster,
		allowLateJoin: allowLateJoin,
	}
}

// Join adds a player to the session and returns the full record including
// the freshly generated opaque id. The id is the player's only credential:
// hand it to the joining client, never to anyone else. retryID carries the
// id from a previous join attempt so a network retry is detected as
// DuplicatePlayer instead of joining twice; a retry id the roster does not
// contain is discarded, never adopted — the credential is always minted
// server-side from crypto/rand.
func (m *Manager) Join(ctx context.Context, sessionID, name, retryID string) (*models.Player, *redis_models.SessionSnapshot, error) {
	m.locks.Lock(sessionID)
	defer m.locks.Unlock(sessionID)

	var player *models.Player
	err := m.store.Transact(ctx, sessionID, func(tx store.Tx) error {
		session := tx.Session()
		joinable := session.Status == models.StatusLobby ||
			(m.allowLateJoin && session.Status == models.StatusInProgress)
		if !joinable {
			return game.ErrSessionNotJoinable
		}

		current, err := tx.Roster()
		if err != nil {
			return err
		}
		nextNumber := game_constants.FirstPlayerNumber
		for _, p := range current {
			if retryID != "" && p.ID == retryID {
				return game.ErrDuplicatePlayer
			}
			if p.PlayerNumber >= nextNumber {
				nextNumber = p.PlayerNumber + 1
			}
		}

		player = &models.Player{
			Name:         name,
			PlayerNumber: nextNumber,
			Score:        0,
			JoinedAt:     time.Now(),
		}
		return tx.CreatePlayer(player)
	})
	if err != nil {
		return nil, nil, err
	}

	snapshot, err := m.publish(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	return player, snapshot, nil
}

// Leave removes the player. Remaining numbers keep their values, so the
// roster is stable but no longer contiguous.
func (m *Manager) Leave(ctx context.Context, sessionID, playerID string) (*redis_models.SessionSnapshot, error) {
	m.locks.Lock(sessionID)
	defer m.locks.Unlock(sessionID)

	err := m.store.Transact(ctx, sessionID, func(tx store.Tx) error {
		if _, err := tx.Player(playerID); err != nil {
			return err
		}
		return tx.DeletePlayer(playerID)
	})
	if err != nil {
		return nil, err
	}
	return m.publish(ctx, sessionID)
}

// publish mirrors the state machine's helper: a failed fan-out degrades to
// serving the canonical snapshot directly, and only a failure of that read
// too reaches the caller.
func (m *Manager) publish(ctx context.Context, sessionID string) (*redis_models.SessionSnapshot, error) {
	snapshot, err := m.broadcaster.Publish(ctx, sessionID)
	if err == nil {
		return snapshot, nil
	}
	log.Printf("[BROADCAST-ERROR] session %s: %v", sessionID, err)
	return m.broadcaster.Snapshot(ctx, sessionID)
}
