package state

import (
	"context"
	"log"
	"time"

	models "Soundcheck/models/postgres"
	redis_models "Soundcheck/models/redis"
	"Soundcheck/services/broadcast"
	"Soundcheck/services/game"
	"Soundcheck/services/gateways"
	"Soundcheck/services/store"
	syncpkg "Soundcheck/sync"
)

// Machine is the sole authority over a session's status, question cursor,
// dashboard view and detected artist. Every mutation runs as one store
// transaction under the per-session lock, and the resulting snapshot is
// broadcast before the lock is released, so subscribers always see commits
// in commit order.
type Machine struct {
	store       store.SessionStore
	locks       *syncpkg.SessionLocks
	broadcaster *broadcast.Broadcaster
	artist      gateways.ArtistGateway // nil when the gateway is not configured
}

func NewMachine(sessionStore store.SessionStore, locks *syncpkg.SessionLocks,
	broadcaster *broadcast.Broadcaster, artist gateways.ArtistGateway) *Machine {
	return &Machine{
		store:       sessionStore,
		locks:       locks,
		broadcaster: broadcaster,
		artist:      artist,
	}
}

// CreateSession creates a fresh session in LOBBY and broadcasts its initial
// snapshot so a dashboard subscribing right after creation sees it.
func (m *Machine) CreateSession(ctx context.Context) (*models.GameSession, error) {
	session := &models.GameSession{
		Status: models.StatusLobby,
	}
	if err := m.store.Create(ctx, session); err != nil {
		return nil, err
	}

	m.locks.Lock(session.ID)
	defer m.locks.Unlock(session.ID)
	if _, err := m.publish(ctx, session.ID); err != nil {
		// The session exists either way; the first subscriber rebuilds the
		// snapshot from the store.
		log.Printf("[BROADCAST-ERROR] initial snapshot for session %s: %v", session.ID, err)
	}
	return session, nil
}

// StartSession transitions LOBBY -> IN_PROGRESS and points the cursor at
// the first question. Fails with InvalidTransition outside LOBBY and
// EmptyRoster when nobody has joined.
func (m *Machine) StartSession(ctx context.Context, sessionID string) (*redis_models.SessionSnapshot, error) {
	m.locks.Lock(sessionID)
	defer m.locks.Unlock(sessionID)

	var firstQuestion *models.Question
	err := m.store.Transact(ctx, sessionID, func(tx store.Tx) error {
		session := tx.Session()
		if session.Status != models.StatusLobby {
			return game.ErrInvalidTransition
		}
		roster, err := tx.Roster()
		if err != nil {
			return err
		}
		if len(roster) == 0 {
			return game.ErrEmptyRoster
		}
		questions, err := tx.Questions()
		if err != nil {
			return err
		}
		if len(questions) == 0 {
			return game.ErrInvalidTransition
		}

		session.Status = models.StatusInProgress
		session.CurrentQuestionID = questions[0].OrderNum
		if !game.ViewAllowed(session.Status, session.DashboardView) {
			session.DashboardView = nil
		}
		q := questions[0]
		firstQuestion = &q
		return nil
	})
	if err != nil {
		return nil, err
	}

	snapshot, err := m.publish(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	m.resolveArtist(sessionID, firstQuestion)
	return snapshot, nil
}

// AdvanceQuestion moves the cursor to the next question, or to COMPLETE
// when the sequence is exhausted. expectedCursor is the index the caller
// believes is current; a mismatch means a duplicate controller action and
// returns StaleCursor without touching anything, so a double-tap can never
// skip a question.
func (m *Machine) AdvanceQuestion(ctx context.Context, sessionID string, expectedCursor int) (*redis_models.SessionSnapshot, error) {
	m.locks.Lock(sessionID)
	defer m.locks.Unlock(sessionID)

	var nextQuestion *models.Question
	err := m.store.Transact(ctx, sessionID, func(tx store.Tx) error {
		session := tx.Session()
		if session.Status != models.StatusInProgress {
			return game.ErrInvalidTransition
		}
		if session.CurrentQuestionID != expectedCursor {
			return game.ErrStaleCursor
		}

		session.DetectedArtist = nil
		session.DetectedArtistImage = nil

		questions, err := tx.Questions()
		if err != nil {
			return err
		}
		for i := range questions {
			if questions[i].OrderNum > session.CurrentQuestionID {
				session.CurrentQuestionID = questions[i].OrderNum
				nextQuestion = &questions[i]
				return nil
			}
		}

		// Sequence exhausted
		session.Status = models.StatusComplete
		if !game.ViewAllowed(session.Status, session.DashboardView) {
			session.DashboardView = nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	snapshot, err := m.publish(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	m.resolveArtist(sessionID, nextQuestion)
	return snapshot, nil
}

// SetDashboardView switches the audience screen. view == nil blanks it.
func (m *Machine) SetDashboardView(ctx context.Context, sessionID string, view *models.DashboardView) (*redis_models.SessionSnapshot, error) {
	m.locks.Lock(sessionID)
	defer m.locks.Unlock(sessionID)

	err := m.store.Transact(ctx, sessionID, func(tx store.Tx) error {
		session := tx.Session()
		if !game.ViewAllowed(session.Status, view) {
			return game.ErrInvalidDashboardView
		}
		session.DashboardView = view
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m.publish(ctx, sessionID)
}

// RecordDetectedArtist is the side channel the artist gateway writes into.
// Last write wins; legal only while the session is IN_PROGRESS (an advance
// may have cleared the field since the lookup started).
func (m *Machine) RecordDetectedArtist(ctx context.Context, sessionID, artistName, imageURL string) (*redis_models.SessionSnapshot, error) {
	m.locks.Lock(sessionID)
	defer m.locks.Unlock(sessionID)

	err := m.store.Transact(ctx, sessionID, func(tx store.Tx) error {
		session := tx.Session()
		if session.Status != models.StatusInProgress {
			return game.ErrInvalidTransition
		}
		session.DetectedArtist = &artistName
		if imageURL != "" {
			session.DetectedArtistImage = &imageURL
		} else {
			session.DetectedArtistImage = nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m.publish(ctx, sessionID)
}

// publish broadcasts the just-committed state. A broadcast failure after
// commit does not undo the operation: the canonical state is served
// directly and subscribers heal on reconnect via snapshot catch-up. Only
// when that direct read fails too is the error surfaced, rather than
// handing the caller a nil snapshot.
func (m *Machine) publish(ctx context.Context, sessionID string) (*redis_models.SessionSnapshot, error) {
	snapshot, err := m.broadcaster.Publish(ctx, sessionID)
	if err == nil {
		return snapshot, nil
	}
	log.Printf("[BROADCAST-ERROR] session %s: %v", sessionID, err)
	return m.broadcaster.Snapshot(ctx, sessionID)
}

// resolveArtist fires the Spotify lookup for the question that just became
// current. It runs detached from the request: gateway latency or failure
// must never block or corrupt question advancement.
func (m *Machine) resolveArtist(sessionID string, question *models.Question) {
	if m.artist == nil || question == nil || question.Artist == "" {
		return
	}
	artistName := question.Artist
	questionID := question.OrderNum
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		imageURL, err := m.artist.ArtistImage(ctx, artistName)
		if err != nil {
			// Degrade: the session simply shows no artist image
			log.Printf("[ARTIST-LOOKUP] session %s, artist %q: %v", sessionID, artistName, err)
			return
		}
		if err := m.recordResolvedArtist(ctx, sessionID, questionID, artistName, imageURL); err != nil {
			// Usually the session advanced or completed while we were
			// looking up; the result is simply dropped.
			log.Printf("[ARTIST-LOOKUP] session %s: dropping result: %v", sessionID, err)
		}
	}()
}

// recordResolvedArtist is resolveArtist's write path: like
// RecordDetectedArtist but guarded by the cursor, so a slow lookup for an
// already-advanced question can never label the current one.
func (m *Machine) recordResolvedArtist(ctx context.Context, sessionID string, questionID int, artistName, imageURL string) error {
	m.locks.Lock(sessionID)
	defer m.locks.Unlock(sessionID)

	err := m.store.Transact(ctx, sessionID, func(tx store.Tx) error {
		session := tx.Session()
		if session.Status != models.StatusInProgress {
			return game.ErrInvalidTransition
		}
		if session.CurrentQuestionID != questionID {
			return game.ErrStaleCursor
		}
		session.DetectedArtist = &artistName
		session.DetectedArtistImage = &imageURL
		return nil
	})
	if err != nil {
		return err
	}
	_, err = m.publish(ctx, sessionID)
	return err
}
