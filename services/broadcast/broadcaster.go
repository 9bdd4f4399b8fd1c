package broadcast

import (
	"context"

	models "Soundcheck/models/postgres"
	redis_models "Soundcheck/models/redis"
	"Soundcheck/services/store"
)

// Backend is the slice of the Redis client the broadcaster needs: sequence
// allocation, snapshot caching, leaderboard maintenance and cross-process
// fan-out. services/redis.RedisClient implements it.
type Backend interface {
	NextSeq(sessionID string) (int64, error)
	CurrentSeq(sessionID string) (int64, error)
	SaveSnapshot(snapshot *redis_models.SessionSnapshot) error
	GetSnapshot(sessionID string) (*redis_models.SessionSnapshot, error)
	PublishSnapshot(snapshot *redis_models.SessionSnapshot) error
	UpdateLeaderboard(sessionID string, roster []redis_models.RosterEntry) error
}

// Broadcaster turns committed session state into ordered snapshot fan-out.
// It never reads anything but the store and never publishes state that has
// not been committed: callers invoke Publish after their transaction
// returns, still holding the per-session lock, which makes broadcast order
// equal commit order.
type Broadcaster struct {
	store   store.SessionStore
	backend Backend
}

func New(sessionStore store.SessionStore, backend Backend) *Broadcaster {
	return &Broadcaster{store: sessionStore, backend: backend}
}

// Publish builds the canonical snapshot of the session as just committed,
// stamps it with the next sequence number and fans it out. The snapshot
// cache is written before the pub/sub publish so a catch-up read can never
// be older than the stream.
func (b *Broadcaster) Publish(ctx context.Context, sessionID string) (*redis_models.SessionSnapshot, error) {
	session, err := b.store.Read(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	roster, err := b.store.ReadRoster(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	seq, err := b.backend.NextSeq(sessionID)
	if err != nil {
		return nil, err
	}

	snapshot := BuildSnapshot(session, roster, seq)

	if err := b.backend.SaveSnapshot(snapshot); err != nil {
		return nil, err
	}
	if err := b.backend.UpdateLeaderboard(sessionID, snapshot.Roster); err != nil {
		return nil, err
	}
	if err := b.backend.PublishSnapshot(snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Snapshot returns the current canonical snapshot for subscriber catch-up:
// the cached copy when present, otherwise rebuilt from the store with the
// current sequence number. Reconnecting clients always get a full snapshot,
// never a diff log.
func (b *Broadcaster) Snapshot(ctx context.Context, sessionID string) (*redis_models.SessionSnapshot, error) {
	cached, err := b.backend.GetSnapshot(sessionID)
	if err == nil && cached != nil {
		return cached, nil
	}

	session, err := b.store.Read(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	roster, err := b.store.ReadRoster(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	seq, err := b.backend.CurrentSeq(sessionID)
	if err != nil {
		seq = 0
	}
	return BuildSnapshot(session, roster, seq), nil
}

// BuildSnapshot flattens session + roster into the wire model. Player ids
// stay out of it: they are bearer credentials.
func BuildSnapshot(session *models.GameSession, roster []models.Player, seq int64) *redis_models.SessionSnapshot {
	entries := make([]redis_models.RosterEntry, len(roster))
	for i, p := range roster {
		entries[i] = redis_models.RosterEntry{
			Name:         p.Name,
			PlayerNumber: p.PlayerNumber,
			Score:        p.Score,
		}
	}
	return &redis_models.SessionSnapshot{
		Seq:                 seq,
		SessionID:           session.ID,
		JoinCode:            session.JoinCode,
		Status:              session.Status,
		CurrentQuestionID:   session.CurrentQuestionID,
		DetectedArtist:      session.DetectedArtist,
		DetectedArtistImage: session.DetectedArtistImage,
		DashboardView:       session.DashboardView,
		Roster:              entries,
	}
}
