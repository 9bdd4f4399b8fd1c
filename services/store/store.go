package store

import (
	"context"

	models "Soundcheck/models/postgres"
)

// SessionStore is the single source of truth for sessions, players and
// scored answers. Mutations only happen inside Transact, whose mutator runs
// all-or-nothing against one session's rows; everything a component keeps in
// memory is a rebuildable cache on top of this.
type SessionStore interface {
	Create(ctx context.Context, session *models.GameSession) error
	Read(ctx context.Context, sessionID string) (*models.GameSession, error)
	ReadByJoinCode(ctx context.Context, joinCode string) (*models.GameSession, error)
	ReadRoster(ctx context.Context, sessionID string) ([]models.Player, error)
	// ActiveSessions lists every session that has not completed yet; used to
	// rebuild derived caches after a process restart.
	ActiveSessions(ctx context.Context) ([]models.GameSession, error)
	Questions(ctx context.Context) ([]models.Question, error)
	Transact(ctx context.Context, sessionID string, mutator func(tx Tx) error) error
}

// Tx is the view a mutator gets of one session while its row is locked.
// Session() is mutable in place and saved when the mutator returns nil;
// player and scored-answer writes are explicit.
type Tx interface {
	Session() *models.GameSession
	Roster() ([]models.Player, error)
	Player(playerID string) (*models.Player, error)
	CreatePlayer(player *models.Player) error
	SavePlayer(player *models.Player) error
	DeletePlayer(playerID string) error
	// ScoredAnswer returns (nil, nil) when the pair has not been scored yet.
	ScoredAnswer(playerID string, questionID int) (*models.ScoredAnswer, error)
	CreateScoredAnswer(answer *models.ScoredAnswer) error
	Questions() ([]models.Question, error)
}
