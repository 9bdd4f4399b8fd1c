package store

import (
	"context"
	"errors"
	"fmt"

	models "Soundcheck/models/postgres"
	"Soundcheck/services/game"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements SessionStore on PostgreSQL. Transact takes a row-level
// lock (SELECT ... FOR UPDATE) on the session, so concurrent mutators for the
// same session serialize at the database even when multiple processes of this
// core run side by side.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// taxonomy errors produced by mutators must pass through Transact unchanged
var passthrough = []error{
	game.ErrSessionNotFound,
	game.ErrInvalidTransition,
	game.ErrEmptyRoster,
	game.ErrStaleCursor,
	game.ErrInvalidDashboardView,
	game.ErrSessionNotJoinable,
	game.ErrDuplicatePlayer,
	game.ErrQuestionMismatch,
	game.ErrUnknownPlayer,
}

func wrapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range passthrough {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", game.ErrStoreUnavailable, err)
}

func (s *GormStore) Create(ctx context.Context, session *models.GameSession) error {
	return wrapStoreErr(s.db.WithContext(ctx).Create(session).Error)
}

func (s *GormStore) Read(ctx context.Context, sessionID string) (*models.GameSession, error) {
	var session models.GameSession
	if err := s.db.WithContext(ctx).Where("id = ?", sessionID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, game.ErrSessionNotFound
		}
		return nil, wrapStoreErr(err)
	}
	return &session, nil
}

func (s *GormStore) ReadByJoinCode(ctx context.Context, joinCode string) (*models.GameSession, error) {
	var session models.GameSession
	if err := s.db.WithContext(ctx).Where("join_code = ?", joinCode).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, game.ErrSessionNotFound
		}
		return nil, wrapStoreErr(err)
	}
	return &session, nil
}

func (s *GormStore) ReadRoster(ctx context.Context, sessionID string) ([]models.Player, error) {
	var players []models.Player
	err := s.db.WithContext(ctx).
		Where("game_session_id = ?", sessionID).
		Order("player_number ASC").
		Find(&players).Error
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return players, nil
}

func (s *GormStore) ActiveSessions(ctx context.Context) ([]models.GameSession, error) {
	var sessions []models.GameSession
	err := s.db.WithContext(ctx).
		Where("status <> ?", models.StatusComplete).
		Find(&sessions).Error
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return sessions, nil
}

func (s *GormStore) Questions(ctx context.Context) ([]models.Question, error) {
	var questions []models.Question
	if err := s.db.WithContext(ctx).Order("order_num ASC").Find(&questions).Error; err != nil {
		return nil, wrapStoreErr(err)
	}
	return questions, nil
}

func (s *GormStore) Transact(ctx context.Context, sessionID string, mutator func(tx Tx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session models.GameSession
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", sessionID).
			First(&session).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return game.ErrSessionNotFound
			}
			return err
		}
		gtx := &gormTx{db: tx, session: &session}
		if err := mutator(gtx); err != nil {
			return err
		}
		return tx.Save(&session).Error
	})
	return wrapStoreErr(err)
}

type gormTx struct {
	db      *gorm.DB
	session *models.GameSession
}

func (t *gormTx) Session() *models.GameSession {
	return t.session
}

func (t *gormTx) Roster() ([]models.Player, error) {
	var players []models.Player
	err := t.db.Where("game_session_id = ?", t.session.ID).
		Order("player_number ASC").
		Find(&players).Error
	return players, err
}

func (t *gormTx) Player(playerID string) (*models.Player, error) {
	var player models.Player
	err := t.db.Where("id = ? AND game_session_id = ?", playerID, t.session.ID).
		First(&player).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, game.ErrUnknownPlayer
		}
		return nil, err
	}
	return &player, nil
}

func (t *gormTx) CreatePlayer(player *models.Player) error {
	player.GameSessionID = t.session.ID
	return t.db.Create(player).Error
}

func (t *gormTx) SavePlayer(player *models.Player) error {
	return t.db.Save(player).Error
}

func (t *gormTx) DeletePlayer(playerID string) error {
	return t.db.Where("id = ? AND game_session_id = ?", playerID, t.session.ID).
		Delete(&models.Player{}).Error
}

func (t *gormTx) ScoredAnswer(playerID string, questionID int) (*models.ScoredAnswer, error) {
	var scored models.ScoredAnswer
	err := t.db.Where("game_session_id = ? AND player_id = ? AND question_id = ?",
		t.session.ID, playerID, questionID).First(&scored).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &scored, nil
}

func (t *gormTx) CreateScoredAnswer(answer *models.ScoredAnswer) error {
	answer.GameSessionID = t.session.ID
	return t.db.Create(answer).Error
}

func (t *gormTx) Questions() ([]models.Question, error) {
	var questions []models.Question
	err := t.db.Order("order_num ASC").Find(&questions).Error
	return questions, err
}
