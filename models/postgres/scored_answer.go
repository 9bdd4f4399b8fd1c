package postgres

import (
	"time"
)

/*
 * 'ScoredAnswer' records that a (player, question) pair has been scored.
 * The composite primary key is what makes answer submission idempotent:
 * a retry finds the existing row inside the same transaction that would
 * apply the score delta, and returns the prior result instead.
 */
type ScoredAnswer struct {
	// NOTE: composite primary key definition
	GameSessionID string `gorm:"primaryKey;size:64;not null"`
	PlayerID      string `gorm:"primaryKey;size:64;not null"`
	QuestionID    int    `gorm:"primaryKey;not null"`
	Answer        string `gorm:"size:255"`
	Correct       bool   `gorm:"default:false"`
	Delta         int    `gorm:"default:0"`
	CreatedAt     time.Time

	GameSession GameSession `gorm:"foreignKey:GameSessionID"`
}
