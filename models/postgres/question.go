package postgres

import (
	"gorm.io/datatypes"
)

/*
 * 'Question' is external trivia content, read-only to this core. The ordered
 * sequence is defined by OrderNum (1-based); the session cursor points at an
 * OrderNum value. AcceptedAnswers is a jsonb array of answer strings compared
 * case-insensitively by the scoring engine.
 */
type Question struct {
	ID              uint           `gorm:"primaryKey"`
	OrderNum        int            `gorm:"not null;uniqueIndex:idx_questions_order_num"`
	Text            string         `gorm:"not null"`
	AcceptedAnswers datatypes.JSON `gorm:"type:jsonb;default:'[]'"`
	// Artist behind the current audio cue; drives the Spotify image lookup.
	// Empty when the question has no associated artist.
	Artist string `gorm:"size:255"`
}
