package postgres

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"gorm.io/gorm"
)

/*
 * 'Player' is one membership in a game session. The ID is the player's only
 * credential (a bearer token): it is crypto-random, returned once on join
 * and never broadcast or logged.
 */
type Player struct {
	ID            string    `gorm:"primaryKey;size:64;not null"`
	Name          string    `gorm:"size:100;not null"`
	PlayerNumber  int       `gorm:"not null;uniqueIndex:idx_players_session_number"`
	Score         int       `gorm:"default:0"`
	GameSessionID string    `gorm:"size:64;not null;index;uniqueIndex:idx_players_session_number"`
	JoinedAt      time.Time `gorm:"default:CURRENT_TIMESTAMP"`

	GameSession GameSession `gorm:"foreignKey:GameSessionID"`
}

// NewPlayerID returns the opaque bearer credential for a new player.
func NewPlayerID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

func (p *Player) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == "" {
		p.ID = NewPlayerID()
	}
	return nil
}
