package postgres

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"time"

	"gorm.io/gorm"
)

// SessionStatus is the coarse lifecycle of a game session. Transitions are
// validated by the state machine; nothing else writes this column.
type SessionStatus string

const (
	StatusLobby      SessionStatus = "LOBBY"
	StatusInProgress SessionStatus = "IN_PROGRESS"
	StatusComplete   SessionStatus = "COMPLETE"
)

// DashboardView is the display mode of the audience-facing screen. It is
// orthogonal to SessionStatus but gated by it (see services/game).
type DashboardView string

const (
	ViewQRCode       DashboardView = "QR_CODE"
	ViewLeaderboard  DashboardView = "LEADERBOARD"
	ViewWinner       DashboardView = "WINNER"
	ViewInstructions DashboardView = "INSTRUCTIONS"
)

/*
 * 'GameSession' is one run of the trivia game from lobby to completion.
 * It is the single durable source of truth for session progress; every
 * mutation goes through a store transaction scoped by its ID.
 */
type GameSession struct {
	ID                  string         `gorm:"primaryKey;size:64;not null"`
	JoinCode            string         `gorm:"size:8;not null;uniqueIndex:idx_game_sessions_join_code"`
	Status              SessionStatus  `gorm:"size:20;not null;default:'LOBBY';index:idx_game_sessions_status"`
	CurrentQuestionID   int            `gorm:"default:0"`
	DetectedArtist      *string        `gorm:"size:255"`
	DetectedArtistImage *string        `gorm:"size:512"`
	DashboardView       *DashboardView `gorm:"size:20"`
	CreatedAt           time.Time      `gorm:"default:CURRENT_TIMESTAMP"`
	UpdatedAt           time.Time

	// Relationship with the players currently joined to the session
	Players []*Player `gorm:"foreignKey:GameSessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// Join codes are short so the audience can type them from the QR screen
const joinCodeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func generateJoinCode(length int) string {
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(joinCodeCharset))))
		if err != nil {
			// crypto/rand never fails on supported platforms
			panic(err)
		}
		b[i] = joinCodeCharset[n.Int64()]
	}
	return string(b)
}

// NewSessionID returns an opaque random identifier. Session and player ids
// double as bearer credentials, so they must not be guessable.
func NewSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

// BeforeCreate fills in the random ID and ensures the join code is unique.
// Collisions are rare but the code space is small, so loop until free.
func (s *GameSession) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == "" {
		s.ID = NewSessionID()
	}
	if s.JoinCode != "" {
		return nil
	}
	for {
		code := generateJoinCode(4)
		var existing GameSession
		if err := tx.Where("join_code = ?", code).First(&existing).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				s.JoinCode = code
				return nil
			}
			return err
		}
	}
}
