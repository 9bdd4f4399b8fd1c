// Package storetest provides in-memory fakes for the session store and the
// broadcast backend so service tests run without Postgres or Redis.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	models "Soundcheck/models/postgres"
	redis_models "Soundcheck/models/redis"
	"Soundcheck/services/game"
	"Soundcheck/services/store"
)

// Store is an in-memory store.SessionStore. Mutations are serialized by a
// single mutex; a failed mutator leaves the previous state intact.
type Store struct {
	mu        sync.Mutex
	sessions  map[string]*models.GameSession
	players   map[string]map[string]*models.Player
	scored    map[string]map[string]*models.ScoredAnswer
	questions []models.Question
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*models.GameSession),
		players:  make(map[string]map[string]*models.Player),
		scored:   make(map[string]map[string]*models.ScoredAnswer),
	}
}

// SetQuestions replaces the question sequence served by Questions.
func (s *Store) SetQuestions(questions []models.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions = questions
}

func (s *Store) Create(ctx context.Context, session *models.GameSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session.ID == "" {
		session.ID = models.NewSessionID()
	}
	if session.JoinCode == "" {
		session.JoinCode = fmt.Sprintf("C%03d", len(s.sessions)+1)
	}
	copied := *session
	s.sessions[session.ID] = &copied
	s.players[session.ID] = make(map[string]*models.Player)
	s.scored[session.ID] = make(map[string]*models.ScoredAnswer)
	return nil
}

func (s *Store) Read(ctx context.Context, sessionID string) (*models.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, game.ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (s *Store) ReadByJoinCode(ctx context.Context, joinCode string) (*models.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.sessions {
		if session.JoinCode == joinCode {
			copied := *session
			return &copied, nil
		}
	}
	return nil, game.ErrSessionNotFound
}

func (s *Store) ReadRoster(ctx context.Context, sessionID string) ([]models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return nil, game.ErrSessionNotFound
	}
	return s.rosterLocked(sessionID), nil
}

func (s *Store) ActiveSessions(ctx context.Context) ([]models.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var active []models.GameSession
	for _, session := range s.sessions {
		if session.Status != models.StatusComplete {
			active = append(active, *session)
		}
	}
	return active, nil
}

func (s *Store) Questions(ctx context.Context) ([]models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Question(nil), s.questions...), nil
}

func (s *Store) Transact(ctx context.Context, sessionID string, mutator func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return game.ErrSessionNotFound
	}

	// Work on copies so a failed mutator rolls back.
	sessionCopy := *session
	playersCopy := make(map[string]*models.Player, len(s.players[sessionID]))
	for id, p := range s.players[sessionID] {
		copied := *p
		playersCopy[id] = &copied
	}
	scoredCopy := make(map[string]*models.ScoredAnswer, len(s.scored[sessionID]))
	for key, a := range s.scored[sessionID] {
		copied := *a
		scoredCopy[key] = &copied
	}

	tx := &memTx{
		store:   s,
		session: &sessionCopy,
		players: playersCopy,
		scored:  scoredCopy,
	}
	if err := mutator(tx); err != nil {
		return err
	}

	s.sessions[sessionID] = tx.session
	s.players[sessionID] = tx.players
	s.scored[sessionID] = tx.scored
	return nil
}

func (s *Store) rosterLocked(sessionID string) []models.Player {
	roster := make([]models.Player, 0, len(s.players[sessionID]))
	for _, p := range s.players[sessionID] {
		roster = append(roster, *p)
	}
	sort.Slice(roster, func(i, j int) bool {
		return roster[i].PlayerNumber < roster[j].PlayerNumber
	})
	return roster
}

type memTx struct {
	store   *Store
	session *models.GameSession
	players map[string]*models.Player
	scored  map[string]*models.ScoredAnswer
}

func (t *memTx) Session() *models.GameSession { return t.session }

func (t *memTx) Roster() ([]models.Player, error) {
	roster := make([]models.Player, 0, len(t.players))
	for _, p := range t.players {
		roster = append(roster, *p)
	}
	sort.Slice(roster, func(i, j int) bool {
		return roster[i].PlayerNumber < roster[j].PlayerNumber
	})
	return roster, nil
}

func (t *memTx) Player(playerID string) (*models.Player, error) {
	p, ok := t.players[playerID]
	if !ok {
		return nil, game.ErrUnknownPlayer
	}
	copied := *p
	return &copied, nil
}

func (t *memTx) CreatePlayer(player *models.Player) error {
	if player.ID == "" {
		player.ID = models.NewPlayerID()
	}
	copied := *player
	t.players[player.ID] = &copied
	return nil
}

func (t *memTx) SavePlayer(player *models.Player) error {
	copied := *player
	t.players[player.ID] = &copied
	return nil
}

func (t *memTx) DeletePlayer(playerID string) error {
	delete(t.players, playerID)
	return nil
}

func (t *memTx) ScoredAnswer(playerID string, questionID int) (*models.ScoredAnswer, error) {
	answer, ok := t.scored[scoredKey(playerID, questionID)]
	if !ok {
		return nil, nil
	}
	copied := *answer
	return &copied, nil
}

func (t *memTx) CreateScoredAnswer(answer *models.ScoredAnswer) error {
	copied := *answer
	t.scored[scoredKey(answer.PlayerID, answer.QuestionID)] = &copied
	return nil
}

func (t *memTx) Questions() ([]models.Question, error) {
	return append([]models.Question(nil), t.store.questions...), nil
}

func scoredKey(playerID string, questionID int) string {
	return fmt.Sprintf("%s:%d", playerID, questionID)
}

// Backend is an in-memory broadcast.Backend. It records every published
// snapshot in order so tests can assert on the fan-out stream.
type Backend struct {
	mu        sync.Mutex
	seqs      map[string]int64
	snapshots map[string]*redis_models.SessionSnapshot
	Published []*redis_models.SessionSnapshot
}

func NewBackend() *Backend {
	return &Backend{
		seqs:      make(map[string]int64),
		snapshots: make(map[string]*redis_models.SessionSnapshot),
	}
}

func (b *Backend) NextSeq(sessionID string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seqs[sessionID]++
	return b.seqs[sessionID], nil
}

func (b *Backend) CurrentSeq(sessionID string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seqs[sessionID], nil
}

func (b *Backend) SaveSnapshot(snapshot *redis_models.SessionSnapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshots[snapshot.SessionID] = snapshot
	return nil
}

func (b *Backend) GetSnapshot(sessionID string) (*redis_models.SessionSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshots[sessionID], nil
}

func (b *Backend) PublishSnapshot(snapshot *redis_models.SessionSnapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Published = append(b.Published, snapshot)
	return nil
}

func (b *Backend) UpdateLeaderboard(sessionID string, roster []redis_models.RosterEntry) error {
	return nil
}

// DropSnapshot evicts the cached snapshot, forcing the next catch-up read
// to rebuild from the store.
func (b *Backend) DropSnapshot(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.snapshots, sessionID)
}
