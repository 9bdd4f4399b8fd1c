package scoring_test

import (
	"context"
	gosync "sync"
	"sync/atomic"
	"testing"

	game_constants "Soundcheck/constants/game"
	models "Soundcheck/models/postgres"
	"Soundcheck/services/broadcast"
	"Soundcheck/services/game"
	"Soundcheck/services/scoring"
	"Soundcheck/services/store"
	"Soundcheck/services/store/storetest"
	syncpkg "Soundcheck/sync"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type fixture struct {
	store   *storetest.Store
	backend *storetest.Backend
	engine  *scoring.Engine
}

// newFixture seeds one IN_PROGRESS session on question 1 with one player.
func newFixture(t *testing.T) (*fixture, *models.GameSession, *models.Player) {
	memStore := storetest.NewStore()
	backend := storetest.NewBackend()
	broadcaster := broadcast.New(memStore, backend)
	engine := scoring.NewEngine(memStore, syncpkg.NewSessionLocks(), broadcaster)

	memStore.SetQuestions([]models.Question{
		{ID: 1, OrderNum: 1, Text: "Who plays this song?", AcceptedAnswers: datatypes.JSON(`["Daft Punk"]`)},
		{ID: 2, OrderNum: 2, Text: "And this one?", AcceptedAnswers: datatypes.JSON(`["Justice"]`)},
	})

	session := &models.GameSession{Status: models.StatusInProgress, CurrentQuestionID: 1}
	require.NoError(t, memStore.Create(context.Background(), session))

	player := &models.Player{Name: "Ana", PlayerNumber: 1, GameSessionID: session.ID}
	err := memStore.Transact(context.Background(), session.ID, func(tx store.Tx) error {
		return tx.CreatePlayer(player)
	})
	require.NoError(t, err)

	return &fixture{store: memStore, backend: backend, engine: engine}, session, player
}

func TestSubmitCorrectAnswer(t *testing.T) {
	f, session, player := newFixture(t)

	result, err := f.engine.SubmitAnswer(context.Background(), session.ID, player.ID, 1, "  daft  PUNK ")
	require.NoError(t, err)

	assert.True(t, result.Correct)
	assert.Equal(t, game_constants.CorrectAnswerPoints, result.Delta)
	assert.Equal(t, game_constants.CorrectAnswerPoints, result.TotalScore)
	assert.False(t, result.AlreadyScored)

	// Score change reaches subscribers
	last := f.backend.Published[len(f.backend.Published)-1]
	require.Len(t, last.Roster, 1)
	assert.Equal(t, game_constants.CorrectAnswerPoints, last.Roster[0].Score)
}

func TestSubmitWrongAnswer(t *testing.T) {
	f, session, player := newFixture(t)

	result, err := f.engine.SubmitAnswer(context.Background(), session.ID, player.ID, 1, "Justice")
	require.NoError(t, err)

	assert.False(t, result.Correct)
	assert.Equal(t, 0, result.Delta)
	assert.Equal(t, 0, result.TotalScore)
}

func TestSubmitRetryScoresExactlyOnce(t *testing.T) {
	f, session, player := newFixture(t)

	first, err := f.engine.SubmitAnswer(context.Background(), session.ID, player.ID, 1, "Daft Punk")
	require.NoError(t, err)
	published := len(f.backend.Published)

	retry, err := f.engine.SubmitAnswer(context.Background(), session.ID, player.ID, 1, "Daft Punk")
	require.NoError(t, err)

	assert.True(t, retry.AlreadyScored)
	assert.Equal(t, first.Correct, retry.Correct)
	assert.Equal(t, first.Delta, retry.Delta)
	assert.Equal(t, first.TotalScore, retry.TotalScore)

	// No double credit, and nothing new on the wire
	roster, err := f.store.ReadRoster(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, game_constants.CorrectAnswerPoints, roster[0].Score)
	assert.Len(t, f.backend.Published, published)
}

func TestSubmitConcurrentRetriesScoreOnce(t *testing.T) {
	f, session, player := newFixture(t)

	// The same submission arrives twice at once, as a network retry would
	var wg gosync.WaitGroup
	var fresh, replayed int32
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := f.engine.SubmitAnswer(context.Background(), session.ID, player.ID, 1, "Daft Punk")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if result.AlreadyScored {
				atomic.AddInt32(&replayed, 1)
			} else {
				atomic.AddInt32(&fresh, 1)
			}
		}()
	}
	wg.Wait()

	// One applies the delta, the other observes the recorded result
	assert.Equal(t, int32(1), fresh)
	assert.Equal(t, int32(1), replayed)
	roster, err := f.store.ReadRoster(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, game_constants.CorrectAnswerPoints, roster[0].Score)
}

func TestSubmitRetryAfterWrongAnswerStaysWrong(t *testing.T) {
	f, session, player := newFixture(t)

	_, err := f.engine.SubmitAnswer(context.Background(), session.ID, player.ID, 1, "wrong")
	require.NoError(t, err)

	// The retry path returns the recorded result, not a re-evaluation
	retry, err := f.engine.SubmitAnswer(context.Background(), session.ID, player.ID, 1, "Daft Punk")
	require.NoError(t, err)
	assert.True(t, retry.AlreadyScored)
	assert.False(t, retry.Correct)
	assert.Equal(t, 0, retry.TotalScore)
}

func TestSubmitForWrongQuestion(t *testing.T) {
	f, session, player := newFixture(t)

	_, err := f.engine.SubmitAnswer(context.Background(), session.ID, player.ID, 2, "Justice")
	assert.ErrorIs(t, err, game.ErrQuestionMismatch)
}

func TestSubmitUnknownPlayer(t *testing.T) {
	f, session, _ := newFixture(t)

	_, err := f.engine.SubmitAnswer(context.Background(), session.ID, "not-a-player", 1, "Daft Punk")
	assert.ErrorIs(t, err, game.ErrUnknownPlayer)
}

func TestSubmitOutsideInProgress(t *testing.T) {
	f, session, player := newFixture(t)
	err := f.store.Transact(context.Background(), session.ID, func(tx store.Tx) error {
		tx.Session().Status = models.StatusComplete
		return nil
	})
	require.NoError(t, err)

	_, err = f.engine.SubmitAnswer(context.Background(), session.ID, player.ID, 1, "Daft Punk")
	assert.ErrorIs(t, err, game.ErrInvalidTransition)
}

func TestScoresAccumulateAcrossQuestions(t *testing.T) {
	f, session, player := newFixture(t)

	_, err := f.engine.SubmitAnswer(context.Background(), session.ID, player.ID, 1, "Daft Punk")
	require.NoError(t, err)

	err = f.store.Transact(context.Background(), session.ID, func(tx store.Tx) error {
		tx.Session().CurrentQuestionID = 2
		return nil
	})
	require.NoError(t, err)

	result, err := f.engine.SubmitAnswer(context.Background(), session.ID, player.ID, 2, "Justice")
	require.NoError(t, err)
	assert.Equal(t, 2*game_constants.CorrectAnswerPoints, result.TotalScore)
}
