package state_test

import (
	"context"
	"errors"
	gosync "sync"
	"sync/atomic"
	"testing"

	models "Soundcheck/models/postgres"
	"Soundcheck/services/broadcast"
	"Soundcheck/services/game"
	"Soundcheck/services/state"
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
	machine *state.Machine
}

func newFixture(t *testing.T) *fixture {
	memStore := storetest.NewStore()
	backend := storetest.NewBackend()
	broadcaster := broadcast.New(memStore, backend)
	return &fixture{
		store:   memStore,
		backend: backend,
		machine: state.NewMachine(memStore, syncpkg.NewSessionLocks(), broadcaster, nil),
	}
}

func (f *fixture) seedQuestions(t *testing.T, count int) {
	questions := make([]models.Question, count)
	for i := range questions {
		questions[i] = models.Question{
			ID:              uint(i + 1),
			OrderNum:        i + 1,
			Text:            "Who plays this song?",
			AcceptedAnswers: datatypes.JSON(`["Answer"]`),
		}
	}
	f.store.SetQuestions(questions)
}

func (f *fixture) addPlayer(t *testing.T, sessionID, name string, number int) {
	err := f.store.Transact(context.Background(), sessionID, func(tx store.Tx) error {
		return tx.CreatePlayer(&models.Player{
			Name:          name,
			PlayerNumber:  number,
			GameSessionID: sessionID,
		})
	})
	require.NoError(t, err)
}

func TestCreateSessionStartsInLobby(t *testing.T) {
	f := newFixture(t)

	session, err := f.machine.CreateSession(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.StatusLobby, session.Status)
	assert.NotEmpty(t, session.ID)
	assert.NotEmpty(t, session.JoinCode)
	assert.Equal(t, 0, session.CurrentQuestionID)

	// Initial snapshot reaches subscribers right away
	require.Len(t, f.backend.Published, 1)
	assert.Equal(t, models.StatusLobby, f.backend.Published[0].Status)
}

func TestStartSessionMovesCursorToFirstQuestion(t *testing.T) {
	f := newFixture(t)
	f.seedQuestions(t, 3)
	session, err := f.machine.CreateSession(context.Background())
	require.NoError(t, err)
	f.addPlayer(t, session.ID, "Ana", 1)

	snapshot, err := f.machine.StartSession(context.Background(), session.ID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusInProgress, snapshot.Status)
	assert.Equal(t, 1, snapshot.CurrentQuestionID)
}

func TestStartSessionEmptyRoster(t *testing.T) {
	f := newFixture(t)
	f.seedQuestions(t, 3)
	session, err := f.machine.CreateSession(context.Background())
	require.NoError(t, err)

	_, err = f.machine.StartSession(context.Background(), session.ID)
	assert.ErrorIs(t, err, game.ErrEmptyRoster)
}

func TestStartSessionWithoutQuestions(t *testing.T) {
	f := newFixture(t)
	session, err := f.machine.CreateSession(context.Background())
	require.NoError(t, err)
	f.addPlayer(t, session.ID, "Ana", 1)

	_, err = f.machine.StartSession(context.Background(), session.ID)
	assert.ErrorIs(t, err, game.ErrInvalidTransition)
}

func TestStartSessionTwice(t *testing.T) {
	f := newFixture(t)
	f.seedQuestions(t, 3)
	session, err := f.machine.CreateSession(context.Background())
	require.NoError(t, err)
	f.addPlayer(t, session.ID, "Ana", 1)

	_, err = f.machine.StartSession(context.Background(), session.ID)
	require.NoError(t, err)
	_, err = f.machine.StartSession(context.Background(), session.ID)
	assert.ErrorIs(t, err, game.ErrInvalidTransition)
}

func TestAdvanceQuestionWalksTheSequence(t *testing.T) {
	f := newFixture(t)
	f.seedQuestions(t, 3)
	session, err := f.machine.CreateSession(context.Background())
	require.NoError(t, err)
	f.addPlayer(t, session.ID, "Ana", 1)
	_, err = f.machine.StartSession(context.Background(), session.ID)
	require.NoError(t, err)

	snapshot, err := f.machine.AdvanceQuestion(context.Background(), session.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, snapshot.CurrentQuestionID)
	assert.Equal(t, models.StatusInProgress, snapshot.Status)

	snapshot, err = f.machine.AdvanceQuestion(context.Background(), session.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, snapshot.CurrentQuestionID)

	// Past the last question the session completes
	snapshot, err = f.machine.AdvanceQuestion(context.Background(), session.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, models.StatusComplete, snapshot.Status)
}

func TestAdvanceQuestionStaleCursorIsNoOp(t *testing.T) {
	f := newFixture(t)
	f.seedQuestions(t, 3)
	session, err := f.machine.CreateSession(context.Background())
	require.NoError(t, err)
	f.addPlayer(t, session.ID, "Ana", 1)
	_, err = f.machine.StartSession(context.Background(), session.ID)
	require.NoError(t, err)

	_, err = f.machine.AdvanceQuestion(context.Background(), session.ID, 1)
	require.NoError(t, err)
	published := len(f.backend.Published)

	// Double-tap: the second advance still carries the old cursor
	_, err = f.machine.AdvanceQuestion(context.Background(), session.ID, 1)
	assert.ErrorIs(t, err, game.ErrStaleCursor)

	// Nothing moved and nothing was broadcast
	current, err := f.store.Read(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, current.CurrentQuestionID)
	assert.Len(t, f.backend.Published, published)
}

func TestAdvanceQuestionOutsideInProgress(t *testing.T) {
	f := newFixture(t)
	f.seedQuestions(t, 1)
	session, err := f.machine.CreateSession(context.Background())
	require.NoError(t, err)

	_, err = f.machine.AdvanceQuestion(context.Background(), session.ID, 0)
	assert.ErrorIs(t, err, game.ErrInvalidTransition)
}

func TestAdvanceQuestionClearsDetectedArtist(t *testing.T) {
	f := newFixture(t)
	f.seedQuestions(t, 2)
	session, err := f.machine.CreateSession(context.Background())
	require.NoError(t, err)
	f.addPlayer(t, session.ID, "Ana", 1)
	_, err = f.machine.StartSession(context.Background(), session.ID)
	require.NoError(t, err)
	_, err = f.machine.RecordDetectedArtist(context.Background(), session.ID, "Daft Punk", "https://img.example/daft")
	require.NoError(t, err)

	snapshot, err := f.machine.AdvanceQuestion(context.Background(), session.ID, 1)
	require.NoError(t, err)
	assert.Nil(t, snapshot.DetectedArtist)
	assert.Nil(t, snapshot.DetectedArtistImage)
}

func TestCompleteClearsInvalidDashboardView(t *testing.T) {
	f := newFixture(t)
	f.seedQuestions(t, 1)
	session, err := f.machine.CreateSession(context.Background())
	require.NoError(t, err)
	f.addPlayer(t, session.ID, "Ana", 1)
	_, err = f.machine.StartSession(context.Background(), session.ID)
	require.NoError(t, err)

	instructions := models.ViewInstructions
	_, err = f.machine.SetDashboardView(context.Background(), session.ID, &instructions)
	require.NoError(t, err)

	// INSTRUCTIONS is illegal in COMPLETE, so completing blanks the screen
	snapshot, err := f.machine.AdvanceQuestion(context.Background(), session.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusComplete, snapshot.Status)
	assert.Nil(t, snapshot.DashboardView)
}

func TestSetDashboardViewGatedByStatus(t *testing.T) {
	f := newFixture(t)
	session, err := f.machine.CreateSession(context.Background())
	require.NoError(t, err)

	qr := models.ViewQRCode
	snapshot, err := f.machine.SetDashboardView(context.Background(), session.ID, &qr)
	require.NoError(t, err)
	require.NotNil(t, snapshot.DashboardView)
	assert.Equal(t, models.ViewQRCode, *snapshot.DashboardView)

	winner := models.ViewWinner
	_, err = f.machine.SetDashboardView(context.Background(), session.ID, &winner)
	assert.ErrorIs(t, err, game.ErrInvalidDashboardView)

	// Rejected view leaves the previous one in place
	current, err := f.store.Read(context.Background(), session.ID)
	require.NoError(t, err)
	require.NotNil(t, current.DashboardView)
	assert.Equal(t, models.ViewQRCode, *current.DashboardView)
}

func TestSetDashboardViewNilBlanksScreen(t *testing.T) {
	f := newFixture(t)
	session, err := f.machine.CreateSession(context.Background())
	require.NoError(t, err)

	qr := models.ViewQRCode
	_, err = f.machine.SetDashboardView(context.Background(), session.ID, &qr)
	require.NoError(t, err)

	snapshot, err := f.machine.SetDashboardView(context.Background(), session.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, snapshot.DashboardView)
}

func TestRecordDetectedArtistLastWriteWins(t *testing.T) {
	f := newFixture(t)
	f.seedQuestions(t, 1)
	session, err := f.machine.CreateSession(context.Background())
	require.NoError(t, err)
	f.addPlayer(t, session.ID, "Ana", 1)
	_, err = f.machine.StartSession(context.Background(), session.ID)
	require.NoError(t, err)

	_, err = f.machine.RecordDetectedArtist(context.Background(), session.ID, "Daft Punk", "https://img.example/daft")
	require.NoError(t, err)
	snapshot, err := f.machine.RecordDetectedArtist(context.Background(), session.ID, "Justice", "")
	require.NoError(t, err)

	require.NotNil(t, snapshot.DetectedArtist)
	assert.Equal(t, "Justice", *snapshot.DetectedArtist)
	assert.Nil(t, snapshot.DetectedArtistImage)
}

func TestRecordDetectedArtistOutsideInProgress(t *testing.T) {
	f := newFixture(t)
	session, err := f.machine.CreateSession(context.Background())
	require.NoError(t, err)

	_, err = f.machine.RecordDetectedArtist(context.Background(), session.ID, "Daft Punk", "")
	assert.ErrorIs(t, err, game.ErrInvalidTransition)
}

func TestAdvanceQuestionConcurrentDuplicates(t *testing.T) {
	f := newFixture(t)
	f.seedQuestions(t, 3)
	session, err := f.machine.CreateSession(context.Background())
	require.NoError(t, err)
	f.addPlayer(t, session.ID, "Ana", 1)
	_, err = f.machine.StartSession(context.Background(), session.ID)
	require.NoError(t, err)

	// The controller double-taps: both requests carry cursor 1
	var wg gosync.WaitGroup
	var advanced, stale int32
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.machine.AdvanceQuestion(context.Background(), session.ID, 1)
			switch {
			case err == nil:
				atomic.AddInt32(&advanced, 1)
			case errors.Is(err, game.ErrStaleCursor):
				atomic.AddInt32(&stale, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	// Exactly one increment, never a double-skip
	assert.Equal(t, int32(1), advanced)
	assert.Equal(t, int32(1), stale)
	current, err := f.store.Read(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, current.CurrentQuestionID)
}

// flakyStore fails session reads on demand, after the fixture is set up.
type flakyStore struct {
	*storetest.Store
	failReads bool
}

func (s *flakyStore) Read(ctx context.Context, sessionID string) (*models.GameSession, error) {
	if s.failReads {
		return nil, game.ErrStoreUnavailable
	}
	return s.Store.Read(ctx, sessionID)
}

func TestPublishFailureWithoutFallbackSurfaces(t *testing.T) {
	flaky := &flakyStore{Store: storetest.NewStore()}
	backend := storetest.NewBackend()
	machine := state.NewMachine(flaky, syncpkg.NewSessionLocks(), broadcast.New(flaky, backend), nil)

	session, err := machine.CreateSession(context.Background())
	require.NoError(t, err)

	// Fan-out and the direct snapshot fallback both go dark
	flaky.failReads = true
	backend.DropSnapshot(session.ID)

	qr := models.ViewQRCode
	_, err = machine.SetDashboardView(context.Background(), session.ID, &qr)
	assert.ErrorIs(t, err, game.ErrStoreUnavailable)

	// The view change itself committed; only the snapshot was unservable
	flaky.failReads = false
	current, err := flaky.Read(context.Background(), session.ID)
	require.NoError(t, err)
	require.NotNil(t, current.DashboardView)
	assert.Equal(t, models.ViewQRCode, *current.DashboardView)
}

func TestEveryCommitBroadcastsInOrder(t *testing.T) {
	f := newFixture(t)
	f.seedQuestions(t, 2)
	session, err := f.machine.CreateSession(context.Background())
	require.NoError(t, err)
	f.addPlayer(t, session.ID, "Ana", 1)

	_, err = f.machine.StartSession(context.Background(), session.ID)
	require.NoError(t, err)
	_, err = f.machine.AdvanceQuestion(context.Background(), session.ID, 1)
	require.NoError(t, err)
	_, err = f.machine.AdvanceQuestion(context.Background(), session.ID, 2)
	require.NoError(t, err)

	var prev int64
	for _, snapshot := range f.backend.Published {
		assert.Greater(t, snapshot.Seq, prev)
		prev = snapshot.Seq
	}
	last := f.backend.Published[len(f.backend.Published)-1]
	assert.Equal(t, models.StatusComplete, last.Status)
}
