package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"ChessSync/internal/model"
	"ChessSync/internal/roster"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cycleNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func newGamesService(api *fakeAPI, store *fakeStore, players roster.Static) *GamesIngestService {
	logger, _ := test.NewNullLogger()
	return NewGamesIngestService(api, store, store, players, logger,
		WithConcurrency(2),
		WithClock(func() time.Time { return cycleNow }))
}

func TestGamesRun_FirstIngestWithoutWatermark(t *testing.T) {
	api := newFakeAPI()
	api.games["alice"] = []fakeGame{{URL: "g1", End: 1700000000}, {URL: "g2", End: 1700000100}}
	store := newFakeStore()
	svc := newGamesService(api, store, roster.Static{{Username: "alice", PlayerName: strPtr("Alice A")}})

	summary, err := svc.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 1, summary.PlayersSeen)
	assert.Equal(t, 1, summary.PlayersIngested)
	assert.Equal(t, 2, summary.GamesUpserted)

	from, called := api.from("alice")
	require.True(t, called)
	assert.Nil(t, from)

	row := store.games["alice|g1"]
	require.NotNil(t, row)
	require.NotNil(t, row.PlayerName)
	assert.Equal(t, "Alice A", *row.PlayerName)
	assert.Equal(t, cycleNow, row.IngestedAtUTC)
	require.NotNil(t, row.EndTimeUTC)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), *row.EndTimeUTC)
}

func TestGamesRun_UsesWatermarkPlusOneSecond(t *testing.T) {
	api := newFakeAPI()
	store := newFakeStore()
	t3 := time.Unix(1700000300, 0).UTC()
	store.games["alice|old"] = &model.GameRecord{Username: "alice", GameURL: "old", EndTimeUTC: &t3}
	api.games["alice"] = []fakeGame{{URL: "old", End: t3.Unix()}, {URL: "new", End: t3.Unix() + 60}}
	svc := newGamesService(api, store, roster.Static{{Username: "alice"}})

	summary, err := svc.Run(context.Background(), nil)
	require.NoError(t, err)

	from, _ := api.from("alice")
	require.NotNil(t, from)
	assert.Equal(t, t3.Add(time.Second), *from)
	assert.Equal(t, 1, summary.GamesUpserted)
	assert.Equal(t, []string{"new", "old"}, store.gameURLs("alice"))
}

func TestGamesRun_RepeatedRunIsIdempotent(t *testing.T) {
	api := newFakeAPI()
	api.games["alice"] = []fakeGame{{URL: "g1", End: 1700000000}}
	store := newFakeStore()
	svc := newGamesService(api, store, roster.Static{{Username: "alice"}})

	_, err := svc.Run(context.Background(), nil)
	require.NoError(t, err)
	summary, err := svc.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.GamesUpserted)
	assert.Equal(t, 1, summary.PlayersIngested)
	assert.Equal(t, []string{"g1"}, store.gameURLs("alice"))
}

func TestGamesRun_EntityIsolation(t *testing.T) {
	api := newFakeAPI()
	api.games["alice"] = []fakeGame{{URL: "a1", End: 1700000000}}
	api.games["carol"] = []fakeGame{{URL: "c1", End: 1700000000}}
	api.errs["bob"] = timeout("bob")
	api.errs["ghost"] = notFound("ghost")
	store := newFakeStore()
	store.watermarkErr["dave"] = errors.New("connection refused")
	store.upsertErr["carol"] = errors.New("deadlock detected")

	svc := newGamesService(api, store, roster.Static{
		{Username: "alice"}, {Username: "bob"}, {Username: "ghost"}, {Username: "carol"}, {Username: "dave"},
	})

	summary, err := svc.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.PlayersSeen)
	assert.Equal(t, 1, summary.PlayersIngested)
	assert.Equal(t, 1, summary.GamesUpserted)
	assert.Equal(t, []string{"a1"}, store.gameURLs("alice"))
	assert.Empty(t, store.gameURLs("carol"))

	_, called := api.from("dave")
	assert.False(t, called, "watermark failure must skip the upstream fetch")
}

func TestGamesRun_DropsGamesWithoutURLAndDedupes(t *testing.T) {
	api := newFakeAPI()
	api.games["alice"] = []fakeGame{
		{URL: "", End: 0},
		{URL: "dup", End: 1700000000},
		{URL: "nodate"},
		{URL: "dup", End: 1700000500},
	}
	store := newFakeStore()
	svc := newGamesService(api, store, roster.Static{{Username: "alice"}})

	summary, err := svc.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.GamesUpserted)

	dup := store.games["alice|dup"]
	require.NotNil(t, dup)
	assert.Equal(t, time.Unix(1700000500, 0).UTC(), *dup.EndTimeUTC)
	assert.Nil(t, store.games["alice|nodate"].EndTimeUTC)
}

func TestGamesRun_UsernameFilter(t *testing.T) {
	api := newFakeAPI()
	api.games["alice"] = []fakeGame{{URL: "a1", End: 1700000000}}
	api.games["bob"] = []fakeGame{{URL: "b1", End: 1700000000}}
	store := newFakeStore()
	svc := newGamesService(api, store, roster.Static{{Username: "alice"}, {Username: "bob"}})

	summary, err := svc.Run(context.Background(), []string{"BOB", "unknown"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.PlayersSeen)
	assert.Empty(t, store.gameURLs("alice"))
	assert.Equal(t, []string{"b1"}, store.gameURLs("bob"))
}

func TestGamesRun_RosterFailure(t *testing.T) {
	logger, _ := test.NewNullLogger()
	svc := NewGamesIngestService(newFakeAPI(), newFakeStore(), newFakeStore(), failingRoster{}, logger)

	_, err := svc.Run(context.Background(), nil)
	require.Error(t, err)
}

func TestGamesRun_CancelledContext(t *testing.T) {
	api := newFakeAPI()
	store := newFakeStore()
	svc := newGamesService(api, store, roster.Static{{Username: "alice"}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := svc.Run(ctx, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, summary.PlayersSeen)
}
