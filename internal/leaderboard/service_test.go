package leaderboard

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizdeck/quizdeck/internal/quiz"
)

type stubResultSource struct {
	results []quiz.Result
}

func (s *stubResultSource) ListAll(_ context.Context) ([]quiz.Result, error) {
	return s.results, nil
}

func newTestService(t *testing.T, results *stubResultSource) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	svc := NewService(client, results, zerolog.Nop(), ServiceOptions{})
	return svc, mr
}

func TestRecordResultAccumulatesTotals(t *testing.T) {
	svc, _ := newTestService(t, &stubResultSource{})
	ctx := context.Background()

	alice := uuid.New()
	bob := uuid.New()

	require.NoError(t, svc.RecordResult(ctx, RecordRequest{UserID: alice, DisplayName: "Alice", Score: 3}))
	require.NoError(t, svc.RecordResult(ctx, RecordRequest{UserID: bob, DisplayName: "Bob", Score: 5}))
	require.NoError(t, svc.RecordResult(ctx, RecordRequest{UserID: alice, DisplayName: "Alice", Score: 4}))

	top, err := svc.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)

	assert.Equal(t, alice, top[0].UserID)
	assert.Equal(t, "Alice", top[0].DisplayName)
	assert.Equal(t, 7.0, top[0].TotalScore)
	assert.Equal(t, 1, top[0].Rank)

	assert.Equal(t, bob, top[1].UserID)
	assert.Equal(t, 5.0, top[1].TotalScore)
	assert.Equal(t, 2, top[1].Rank)
}

func TestTopCapsAtConfiguredLimit(t *testing.T) {
	svc, _ := newTestService(t, &stubResultSource{})
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		require.NoError(t, svc.RecordResult(ctx, RecordRequest{
			UserID: uuid.New(),
			Score:  float64(i + 1),
		}))
	}

	top, err := svc.Top(ctx, 50)
	require.NoError(t, err)
	assert.Len(t, top, 10)
	assert.Equal(t, 15.0, top[0].TotalScore)
}

func TestTopRebuildsFromResultsWhenBoardEmpty(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	results := &stubResultSource{results: []quiz.Result{
		{UserID: alice, Score: 2, CompletedAt: time.Now()},
		{UserID: bob, Score: 6, CompletedAt: time.Now()},
		{UserID: alice, Score: 3, CompletedAt: time.Now()},
	}}
	svc, mr := newTestService(t, results)
	ctx := context.Background()

	top, err := svc.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, bob, top[0].UserID)
	assert.Equal(t, 6.0, top[0].TotalScore)
	assert.Equal(t, alice, top[1].UserID)
	assert.Equal(t, 5.0, top[1].TotalScore)

	// The rebuild repopulates the cached board.
	assert.True(t, mr.Exists("lb:total_score"))
}

func TestRebuildTiesKeepFirstAppearanceOrder(t *testing.T) {
	first := uuid.New()
	second := uuid.New()
	results := &stubResultSource{results: []quiz.Result{
		{UserID: first, Score: 4, CompletedAt: time.Now()},
		{UserID: second, Score: 4, CompletedAt: time.Now()},
	}}
	svc, _ := newTestService(t, results)

	top, err := svc.Top(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, first, top[0].UserID)
	assert.Equal(t, second, top[1].UserID)
}

func TestRecordResultPublishesUpdate(t *testing.T) {
	svc, mr := newTestService(t, &stubResultSource{})
	ctx := context.Background()

	sub := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer sub.Close()
	pubsub := sub.Subscribe(ctx, svc.Channel())
	defer pubsub.Close()
	_, err := pubsub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.RecordResult(ctx, RecordRequest{
		UserID:      uuid.New(),
		DisplayName: "Alice",
		Score:       3,
	}))

	select {
	case msg := <-pubsub.Channel():
		assert.Contains(t, msg.Payload, "Alice")
	case <-time.After(2 * time.Second):
		t.Fatal("expected leaderboard update on pub/sub channel")
	}
}
