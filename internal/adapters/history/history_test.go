package history_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/KonoNeko/MeowBuling/internal/adapters/history"
	"github.com/KonoNeko/MeowBuling/internal/domain"
	"github.com/KonoNeko/MeowBuling/internal/ports"
)

func newSQLiteStore(t *testing.T, limit int) ports.SessionStore {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// each pooled connection would otherwise get its own empty database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	s, err := history.NewSQLiteStore(db, limit)
	require.NoError(t, err)
	return s
}

func newRedisStore(t *testing.T, limit int) ports.SessionStore {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	key := "tarot:test:" + uuid.NewString()
	s := history.NewRedisStoreWithClient(client, key, limit)
	if err := s.Ping(context.Background()); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Del(context.Background(), key).Err()
		_ = s.Close()
	})
	return s
}

var backends = []struct {
	name string
	open func(t *testing.T, limit int) ports.SessionStore
}{
	{"memory", func(_ *testing.T, limit int) ports.SessionStore { return history.NewMemoryStore(limit) }},
	{"sqlite", newSQLiteStore},
	{"redis", newRedisStore},
}

func record(n int) ports.ReadingRecord {
	return ports.ReadingRecord{
		ID:         fmt.Sprintf("r%d", n),
		Timestamp:  time.Date(2026, 1, 1, 12, 0, n, 0, time.UTC),
		TopicID:    "love",
		TopicLabel: "Love & Relationships",
		Question:   "What next?",
		SpreadID:   "ppf_3",
		SpreadName: "Past - Present - Future",
		Cards: []domain.DrawnCard{
			{Card: domain.Card{ID: n, Name: "The Fool", Upright: "beginnings", Reversed: "recklessness", Keywords: []string{"leap"}}, Orientation: domain.Reversed, Position: 1},
		},
		Interpretation: &ports.Interpretation{
			MainTheme:           "A fresh start",
			Fable:               "Once upon a time",
			DetailedAnalysis:    []ports.AnalysisSection{{Title: "Past", Content: "..."}},
			Advice:              "Take the leap",
			ReflectionQuestions: []string{"What holds you back?"},
			Model:               "test-model",
		},
	}
}

func TestStore_SaveAndLoadNewestFirst(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t, 10)
			ctx := context.Background()

			for i := 1; i <= 3; i++ {
				require.NoError(t, s.Save(ctx, record(i)))
			}

			got, err := s.LoadAll(ctx)
			require.NoError(t, err)
			require.Len(t, got, 3)
			assert.Equal(t, "r3", got[0].ID)
			assert.Equal(t, "r2", got[1].ID)
			assert.Equal(t, "r1", got[2].ID)

			want := record(3)
			assert.True(t, want.Timestamp.Equal(got[0].Timestamp))
			assert.Equal(t, want.Cards, got[0].Cards)
			assert.Equal(t, want.Interpretation, got[0].Interpretation)
			assert.Equal(t, want.Question, got[0].Question)
		})
	}
}

func TestStore_TrimsToLimit(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t, 3)
			ctx := context.Background()

			for i := 1; i <= 5; i++ {
				require.NoError(t, s.Save(ctx, record(i)))
			}

			got, err := s.LoadAll(ctx)
			require.NoError(t, err)
			require.Len(t, got, 3)
			assert.Equal(t, []string{"r5", "r4", "r3"}, []string{got[0].ID, got[1].ID, got[2].ID})
		})
	}
}

func TestStore_UpdateReflection(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t, 10)
			ctx := context.Background()

			require.NoError(t, s.Save(ctx, record(1)))
			require.NoError(t, s.Save(ctx, record(2)))

			require.NoError(t, s.UpdateReflection(ctx, "r1", "It came true."))

			got, err := s.LoadAll(ctx)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "r2", got[0].ID, "order unchanged")
			assert.Empty(t, got[0].Reflection)
			assert.Equal(t, "It came true.", got[1].Reflection)

			err = s.UpdateReflection(ctx, "missing", "x")
			assert.ErrorIs(t, err, domain.ErrReadingNotFound)
		})
	}
}

func TestStore_SaveWithoutInterpretation(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t, 10)
			ctx := context.Background()

			r := record(1)
			r.Interpretation = nil
			require.NoError(t, s.Save(ctx, r))

			got, err := s.LoadAll(ctx)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Nil(t, got[0].Interpretation)
		})
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := history.NewMemoryStore(0)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, record(1)))

	got, err := s.LoadAll(ctx)
	require.NoError(t, err)
	got[0].Cards[0].Name = "mutated"
	got[0].Interpretation.Advice = "mutated"

	again, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "The Fool", again[0].Cards[0].Name)
	assert.Equal(t, "Take the leap", again[0].Interpretation.Advice)
}
