package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-intake/internal/domain"
)

func sampleSession() domain.Session {
	s := domain.NewSession("sess-1")
	s.Step = domain.StepAwaitingProductSelection
	s.ResumeHandle = "https://r/2"
	s.ExecutionID = "exec-1"
	s.Warranty = domain.WarrantyAvailable
	s.OfferedProducts = []string{"iMac", "iPad Air"}
	s.Payload.Invoice = &domain.FileRef{Name: "inv.pdf", ContentType: "application/pdf", Size: 4, Data: []byte("%PDF")}
	s.Payload.SelectedProducts = []string{"iMac"}
	return s
}

func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisStoreWithClient(client, time.Hour, nil)
}

func TestStores_RoundTrip(t *testing.T) {
	_, redisStore := setupMiniRedis(t)
	stores := map[string]Store{
		"memory": NewMemoryStore(time.Hour),
		"redis":  redisStore,
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			want := sampleSession()

			require.NoError(t, store.Save(ctx, want))
			got, err := store.Load(ctx, want.ID)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			require.NoError(t, store.Delete(ctx, want.ID))
			_, err = store.Load(ctx, want.ID)
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStores_RejectInvalidSnapshot(t *testing.T) {
	_, redisStore := setupMiniRedis(t)
	for name, store := range map[string]Store{"memory": NewMemoryStore(0), "redis": redisStore} {
		t.Run(name, func(t *testing.T) {
			err := store.Save(context.Background(), domain.Session{ID: "x", Step: "bogus"})
			require.ErrorIs(t, err, domain.ErrInvalidSession)
		})
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore(time.Minute)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSession()))
	now = now.Add(2 * time.Minute)

	_, err := store.Load(ctx, "sess-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_SweepDropsExpiredWithoutAccess(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore(time.Minute)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.NewSession("old")))
	now = now.Add(45 * time.Second)
	require.NoError(t, store.Save(ctx, domain.NewSession("fresh")))

	now = now.Add(30 * time.Second)
	assert.Equal(t, 1, store.Sweep())
	assert.Len(t, store.entries, 1)

	_, err := store.Load(ctx, "fresh")
	assert.NoError(t, err)
	_, err = store.Load(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, store.Sweep())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()
	s := sampleSession()
	require.NoError(t, store.Save(ctx, s))

	s.Payload.SelectedProducts[0] = "mutated"
	got, err := store.Load(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"iMac"}, got.Payload.SelectedProducts)
}

func TestRedisStore_TTLAndCorruptSnapshot(t *testing.T) {
	mr, store := setupMiniRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSession()))
	assert.Equal(t, time.Hour, mr.TTL(key("sess-1")))

	mr.FastForward(2 * time.Hour)
	_, err := store.Load(ctx, "sess-1")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mr.Set(key("broken"), "{not json"))
	_, err = store.Load(ctx, "broken")
	require.ErrorIs(t, err, domain.ErrInvalidSession)
	assert.False(t, mr.Exists(key("broken")), "corrupt snapshot is discarded")
}

func TestNewRedisStore_PingFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisStore(context.Background(), RedisConfig{Addr: addr}, time.Hour, nil)
	require.Error(t, err)
}
