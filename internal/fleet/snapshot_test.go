package fleet

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/liftwatch/liftwatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[key], nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = make(map[string][]byte)
	}
	c.data[key] = value
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *mapCache) Ping(context.Context) error { return nil }
func (c *mapCache) Close() error               { return nil }

func TestSnapshotStore(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore(&mapCache{}, time.Hour)

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	summary := Summarize("snap-1", []int{4}, fixedNow, []*domain.Prediction{
		{Code: "ASC-001", Score: 80, Level: domain.LevelCritical},
	})
	require.NoError(t, store.Save(ctx, summary))

	latest, err = store.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "snap-1", latest.ID)
	assert.Equal(t, []int{4}, latest.Sectors)
	assert.True(t, fixedNow.Equal(latest.GeneratedAt))
	require.Len(t, latest.Predictions, 1)
	assert.Equal(t, 80, latest.Predictions[0].Score)
}

func TestSnapshotStoreCorrupt(t *testing.T) {
	c := &mapCache{}
	require.NoError(t, c.Set(context.Background(), LatestSummaryKey, []byte("{not json"), 0))

	_, err := NewSnapshotStore(c, time.Hour).Latest(context.Background())
	assert.Error(t, err)
}
