package scheduler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/liftwatch/liftwatch/internal/bus"
	"github.com/liftwatch/liftwatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsInvalidSpec(t *testing.T) {
	_, err := New(bus.NewChannelBus(10), "every six hours", nil)
	assert.Error(t, err)

	_, err = New(bus.NewChannelBus(10), "0 0 */6 * * *", nil)
	assert.Error(t, err, "seconds field is not accepted")
}

func TestNextAfter(t *testing.T) {
	s, err := New(bus.NewChannelBus(10), "0 */6 * * *", nil)
	require.NoError(t, err)

	from := time.Date(2025, time.March, 1, 7, 30, 0, 0, time.Local)
	assert.Equal(t, time.Date(2025, time.March, 1, 12, 0, 0, 0, time.Local), s.NextAfter(from))
}

func TestTriggerPublishesRequest(t *testing.T) {
	eventBus := bus.NewChannelBus(10)
	defer eventBus.Close()

	received := make(chan domain.AnalysisRequest, 1)
	_, err := eventBus.Subscribe(context.Background(), domain.TopicAnalysisRequested, func(ctx context.Context, msg *domain.Message) error {
		var req domain.AnalysisRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return err
		}
		received <- req
		return nil
	})
	require.NoError(t, err)

	s, err := New(eventBus, "@every 1h", []int{7})
	require.NoError(t, err)

	jobID, err := s.Trigger(context.Background())
	require.NoError(t, err)

	select {
	case req := <-received:
		assert.Equal(t, jobID, req.JobID)
		assert.Equal(t, SourceSchedule, req.Source)
		assert.Equal(t, []int{7}, req.Sectors)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for analysis request")
	}
}

func TestStartStop(t *testing.T) {
	s, err := New(bus.NewChannelBus(10), "@every 1h", nil)
	require.NoError(t, err)

	assert.True(t, s.Next().IsZero())
	s.Start()
	assert.False(t, s.Next().IsZero())
	s.Stop()
}
