package bus

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/liftwatch/liftwatch/internal/domain"
)

func waitOrFail(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	t.Helper()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("timeout waiting for message")
	}
}

func TestChannelBus(t *testing.T) {
	bus := NewChannelBus(100)
	defer bus.Close()

	ctx := context.Background()

	t.Run("PublishAndSubscribe", func(t *testing.T) {
		var mu sync.Mutex
		var receivedMsg *domain.Message

		var wg sync.WaitGroup
		wg.Add(1)

		_, err := bus.Subscribe(ctx, domain.TopicAnalysisRequested, func(ctx context.Context, msg *domain.Message) error {
			mu.Lock()
			receivedMsg = msg
			mu.Unlock()
			wg.Done()
			return nil
		})
		if err != nil {
			t.Fatalf("subscribe failed: %v", err)
		}

		if err := bus.Publish(ctx, domain.TopicAnalysisRequested, []byte("hello")); err != nil {
			t.Fatalf("publish failed: %v", err)
		}

		waitOrFail(t, &wg, time.Second)

		mu.Lock()
		defer mu.Unlock()
		if string(receivedMsg.Payload) != "hello" {
			t.Errorf("expected payload 'hello', got '%s'", string(receivedMsg.Payload))
		}
		if receivedMsg.Topic != domain.TopicAnalysisRequested {
			t.Errorf("expected topic %s, got %s", domain.TopicAnalysisRequested, receivedMsg.Topic)
		}
		if receivedMsg.ID == "" {
			t.Error("expected message ID to be set")
		}
	})

	t.Run("TopicIsolation", func(t *testing.T) {
		var other atomic.Int32

		_, _ = bus.Subscribe(ctx, "topic.b", func(ctx context.Context, msg *domain.Message) error {
			other.Add(1)
			return nil
		})

		var wg sync.WaitGroup
		wg.Add(1)
		_, _ = bus.Subscribe(ctx, "topic.a", func(ctx context.Context, msg *domain.Message) error {
			wg.Done()
			return nil
		})

		_ = bus.Publish(ctx, "topic.a", []byte("x"))
		waitOrFail(t, &wg, time.Second)

		if other.Load() != 0 {
			t.Errorf("subscriber of topic.b received %d messages", other.Load())
		}
	})

	t.Run("Unsubscribe", func(t *testing.T) {
		var count atomic.Int32

		sub, err := bus.Subscribe(ctx, "unsub.topic", func(ctx context.Context, msg *domain.Message) error {
			count.Add(1)
			return nil
		})
		if err != nil {
			t.Fatalf("subscribe failed: %v", err)
		}

		if err := sub.Unsubscribe(); err != nil {
			t.Fatalf("unsubscribe failed: %v", err)
		}

		_ = bus.Publish(ctx, "unsub.topic", []byte("after"))
		time.Sleep(20 * time.Millisecond)

		if count.Load() != 0 {
			t.Errorf("expected no messages after unsubscribe, got %d", count.Load())
		}
	})

	t.Run("MultipleSubscribers", func(t *testing.T) {
		var wg sync.WaitGroup
		wg.Add(3)

		for i := 0; i < 3; i++ {
			_, _ = bus.Subscribe(ctx, "fanout.topic", func(ctx context.Context, msg *domain.Message) error {
				wg.Done()
				return nil
			})
		}

		_ = bus.Publish(ctx, "fanout.topic", []byte("all"))
		waitOrFail(t, &wg, time.Second)
	})

	t.Run("Ping", func(t *testing.T) {
		if err := bus.Ping(ctx); err != nil {
			t.Errorf("ping failed: %v", err)
		}
	})

	t.Run("SubscriptionTopic", func(t *testing.T) {
		sub, _ := bus.Subscribe(ctx, "named.topic", func(ctx context.Context, msg *domain.Message) error {
			return nil
		})
		if sub.Topic() != "named.topic" {
			t.Errorf("expected topic 'named.topic', got '%s'", sub.Topic())
		}
	})
}

func TestChannelBusClose(t *testing.T) {
	bus := NewChannelBus(100)
	ctx := context.Background()

	sub, _ := bus.Subscribe(ctx, "close.topic", func(ctx context.Context, msg *domain.Message) error {
		return nil
	})

	if err := bus.Close(); err != nil {
		t.Errorf("close failed: %v", err)
	}

	// Operations should fail after close
	if err := bus.Publish(ctx, "close.topic", []byte("data")); err == nil {
		t.Error("expected error after close")
	}
	if _, err := bus.Subscribe(ctx, "close.topic", nil); err == nil {
		t.Error("expected subscribe error after close")
	}
	if err := bus.Ping(ctx); err == nil {
		t.Error("expected ping error after close")
	}

	// Unsubscribing after close is harmless.
	if err := sub.Unsubscribe(); err != nil {
		t.Errorf("unsubscribe after close failed: %v", err)
	}
}

func TestNewBus(t *testing.T) {
	t.Run("ChannelType", func(t *testing.T) {
		bus, err := New(domain.EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 50,
		})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		defer bus.Close()

		if _, ok := bus.(*ChannelBus); !ok {
			t.Error("expected ChannelBus for channel type")
		}
	})

	t.Run("KafkaRequiresBrokers", func(t *testing.T) {
		_, err := New(domain.EventBusConfig{Type: "kafka"})
		if err == nil {
			t.Error("expected error without kafka brokers")
		}
	})

	t.Run("KafkaUnreachable", func(t *testing.T) {
		if testing.Short() {
			t.Skip("skipping network test in short mode")
		}
		_, err := New(domain.EventBusConfig{Type: "kafka", KafkaBrokers: []string{"127.0.0.1:1"}})
		if err == nil {
			t.Error("expected error for unreachable broker")
		}
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		_, err := New(domain.EventBusConfig{Type: "amqp"})
		if err == nil {
			t.Error("expected error for unsupported type")
		}
	})
}

func TestEnvelope(t *testing.T) {
	msg, data, err := encodeMessage(domain.TopicAnalysisCompleted, []byte(`{"jobId":"j1"}`))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	decoded, err := decodeMessage(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.ID != msg.ID || decoded.Topic != domain.TopicAnalysisCompleted {
		t.Errorf("unexpected envelope: %+v", decoded)
	}
	if string(decoded.Payload) != `{"jobId":"j1"}` {
		t.Errorf("payload not preserved: %s", decoded.Payload)
	}

	if _, err := decodeMessage([]byte("garbage")); err == nil {
		t.Error("expected decode error")
	}
}

func TestChannelBusHighLoad(t *testing.T) {
	bus := NewChannelBus(1000)
	defer bus.Close()

	ctx := context.Background()

	var received atomic.Int32
	const messageCount = 100

	var wg sync.WaitGroup
	wg.Add(messageCount)

	_, _ = bus.Subscribe(ctx, "load.topic", func(ctx context.Context, msg *domain.Message) error {
		received.Add(1)
		wg.Done()
		return nil
	})

	for i := 0; i < messageCount; i++ {
		_ = bus.Publish(ctx, "load.topic", []byte("msg"))
	}

	waitOrFail(t, &wg, 5*time.Second)

	if received.Load() != messageCount {
		t.Errorf("expected %d messages, got %d", messageCount, received.Load())
	}
}
