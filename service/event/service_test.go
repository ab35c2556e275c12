package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/procureflow/service/messaging/memory"
)

type approved struct {
	RecordID string
}

func TestService_PublishAndListen(t *testing.T) {
	srv := New(WithQueueConfig(func(string) memory.Config {
		config := memory.DefaultConfig()
		config.RetryDelay = time.Millisecond
		return config
	}))
	defer srv.Close()
	publisher := PublisherOf[approved](srv)
	assert.Same(t, publisher, PublisherOf[approved](srv))

	var mu sync.Mutex
	attempts := map[string]int{}
	received := make(chan string, 4)
	SetListenerOf[approved](context.Background(), srv, func(_ context.Context, event *Event[approved]) error {
		mu.Lock()
		attempts[event.Data.RecordID]++
		count := attempts[event.Data.RecordID]
		mu.Unlock()
		if event.Data.RecordID == "flaky" && count == 1 {
			return errors.New("try again")
		}
		received <- event.Data.RecordID
		return nil
	})

	ctx := context.Background()
	require.NoError(t, publisher.Publish(ctx, NewEvent(&Context{TenantID: "t1", RecordID: "r1", EventType: "approved"}, approved{RecordID: "r1"})))
	require.NoError(t, publisher.Publish(ctx, NewEvent(&Context{TenantID: "t1", RecordID: "flaky", EventType: "approved"}, approved{RecordID: "flaky"})))

	var got []string
	for len(got) < 2 {
		select {
		case id := <-received:
			got = append(got, id)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out, received %v", got)
		}
	}
	assert.ElementsMatch(t, []string{"r1", "flaky"}, got)
	mu.Lock()
	assert.Equal(t, 2, attempts["flaky"])
	mu.Unlock()
}

func TestPublisher_StampsEvent(t *testing.T) {
	publisher := PublisherOf[approved](New())
	event := NewEvent(&Context{TenantID: "t1"}, approved{RecordID: "r1"})
	require.NoError(t, publisher.Publish(context.Background(), event))
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())

	msg, err := publisher.Queue().Consume(context.Background())
	require.NoError(t, err)
	assert.Equal(t, event.ID, msg.T().ID)
}
