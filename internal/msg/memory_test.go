package msg

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestMemoryBusDeliversInOrder(t *testing.T) {
	bus := NewMemoryBus()
	ctx := context.Background()

	sub, err := bus.Subscribe(ctx, "topic")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	for i := 0; i < 5; i++ {
		if err := bus.Publish(ctx, "topic", map[string]int{"seq": i}); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	for i := 0; i < 5; i++ {
		var event struct {
			Seq int `json:"seq"`
		}
		if err := json.Unmarshal(<-sub.Messages(), &event); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if event.Seq != i {
			t.Errorf("seq = %d, want %d", event.Seq, i)
		}
	}
}

func TestMemoryBusTopicIsolation(t *testing.T) {
	bus := NewMemoryBus()
	ctx := context.Background()

	sub, err := bus.Subscribe(ctx, "a")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	if err := bus.Publish(ctx, "b", map[string]string{"for": "b"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case data := <-sub.Messages():
		t.Errorf("message leaked across topics: %s", data)
	default:
	}
}

func TestMemoryBusCloseIsIdempotent(t *testing.T) {
	bus := NewMemoryBus()

	sub, err := bus.Subscribe(context.Background(), "topic")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	sub.Close()
	sub.Close()

	if count := bus.SubscriberCount("topic"); count != 0 {
		t.Errorf("subscriber count = %d, want 0", count)
	}
	if _, open := <-sub.Messages(); open {
		t.Error("channel must be closed")
	}
}

func TestMemoryBusPublishWithoutSubscribers(t *testing.T) {
	bus := NewMemoryBus()

	if err := bus.Publish(context.Background(), "nobody", map[string]string{"type": "x"}); err != nil {
		t.Errorf("publish to empty topic: %v", err)
	}
}

func TestTopicHelpers(t *testing.T) {
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")

	if got := UserTopic(id); got != "user:"+id.String() {
		t.Errorf("user topic = %s", got)
	}
	if got := GroupTopic(id); got != "group:"+id.String() {
		t.Errorf("group topic = %s", got)
	}
	if got := PartyTopic(id); got != "party:"+id.String() {
		t.Errorf("party topic = %s", got)
	}
}
