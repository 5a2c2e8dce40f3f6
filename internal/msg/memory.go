package msg

import (
	"context"
	"encoding/json"
	"log"
	"sync"
)

// MemoryBus is an in-process Bus for tests and database-free runs.
// Per-topic delivery order matches publish order; slow subscribers drop.
type MemoryBus struct {
	mu     sync.Mutex
	topics map[string]map[*memorySubscription]struct{}
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{topics: make(map[string]map[*memorySubscription]struct{})}
}

func (b *MemoryBus) Publish(_ context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.topics[topic] {
		select {
		case sub.out <- data:
		default:
			log.Printf("[MSG] subscriber buffer full on %s, dropping message", topic)
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(_ context.Context, topic string) (Subscription, error) {
	sub := &memorySubscription{
		bus:   b,
		topic: topic,
		out:   make(chan []byte, 64),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[*memorySubscription]struct{})
	}
	b.topics[topic][sub] = struct{}{}
	return sub, nil
}

// SubscriberCount reports the live subscriptions on a topic, for tests
func (b *MemoryBus) SubscriberCount(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.topics[topic])
}

type memorySubscription struct {
	bus   *MemoryBus
	topic string
	out   chan []byte
	once  sync.Once
}

func (s *memorySubscription) Messages() <-chan []byte { return s.out }

func (s *memorySubscription) Close() error {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.topics[s.topic], s)
		if len(s.bus.topics[s.topic]) == 0 {
			delete(s.bus.topics, s.topic)
		}
		s.bus.mu.Unlock()
		close(s.out)
	})
	return nil
}
