// Package stream bridges the message bus onto long-lived HTTP byte
// streams. Each connection runs a forwarder and a heartbeat sharing one
// stop signal; an admin kick or process shutdown sets the signal and both
// tasks wind down without leaking the subscription.
package stream

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/webgames/backend/internal/models"
	"github.com/webgames/backend/internal/msg"
)

// recordSeparator frames each JSON payload on the wire
const recordSeparator = 0x1E

const heartbeatInterval = 30 * time.Second

var heartbeatPayload = []byte(`{"type":"heartbeat"}`)

// StopSignal is a set-once flag shared by the tasks of one connection
type StopSignal struct {
	once sync.Once
	ch   chan struct{}
}

func newStopSignal() *StopSignal {
	return &StopSignal{ch: make(chan struct{})}
}

func (s *StopSignal) Set() {
	s.once.Do(func() { close(s.ch) })
}

func (s *StopSignal) Done() <-chan struct{} { return s.ch }

// Hub multiplexes bus subscriptions over HTTP streams and indexes the stop
// signals per (kind, user) so admins can kick every stream of a user.
type Hub struct {
	bus msg.Bus

	mu      sync.Mutex
	signals map[models.QueueKind]map[uuid.UUID][]*StopSignal
}

func NewHub(bus msg.Bus) *Hub {
	signals := make(map[models.QueueKind]map[uuid.UUID][]*StopSignal)
	for _, kind := range []models.QueueKind{models.QueueUser, models.QueueGroup, models.QueueParty} {
		signals[kind] = make(map[uuid.UUID][]*StopSignal)
	}
	return &Hub{bus: bus, signals: signals}
}

func (h *Hub) register(kind models.QueueKind, userID uuid.UUID, stop *StopSignal) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.signals[kind][userID] = append(h.signals[kind][userID], stop)
}

func (h *Hub) unregister(kind models.QueueKind, userID uuid.UUID, stop *StopSignal) {
	h.mu.Lock()
	defer h.mu.Unlock()
	active := h.signals[kind][userID]
	for i, s := range active {
		if s == stop {
			active = append(active[:i], active[i+1:]...)
			break
		}
	}
	if len(active) == 0 {
		delete(h.signals[kind], userID)
	} else {
		h.signals[kind][userID] = active
	}
}

// Kick sets every stop signal of the user's streams of the given kind
func (h *Hub) Kick(kind models.QueueKind, userID uuid.UUID) int {
	h.mu.Lock()
	signals := append([]*StopSignal(nil), h.signals[kind][userID]...)
	h.mu.Unlock()

	for _, stop := range signals {
		stop.Set()
	}
	return len(signals)
}

// Shutdown sets every stop signal of every stream
func (h *Hub) Shutdown() {
	h.mu.Lock()
	var all []*StopSignal
	for _, byUser := range h.signals {
		for _, signals := range byUser {
			all = append(all, signals...)
		}
	}
	h.mu.Unlock()

	log.Printf("[STREAM] closing %d streaming connections", len(all))
	for _, stop := range all {
		stop.Set()
	}
}

// SignalCount reports the registered stop signals for (kind, user)
func (h *Hub) SignalCount(kind models.QueueKind, userID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.signals[kind][userID])
}

// conn serializes writes from the forwarder and the heartbeat
type conn struct {
	mu sync.Mutex
	w  gin.ResponseWriter
}

func (c *conn) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.w.Write(payload); err != nil {
		return err
	}
	if _, err := c.w.Write([]byte{recordSeparator}); err != nil {
		return err
	}
	c.w.Flush()
	return nil
}

// Serve turns the request into a long-lived stream of the topic's
// messages. It blocks until the stop signal is set or the client goes
// away, then releases the subscription and the index entry.
func (h *Hub) Serve(c *gin.Context, kind models.QueueKind, userID uuid.UUID, topic string) {
	ctx := c.Request.Context()

	sub, err := h.bus.Subscribe(ctx, topic)
	if err != nil {
		log.Printf("[STREAM] subscribe %s: %v", topic, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "subscription failed"})
		return
	}

	stop := newStopSignal()
	h.register(kind, userID, stop)
	log.Printf("[STREAM] new subscription to %s", topic)

	// One-shot greeting so the subscriber observes at least one message
	greeting := time.AfterFunc(200*time.Millisecond, func() {
		payload := map[string]any{"type": "server:notice", "notice": "subed to " + topic}
		if err := h.bus.Publish(context.Background(), topic, payload); err != nil {
			log.Printf("[STREAM] greeting on %s: %v", topic, err)
		}
	})

	c.Header("Content-Type", "application/octet-stream")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	transport := &conn{w: c.Writer}
	var tasks sync.WaitGroup
	tasks.Add(2)
	go func() {
		defer tasks.Done()
		forward(transport, sub, stop)
	}()
	go func() {
		defer tasks.Done()
		heartbeat(transport, stop)
	}()

	select {
	case <-stop.Done():
	case <-ctx.Done():
		stop.Set()
	}

	greeting.Stop()
	sub.Close()
	tasks.Wait()
	h.unregister(kind, userID, stop)
	log.Printf("[STREAM] subscription to %s over", topic)
}

// forward copies bus messages to the transport until the stop signal is
// set or the transport errors out
func forward(transport *conn, sub msg.Subscription, stop *StopSignal) {
	for {
		select {
		case <-stop.Done():
			return
		case message, ok := <-sub.Messages():
			if !ok {
				stop.Set()
				return
			}
			if err := transport.write(message); err != nil {
				stop.Set()
				return
			}
		}
	}
}

// heartbeat writes a liveness record every 30 seconds so dead transports
// are detected even on silent topics
func heartbeat(transport *conn, stop *StopSignal) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop.Done():
			return
		case <-ticker.C:
			if err := transport.write(heartbeatPayload); err != nil {
				stop.Set()
				return
			}
		}
	}
}
