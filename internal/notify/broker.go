package notify

import (
	"log/slog"
	"sync"
	"time"
)

// Envelope wraps a published payload with its topic and publish time.
type Envelope struct {
	Topic       string    `json:"topic"`
	PublishedAt time.Time `json:"published_at"`
	Payload     any       `json:"payload"`
}

const subscriberBuffer = 64

// Broker is an in-process fan-out for game notifications. Publishing never
// blocks: a subscriber that falls behind loses messages.
type Broker struct {
	mu     sync.RWMutex
	subs   map[string]map[int64]chan Envelope
	nextID int64
	log    *slog.Logger
}

func NewBroker(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		subs: make(map[string]map[int64]chan Envelope),
		log:  logger,
	}
}

// Publish delivers to every subscriber of the topic, dropping on full
// buffers.
func (b *Broker) Publish(topic string, payload any) {
	env := Envelope{Topic: topic, PublishedAt: time.Now().UTC(), Payload: payload}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs[topic] {
		select {
		case ch <- env:
		default:
			b.log.Warn("subscriber lagging, message dropped", "topic", topic, "subscriber", id)
		}
	}
}

// Subscribe registers a listener on a topic. The returned cancel func
// removes the subscription and closes the channel.
func (b *Broker) Subscribe(topic string) (<-chan Envelope, func()) {
	ch := make(chan Envelope, subscriberBuffer)

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int64]chan Envelope)
	}
	b.subs[topic][id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[topic][id]; ok {
			delete(b.subs[topic], id)
			close(sub)
		}
	}
	return ch, cancel
}
