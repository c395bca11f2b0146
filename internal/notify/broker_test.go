package notify

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := NewBroker(nil)
	ch, cancel := b.Subscribe("deaths")
	defer cancel()

	b.Publish("deaths", "a character has died")
	b.Publish("trades", "should not arrive")

	select {
	case env := <-ch:
		if env.Topic != "deaths" {
			t.Fatalf("got topic %q want deaths", env.Topic)
		}
		if env.Payload != "a character has died" {
			t.Fatalf("unexpected payload %v", env.Payload)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected a message")
	}

	select {
	case env := <-ch:
		t.Fatalf("unexpected second message: %v", env)
	default:
	}
}

func TestPublishDropsWhenFull(t *testing.T) {
	b := NewBroker(nil)
	ch, cancel := b.Subscribe("trades")
	defer cancel()

	for i := 0; i < subscriberBuffer+10; i++ {
		b.Publish("trades", i)
	}

	received := 0
	for {
		select {
		case <-ch:
			received++
			continue
		default:
		}
		break
	}
	if received != subscriberBuffer {
		t.Fatalf("expected exactly %d buffered messages, got %d", subscriberBuffer, received)
	}
}

func TestCancelClosesChannel(t *testing.T) {
	b := NewBroker(nil)
	ch, cancel := b.Subscribe("events")
	cancel()
	cancel() // idempotent

	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
	b.Publish("events", "after cancel") // must not panic
}
