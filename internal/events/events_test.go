package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/alfredjeanlab/becmi/internal/model"
)

func TestSessionTopic(t *testing.T) {
	if got := SessionTopic(42); got != "becmi.session.42.event" {
		t.Fatalf("SessionTopic(42) = %q", got)
	}
}

func TestDecodeEventAppended(t *testing.T) {
	ea, err := DecodeEventAppended([]byte(`{"session_id":3,"event_id":9,"event_type":"hp_change"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ea.SessionID != 3 || ea.EventID != 9 || ea.EventType != "hp_change" {
		t.Fatalf("got %+v", ea)
	}

	if _, err := DecodeEventAppended([]byte(`{"event_id":9}`)); err == nil {
		t.Error("expected error for missing session_id")
	}
	if _, err := DecodeEventAppended([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed payload")
	}
}

func TestNewEventAppended(t *testing.T) {
	ea := NewEventAppended(&model.Event{EventID: 5, SessionID: 2, Type: model.EventItemGiven})
	if ea != (EventAppended{SessionID: 2, EventID: 5, EventType: "item_given"}) {
		t.Fatalf("got %+v", ea)
	}
}

func TestNoopPublisher_Publish(t *testing.T) {
	pub := &NoopPublisher{}
	err := pub.Publish(context.Background(), SessionTopic(1), EventAppended{SessionID: 1})
	if err != nil {
		t.Fatalf("NoopPublisher.Publish returned unexpected error: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("NoopPublisher.Close returned unexpected error: %v", err)
	}
}

func TestPublishersImplementPublisher(t *testing.T) {
	var _ Publisher = (*NoopPublisher)(nil)
	var _ Publisher = (*NATSPublisher)(nil)
}

func TestNATSPublisher_Publish(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting subscriber: %v", err)
	}
	defer nc.Close()

	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe(TopicAllSessions, ch)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer sub.Unsubscribe() //nolint:errcheck
	nc.Flush()

	want := EventAppended{SessionID: 11, EventID: 300, EventType: model.EventSoundboardPlay}
	if err := pub.Publish(context.Background(), SessionTopic(11), want); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	pub.conn.Flush()

	select {
	case msg := <-ch:
		if msg.Subject != "becmi.session.11.event" {
			t.Errorf("subject = %q", msg.Subject)
		}
		var got EventAppended
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got != want {
			t.Errorf("got %+v, want %+v", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestNATSPublisher_CancelledContext(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := pub.Publish(ctx, SessionTopic(1), EventAppended{SessionID: 1}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestNATSPublisher_Close(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}

	if err := pub.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	err = pub.Publish(context.Background(), SessionTopic(1), EventAppended{SessionID: 1})
	if err == nil {
		t.Error("expected error publishing after close")
	}
}
