package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

func TestHub(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers only to the event's household", func(t *testing.T) {
		hub := NewHub()
		defer hub.Close()

		mine, cancelMine := hub.Subscribe("h1")
		defer cancelMine()
		other, cancelOther := hub.Subscribe("h2")
		defer cancelOther()

		hub.Publish(ctx, Event{Kind: MemberJoined, HouseholdID: "h1", SubjectID: "u1"})

		select {
		case e := <-mine:
			if e.Kind != MemberJoined || e.SubjectID != "u1" {
				t.Errorf("got %+v, want member.joined for u1", e)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}

		select {
		case e := <-other:
			t.Errorf("unexpected event for other household: %+v", e)
		default:
		}
	})

	t.Run("cancel closes channel and unregisters", func(t *testing.T) {
		hub := NewHub()
		defer hub.Close()

		ch, cancel := hub.Subscribe("h1")
		if hub.Subscribers("h1") != 1 {
			t.Fatalf("Subscribers = %d, want 1", hub.Subscribers("h1"))
		}
		cancel()
		cancel()

		if _, ok := <-ch; ok {
			t.Error("expected channel to be closed")
		}
		if hub.Subscribers("h1") != 0 {
			t.Errorf("Subscribers = %d, want 0", hub.Subscribers("h1"))
		}
	})

	t.Run("slow subscriber does not block publisher", func(t *testing.T) {
		hub := NewHub()
		defer hub.Close()

		_, cancel := hub.Subscribe("h1")
		defer cancel()

		done := make(chan struct{})
		go func() {
			for i := 0; i < subscriberBuffer*3; i++ {
				hub.Publish(ctx, Event{Kind: TransactionCreated, HouseholdID: "h1"})
			}
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Publish blocked on a full subscriber")
		}
	})

	t.Run("full subscriber is disconnected", func(t *testing.T) {
		hub := NewHub()
		defer hub.Close()

		ch, cancel := hub.Subscribe("h1")
		other, cancelOther := hub.Subscribe("h1")
		defer cancelOther()

		for i := 0; i < subscriberBuffer; i++ {
			hub.Publish(ctx, Event{Kind: TransactionCreated, HouseholdID: "h1"})
		}
		for i := 0; i < subscriberBuffer; i++ {
			<-other
		}
		hub.Publish(ctx, Event{Kind: HouseholdDeleted, HouseholdID: "h1"})

		var got int
		for range ch {
			got++
		}
		if got != subscriberBuffer {
			t.Errorf("drained %d events, want %d", got, subscriberBuffer)
		}
		if e := <-other; e.Kind != HouseholdDeleted {
			t.Errorf("got %+v, want household.deleted", e)
		}
		if hub.Subscribers("h1") != 1 {
			t.Errorf("Subscribers = %d, want 1", hub.Subscribers("h1"))
		}
		cancel()
	})

	t.Run("close ends subscriptions", func(t *testing.T) {
		hub := NewHub()
		ch, cancel := hub.Subscribe("h1")
		hub.Close()
		cancel()

		if _, ok := <-ch; ok {
			t.Error("expected channel to be closed")
		}

		late, _ := hub.Subscribe("h1")
		if _, ok := <-late; ok {
			t.Error("expected subscription after Close to be closed")
		}
	})
}

type failingPublisher struct{ err error }

func (f failingPublisher) Publish(context.Context, Event) error { return f.err }

type recordingPublisher struct{ events []Event }

func (r *recordingPublisher) Publish(_ context.Context, e Event) error {
	r.events = append(r.events, e)
	return nil
}

func TestMulti(t *testing.T) {
	boom := errors.New("boom")
	rec := &recordingPublisher{}
	multi := Multi{failingPublisher{err: boom}, rec, Discard{}}

	err := multi.Publish(context.Background(), Event{Kind: HouseholdDeleted, HouseholdID: "h1"})
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want boom", err)
	}
	if len(rec.events) != 1 {
		t.Errorf("recorded %d events, want 1 despite earlier failure", len(rec.events))
	}
}

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp091.Publishing
	err      error
	deadline bool
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	_, f.deadline = ctx.Deadline()
	return f.err
}

func (f *fakeChannel) Close() error { return nil }

func TestAMQPPublisher(t *testing.T) {
	occurred := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	e := Event{Kind: MemberLeft, HouseholdID: "h1", SubjectID: "u2", Message: "Bob left the household", OccurredAt: occurred}

	t.Run("routes by kind with JSON body", func(t *testing.T) {
		ch := &fakeChannel{}
		p := &AMQPPublisher{channel: ch, exchange: "housemates.events"}

		if err := p.Publish(context.Background(), e); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
		if ch.exchange != "housemates.events" || ch.key != "member.left" {
			t.Errorf("published to %s/%s, want housemates.events/member.left", ch.exchange, ch.key)
		}
		if ch.msg.DeliveryMode != amqp091.Persistent {
			t.Errorf("DeliveryMode = %d, want persistent", ch.msg.DeliveryMode)
		}
		if !ch.deadline {
			t.Error("expected publish context to carry a deadline")
		}

		decoded, err := FromJSON(ch.msg.Body)
		if err != nil {
			t.Fatalf("FromJSON failed: %v", err)
		}
		if decoded.SubjectID != "u2" || !decoded.OccurredAt.Equal(occurred) {
			t.Errorf("decoded = %+v", decoded)
		}
	})

	t.Run("wraps broker errors", func(t *testing.T) {
		brokerErr := errors.New("channel closed")
		p := &AMQPPublisher{channel: &fakeChannel{err: brokerErr}, exchange: "x"}
		if err := p.Publish(context.Background(), e); !errors.Is(err, brokerErr) {
			t.Errorf("error = %v, want wrapped broker error", err)
		}
	})
}
