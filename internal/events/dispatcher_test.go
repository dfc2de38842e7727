package events

import (
	"context"
	"errors"
	"testing"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var got []Event
	d.Subscribe(EventTicketProvisioned, func(_ context.Context, e Event) error {
		got = append(got, e)
		return nil
	})

	if err := d.Publish(context.Background(), Event{ID: "1", Type: EventTicketProvisioned}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("unexpected delivery %v", got)
	}
}

func TestDispatcherIgnoresOtherEventTypes(t *testing.T) {
	d := NewInMemoryDispatcher()
	delivered := false
	d.Subscribe(EventTicketProvisioned, func(context.Context, Event) error {
		delivered = true
		return nil
	})

	_ = d.Publish(context.Background(), Event{Type: EventTicketProvisioningFailed})
	if delivered {
		t.Fatal("handler invoked for unrelated event type")
	}
}

func TestDispatcherContinuesPastHandlerError(t *testing.T) {
	d := NewInMemoryDispatcher()
	second := false
	d.Subscribe(EventTicketProvisioned, func(context.Context, Event) error {
		return errors.New("first handler failed")
	})
	d.Subscribe(EventTicketProvisioned, func(context.Context, Event) error {
		second = true
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: EventTicketProvisioned}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !second {
		t.Fatal("second handler not invoked after first failed")
	}
}
