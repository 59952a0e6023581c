package realtime

import (
	"context"
	"testing"
	"time"
)

func recv(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case e := <-sub.Events():
		return e
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
	return Event{}
}

func TestHubFiltersByCollection(t *testing.T) {
	hub := NewHub(nil)
	spare := hub.Subscribe("spare_parts")
	all := hub.Subscribe("")
	defer spare.Close()
	defer all.Close()

	hub.Publish(Event{Collection: "machine_purchases", Action: ActionCreated, ID: "m1"})
	hub.Publish(Event{Collection: "spare_parts", Action: ActionImported})

	if e := recv(t, spare); e.Collection != "spare_parts" {
		t.Fatalf("spare subscriber got %+v", e)
	}
	if e := recv(t, all); e.ID != "m1" {
		t.Fatalf("first event for catch-all should be m1, got %+v", e)
	}
	if e := recv(t, all); e.Action != ActionImported {
		t.Fatalf("second event for catch-all should be import, got %+v", e)
	}
}

func TestHubPublishDoesNotBlock(t *testing.T) {
	hub := NewHub(nil)
	sub := hub.Subscribe("")
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < hub.buffer*4; i++ {
			_ = hub.Notify(context.Background(), Event{Collection: "spare_parts"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	if n := len(sub.Events()); n != hub.buffer {
		t.Fatalf("expected a full buffer of %d, got %d", hub.buffer, n)
	}
}

func TestSubscriptionClose(t *testing.T) {
	hub := NewHub(nil)
	sub := hub.Subscribe("")
	sub.Close()
	sub.Close()

	if hub.Count() != 0 {
		t.Fatalf("expected no subscribers, got %d", hub.Count())
	}
	if _, ok := <-sub.Events(); ok {
		t.Fatal("events channel should be closed")
	}
	hub.Publish(Event{Collection: "spare_parts"})
}
