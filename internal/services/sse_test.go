package services

import (
	"context"
	"testing"
	"time"

	"github.com/jupiterbrains/insight/internal/cache"
)

func TestSSEHub_NewSSEHub(t *testing.T) {
	hub := NewSSEHub()
	if hub == nil {
		t.Fatal("NewSSEHub should not return nil")
	}
	if hub.clients == nil {
		t.Error("clients map should be initialized")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("new hub should have 0 clients, got %d", hub.ClientCount())
	}
}

func TestSSEHub_Subscribe(t *testing.T) {
	hub := NewSSEHub()

	ch := hub.Subscribe("client1")
	if ch == nil {
		t.Error("Subscribe should return a channel")
	}
	if hub.ClientCount() != 1 {
		t.Errorf("expected 1 client, got %d", hub.ClientCount())
	}

	ch2 := hub.Subscribe("client2")
	if ch2 == nil {
		t.Error("Subscribe should return a channel")
	}
	if hub.ClientCount() != 2 {
		t.Errorf("expected 2 clients, got %d", hub.ClientCount())
	}
}

func TestSSEHub_Unsubscribe(t *testing.T) {
	hub := NewSSEHub()

	hub.Subscribe("client1")
	hub.Subscribe("client2")

	if hub.ClientCount() != 2 {
		t.Fatalf("expected 2 clients, got %d", hub.ClientCount())
	}

	hub.Unsubscribe("client1")
	if hub.ClientCount() != 1 {
		t.Errorf("expected 1 client after unsubscribe, got %d", hub.ClientCount())
	}

	hub.Unsubscribe("nonexistent")
	if hub.ClientCount() != 1 {
		t.Errorf("unsubscribing nonexistent should not affect count, got %d", hub.ClientCount())
	}

	hub.Unsubscribe("client2")
	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", hub.ClientCount())
	}
}

func TestSSEHub_Publish(t *testing.T) {
	hub := NewSSEHub()

	ch := hub.Subscribe("client1")

	event := ChangeEvent{
		Table:     "api_usage_logs",
		Operation: "insert",
		Timestamp: time.Now(),
	}

	hub.Publish(event)

	select {
	case received := <-ch:
		if received.Table != "api_usage_logs" {
			t.Errorf("Table = %q, expected %q", received.Table, "api_usage_logs")
		}
		if received.Operation != "insert" {
			t.Errorf("Operation = %q, expected %q", received.Operation, "insert")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timed out waiting for event")
	}
}

func TestSSEHub_PublishMultipleClients(t *testing.T) {
	hub := NewSSEHub()

	ch1 := hub.Subscribe("client1")
	ch2 := hub.Subscribe("client2")

	event := ChangeEvent{
		Table:     "billing_cycles",
		Operation: "update",
	}

	hub.Publish(event)

	for i, ch := range []<-chan ChangeEvent{ch1, ch2} {
		select {
		case received := <-ch:
			if received.Table != "billing_cycles" {
				t.Errorf("client%d: Table = %q, expected %q", i+1, received.Table, "billing_cycles")
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("client%d: timed out waiting for event", i+1)
		}
	}
}

func TestSSEHub_NonBlockingPublish(t *testing.T) {
	hub := NewSSEHub()

	hub.Subscribe("slow_client")

	for i := 0; i < 200; i++ {
		hub.Publish(ChangeEvent{Table: "api_usage_logs", Operation: "insert"})
	}
}

func TestGetSSEHub_Singleton(t *testing.T) {
	hub1 := GetSSEHub()
	hub2 := GetSSEHub()

	if hub1 != hub2 {
		t.Error("GetSSEHub should return the same instance")
	}
}

func TestChangeNotifier_FansOutToCacheAndHub(t *testing.T) {
	hub := NewSSEHub()
	store := cache.NewStore()
	store.Register("dashboard", []string{"api_usage_logs"}, func(ctx context.Context) (interface{}, error) {
		return "value", nil
	})

	// Refresh so the key is Fresh before the notification arrives.
	if _, err := store.Get(context.Background(), "dashboard"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if state, _ := store.State("dashboard"); state != cache.Fresh {
		t.Fatalf("expected Fresh before notify, got %v", state)
	}

	ch := hub.Subscribe("client1")
	notifier := NewChangeNotifier(hub, store)
	notifier.NotifyChange("api_usage_logs", "insert")

	if state, _ := store.State("dashboard"); state != cache.Stale {
		t.Errorf("expected Stale after notify, got %v", state)
	}

	select {
	case received := <-ch:
		if received.Table != "api_usage_logs" || received.Operation != "insert" {
			t.Errorf("unexpected event %+v", received)
		}
		if received.Timestamp.IsZero() {
			t.Error("Timestamp should be set")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timed out waiting for change event")
	}
}
