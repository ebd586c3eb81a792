package memory_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/jensholdgaard/discord-auction-bot/internal/clock"
	"github.com/jensholdgaard/discord-auction-bot/internal/event"
	"github.com/jensholdgaard/discord-auction-bot/internal/store/memory"
)

func TestEventStore_AppendAndLoad(t *testing.T) {
	clk := clock.NewMock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	es := memory.NewEventStore(clk)
	ctx := context.Background()

	events := []event.Event{
		{AggregateID: "a1", Type: event.AuctionOpened, Data: json.RawMessage(`{}`), Version: 1},
		{AggregateID: "a1", Type: event.AuctionBidPlaced, Data: json.RawMessage(`{}`), Version: 2},
		{AggregateID: "a2", Type: event.AuctionOpened, Data: json.RawMessage(`{}`), Version: 1},
	}
	if err := es.Append(ctx, events...); err != nil {
		t.Fatalf("Append: %v", err)
	}

	loaded, err := es.Load(ctx, "a1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("Load returned %d events, want 2", len(loaded))
	}
	if loaded[0].ID == "" {
		t.Error("expected generated event ID")
	}
	if !loaded[0].CreatedAt.Equal(clk.Now()) {
		t.Errorf("CreatedAt = %v, want clock time %v", loaded[0].CreatedAt, clk.Now())
	}

	other, err := es.Load(ctx, "a2")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(other) != 1 {
		t.Fatalf("Load(a2) returned %d events, want 1", len(other))
	}
}

func TestEventStore_LoadEmpty(t *testing.T) {
	es := memory.NewEventStore(clock.Real{})

	loaded, err := es.Load(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("expected no events, got %d", len(loaded))
	}
}

func TestEventStore_ConcurrentAppend(t *testing.T) {
	es := memory.NewEventStore(clock.Real{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = es.Append(ctx, event.Event{
				AggregateID: "shared",
				Type:        event.AuctionBidPlaced,
				Data:        json.RawMessage(`{}`),
			})
		}()
	}
	wg.Wait()

	loaded, err := es.Load(ctx, "shared")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 50 {
		t.Errorf("got %d events, want 50", len(loaded))
	}
}
