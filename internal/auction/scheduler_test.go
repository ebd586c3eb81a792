package auction_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/jensholdgaard/discord-auction-bot/internal/auction"
	"github.com/jensholdgaard/discord-auction-bot/internal/clock"
)

func TestScheduler_Sweep(t *testing.T) {
	f := newRegistryFixture(t)
	s := auction.NewScheduler(f.registry, time.Second, f.clk, slog.Default())

	snap, _ := f.registry.Open(context.Background(), "Item", "u1", "chan-1", "5m")

	if n := s.Sweep(context.Background()); n != 0 {
		t.Errorf("Sweep() before deadline = %d, want 0", n)
	}

	f.clk.Advance(6 * time.Minute)
	if n := s.Sweep(context.Background()); n != 1 {
		t.Errorf("Sweep() after deadline = %d, want 1", n)
	}
	if _, err := f.registry.Get(context.Background(), snap.ID); !errors.Is(err, auction.ErrNotFound) {
		t.Errorf("Get() after sweep error = %v, want ErrNotFound", err)
	}
}

func TestScheduler_RunAndShutdown(t *testing.T) {
	f := newRegistryFixture(t)
	// Real-time pacing with a mock decision clock: the auction is already
	// past its deadline by the time the first tick fires.
	s := auction.NewScheduler(f.registry, 10*time.Millisecond, f.clk, slog.Default())

	snap, _ := f.registry.Open(context.Background(), "Item", "u1", "chan-1", "5m")
	f.clk.Advance(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := f.registry.Get(context.Background(), snap.ID); errors.Is(err, auction.ErrNotFound) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	s.Wait() // must return promptly once the context is cancelled

	if _, err := f.registry.Get(context.Background(), snap.ID); !errors.Is(err, auction.ErrNotFound) {
		t.Errorf("auction still tracked after scheduler ran: %v", err)
	}
}

func TestScheduler_DefaultInterval(t *testing.T) {
	f := newRegistryFixture(t)
	s := auction.NewScheduler(f.registry, 0, clock.Real{}, slog.Default())
	if s == nil {
		t.Fatal("NewScheduler returned nil")
	}
	// Zero interval falls back to one second; just verify Start/stop cycles.
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()
	s.Wait()
}
