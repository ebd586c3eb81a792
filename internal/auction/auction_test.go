package auction_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jensholdgaard/discord-auction-bot/internal/auction"
	"github.com/jensholdgaard/discord-auction-bot/internal/clock"
	"github.com/jensholdgaard/discord-auction-bot/internal/currency"
)

var testStart = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestAuction(clk clock.Clock, d time.Duration) *auction.Auction {
	return auction.New("a1", "Shiny Sword", "opener", "chan-1", d, auction.DefaultPolicy(), clk)
}

func TestPlaceBid(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(a *auction.Auction)
		bidder  string
		amount  currency.Value
		wantErr error
	}{
		{
			name:   "valid first bid",
			bidder: "u2",
			amount: 5000,
		},
		{
			name: "must exceed current leader",
			setup: func(a *auction.Auction) {
				_, _ = a.PlaceBid("u2", 5000)
			},
			bidder:  "u3",
			amount:  4000,
			wantErr: auction.ErrBidNotHigher,
		},
		{
			name: "equal bid rejected",
			setup: func(a *auction.Auction) {
				_, _ = a.PlaceBid("u2", 5000)
			},
			bidder:  "u3",
			amount:  5000,
			wantErr: auction.ErrBidNotHigher,
		},
		{
			name: "leader cannot outbid themselves",
			setup: func(a *auction.Auction) {
				_, _ = a.PlaceBid("u2", 5000)
			},
			bidder:  "u2",
			amount:  6000,
			wantErr: auction.ErrSelfOutbid,
		},
		{
			name: "re-entry after being outbid is allowed",
			setup: func(a *auction.Auction) {
				_, _ = a.PlaceBid("u2", 5000)
				_, _ = a.PlaceBid("u3", 6000)
			},
			bidder: "u2",
			amount: 7000,
		},
		{
			name: "bid on closed auction",
			setup: func(a *auction.Auction) {
				_, _ = a.Close(testStart.Add(time.Hour))
			},
			bidder:  "u2",
			amount:  5000,
			wantErr: auction.ErrAuctionClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAuction(clock.NewMock(testStart), 5*time.Minute)
			if tt.setup != nil {
				tt.setup(a)
			}
			res, err := a.PlaceBid(tt.bidder, tt.amount)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("PlaceBid() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && res.Amount != tt.amount {
				t.Errorf("PlaceBid() amount = %d, want %d", res.Amount, tt.amount)
			}
		})
	}
}

func TestPlaceBid_ReportsPreviousLeader(t *testing.T) {
	a := newTestAuction(clock.NewMock(testStart), time.Hour)

	res, err := a.PlaceBid("u2", 5000)
	if err != nil {
		t.Fatalf("first bid error = %v", err)
	}
	if res.Previous != nil {
		t.Errorf("first bid previous = %+v, want nil", res.Previous)
	}

	res, err = a.PlaceBid("u3", 10_000)
	if err != nil {
		t.Fatalf("second bid error = %v", err)
	}
	if res.Previous == nil || res.Previous.Bidder != "u2" || res.Previous.Amount != 5000 {
		t.Errorf("previous leader = %+v, want u2 @ 5000", res.Previous)
	}
}

// Accepted amounts must be strictly increasing, so the leading amount never
// decreases over an auction's lifetime.
func TestPlaceBid_LeaderMonotonic(t *testing.T) {
	a := newTestAuction(clock.NewMock(testStart), time.Hour)

	amounts := []currency.Value{100, 250, 99, 250, 251, 50, 1000}
	var last currency.Value
	for i, amt := range amounts {
		bidder := fmt.Sprintf("u%d", i)
		_, err := a.PlaceBid(bidder, amt)
		if err != nil {
			continue
		}
		if amt <= last {
			t.Fatalf("accepted bid %d not greater than previous leader %d", amt, last)
		}
		last = amt
	}

	snap := a.Snapshot()
	if snap.Leader == nil || snap.Leader.Amount != last {
		t.Errorf("leader = %+v, want amount %d", snap.Leader, last)
	}

	history := a.History()
	for i := 1; i < len(history); i++ {
		if history[i].Amount <= history[i-1].Amount {
			t.Errorf("history not strictly increasing at %d: %d <= %d",
				i, history[i].Amount, history[i-1].Amount)
		}
	}
}

func TestPlaceBid_AntiSnipeExtension(t *testing.T) {
	clk := clock.NewMock(testStart)
	a := newTestAuction(clk, 5*time.Minute) // deadline T0+5m
	policy := auction.DefaultPolicy()

	// Bid well before the window: no extension.
	res, err := a.PlaceBid("u2", 100)
	if err != nil {
		t.Fatalf("early bid error = %v", err)
	}
	if res.Extended {
		t.Error("early bid extended the deadline")
	}
	if !res.Deadline.Equal(testStart.Add(5 * time.Minute)) {
		t.Errorf("deadline = %v, want unchanged %v", res.Deadline, testStart.Add(5*time.Minute))
	}

	// Bid at deadline-1m, inside the 2m window: deadline becomes now+2m.
	clk.Set(testStart.Add(4 * time.Minute))
	res, err = a.PlaceBid("u3", 200)
	if err != nil {
		t.Fatalf("late bid error = %v", err)
	}
	if !res.Extended {
		t.Fatal("late bid did not extend the deadline")
	}
	want := testStart.Add(4 * time.Minute).Add(policy.Increment)
	if !res.Deadline.Equal(want) {
		t.Errorf("deadline = %v, want %v", res.Deadline, want)
	}

	// A second late bid extends again, measured from its own arrival.
	clk.Set(want.Add(-30 * time.Second))
	res, err = a.PlaceBid("u4", 300)
	if err != nil {
		t.Fatalf("second late bid error = %v", err)
	}
	if !res.Extended {
		t.Fatal("second late bid did not extend the deadline")
	}
	want2 := want.Add(-30 * time.Second).Add(policy.Increment)
	if !res.Deadline.Equal(want2) {
		t.Errorf("deadline after second extension = %v, want %v", res.Deadline, want2)
	}

	if got := a.Snapshot().Extensions; got != 2 {
		t.Errorf("extension count = %d, want 2", got)
	}
}

// A bid arriving exactly at the deadline instant is still eligible; closure
// belongs to the scheduler, never to bidding.
func TestPlaceBid_AtDeadlineInstant(t *testing.T) {
	clk := clock.NewMock(testStart)
	a := newTestAuction(clk, 5*time.Minute)

	clk.Set(testStart.Add(5 * time.Minute))
	res, err := a.PlaceBid("u2", 100)
	if err != nil {
		t.Fatalf("bid at deadline error = %v", err)
	}
	// Inside the snipe window, so the deadline moves forward.
	if !res.Extended {
		t.Error("bid at deadline instant should trigger an extension")
	}
	if a.Status() != auction.StatusActive {
		t.Errorf("status = %q, want %q", a.Status(), auction.StatusActive)
	}
}

func TestClose(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(a *auction.Auction)
		now      time.Time
		wantSold bool
		wantErr  error
	}{
		{
			name: "close with winner",
			setup: func(a *auction.Auction) {
				_, _ = a.PlaceBid("u2", 5000)
				_, _ = a.PlaceBid("u3", 10_000)
			},
			now:      testStart.Add(time.Hour),
			wantSold: true,
		},
		{
			name:     "close with no bids",
			now:      testStart.Add(time.Hour),
			wantSold: false,
		},
		{
			name:    "close before deadline",
			now:     testStart.Add(time.Minute),
			wantErr: auction.ErrStillActive,
		},
		{
			name:     "close exactly at deadline",
			now:      testStart.Add(5 * time.Minute),
			wantSold: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAuction(clock.NewMock(testStart), 5*time.Minute)
			if tt.setup != nil {
				tt.setup(a)
			}
			out, err := a.Close(tt.now)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Close() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if out.Sold() != tt.wantSold {
				t.Errorf("Sold() = %v, want %v", out.Sold(), tt.wantSold)
			}
		})
	}
}

func TestClose_Idempotent(t *testing.T) {
	a := newTestAuction(clock.NewMock(testStart), 5*time.Minute)
	_, _ = a.PlaceBid("u2", 5000)

	closeTime := testStart.Add(time.Hour)
	first, err := a.Close(closeTime)
	if err != nil {
		t.Fatalf("first Close() error = %v", err)
	}

	second, err := a.Close(closeTime.Add(time.Minute))
	if err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if second.Status != first.Status || second.Sold() != first.Sold() {
		t.Errorf("second Close() = %+v, want %+v", second, first)
	}
	if second.Winner == nil || second.Winner.Bidder != "u2" {
		t.Errorf("second Close() winner = %+v, want u2", second.Winner)
	}
}

func TestCancel(t *testing.T) {
	a := newTestAuction(clock.NewMock(testStart), 5*time.Minute)
	_, _ = a.PlaceBid("u2", 5000)

	if err := a.Cancel("opener"); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if a.Status() != auction.StatusCancelled {
		t.Errorf("status = %q, want %q", a.Status(), auction.StatusCancelled)
	}

	if err := a.Cancel("opener"); !errors.Is(err, auction.ErrAuctionClosed) {
		t.Errorf("second Cancel() error = %v, want ErrAuctionClosed", err)
	}
	if _, err := a.PlaceBid("u3", 9000); !errors.Is(err, auction.ErrAuctionClosed) {
		t.Errorf("PlaceBid() after cancel error = %v, want ErrAuctionClosed", err)
	}
}

func TestAuction_ConcurrentBids(t *testing.T) {
	a := newTestAuction(clock.NewMock(testStart), time.Hour)

	var wg sync.WaitGroup
	results := make([]error, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			bidder := fmt.Sprintf("bidder-%d", idx)
			_, results[idx] = a.PlaceBid(bidder, currency.Value(idx+1))
		}(i)
	}
	wg.Wait()

	var accepted int
	for _, err := range results {
		if err == nil {
			accepted++
		}
	}
	if accepted == 0 {
		t.Fatal("expected at least one accepted bid")
	}

	// Whatever interleaving happened, the history must be strictly increasing
	// and the leader must be its maximum.
	history := a.History()
	if len(history) != accepted {
		t.Errorf("history length = %d, accepted = %d", len(history), accepted)
	}
	for i := 1; i < len(history); i++ {
		if history[i].Amount <= history[i-1].Amount {
			t.Fatalf("history not strictly increasing at %d", i)
		}
	}
	leader := a.Snapshot().Leader
	if leader == nil || leader.Amount != history[len(history)-1].Amount {
		t.Errorf("leader = %+v, want last history amount %d", leader, history[len(history)-1].Amount)
	}
}

func TestAuction_PendingEvents(t *testing.T) {
	a := newTestAuction(clock.NewMock(testStart), 5*time.Minute)
	_, _ = a.PlaceBid("u2", 5000)

	events := a.PendingEvents()
	if len(events) != 2 { // opened + bid
		t.Errorf("pending events = %d, want 2", len(events))
	}

	// Should be empty after drain.
	if events = a.PendingEvents(); len(events) != 0 {
		t.Errorf("pending events after drain = %d, want 0", len(events))
	}

	// Versions must increase monotonically across drains.
	_, _ = a.PlaceBid("u3", 6000)
	events = a.PendingEvents()
	if len(events) != 1 {
		t.Fatalf("pending events = %d, want 1", len(events))
	}
	if events[0].Version != 3 {
		t.Errorf("event version = %d, want 3", events[0].Version)
	}
}
