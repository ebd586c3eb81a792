package auction

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jensholdgaard/discord-auction-bot/internal/clock"
	"github.com/jensholdgaard/discord-auction-bot/internal/currency"
	"github.com/jensholdgaard/discord-auction-bot/internal/event"
)

// Errors returned by auction operations.
var (
	ErrAuctionClosed = errors.New("auction is closed")
	ErrBidNotHigher  = errors.New("bid does not beat the current highest bid")
	ErrSelfOutbid    = errors.New("you are already the highest bidder")
	ErrStillActive   = errors.New("auction deadline has not passed")
	ErrNotFound      = errors.New("auction not found")
)

// Auction statuses.
const (
	StatusActive    = "active"
	StatusClosed    = "closed"
	StatusCancelled = "cancelled"
)

// Outcome is the terminal result of an auction. Winner is nil when the item
// did not sell.
type Outcome struct {
	Status string
	Winner *Bid
}

// Sold reports whether the auction closed with a winning bid.
func (o Outcome) Sold() bool { return o.Winner != nil }

// BidResult reports an accepted bid back to the caller.
type BidResult struct {
	// Amount is the new leading amount.
	Amount currency.Value
	// Previous is the outbid leader, nil on a first bid.
	Previous *Bid
	// Extended reports whether the bid triggered an anti-snipe extension.
	Extended bool
	// Deadline is the auction's deadline after the bid.
	Deadline time.Time
}

// Auction is the aggregate root for a single silent item auction.
// It is safe for concurrent use: PlaceBid, Close and Cancel serialize on an
// internal mutex, and read-only snapshots take the read side.
type Auction struct {
	mu sync.RWMutex

	ID        string
	ItemName  string
	OpenedBy  string
	ChannelID string

	deadline   time.Time
	status     string
	extensions int
	outcome    Outcome

	ledger Ledger
	policy ExtensionPolicy

	version int
	events  []event.Event

	clock clock.Clock
}

// New creates an active auction ending after d and records an opened event.
func New(id, itemName, openedBy, channelID string, d time.Duration, policy ExtensionPolicy, clk clock.Clock) *Auction {
	a := &Auction{
		ID:        id,
		ItemName:  itemName,
		OpenedBy:  openedBy,
		ChannelID: channelID,
		deadline:  clk.Now().Add(d),
		status:    StatusActive,
		policy:    policy,
		clock:     clk,
	}

	data, _ := json.Marshal(event.AuctionOpenedData{
		ItemName:  itemName,
		OpenedBy:  openedBy,
		ChannelID: channelID,
		Duration:  d,
		Deadline:  a.deadline,
	})
	a.recordEvent(event.AuctionOpened, data)
	return a
}

// PlaceBid validates and applies a bid. On acceptance it reports the new
// leading amount, the outbid previous leader and any deadline extension.
// Rejections leave the auction untouched.
//
// A bid arriving at or past the deadline is still eligible as long as the
// scheduler has not yet closed the auction; closure is never a side effect
// of bidding.
func (a *Auction) PlaceBid(bidder string, amount currency.Value) (*BidResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status != StatusActive {
		return nil, ErrAuctionClosed
	}

	now := a.clock.Now()
	prev, err := a.ledger.accept(bidder, amount, now)
	if err != nil {
		return nil, err
	}

	res := &BidResult{Amount: amount, Previous: prev, Deadline: a.deadline}

	if a.policy.ShouldExtend(now, a.deadline) {
		a.deadline = a.policy.Extend(now)
		a.extensions++
		res.Extended = true
		res.Deadline = a.deadline

		extData, _ := json.Marshal(event.AuctionExtendedData{
			Bidder:     bidder,
			Deadline:   a.deadline,
			Extensions: a.extensions,
		})
		a.recordEvent(event.AuctionExtended, extData)
	}

	data, _ := json.Marshal(event.BidPlacedData{
		Bidder:  bidder,
		Amount:  int64(amount),
		Display: amount.Format(),
	})
	a.recordEvent(event.AuctionBidPlaced, data)

	return res, nil
}

// Close transitions the auction to its terminal state once now has reached
// the deadline. Closing an already-terminal auction is a no-op returning
// the recorded outcome, so the scheduler may call it repeatedly.
func (a *Auction) Close(now time.Time) (Outcome, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status != StatusActive {
		return a.outcome, nil
	}
	if now.Before(a.deadline) {
		return Outcome{}, ErrStillActive
	}

	a.status = StatusClosed
	a.outcome = Outcome{Status: StatusClosed, Winner: a.ledger.Leader()}

	data, _ := json.Marshal(closedData(a.outcome))
	a.recordEvent(event.AuctionClosed, data)

	return a.outcome, nil
}

// Cancel aborts an active auction with no winner.
func (a *Auction) Cancel(by string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status != StatusActive {
		return ErrAuctionClosed
	}

	a.status = StatusCancelled
	a.outcome = Outcome{Status: StatusCancelled}

	data, _ := json.Marshal(event.AuctionCancelledData{CancelledBy: by})
	a.recordEvent(event.AuctionCancelled, data)
	return nil
}

// Snapshot is an immutable read-only view of an auction.
type Snapshot struct {
	ID         string
	ItemName   string
	OpenedBy   string
	ChannelID  string
	Status     string
	Deadline   time.Time
	Extensions int
	Leader     *Bid
	BidCount   int
}

// Snapshot returns the auction's current state without blocking bidders for
// longer than a read lock.
func (a *Auction) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Snapshot{
		ID:         a.ID,
		ItemName:   a.ItemName,
		OpenedBy:   a.OpenedBy,
		ChannelID:  a.ChannelID,
		Status:     a.status,
		Deadline:   a.deadline,
		Extensions: a.extensions,
		Leader:     a.ledger.Leader(),
		BidCount:   a.ledger.Len(),
	}
}

// Bidders returns the distinct bidder identities in first-bid order.
func (a *Auction) Bidders() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ledger.Bidders()
}

// History returns a copy of all accepted bids in acceptance order.
func (a *Auction) History() []Bid {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ledger.History()
}

// Deadline returns the current deadline.
func (a *Auction) Deadline() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.deadline
}

// Status returns the current lifecycle status.
func (a *Auction) Status() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

// PendingEvents returns uncommitted audit events and clears the buffer.
func (a *Auction) PendingEvents() []event.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	events := a.events
	a.events = nil
	return events
}

func (a *Auction) recordEvent(t event.Type, data json.RawMessage) {
	a.version++
	a.events = append(a.events, event.Event{
		AggregateID: a.ID,
		Type:        t,
		Data:        data,
		Version:     a.version,
		CreatedAt:   a.clock.Now(),
	})
}

func closedData(o Outcome) event.AuctionClosedData {
	d := event.AuctionClosedData{Sold: o.Sold()}
	if o.Winner != nil {
		d.Winner = o.Winner.Bidder
		d.Amount = int64(o.Winner.Amount)
	}
	return d
}
