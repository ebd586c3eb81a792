package auction

import (
	"time"

	"github.com/jensholdgaard/discord-auction-bot/internal/currency"
)

// Bid is a single accepted bid. Immutable once recorded.
type Bid struct {
	Bidder string
	Amount currency.Value
	Time   time.Time
}

// Ledger is the append-only history of accepted bids for one auction.
// Accepted amounts are strictly increasing, so the latest bid is always
// the leader. Not safe for concurrent use; the owning Auction serializes
// all access.
type Ledger struct {
	bids []Bid
}

// Leader returns a copy of the current leading bid, or nil when no bid has
// been accepted.
func (l *Ledger) Leader() *Bid {
	if len(l.bids) == 0 {
		return nil
	}
	b := l.bids[len(l.bids)-1]
	return &b
}

// accept validates and records a bid. It returns the previous leader (nil
// on the first bid) so the caller can notify the outbid party.
//
// A bid from the bidder already leading is rejected even if higher, and a
// bid that does not strictly exceed the leading amount is rejected.
func (l *Ledger) accept(bidder string, amount currency.Value, now time.Time) (*Bid, error) {
	prev := l.Leader()
	if prev != nil {
		if prev.Bidder == bidder {
			return nil, ErrSelfOutbid
		}
		if amount <= prev.Amount {
			return nil, ErrBidNotHigher
		}
	}

	l.bids = append(l.bids, Bid{Bidder: bidder, Amount: amount, Time: now})
	return prev, nil
}

// History returns a copy of all accepted bids in acceptance order.
func (l *Ledger) History() []Bid {
	out := make([]Bid, len(l.bids))
	copy(out, l.bids)
	return out
}

// Bidders returns the distinct bidder identities in first-bid order.
func (l *Ledger) Bidders() []string {
	seen := make(map[string]struct{}, len(l.bids))
	var out []string
	for _, b := range l.bids {
		if _, ok := seen[b.Bidder]; ok {
			continue
		}
		seen[b.Bidder] = struct{}{}
		out = append(out, b.Bidder)
	}
	return out
}

// Len reports the number of accepted bids.
func (l *Ledger) Len() int { return len(l.bids) }
