package auction

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/discord-auction-bot/internal/clock"
	"github.com/jensholdgaard/discord-auction-bot/internal/currency"
	"github.com/jensholdgaard/discord-auction-bot/internal/duration"
	"github.com/jensholdgaard/discord-auction-bot/internal/event"
	"github.com/jensholdgaard/discord-auction-bot/internal/notify"
)

// Registry tracks all live auctions and coordinates bids, closures and
// notifications. Auctions on different identifiers proceed in parallel;
// the registry's own lock only guards the id->auction map.
type Registry struct {
	mu       sync.RWMutex
	auctions map[string]*Auction

	policy   ExtensionPolicy
	events   event.Store
	notifier *notify.Dispatcher
	logger   *slog.Logger
	tracer   trace.Tracer
	clock    clock.Clock
}

// NewRegistry creates an empty Registry.
func NewRegistry(policy ExtensionPolicy, events event.Store, notifier *notify.Dispatcher, logger *slog.Logger, tp trace.TracerProvider, clk clock.Clock) *Registry {
	return &Registry{
		auctions: make(map[string]*Auction),
		policy:   policy,
		events:   events,
		notifier: notifier,
		logger:   logger,
		tracer:   tp.Tracer("github.com/jensholdgaard/discord-auction-bot/internal/auction"),
		clock:    clk,
	}
}

// Open creates and tracks a new auction. durationText is the user-supplied
// short form, e.g. "5m" or "2h".
func (r *Registry) Open(ctx context.Context, itemName, openedBy, channelID, durationText string) (Snapshot, error) {
	ctx, span := r.tracer.Start(ctx, "Registry.Open",
		trace.WithAttributes(
			attribute.String("item", itemName),
			attribute.String("opened_by", openedBy),
		),
	)
	defer span.End()

	d, err := duration.Parse(durationText)
	if err != nil {
		return Snapshot{}, err
	}

	id := uuid.NewString()
	a := New(id, itemName, openedBy, channelID, d, r.policy, r.clock)

	r.appendEvents(ctx, a)

	r.mu.Lock()
	r.auctions[id] = a
	r.mu.Unlock()

	r.logger.InfoContext(ctx, "auction opened",
		slog.String("auction_id", id),
		slog.String("item", itemName),
		slog.Duration("duration", d),
	)
	return a.Snapshot(), nil
}

// PlaceBid parses the bid tokens and applies the bid to an active auction.
// On acceptance the bidder gets a confirmation, the outbid previous leader
// an outbid alert, and both an extension notice when the deadline moved.
func (r *Registry) PlaceBid(ctx context.Context, auctionID, bidder string, tokens []string) (*BidResult, error) {
	ctx, span := r.tracer.Start(ctx, "Registry.PlaceBid",
		trace.WithAttributes(
			attribute.String("auction_id", auctionID),
			attribute.String("bidder", bidder),
		),
	)
	defer span.End()

	amount, err := currency.Parse(tokens)
	if err != nil {
		return nil, err
	}

	a, err := r.get(auctionID)
	if err != nil {
		return nil, err
	}

	res, err := a.PlaceBid(bidder, amount)
	if err != nil {
		return nil, err
	}

	r.appendEvents(ctx, a)

	r.notifier.Enqueue(notify.Notification{
		Recipient: bidder,
		Kind:      notify.KindConfirmed,
		AuctionID: a.ID,
		Item:      a.ItemName,
		Amount:    amount,
	})
	if res.Previous != nil && res.Previous.Bidder != bidder {
		r.notifier.Enqueue(notify.Notification{
			Recipient: res.Previous.Bidder,
			Kind:      notify.KindOutbid,
			AuctionID: a.ID,
			Item:      a.ItemName,
			Amount:    res.Previous.Amount,
		})
	}
	if res.Extended {
		r.notifier.Enqueue(notify.Notification{
			Recipient: bidder,
			Kind:      notify.KindExtended,
			AuctionID: a.ID,
			Item:      a.ItemName,
		})
		if res.Previous != nil && res.Previous.Bidder != bidder {
			r.notifier.Enqueue(notify.Notification{
				Recipient: res.Previous.Bidder,
				Kind:      notify.KindExtended,
				AuctionID: a.ID,
				Item:      a.ItemName,
			})
		}
	}

	r.logger.InfoContext(ctx, "bid placed",
		slog.String("auction_id", a.ID),
		slog.String("bidder", bidder),
		slog.Int64("amount", int64(amount)),
		slog.Bool("extended", res.Extended),
	)
	return res, nil
}

// Get returns a read-only snapshot of an auction.
func (r *Registry) Get(ctx context.Context, auctionID string) (Snapshot, error) {
	_, span := r.tracer.Start(ctx, "Registry.Get",
		trace.WithAttributes(attribute.String("auction_id", auctionID)),
	)
	defer span.End()

	a, err := r.get(auctionID)
	if err != nil {
		return Snapshot{}, err
	}
	return a.Snapshot(), nil
}

// List returns snapshots of all tracked auctions ordered by deadline.
func (r *Registry) List(ctx context.Context) []Snapshot {
	_, span := r.tracer.Start(ctx, "Registry.List")
	defer span.End()

	r.mu.RLock()
	out := make([]Snapshot, 0, len(r.auctions))
	for _, a := range r.auctions {
		out = append(out, a.Snapshot())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Deadline.Before(out[j].Deadline) })
	return out
}

// Cancel aborts an active auction. Every bidder is told the auction ended
// with no winner.
func (r *Registry) Cancel(ctx context.Context, auctionID, by string) error {
	ctx, span := r.tracer.Start(ctx, "Registry.Cancel",
		trace.WithAttributes(attribute.String("auction_id", auctionID)),
	)
	defer span.End()

	a, err := r.get(auctionID)
	if err != nil {
		return err
	}

	bidders := a.Bidders()
	if err := a.Cancel(by); err != nil {
		return err
	}

	r.appendEvents(ctx, a)

	for _, bidder := range bidders {
		r.notifier.Enqueue(notify.Notification{
			Recipient: bidder,
			Kind:      notify.KindClosed,
			AuctionID: a.ID,
			Item:      a.ItemName,
		})
	}

	r.evict(a.ID)

	r.logger.InfoContext(ctx, "auction cancelled",
		slog.String("auction_id", a.ID),
		slog.String("cancelled_by", by),
	)
	return nil
}

// Closure pairs a closed auction's final snapshot with its outcome.
type Closure struct {
	Auction Snapshot
	Outcome Outcome
}

// CloseExpired closes every active auction whose deadline has passed,
// notifies the involved parties and evicts the auctions from the registry.
// It is invoked by the scheduler on each sweep.
func (r *Registry) CloseExpired(ctx context.Context, now time.Time) []Closure {
	ctx, span := r.tracer.Start(ctx, "Registry.CloseExpired")
	defer span.End()

	r.mu.RLock()
	candidates := make([]*Auction, 0, len(r.auctions))
	for _, a := range r.auctions {
		candidates = append(candidates, a)
	}
	r.mu.RUnlock()

	var closed []Closure
	for _, a := range candidates {
		if a.Status() != StatusActive || a.Deadline().After(now) {
			continue
		}

		bidders := a.Bidders()
		out, err := a.Close(now)
		if err != nil {
			// A late bid extended the deadline between the scan and the
			// close; the auction stays open for the next sweep.
			continue
		}

		r.appendEvents(ctx, a)
		r.announceClosure(a, out, bidders)
		r.evict(a.ID)

		closed = append(closed, Closure{Auction: a.Snapshot(), Outcome: out})

		r.logger.InfoContext(ctx, "auction closed",
			slog.String("auction_id", a.ID),
			slog.String("item", a.ItemName),
			slog.Bool("sold", out.Sold()),
		)
	}
	return closed
}

// AuditLog returns the recorded audit events for an auction.
func (r *Registry) AuditLog(ctx context.Context, auctionID string) ([]event.Event, error) {
	ctx, span := r.tracer.Start(ctx, "Registry.AuditLog",
		trace.WithAttributes(attribute.String("auction_id", auctionID)),
	)
	defer span.End()

	events, err := r.events.Load(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("loading audit events: %w", err)
	}
	if len(events) == 0 {
		return nil, ErrNotFound
	}
	return events, nil
}

func (r *Registry) get(auctionID string) (*Auction, error) {
	r.mu.RLock()
	a, ok := r.auctions[auctionID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("auction %s: %w", auctionID, ErrNotFound)
	}
	return a, nil
}

func (r *Registry) evict(auctionID string) {
	r.mu.Lock()
	delete(r.auctions, auctionID)
	r.mu.Unlock()
}

// announceClosure notifies the opener, winner and losers of a closed auction.
func (r *Registry) announceClosure(a *Auction, out Outcome, bidders []string) {
	closedNote := notify.Notification{
		Recipient: a.OpenedBy,
		Kind:      notify.KindClosed,
		AuctionID: a.ID,
		Item:      a.ItemName,
		ChannelID: a.ChannelID,
	}
	if out.Sold() {
		closedNote.Winner = out.Winner.Bidder
		closedNote.Amount = out.Winner.Amount
	}
	r.notifier.Enqueue(closedNote)

	if !out.Sold() {
		return
	}

	r.notifier.Enqueue(notify.Notification{
		Recipient: out.Winner.Bidder,
		Kind:      notify.KindWon,
		AuctionID: a.ID,
		Item:      a.ItemName,
		Amount:    out.Winner.Amount,
	})
	for _, bidder := range bidders {
		if bidder == out.Winner.Bidder {
			continue
		}
		r.notifier.Enqueue(notify.Notification{
			Recipient: bidder,
			Kind:      notify.KindLost,
			AuctionID: a.ID,
			Item:      a.ItemName,
		})
	}
}

// appendEvents drains the auction's pending audit events and persists them.
// The journal is best-effort: a store failure is logged and never surfaces
// to the bidder.
func (r *Registry) appendEvents(ctx context.Context, a *Auction) {
	events := a.PendingEvents()
	if len(events) == 0 {
		return
	}
	if err := r.events.Append(ctx, events...); err != nil {
		r.logger.ErrorContext(ctx, "failed to persist audit events",
			slog.String("auction_id", a.ID),
			slog.Any("error", err),
		)
	}
}
