package event

import (
	"encoding/json"
	"time"
)

// Type identifies an event kind.
type Type string

const (
	AuctionOpened    Type = "auction.opened"
	AuctionBidPlaced Type = "auction.bid_placed"
	AuctionExtended  Type = "auction.extended"
	AuctionClosed    Type = "auction.closed"
	AuctionCancelled Type = "auction.cancelled"
)

// Event represents a single domain event in the audit journal.
type Event struct {
	ID          string          `json:"id" db:"id"`
	AggregateID string          `json:"aggregate_id" db:"aggregate_id"`
	Type        Type            `json:"type" db:"type"`
	Data        json.RawMessage `json:"data" db:"data"`
	Version     int             `json:"version" db:"version"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// AuctionOpenedData is the payload for AuctionOpened events.
type AuctionOpenedData struct {
	ItemName  string        `json:"item_name"`
	OpenedBy  string        `json:"opened_by"`
	ChannelID string        `json:"channel_id"`
	Duration  time.Duration `json:"duration"`
	Deadline  time.Time     `json:"deadline"`
}

// BidPlacedData is the payload for AuctionBidPlaced events.
// Amount is in base units (silver); Display is its denomination breakdown.
type BidPlacedData struct {
	Bidder  string `json:"bidder"`
	Amount  int64  `json:"amount"`
	Display string `json:"display"`
}

// AuctionExtendedData is the payload for AuctionExtended events.
type AuctionExtendedData struct {
	Bidder     string    `json:"bidder"`
	Deadline   time.Time `json:"deadline"`
	Extensions int       `json:"extensions"`
}

// AuctionClosedData is the payload for AuctionClosed events.
type AuctionClosedData struct {
	Sold   bool   `json:"sold"`
	Winner string `json:"winner,omitempty"`
	Amount int64  `json:"amount,omitempty"`
}

// AuctionCancelledData is the payload for AuctionCancelled events.
type AuctionCancelledData struct {
	CancelledBy string `json:"cancelled_by"`
}
