// Package notify delivers auction outcome notifications to bidders,
// decoupled from the bidding critical path. Delivery is best-effort:
// a failed or dropped notification never affects auction state.
package notify

import (
	"github.com/jensholdgaard/discord-auction-bot/internal/currency"
)

// Kind classifies an outbound notification.
type Kind string

const (
	KindConfirmed Kind = "confirmed"
	KindOutbid    Kind = "outbid"
	KindExtended  Kind = "extended"
	KindWon       Kind = "won"
	KindLost      Kind = "lost"
	KindClosed    Kind = "closed"
)

// Notification is an outbound message addressed to a single recipient.
type Notification struct {
	// Recipient is the platform user ID the message is for.
	Recipient string
	Kind      Kind
	AuctionID string
	Item      string
	// Amount is the bid amount relevant to the recipient: their own bid
	// for Confirmed/Outbid/Lost, the winning bid for Won and Closed.
	// Zero when no bid applies.
	Amount currency.Value
	// ChannelID is the venue channel the auction ran in. Set on Closed
	// notifications so the sender can post the public announcement.
	ChannelID string
	// Winner is set on Closed notifications when the item sold.
	Winner string
}
