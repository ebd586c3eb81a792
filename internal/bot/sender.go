package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/jensholdgaard/discord-auction-bot/internal/notify"
)

// messenger is the slice of discordgo.Session the sender needs.
type messenger interface {
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Sender delivers auction notifications through Discord. Personal updates go
// out as DMs; closures are additionally announced in the auction's channel
// and, when configured, a results channel.
type Sender struct {
	session          messenger
	resultsChannelID string
}

// NewSender creates a Sender posting through the given session.
// resultsChannelID may be empty to disable the results feed.
func NewSender(session messenger, resultsChannelID string) *Sender {
	return &Sender{session: session, resultsChannelID: resultsChannelID}
}

// Send implements notify.Sender.
func (s *Sender) Send(_ context.Context, n notify.Notification) error {
	if err := s.direct(n.Recipient, dmText(n)); err != nil {
		return err
	}

	if n.Kind != notify.KindClosed {
		return nil
	}

	// The public announcement names the winner but not the amount; losing
	// bids stay sealed even after closing.
	if n.ChannelID != "" {
		if _, err := s.session.ChannelMessageSend(n.ChannelID, publicText(n)); err != nil {
			return fmt.Errorf("announcing closure in channel %s: %w", n.ChannelID, err)
		}
	}
	if s.resultsChannelID != "" {
		if _, err := s.session.ChannelMessageSend(s.resultsChannelID, resultsText(n)); err != nil {
			return fmt.Errorf("posting to results channel: %w", err)
		}
	}
	return nil
}

func (s *Sender) direct(recipientID, content string) error {
	ch, err := s.session.UserChannelCreate(recipientID)
	if err != nil {
		return fmt.Errorf("opening DM channel for %s: %w", recipientID, err)
	}
	if _, err := s.session.ChannelMessageSend(ch.ID, content); err != nil {
		return fmt.Errorf("sending DM to %s: %w", recipientID, err)
	}
	return nil
}

func dmText(n notify.Notification) string {
	switch n.Kind {
	case notify.KindConfirmed:
		return fmt.Sprintf("Your bid of **%s** on **%s** (`%s`) was accepted.", n.Amount.Format(), n.Item, n.AuctionID)
	case notify.KindOutbid:
		return fmt.Sprintf("Your bid of **%s** on **%s** (`%s`) has been outbid.", n.Amount.Format(), n.Item, n.AuctionID)
	case notify.KindExtended:
		return fmt.Sprintf("The auction for **%s** (`%s`) was extended by a late bid.", n.Item, n.AuctionID)
	case notify.KindWon:
		return fmt.Sprintf("You won **%s** (`%s`) with a bid of **%s**. Congratulations!", n.Item, n.AuctionID, n.Amount.Format())
	case notify.KindLost:
		return fmt.Sprintf("The auction for **%s** (`%s`) has closed. Your bid did not win.", n.Item, n.AuctionID)
	case notify.KindClosed:
		if n.Winner != "" {
			return fmt.Sprintf("Your auction for **%s** (`%s`) closed: sold to <@%s> for **%s**.", n.Item, n.AuctionID, n.Winner, n.Amount.Format())
		}
		return fmt.Sprintf("Your auction for **%s** (`%s`) closed with no bids.", n.Item, n.AuctionID)
	default:
		return fmt.Sprintf("Update on auction **%s** (`%s`).", n.Item, n.AuctionID)
	}
}

func publicText(n notify.Notification) string {
	if n.Winner != "" {
		return fmt.Sprintf("The silent auction for **%s** has closed. Winner: <@%s>.", n.Item, n.Winner)
	}
	return fmt.Sprintf("The silent auction for **%s** has closed with no bids.", n.Item)
}

func resultsText(n notify.Notification) string {
	if n.Winner != "" {
		return fmt.Sprintf("**%s** (`%s`) sold to <@%s> for **%s**.", n.Item, n.AuctionID, n.Winner, n.Amount.Format())
	}
	return fmt.Sprintf("**%s** (`%s`) went unsold.", n.Item, n.AuctionID)
}
