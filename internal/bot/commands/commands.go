package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/discord-auction-bot/internal/auction"
	"github.com/jensholdgaard/discord-auction-bot/internal/currency"
	"github.com/jensholdgaard/discord-auction-bot/internal/duration"
	"github.com/jensholdgaard/discord-auction-bot/internal/event"
)

// Handlers process Discord interactions.
type Handlers struct {
	registry *auction.Registry
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewHandlers creates new command handlers.
func NewHandlers(registry *auction.Registry, logger *slog.Logger, tp trace.TracerProvider) *Handlers {
	return &Handlers{
		registry: registry,
		logger:   logger,
		tracer:   tp.Tracer("github.com/jensholdgaard/discord-auction-bot/internal/bot/commands"),
	}
}

// SlashCommands returns the slash command definitions.
func SlashCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "auction-start",
			Description: "Start a silent auction for an item",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "item",
					Description: "Item name to auction",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "duration",
					Description: "Auction duration, e.g. 5m or 2h",
					Required:    true,
				},
			},
		},
		{
			Name:        "bid",
			Description: "Place a silent bid on an auction",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "auction-id",
					Description: "Auction ID to bid on",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "amount",
					Description: "Bid amount, e.g. \"1p 50g\" (mithril/platinum/gold/silver)",
					Required:    true,
				},
			},
		},
		{
			Name:        "auction-status",
			Description: "Show an auction's status",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "auction-id",
					Description: "Auction ID to inspect",
					Required:    true,
				},
			},
		},
		{
			Name:        "auction-list",
			Description: "List all running auctions",
		},
		{
			Name:        "auction-cancel",
			Description: "Cancel a running auction",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "auction-id",
					Description: "Auction ID to cancel",
					Required:    true,
				},
			},
		},
		{
			Name:        "auction-log",
			Description: "Show the audit log of an auction",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "auction-id",
					Description: "Auction ID to inspect",
					Required:    true,
				},
			},
		},
	}
}

// InteractionCreate handles incoming slash command interactions.
func (h *Handlers) InteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, span := h.tracer.Start(context.Background(), "InteractionCreate",
		trace.WithAttributes(attribute.String("command", i.ApplicationCommandData().Name)),
	)
	defer span.End()

	switch i.ApplicationCommandData().Name {
	case "auction-start":
		h.handleAuctionStart(ctx, s, i)
	case "bid":
		h.handleBid(ctx, s, i)
	case "auction-status":
		h.handleAuctionStatus(ctx, s, i)
	case "auction-list":
		h.handleAuctionList(ctx, s, i)
	case "auction-cancel":
		h.handleAuctionCancel(ctx, s, i)
	case "auction-log":
		h.handleAuctionLog(ctx, s, i)
	default:
		respond(s, i, "Unknown command")
	}
}

func (h *Handlers) handleAuctionStart(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := i.ApplicationCommandData().Options
	itemName := opts[0].StringValue()
	durationText := opts[1].StringValue()

	snap, err := h.registry.Open(ctx, itemName, i.Member.User.ID, i.ChannelID, durationText)
	if err != nil {
		respond(s, i, userMessage(err))
		return
	}

	// The announcement is public so everyone in the channel can bid.
	respondPublic(s, i, fmt.Sprintf(
		"Silent auction started for **%s** (ID: `%s`). Bid with `/bid`; it closes <t:%d:R>.",
		snap.ItemName, snap.ID, snap.Deadline.Unix()))
}

func (h *Handlers) handleBid(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := i.ApplicationCommandData().Options
	auctionID := opts[0].StringValue()
	tokens := strings.Fields(opts[1].StringValue())

	res, err := h.registry.PlaceBid(ctx, auctionID, i.Member.User.ID, tokens)
	if err != nil {
		respond(s, i, userMessage(err))
		return
	}

	msg := fmt.Sprintf("Bid of **%s** placed on **`%s`**.", res.Amount.Format(), auctionID)
	if res.Extended {
		msg += fmt.Sprintf(" The auction was extended; it now closes <t:%d:R>.", res.Deadline.Unix())
	}
	respond(s, i, msg)
}

func (h *Handlers) handleAuctionStatus(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	auctionID := i.ApplicationCommandData().Options[0].StringValue()

	snap, err := h.registry.Get(ctx, auctionID)
	if err != nil {
		respond(s, i, userMessage(err))
		return
	}

	msg := fmt.Sprintf("**%s** (`%s`) — %d bid(s), closes <t:%d:R>.",
		snap.ItemName, snap.ID, snap.BidCount, snap.Deadline.Unix())
	// Bids are sealed: only the opener sees who leads.
	if i.Member.User.ID == snap.OpenedBy && snap.Leader != nil {
		msg += fmt.Sprintf(" Leading: <@%s> with %s.", snap.Leader.Bidder, snap.Leader.Amount.Format())
	}
	respond(s, i, msg)
}

func (h *Handlers) handleAuctionList(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	snaps := h.registry.List(ctx)
	if len(snaps) == 0 {
		respond(s, i, "No auctions are running.")
		return
	}

	var b strings.Builder
	b.WriteString("**Running auctions:**\n")
	for _, snap := range snaps {
		fmt.Fprintf(&b, "- **%s** (`%s`) — %d bid(s), closes <t:%d:R>\n",
			snap.ItemName, snap.ID, snap.BidCount, snap.Deadline.Unix())
	}
	respond(s, i, b.String())
}

func (h *Handlers) handleAuctionCancel(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	auctionID := i.ApplicationCommandData().Options[0].StringValue()

	snap, err := h.registry.Get(ctx, auctionID)
	if err != nil {
		respond(s, i, userMessage(err))
		return
	}
	if i.Member.User.ID != snap.OpenedBy {
		respond(s, i, "Only the auction's opener can cancel it.")
		return
	}

	if err := h.registry.Cancel(ctx, auctionID, i.Member.User.ID); err != nil {
		respond(s, i, userMessage(err))
		return
	}
	respondPublic(s, i, fmt.Sprintf("Auction **%s** (`%s`) was cancelled.", snap.ItemName, auctionID))
}

func (h *Handlers) handleAuctionLog(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	auctionID := i.ApplicationCommandData().Options[0].StringValue()

	events, err := h.registry.AuditLog(ctx, auctionID)
	if err != nil {
		respond(s, i, userMessage(err))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Audit log for `%s`:**\n", auctionID)
	for _, e := range events {
		fmt.Fprintf(&b, "%d. %s — %s\n", e.Version, e.CreatedAt.Format(time.RFC3339), describeEvent(e))
	}
	respond(s, i, b.String())
}

// describeEvent renders one audit event as a human-readable line.
func describeEvent(e event.Event) string {
	switch e.Type {
	case event.AuctionOpened:
		var d event.AuctionOpenedData
		if err := json.Unmarshal(e.Data, &d); err == nil {
			return fmt.Sprintf("opened: **%s** by <@%s>, runs %s", d.ItemName, d.OpenedBy, d.Duration)
		}
	case event.AuctionBidPlaced:
		var d event.BidPlacedData
		if err := json.Unmarshal(e.Data, &d); err == nil {
			return fmt.Sprintf("bid: <@%s> at %s", d.Bidder, d.Display)
		}
	case event.AuctionExtended:
		var d event.AuctionExtendedData
		if err := json.Unmarshal(e.Data, &d); err == nil {
			return fmt.Sprintf("extended to %s (extension #%d)", d.Deadline.Format(time.RFC3339), d.Extensions)
		}
	case event.AuctionClosed:
		var d event.AuctionClosedData
		if err := json.Unmarshal(e.Data, &d); err == nil {
			if d.Sold {
				return fmt.Sprintf("closed: sold to <@%s> for %s", d.Winner, currency.Value(d.Amount).Format())
			}
			return "closed: no bids"
		}
	case event.AuctionCancelled:
		var d event.AuctionCancelledData
		if err := json.Unmarshal(e.Data, &d); err == nil {
			return fmt.Sprintf("cancelled by <@%s>", d.CancelledBy)
		}
	}
	return string(e.Type)
}

// userMessage maps domain errors to the message shown to the invoking user.
func userMessage(err error) string {
	switch {
	case errors.Is(err, auction.ErrNotFound):
		return "No such auction. Check the ID with `/auction-list`."
	case errors.Is(err, auction.ErrAuctionClosed):
		return "That auction has already closed."
	case errors.Is(err, auction.ErrBidNotHigher):
		return "Your bid must be higher than the current leading bid."
	case errors.Is(err, auction.ErrSelfOutbid):
		return "You already hold the leading bid."
	case errors.Is(err, currency.ErrEmptyBid):
		return "Give an amount, e.g. `1p 50g`."
	case errors.Is(err, currency.ErrUnknownDenomination):
		return "Unknown denomination. Use m(ithril), p(latinum), g(old) or s(ilver)."
	case errors.Is(err, currency.ErrInvalidAmount):
		return "That amount is not a valid bid."
	case errors.Is(err, duration.ErrUnknownUnit):
		return "Duration must use minutes or hours, e.g. `5m` or `2h`."
	case errors.Is(err, duration.ErrNonPositiveDuration):
		return "Duration must be positive."
	default:
		return fmt.Sprintf("Something went wrong: %s", err)
	}
}

// respond sends an ephemeral reply; sealed-bid traffic stays private.
func respond(s *discordgo.Session, i *discordgo.InteractionCreate, msg string) {
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: msg,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

func respondPublic(s *discordgo.Session, i *discordgo.InteractionCreate, msg string) {
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: msg,
		},
	})
}
