package notify

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Sender performs the actual delivery of one notification.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// SenderFunc adapts a function into a Sender.
type SenderFunc func(ctx context.Context, n Notification) error

func (f SenderFunc) Send(ctx context.Context, n Notification) error { return f(ctx, n) }

// Dispatcher consumes queued notifications and hands them to a Sender on a
// dedicated worker goroutine. Enqueue never blocks: when the buffer is full
// the notification is dropped and logged.
type Dispatcher struct {
	queue  chan Notification
	sender Sender
	logger *slog.Logger
	tracer trace.Tracer
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with the given buffer size.
func NewDispatcher(sender Sender, logger *slog.Logger, tp trace.TracerProvider, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Dispatcher{
		queue:  make(chan Notification, buffer),
		sender: sender,
		logger: logger,
		tracer: tp.Tracer("github.com/jensholdgaard/discord-auction-bot/internal/notify"),
	}
}

// Start launches the delivery worker. It runs until ctx is cancelled, then
// drains whatever is already buffered before returning.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-ctx.Done():
				d.drain()
				return
			case n := <-d.queue:
				d.deliver(ctx, n)
			}
		}
	}()
}

// Wait blocks until the delivery worker has exited.
func (d *Dispatcher) Wait() { d.wg.Wait() }

// Enqueue queues a notification for delivery without blocking. Callers hold
// an auction's lock while enqueueing, so a full buffer drops the message
// rather than stalling bid acceptance.
func (d *Dispatcher) Enqueue(n Notification) {
	select {
	case d.queue <- n:
	default:
		d.logger.Warn("notification queue full, dropping",
			slog.String("recipient", n.Recipient),
			slog.String("kind", string(n.Kind)),
			slog.String("auction_id", n.AuctionID),
		)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n Notification) {
	ctx, span := d.tracer.Start(ctx, "Dispatcher.deliver",
		trace.WithAttributes(
			attribute.String("notification.kind", string(n.Kind)),
			attribute.String("auction.id", n.AuctionID),
		),
	)
	defer span.End()

	if err := d.sender.Send(ctx, n); err != nil {
		d.logger.WarnContext(ctx, "notification delivery failed",
			slog.String("recipient", n.Recipient),
			slog.String("kind", string(n.Kind)),
			slog.Any("error", err),
		)
	}
}

// drain attempts delivery of already-buffered notifications after shutdown
// has begun. Uses a background context so sends are not cancelled mid-drain.
func (d *Dispatcher) drain() {
	for {
		select {
		case n := <-d.queue:
			d.deliver(context.Background(), n)
		default:
			return
		}
	}
}
