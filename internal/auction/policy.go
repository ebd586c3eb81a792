package auction

import "time"

// ExtensionPolicy decides when a late bid pushes an auction's deadline out
// (anti-sniping). A bid landing within Window of the deadline moves the
// deadline to the bid's arrival time plus Increment, so sustained late
// bidding extends the auction by a bounded amount each time rather than
// compounding from the original deadline.
type ExtensionPolicy struct {
	Window    time.Duration
	Increment time.Duration
}

// DefaultPolicy returns the operator default of a two-minute window and
// two-minute increment.
func DefaultPolicy() ExtensionPolicy {
	return ExtensionPolicy{Window: 2 * time.Minute, Increment: 2 * time.Minute}
}

// ShouldExtend reports whether a bid arriving at now is close enough to the
// deadline to trigger an extension.
func (p ExtensionPolicy) ShouldExtend(now, deadline time.Time) bool {
	return deadline.Sub(now) <= p.Window
}

// Extend returns the new deadline for a bid arriving at now.
func (p ExtensionPolicy) Extend(now time.Time) time.Time {
	return now.Add(p.Increment)
}
