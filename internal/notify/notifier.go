// Package notify alerts operators when a detection cycle surfaces an
// opportunity worth acting on. Notifications fan out to every registered
// sender (Telegram, Discord).
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/polyarb/arbscan/internal/domain"
)

// Sender is a single notification channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Notifier fans notifications out to its senders. A sender failure is logged
// and does not block the remaining senders.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier. Only events named in the events slice are
// forwarded; an empty slice allows everything.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify delivers the message to all senders when the event type passes the
// configured filter.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) {
	if len(n.events) > 0 && !n.events[event] {
		return
	}
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.WarnContext(ctx, "notification failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
		}
	}
}

// AnnounceBest formats and sends the best opportunity of a refresh cycle.
func (n *Notifier) AnnounceBest(ctx context.Context, best *domain.BestOpportunity) {
	if best == nil || len(n.senders) == 0 {
		return
	}
	switch {
	case best.Cross != nil:
		o := best.Cross
		n.Notify(ctx, "opportunity", "Cross-market opportunity",
			fmt.Sprintf("%s <-> %s\nmargin %.2f%%, expected profit %.2f on %.0f, confidence %.2f\nbuy %s %s @ %.3f / %s %s @ %.3f",
				o.Kalshi.Title, o.Polymarket.Title,
				o.ProfitMargin, o.ExpectedProfit, o.RequiredCapital, o.Confidence,
				o.Directive.BuyLeg.Platform, o.Directive.BuyLeg.Side, o.Directive.BuyLeg.Price,
				o.Directive.SellLeg.Platform, o.Directive.SellLeg.Side, o.Directive.SellLeg.Price,
			))
	case best.Intra != nil:
		o := best.Intra
		n.Notify(ctx, "opportunity", "Intra-market spread",
			fmt.Sprintf("%s (%s)\nyes %.3f + no %.3f, spread %.3f, margin %.2f%%",
				o.Market.Title, o.Market.Platform,
				o.YesPrice, o.NoPrice, o.Spread, o.ProfitMargin,
			))
	}
}
