// Package notify fans booking events out to realtime clients and to the
// message broker.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"tickethive/models"
)

type Notifier interface {
	BookingPaid(ctx context.Context, ev *models.BookingPaidEvent) error
}

// Fanout delivers to every notifier and joins their errors.
type Fanout []Notifier

func (f Fanout) BookingPaid(ctx context.Context, ev *models.BookingPaidEvent) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.BookingPaid(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards events.
type Nop struct{}

func (Nop) BookingPaid(context.Context, *models.BookingPaidEvent) error { return nil }

// Async delivers in the background so slow subscribers never hold up the
// caller. Failures are logged.
type Async struct {
	Next Notifier
}

func (a Async) BookingPaid(ctx context.Context, ev *models.BookingPaidEvent) error {
	go func() {
		ctx := context.WithoutCancel(ctx)
		if err := a.Next.BookingPaid(ctx, ev); err != nil {
			slog.Error("booking paid notification failed", "booking_id", ev.BookingID, "session_id", ev.SessionID, "error", err)
		}
	}()
	return nil
}
