package services

import (
	"context"
	"log/slog"

	"tickethive/internal/auth"
	"tickethive/internal/store"
	"tickethive/models"
)

// DefaultAdvertiseCap is how many tickets may be advertised at once.
const DefaultAdvertiseCap = 6

// TicketService holds the admin moderation actions on listings.
type TicketService struct {
	store        *store.Store
	advertiseCap int
}

func NewTicketService(st *store.Store, advertiseCap int) *TicketService {
	if advertiseCap <= 0 {
		advertiseCap = DefaultAdvertiseCap
	}
	return &TicketService{store: st, advertiseCap: advertiseCap}
}

func (s *TicketService) SetVerification(ctx context.Context, p *auth.Principal, ticketID string, to models.VerificationStatus) (*models.Ticket, error) {
	if err := auth.Require(p, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.store.SetVerificationStatus(ctx, ticketID, to); err != nil {
		return nil, err
	}

	slog.Info("ticket verification updated", "ticket_id", ticketID, "status", to, "admin", p.Email)
	return s.store.FindTicket(ctx, ticketID)
}

func (s *TicketService) SetAdvertise(ctx context.Context, p *auth.Principal, ticketID string, to models.AdvertiseStatus) (*models.Ticket, error) {
	if err := auth.Require(p, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.store.SetAdvertiseStatus(ctx, ticketID, to, s.advertiseCap); err != nil {
		return nil, err
	}

	slog.Info("ticket advertise updated", "ticket_id", ticketID, "status", to, "admin", p.Email)
	return s.store.FindTicket(ctx, ticketID)
}

func (s *TicketService) SetFraud(ctx context.Context, p *auth.Principal, ticketID string, hidden bool) (*models.Ticket, error) {
	if err := auth.Require(p, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.store.SetFraudFlag(ctx, ticketID, hidden); err != nil {
		return nil, err
	}

	slog.Warn("ticket fraud flag updated", "ticket_id", ticketID, "hidden", hidden, "admin", p.Email)
	return s.store.FindTicket(ctx, ticketID)
}
