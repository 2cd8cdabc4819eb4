package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"tickethive/internal/auth"
	"tickethive/internal/status"
	"tickethive/internal/store"
	"tickethive/models"
)

type BookingService struct {
	store *store.Store
}

func NewBookingService(st *store.Store) *BookingService {
	return &BookingService{store: st}
}

type CreateBookingRequest struct {
	TicketID string `json:"ticket_id"`
	Quantity int    `json:"quantity"`
}

// CreateBooking records a pending reservation with a snapshot of the
// ticket's price and route. The stock check reads the current quantity but
// holds nothing, so two bookings may both pass against the same last seats.
func (s *BookingService) CreateBooking(ctx context.Context, p *auth.Principal, req CreateBookingRequest) (*models.Booking, error) {
	if err := auth.Require(p, models.RoleUser); err != nil {
		return nil, err
	}
	if req.Quantity <= 0 {
		return nil, status.ErrInvalidQuantity
	}
	ticketID := strings.TrimSpace(req.TicketID)
	if ticketID == "" {
		return nil, fmt.Errorf("ticket_id is required: %w", status.ErrInvalidRequest)
	}

	ticket, err := s.store.FindTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !ticket.Bookable() {
		return nil, fmt.Errorf("ticket %s: %w", ticket.ID, status.ErrTicketUnavailable)
	}
	if req.Quantity > ticket.Quantity {
		return nil, fmt.Errorf("requested %d, %d left: %w", req.Quantity, ticket.Quantity, status.ErrInsufficientStock)
	}

	booking := &models.Booking{
		TicketID:      ticket.ID,
		UserEmail:     p.Email,
		UserName:      p.DisplayName,
		VendorEmail:   ticket.VendorEmail,
		Quantity:      req.Quantity,
		Title:         ticket.Title,
		From:          ticket.From,
		To:            ticket.To,
		TransportType: ticket.TransportType,
		Departure:     ticket.Departure,
		PricePerUnit:  ticket.PricePerUnit,
		Status:        models.BookingPending,
	}
	if err := s.store.CreateBooking(ctx, booking); err != nil {
		return nil, err
	}

	slog.Info("booking created", "booking_id", booking.ID, "ticket_id", ticket.ID, "quantity", booking.Quantity)
	return booking, nil
}

// ModerateBooking lets a vendor reject or cancel one of their pending
// bookings. Paid bookings are final.
func (s *BookingService) ModerateBooking(ctx context.Context, p *auth.Principal, bookingID string, to models.BookingStatus) (*models.Booking, error) {
	if err := auth.Require(p, models.RoleVendor); err != nil {
		return nil, err
	}
	if to != models.BookingRejected && to != models.BookingCancelled {
		return nil, fmt.Errorf("vendors cannot set status %q: %w", to, status.ErrInvalidTransition)
	}

	booking, err := s.store.TransitionBooking(ctx, bookingID, p.Email, to)
	if err != nil {
		return nil, err
	}

	slog.Info("booking moderated", "booking_id", booking.ID, "vendor", p.Email, "status", to)
	return booking, nil
}

func (s *BookingService) ListForUser(ctx context.Context, p *auth.Principal) ([]models.Booking, error) {
	if err := auth.Require(p, models.RoleUser); err != nil {
		return nil, err
	}
	return s.store.ListBookingsByUser(ctx, p.Email)
}

func (s *BookingService) ListForVendor(ctx context.Context, p *auth.Principal) ([]models.Booking, error) {
	if err := auth.Require(p, models.RoleVendor); err != nil {
		return nil, err
	}
	return s.store.ListBookingsByVendor(ctx, p.Email)
}

func (s *BookingService) PaymentHistory(ctx context.Context, p *auth.Principal) ([]models.Transaction, error) {
	if err := auth.Require(p, models.RoleUser); err != nil {
		return nil, err
	}
	return s.store.ListTransactionsByUser(ctx, p.Email)
}

func (s *BookingService) VendorRevenue(ctx context.Context, p *auth.Principal) (*models.Revenue, error) {
	if err := auth.Require(p, models.RoleVendor); err != nil {
		return nil, err
	}
	return s.store.VendorRevenue(ctx, p.Email)
}
