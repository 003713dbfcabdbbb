package app

import (
	"context"

	"github.com/christkv/copernicus/internal/clock"
	"github.com/christkv/copernicus/internal/domain"
)

type TheaterRepository interface {
	CreateTheater(ctx context.Context, theater domain.Theater) error
	GetTheater(ctx context.Context, id string) (domain.Theater, error)
	CreateSession(ctx context.Context, session domain.Session) error
	GetSession(ctx context.Context, id string) (domain.Session, error)
}

// BookingService is the seat-map binding: the same holder-record
// machinery as the shop cart, with sessions as the reserved resource.
type BookingService struct {
	theaters TheaterRepository
	cart     *CartService
	clock    clock.Clock
}

// NewBookingService wires the theater catalog to a cart service bound to
// the session resource store.
func NewBookingService(theaters TheaterRepository, cart *CartService, clk clock.Clock) *BookingService {
	return &BookingService{
		theaters: theaters,
		cart:     cart,
		clock:    clk,
	}
}

type CreateTheaterInput struct {
	Name string
	Rows int
	Cols int
}

func (s *BookingService) CreateTheater(ctx context.Context, in CreateTheaterInput) (domain.Theater, error) {
	if in.Rows <= 0 || in.Cols <= 0 {
		return domain.Theater{}, domain.ErrInvalidSeat
	}

	seats := make([][]int, in.Rows)
	for i := range seats {
		seats[i] = make([]int, in.Cols)
	}

	theater := domain.Theater{
		ID:    newID(),
		Name:  in.Name,
		Seats: seats,
	}
	if err := s.theaters.CreateTheater(ctx, theater); err != nil {
		return domain.Theater{}, err
	}
	return theater, nil
}

type CreateSessionInput struct {
	TheaterID string
	Name      string
	Price     int64
}

// CreateSession snapshots the theater's seat plan into a new session
// with every seat free.
func (s *BookingService) CreateSession(ctx context.Context, in CreateSessionInput) (domain.Session, error) {
	if in.Price < 0 {
		return domain.Session{}, domain.ErrInvalidAmount
	}

	theater, err := s.theaters.GetTheater(ctx, in.TheaterID)
	if err != nil {
		return domain.Session{}, err
	}

	seats := make([][]int, len(theater.Seats))
	for i, row := range theater.Seats {
		seats[i] = make([]int, len(row))
	}

	session := domain.Session{
		ID:             newID(),
		TheaterID:      theater.ID,
		Name:           in.Name,
		Price:          in.Price,
		SeatsAvailable: int64(theater.SeatCount()),
		Seats:          seats,
		Holds:          []domain.SeatHold{},
	}
	if err := s.theaters.CreateSession(ctx, session); err != nil {
		return domain.Session{}, err
	}
	return session, nil
}

func (s *BookingService) GetTheater(ctx context.Context, id string) (domain.Theater, error) {
	return s.theaters.GetTheater(ctx, id)
}

func (s *BookingService) GetSession(ctx context.Context, id string) (domain.Session, error) {
	return s.theaters.GetSession(ctx, id)
}

// CreateBooking opens a holder record for seat reservations.
func (s *BookingService) CreateBooking(ctx context.Context) (domain.Cart, error) {
	return s.cart.Create(ctx)
}

func (s *BookingService) GetBooking(ctx context.Context, id string) (domain.Cart, error) {
	return s.cart.Get(ctx, id)
}

// SeatGroup names the seats wanted in one session.
type SeatGroup struct {
	SessionID string
	Seats     []domain.Seat
}

// BookSeats reserves every seat group or none, through the reservation
// coordinator. Line items are priced from the session at booking time.
func (s *BookingService) BookSeats(ctx context.Context, bookingID string, groups []SeatGroup) error {
	items := make([]domain.LineItem, 0, len(groups))
	for _, group := range groups {
		if len(group.Seats) == 0 {
			return domain.ErrInvalidQuantity
		}
		session, err := s.theaters.GetSession(ctx, group.SessionID)
		if err != nil {
			return err
		}
		items = append(items, domain.LineItem{
			ResourceID: session.ID,
			Name:       session.Name,
			Quantity:   int64(len(group.Seats)),
			Price:      session.Price,
			Seats:      group.Seats,
		})
	}
	return s.cart.AddItems(ctx, bookingID, items)
}

// ReleaseSeats gives a session's seats back and drops the line item.
func (s *BookingService) ReleaseSeats(ctx context.Context, bookingID, sessionID string) error {
	return s.cart.RemoveItem(ctx, bookingID, sessionID)
}

// Checkout turns the booking's seat holds into sold seats and produces
// the receipt order.
func (s *BookingService) Checkout(ctx context.Context, in CheckoutInput) (domain.Order, error) {
	return s.cart.Checkout(ctx, in)
}
