package service

import (
	"context"
	"sort"
	"sync"

	"github.com/iliyamo/event-seat-booking/internal/model"
)

// SessionState is where a seat-map session is in the booking flow.
type SessionState string

const (
	StateBrowsing   SessionState = "BROWSING"
	StateSelecting  SessionState = "SELECTING"
	StateCartHeld   SessionState = "CART_HELD"
	StateCommitting SessionState = "COMMITTING"
	StateCommitted  SessionState = "COMMITTED"
)

// SeatBooker is the ledger surface a session drives.
type SeatBooker interface {
	ReserveAtomic(ctx context.Context, userID, eventID string, seatIDs []string) (bool, error)
	Release(ctx context.Context, eventID string, seatIDs []string) error
	ReleaseOwned(ctx context.Context, userID, eventID string, seatIDs []string) ([]string, error)
	FindByEvent(ctx context.Context, eventID string) ([]model.Seat, error)
}

// OrderCreator is the committer surface a session drives.
type OrderCreator interface {
	CreateOrder(ctx context.Context, userID, eventID string, seats []model.Seat) (int64, error)
}

// Session coordinates one user's booking on one event.  The selection is
// local and never persisted; the cart holds seats the ledger has already
// reserved for the user.  At most one ledger or committer call runs per
// session at a time; a second one gets ErrSessionBusy.
type Session struct {
	userID  string
	eventID string
	ledger  SeatBooker
	orders  OrderCreator

	mu        sync.Mutex
	busy      bool
	closed    bool
	state     SessionState
	seats     []model.Seat
	selection map[model.SeatKey]struct{}
	cart      []model.Seat
	orderID   int64
}

// SessionView is a copy of a session's state for rendering.
type SessionView struct {
	UserID         string       `json:"user_id"`
	EventID        string       `json:"event_id"`
	State          SessionState `json:"state"`
	Seats          []model.Seat `json:"seats"`
	Selection      []string     `json:"selection"`
	Cart           []model.Seat `json:"cart"`
	CartTotalCents int          `json:"cart_total_cents"`
	OrderID        int64        `json:"order_id,omitempty"`
}

func NewSession(userID, eventID string, ledger SeatBooker, orders OrderCreator) *Session {
	return &Session{
		userID:    userID,
		eventID:   eventID,
		ledger:    ledger,
		orders:    orders,
		state:     StateBrowsing,
		selection: map[model.SeatKey]struct{}{},
	}
}

func (s *Session) UserID() string  { return s.userID }
func (s *Session) EventID() string { return s.eventID }

// State returns the current state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Live reports whether the session can still take operations.
func (s *Session) Live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.state != StateCommitted
}

// View snapshots the session.
func (s *Session) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := SessionView{
		UserID:    s.userID,
		EventID:   s.eventID,
		State:     s.state,
		Seats:     append([]model.Seat(nil), s.seats...),
		Selection: s.selectionIDsLocked(),
		Cart:      append([]model.Seat(nil), s.cart...),
		OrderID:   s.orderID,
	}
	for _, c := range s.cart {
		v.CartTotalCents += c.PriceCents
	}
	return v
}

// Toggle adds or removes a seat from the selection and reports whether it
// is now selected.  Only seats AVAILABLE in the last snapshot can be added.
func (s *Session) Toggle(seatID string) (bool, error) {
	key, err := model.ParseSeatID(seatID)
	if err != nil {
		return false, invalid("seat", "%v", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usableLocked(); err != nil {
		return false, err
	}
	if _, ok := s.selection[key]; ok {
		delete(s.selection, key)
		s.settleLocked()
		return false, nil
	}
	seat, ok := s.findLocked(key)
	if !ok {
		return false, ErrUnknownSeat
	}
	if s.inCartLocked(key) {
		return false, ErrSeatInCart
	}
	if !seat.Available() {
		return false, ErrSeatUnavailable
	}
	s.selection[key] = struct{}{}
	s.settleLocked()
	return true, nil
}

// Refresh re-reads the seat map from the ledger.
func (s *Session) Refresh(ctx context.Context) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.done()
	return s.refresh(ctx)
}

// AddSelectionToCart reserves the whole selection atomically.  On success
// the seats move to the cart.  When another caller holds one of them the
// selection is discarded, the seat map is re-read and false is returned.
func (s *Session) AddSelectionToCart(ctx context.Context) (bool, error) {
	if err := s.acquire(); err != nil {
		return false, err
	}
	defer s.done()

	s.mu.Lock()
	ids := s.selectionIDsLocked()
	s.mu.Unlock()
	if len(ids) == 0 {
		return false, ErrEmptySelection
	}

	ok, err := s.ledger.ReserveAtomic(ctx, s.userID, s.eventID, ids)
	if err != nil {
		return false, err
	}
	if !ok {
		s.mu.Lock()
		s.selection = map[model.SeatKey]struct{}{}
		s.settleLocked()
		s.mu.Unlock()
		return false, s.refresh(ctx)
	}

	// A failed re-read keeps the previous snapshot; its prices are the ones
	// the user selected against.
	_ = s.refresh(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		key, _ := model.ParseSeatID(id)
		seat, found := s.findLocked(key)
		if !found {
			seat = model.Seat{EventID: s.eventID, RowLabel: key.RowLabel, SeatNumber: key.SeatNumber}
		}
		seat.Status = model.SeatReserved
		s.cart = append(s.cart, seat)
	}
	sortSeats(s.cart)
	s.selection = map[model.SeatKey]struct{}{}
	s.settleLocked()
	return true, nil
}

// ClearCart releases every cart seat and returns the session to browsing.
// If the release fails the cart is kept so the call can be retried.
func (s *Session) ClearCart(ctx context.Context) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.done()
	return s.clearCart(ctx)
}

// Abandon clears the cart and closes the session.
func (s *Session) Abandon(ctx context.Context) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.done()
	if err := s.clearCart(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Checkout turns the cart into an order.  On success the cart is emptied and
// the session is COMMITTED.  On failure the cart stays, still reserved, so
// the user can retry, unless the failure says the holds lapsed, in which
// case the cart is dropped and the seat map re-read.
func (s *Session) Checkout(ctx context.Context) (int64, error) {
	if err := s.acquire(); err != nil {
		return 0, err
	}
	defer s.done()

	s.mu.Lock()
	if len(s.cart) == 0 {
		s.mu.Unlock()
		return 0, ErrEmptyCart
	}
	cart := append([]model.Seat(nil), s.cart...)
	s.state = StateCommitting
	s.mu.Unlock()

	orderID, err := s.orders.CreateOrder(ctx, s.userID, s.eventID, cart)
	if err != nil {
		s.mu.Lock()
		if IsHoldExpired(err) {
			s.cart = nil
		}
		s.settleLocked()
		s.mu.Unlock()
		if IsHoldExpired(err) {
			_ = s.refresh(ctx)
		}
		return 0, err
	}

	s.mu.Lock()
	s.cart = nil
	s.selection = map[model.SeatKey]struct{}{}
	s.orderID = orderID
	s.state = StateCommitted
	s.mu.Unlock()
	return orderID, nil
}

func (s *Session) clearCart(ctx context.Context) error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.cart))
	for _, c := range s.cart {
		ids = append(ids, c.DisplayID())
	}
	s.mu.Unlock()

	if len(ids) > 0 {
		// Cart seats that were not freed are no longer ours; they leave the
		// cart with the rest.
		if _, err := s.ledger.ReleaseOwned(ctx, s.userID, s.eventID, ids); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.cart = nil
	s.selection = map[model.SeatKey]struct{}{}
	s.state = StateBrowsing
	s.mu.Unlock()
	if len(ids) > 0 {
		_ = s.refresh(ctx)
	}
	return nil
}

func (s *Session) refresh(ctx context.Context) error {
	seats, err := s.ledger.FindByEvent(ctx, s.eventID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.seats = seats
	s.mu.Unlock()
	return nil
}

// acquire marks the session busy for one ledger or committer call.
func (s *Session) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usableLocked(); err != nil {
		return err
	}
	s.busy = true
	return nil
}

func (s *Session) done() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

func (s *Session) usableLocked() error {
	if s.closed || s.state == StateCommitted {
		return ErrSessionClosed
	}
	if s.busy {
		return ErrSessionBusy
	}
	return nil
}

func (s *Session) settleLocked() {
	switch {
	case len(s.cart) > 0:
		s.state = StateCartHeld
	case len(s.selection) > 0:
		s.state = StateSelecting
	default:
		s.state = StateBrowsing
	}
}

func (s *Session) findLocked(key model.SeatKey) (model.Seat, bool) {
	for _, seat := range s.seats {
		if seat.Key() == key {
			return seat, true
		}
	}
	return model.Seat{}, false
}

func (s *Session) inCartLocked(key model.SeatKey) bool {
	for _, c := range s.cart {
		if c.Key() == key {
			return true
		}
	}
	return false
}

func (s *Session) selectionIDsLocked() []string {
	keys := make([]model.SeatKey, 0, len(s.selection))
	for k := range s.selection {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return model.LessSeat(keys[i], keys[j]) })
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, k.DisplayID())
	}
	return ids
}

func sortSeats(seats []model.Seat) {
	sort.Slice(seats, func(i, j int) bool { return model.LessSeat(seats[i].Key(), seats[j].Key()) })
}
