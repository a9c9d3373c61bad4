// Package testutil holds in-memory stores that satisfy the service store
// interfaces, for tests that do not need MySQL.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/queue"
	"github.com/iliyamo/event-seat-booking/internal/repository"
)

type seatRef struct {
	eventID string
	key     model.SeatKey
}

// SeatStore keeps seats and holds in maps guarded by one mutex, which makes
// ReserveAtomic all-or-nothing the way the SQL transaction does.
type SeatStore struct {
	mu    sync.Mutex
	seats map[string]map[model.SeatKey]model.Seat
	holds map[seatRef]model.SeatHold

	// Err, when set, is returned by every call.
	Err error
	// Events, when set, supplies names for AvailabilityByEvent.
	Events *EventStore

	InsertCalls atomic.Int32
}

func NewSeatStore() *SeatStore {
	return &SeatStore{
		seats: map[string]map[model.SeatKey]model.Seat{},
		holds: map[seatRef]model.SeatHold{},
	}
}

// Put stores seats as given, overwriting any existing ones.
func (s *SeatStore) Put(seats ...model.Seat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, seat := range seats {
		m, ok := s.seats[seat.EventID]
		if !ok {
			m = map[model.SeatKey]model.Seat{}
			s.seats[seat.EventID] = m
		}
		m[seat.Key()] = seat
	}
}

// Seat returns one seat by display id.
func (s *SeatStore) Seat(eventID, id string) (model.Seat, bool) {
	key, err := model.ParseSeatID(id)
	if err != nil {
		return model.Seat{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	seat, ok := s.seats[eventID][key]
	return seat, ok
}

// Holds returns a copy of the recorded holds.
func (s *SeatStore) Holds() []model.SeatHold {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.SeatHold, 0, len(s.holds))
	for _, h := range s.holds {
		out = append(out, h)
	}
	return out
}

func (s *SeatStore) ReserveAtomic(_ context.Context, userID, eventID string, keys []model.SeatKey, holdUntil time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	m := s.seats[eventID]
	for _, k := range keys {
		seat, ok := m[k]
		if !ok || seat.Status != model.SeatAvailable {
			return false, nil
		}
	}
	for _, k := range keys {
		seat := m[k]
		seat.Status = model.SeatReserved
		m[k] = seat
		if !holdUntil.IsZero() {
			s.holds[seatRef{eventID, k}] = model.SeatHold{
				EventID:    eventID,
				RowLabel:   k.RowLabel,
				SeatNumber: k.SeatNumber,
				UserID:     userID,
				ExpiresAt:  holdUntil,
			}
		}
	}
	return true, nil
}

func (s *SeatStore) Release(_ context.Context, eventID string, keys []model.SeatKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	m := s.seats[eventID]
	for _, k := range keys {
		if seat, ok := m[k]; ok {
			seat.Status = model.SeatAvailable
			m[k] = seat
		}
		delete(s.holds, seatRef{eventID, k})
	}
	return nil
}

// ReleaseOwned frees the keys on which userID holds a hold row.
func (s *SeatStore) ReleaseOwned(_ context.Context, userID, eventID string, keys []model.SeatKey) ([]model.SeatKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	freed := []model.SeatKey{}
	m := s.seats[eventID]
	for _, k := range keys {
		ref := seatRef{eventID, k}
		h, ok := s.holds[ref]
		if !ok || h.UserID != userID {
			continue
		}
		delete(s.holds, ref)
		if seat, ok := m[k]; ok && seat.Status == model.SeatReserved {
			seat.Status = model.SeatAvailable
			m[k] = seat
		}
		freed = append(freed, k)
	}
	return freed, nil
}

func (s *SeatStore) FindByEvent(_ context.Context, eventID string) ([]model.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]model.Seat, 0, len(s.seats[eventID]))
	for _, seat := range s.seats[eventID] {
		out = append(out, seat)
	}
	sort.Slice(out, func(i, j int) bool { return model.LessSeat(out[i].Key(), out[j].Key()) })
	return out, nil
}

func (s *SeatStore) CountAvailable(_ context.Context, eventID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	n := 0
	for _, seat := range s.seats[eventID] {
		if seat.Available() {
			n++
		}
	}
	return n, nil
}

func (s *SeatStore) AvailabilityByEvent(ctx context.Context) ([]model.EventAvailability, error) {
	s.mu.Lock()
	if s.Err != nil {
		s.mu.Unlock()
		return nil, s.Err
	}
	counts := map[string]int{}
	for eventID, m := range s.seats {
		counts[eventID] += 0
		for _, seat := range m {
			if seat.Available() {
				counts[eventID]++
			}
		}
	}
	s.mu.Unlock()

	var out []model.EventAvailability
	if s.Events != nil {
		events, _ := s.Events.List(ctx)
		for _, e := range events {
			out = append(out, model.EventAvailability{EventID: e.ID, Name: e.Name, Date: e.Date, Available: counts[e.ID]})
		}
		return out, nil
	}
	for eventID, n := range counts {
		out = append(out, model.EventAvailability{EventID: eventID, Available: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventID < out[j].EventID })
	return out, nil
}

func (s *SeatStore) HasSeats(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	return len(s.seats[eventID]) > 0, nil
}

func (s *SeatStore) InsertIgnore(_ context.Context, seats []model.Seat) (int64, error) {
	s.InsertCalls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	var n int64
	for _, seat := range seats {
		m, ok := s.seats[seat.EventID]
		if !ok {
			m = map[model.SeatKey]model.Seat{}
			s.seats[seat.EventID] = m
		}
		if _, exists := m[seat.Key()]; exists {
			continue
		}
		m[seat.Key()] = seat
		n++
	}
	return n, nil
}

func (s *SeatStore) SetRowPricing(_ context.Context, eventID string, vipRows []string, vipCents, standardCents int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	vip := map[string]bool{}
	for _, r := range vipRows {
		vip[r] = true
	}
	for k, seat := range s.seats[eventID] {
		if vip[k.RowLabel] {
			seat.Type, seat.PriceCents = model.SeatVIP, vipCents
		} else {
			seat.Type, seat.PriceCents = model.SeatStandard, standardCents
		}
		s.seats[eventID][k] = seat
	}
	return nil
}

func (s *SeatStore) ReleaseExpiredHolds(_ context.Context, now time.Time) ([]model.SeatHold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []model.SeatHold
	for ref, h := range s.holds {
		if h.ExpiresAt.After(now) {
			continue
		}
		out = append(out, h)
		delete(s.holds, ref)
		if seat, ok := s.seats[ref.eventID][ref.key]; ok && seat.Status == model.SeatReserved {
			seat.Status = model.SeatAvailable
			s.seats[ref.eventID][ref.key] = seat
		}
	}
	return out, nil
}

// claimHolds removes userID's unexpired holds on keys and reports how many
// it found.
func (s *SeatStore) claimHolds(userID, eventID string, keys []model.SeatKey, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, k := range keys {
		ref := seatRef{eventID, k}
		h, ok := s.holds[ref]
		if ok && h.UserID == userID && h.ExpiresAt.After(now) {
			delete(s.holds, ref)
			n++
		}
	}
	return n
}

func (s *SeatStore) deleteEvent(eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seats, eventID)
	for ref := range s.holds {
		if ref.eventID == eventID {
			delete(s.holds, ref)
		}
	}
}

// OrderStore keeps orders and items in slices.
type OrderStore struct {
	mu     sync.Mutex
	nextID int64
	orders []model.Order
	items  []model.OrderItem

	// Seats, when set, is where Create claims holds.
	Seats *SeatStore
	// Err fails every call; ItemsErr fails only the item insert of Create.
	Err      error
	ItemsErr error
}

func NewOrderStore() *OrderStore { return &OrderStore{} }

// Orders returns a copy of the stored orders.
func (o *OrderStore) Orders() []model.Order {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]model.Order(nil), o.orders...)
}

func (o *OrderStore) Create(_ context.Context, order *model.Order, items []model.OrderItem, holdsAt time.Time) error {
	if !holdsAt.IsZero() && o.Seats != nil && len(items) > 0 {
		keys := make([]model.SeatKey, 0, len(items))
		for _, it := range items {
			keys = append(keys, it.Key())
		}
		if n := o.Seats.claimHolds(order.UserID, items[0].EventID, keys, holdsAt); n < len(keys) {
			return repository.ErrHoldExpired
		}
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return o.Err
	}
	if o.ItemsErr != nil {
		return o.ItemsErr
	}
	o.nextID++
	order.ID = o.nextID
	o.orders = append(o.orders, *order)
	for i := range items {
		items[i].OrderID = order.ID
		items[i].ID = int64(len(o.items) + 1)
		o.items = append(o.items, items[i])
	}
	return nil
}

func (o *OrderStore) FindByUser(_ context.Context, userID string) ([]model.Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return nil, o.Err
	}
	var out []model.Order
	for i := len(o.orders) - 1; i >= 0; i-- {
		if o.orders[i].UserID == userID {
			out = append(out, o.orders[i])
		}
	}
	return out, nil
}

func (o *OrderStore) GetByIDForUser(_ context.Context, orderID int64, userID string) (model.Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return model.Order{}, o.Err
	}
	for _, ord := range o.orders {
		if ord.ID == orderID && ord.UserID == userID {
			return ord, nil
		}
	}
	return model.Order{}, repository.ErrOrderNotFound
}

func (o *OrderStore) FindItems(_ context.Context, orderID int64) ([]model.OrderItem, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return nil, o.Err
	}
	var out []model.OrderItem
	for _, it := range o.items {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (o *OrderStore) CountItemsForEvent(_ context.Context, eventID string) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return 0, o.Err
	}
	n := 0
	for _, it := range o.items {
		if it.EventID == eventID {
			n++
		}
	}
	return n, nil
}

func (o *OrderStore) DeleteItemsByEvent(_ context.Context, eventID string) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return 0, o.Err
	}
	kept := o.items[:0]
	var n int64
	for _, it := range o.items {
		if it.EventID == eventID {
			n++
			continue
		}
		kept = append(kept, it)
	}
	o.items = kept
	return n, nil
}

// EventStore keeps events in a map.  Delete refuses while Orders still has
// items for the event and removes the event's seats from Seats.
type EventStore struct {
	mu     sync.Mutex
	events map[string]model.Event

	Orders *OrderStore
	Seats  *SeatStore
	Err    error
}

func NewEventStore() *EventStore { return &EventStore{events: map[string]model.Event{}} }

func (e *EventStore) Create(_ context.Context, ev model.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Err != nil {
		return e.Err
	}
	if _, ok := e.events[ev.ID]; ok {
		return repository.ErrDuplicate
	}
	e.events[ev.ID] = ev
	return nil
}

func (e *EventStore) GetByID(_ context.Context, id string) (model.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Err != nil {
		return model.Event{}, e.Err
	}
	ev, ok := e.events[id]
	if !ok {
		return model.Event{}, repository.ErrEventNotFound
	}
	return ev, nil
}

func (e *EventStore) List(_ context.Context) ([]model.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Err != nil {
		return nil, e.Err
	}
	out := make([]model.Event, 0, len(e.events))
	for _, ev := range e.events {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Search filters List in memory and pages the result.
func (e *EventStore) Search(ctx context.Context, q repository.EventSearchQuery) ([]model.Event, int64, error) {
	all, err := e.List(ctx)
	if err != nil {
		return nil, 0, err
	}
	name, venue := strings.ToLower(q.Name), strings.ToLower(q.Venue)
	var hits []model.Event
	for _, ev := range all {
		if !q.From.IsZero() && ev.Date.Before(q.From) {
			continue
		}
		if name != "" && !strings.Contains(strings.ToLower(ev.Name), name) {
			continue
		}
		if venue != "" && !strings.Contains(strings.ToLower(ev.Venue), venue) {
			continue
		}
		hits = append(hits, ev)
	}
	total := int64(len(hits))
	start := (q.Page - 1) * q.PageSize
	if start >= len(hits) {
		return []model.Event{}, total, nil
	}
	end := start + q.PageSize
	if end > len(hits) {
		end = len(hits)
	}
	return hits[start:end], total, nil
}

func (e *EventStore) NextID(_ context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Err != nil {
		return "", e.Err
	}
	ids := make([]string, 0, len(e.events))
	for id := range e.events {
		ids = append(ids, id)
	}
	return model.NextEventID(ids), nil
}

func (e *EventStore) Delete(ctx context.Context, id string) error {
	if e.Orders != nil {
		n, err := e.Orders.CountItemsForEvent(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return repository.ErrReferential
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Err != nil {
		return e.Err
	}
	if _, ok := e.events[id]; !ok {
		return repository.ErrEventNotFound
	}
	delete(e.events, id)
	if e.Seats != nil {
		e.Seats.deleteEvent(id)
	}
	return nil
}

// UserStore records Ensure calls.
type UserStore struct {
	mu    sync.Mutex
	Users map[string]model.User
}

func NewUserStore() *UserStore { return &UserStore{Users: map[string]model.User{}} }

func (u *UserStore) Ensure(_ context.Context, username, password, role string, _ int) (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.Users[username]; ok {
		return false, nil
	}
	u.Users[username] = model.User{Username: username, PasswordHash: password, Role: role}
	return true, nil
}

// Cache records invalidated event ids.
type Cache struct {
	mu          sync.Mutex
	Invalidated []string
}

func (c *Cache) Invalidate(_ context.Context, eventID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Invalidated = append(c.Invalidated, eventID)
}

// Events returns a copy of the invalidated ids.
func (c *Cache) Events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.Invalidated...)
}

// Publisher records published order events.
type Publisher struct {
	mu     sync.Mutex
	events []queue.OrderCommittedEvent
	Err    error
}

func (p *Publisher) PublishOrderCommitted(_ context.Context, ev queue.OrderCommittedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.Err
}

func (p *Publisher) Published() []queue.OrderCommittedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]queue.OrderCommittedEvent(nil), p.events...)
}
