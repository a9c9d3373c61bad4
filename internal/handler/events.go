package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/repository"
)

// EventReader serves event metadata.
type EventReader interface {
	GetEvent(ctx context.Context, eventID string) (model.Event, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
	SearchEvents(ctx context.Context, q repository.EventSearchQuery) ([]model.Event, int64, repository.EventSearchQuery, error)
}

// SeatReader serves ledger reads.
type SeatReader interface {
	FindByEvent(ctx context.Context, eventID string) ([]model.Seat, error)
	CountAvailable(ctx context.Context, eventID string) (int, error)
	AvailabilityByEvent(ctx context.Context) ([]model.EventAvailability, error)
}

// SeatEnsurer lazily creates an event's seat grid.
type SeatEnsurer interface {
	EnsureSeatsExist(ctx context.Context, eventID string) error
}

// EventHandler serves the public, unauthenticated browse endpoints.
type EventHandler struct {
	events EventReader
	seats  SeatReader
	layout SeatEnsurer
}

func NewEventHandler(events EventReader, seats SeatReader, layout SeatEnsurer) *EventHandler {
	return &EventHandler{events: events, seats: seats, layout: layout}
}

// PublicEvent is an event as listed to browsers, with the live
// available-seat count.
type PublicEvent struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Date      string `json:"date"`
	Venue     string `json:"venue,omitempty"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
	Available int    `json:"available"`
}

func toPublicEvent(e model.Event, available int) PublicEvent {
	return PublicEvent{
		ID:        e.ID,
		Name:      e.Name,
		Date:      e.Date.Format("2006-01-02"),
		Venue:     e.Venue,
		StartTime: e.StartTime,
		EndTime:   e.EndTime,
		Available: available,
	}
}

// ListEvents returns every event with its available-seat count.
func (h *EventHandler) ListEvents(c echo.Context) error {
	ctx, cancel := requestCtx(c, defaultTimeout)
	defer cancel()

	events, err := h.events.ListEvents(ctx)
	if err != nil {
		return writeError(c, err)
	}
	counts, err := h.seats.AvailabilityByEvent(ctx)
	if err != nil {
		return writeError(c, err)
	}
	avail := make(map[string]int, len(counts))
	for _, a := range counts {
		avail[a.EventID] = a.Available
	}
	out := make([]PublicEvent, 0, len(events))
	for _, e := range events {
		out = append(out, toPublicEvent(e, avail[e.ID]))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// SearchEvents filters events by name and venue.  time is "upcoming"
// (default, from today on) or "any".
func (h *EventHandler) SearchEvents(c echo.Context) error {
	q := repository.EventSearchQuery{
		Name:  c.QueryParam("name"),
		Venue: c.QueryParam("venue"),
	}
	switch strings.ToLower(strings.TrimSpace(c.QueryParam("time"))) {
	case "", "upcoming":
		now := time.Now().UTC()
		q.From = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	case "any":
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "time: want upcoming or any"})
	}
	q.Page, _ = strconv.Atoi(c.QueryParam("page"))
	q.PageSize, _ = strconv.Atoi(c.QueryParam("page_size"))

	ctx, cancel := requestCtx(c, defaultTimeout)
	defer cancel()

	events, total, q, err := h.events.SearchEvents(ctx, q)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]PublicEvent, 0, len(events))
	for _, e := range events {
		n, err := h.seats.CountAvailable(ctx, e.ID)
		if err != nil {
			return writeError(c, err)
		}
		out = append(out, toPublicEvent(e, n))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":     out,
		"total":     total,
		"page":      q.Page,
		"page_size": q.PageSize,
	})
}

// GetEvent returns a single event.
func (h *EventHandler) GetEvent(c echo.Context) error {
	ctx, cancel := requestCtx(c, defaultTimeout)
	defer cancel()

	id := c.Param("id")
	e, err := h.events.GetEvent(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	n, err := h.seats.CountAvailable(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toPublicEvent(e, n))
}

// ListSeats returns the event's seat map, generating the default grid on
// first access.
func (h *EventHandler) ListSeats(c echo.Context) error {
	ctx, cancel := requestCtx(c, defaultTimeout)
	defer cancel()

	id := c.Param("id")
	if _, err := h.events.GetEvent(ctx, id); err != nil {
		return writeError(c, err)
	}
	if err := h.layout.EnsureSeatsExist(ctx, id); err != nil {
		return writeError(c, err)
	}
	seats, err := h.seats.FindByEvent(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"event_id": id, "items": seatViews(seats)})
}

// Availability returns just the available-seat count.
func (h *EventHandler) Availability(c echo.Context) error {
	ctx, cancel := requestCtx(c, defaultTimeout)
	defer cancel()

	id := c.Param("id")
	if _, err := h.events.GetEvent(ctx, id); err != nil {
		return writeError(c, err)
	}
	n, err := h.seats.CountAvailable(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"event_id": id, "available": n})
}

// SeatView is a seat with its display id.
type SeatView struct {
	ID         string           `json:"id"`
	Row        string           `json:"row"`
	Number     int              `json:"number"`
	Type       model.SeatType   `json:"type"`
	Status     model.SeatStatus `json:"status"`
	PriceCents int              `json:"price_cents"`
}

func seatViews(seats []model.Seat) []SeatView {
	out := make([]SeatView, 0, len(seats))
	for _, s := range seats {
		out = append(out, SeatView{
			ID:         s.DisplayID(),
			Row:        s.RowLabel,
			Number:     s.SeatNumber,
			Type:       s.Type,
			Status:     s.Status,
			PriceCents: s.PriceCents,
		})
	}
	return out
}
