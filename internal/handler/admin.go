package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/service"
)

// EventManager runs the administrative event flows.
type EventManager interface {
	CreateEvent(ctx context.Context, in service.CreateEventInput) (model.Event, error)
	GetEvent(ctx context.Context, eventID string) (model.Event, error)
	CountBookings(ctx context.Context, eventID string) (int, error)
	DeleteEvent(ctx context.Context, eventID string) (int64, error)
}

// RowPricer seeds and prices an event's seat grid.
type RowPricer interface {
	SeatEnsurer
	SetRowPricing(ctx context.Context, eventID string, vipRows []string, vipPriceCents, standardPriceCents int) error
}

// AdminHandler serves the ADMIN-only routes.  Writes get a longer timeout
// since event creation seeds a few hundred seats.
type AdminHandler struct {
	events EventManager
	layout RowPricer
	seats  SeatReader
}

func NewAdminHandler(events EventManager, layout RowPricer, seats SeatReader) *AdminHandler {
	return &AdminHandler{events: events, layout: layout, seats: seats}
}

const adminWriteTimeout = 15 * time.Second

type createEventReq struct {
	Name               string   `json:"name" validate:"required,max=255"`
	Date               string   `json:"date" validate:"required,datetime=2006-01-02"`
	Venue              string   `json:"venue" validate:"required,max=255"`
	StartTime          string   `json:"start_time" validate:"required,datetime=15:04"`
	EndTime            string   `json:"end_time" validate:"required,datetime=15:04"`
	VIPRows            []string `json:"vip_rows" validate:"omitempty,dive,required,alpha,uppercase,max=4"`
	VIPPriceCents      int      `json:"vip_price_cents" validate:"gt=0"`
	StandardPriceCents int      `json:"standard_price_cents" validate:"gt=0"`
}

type pricingReq struct {
	VIPRows            []string `json:"vip_rows" validate:"dive,required,alpha,uppercase,max=4"`
	VIPPriceCents      int      `json:"vip_price_cents" validate:"gt=0"`
	StandardPriceCents int      `json:"standard_price_cents" validate:"gt=0"`
}

// CreateEvent stores a new event and seeds its priced seat grid.
func (h *AdminHandler) CreateEvent(c echo.Context) error {
	var req createEventReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date: want YYYY-MM-DD"})
	}
	ctx, cancel := requestCtx(c, adminWriteTimeout)
	defer cancel()

	ev, err := h.events.CreateEvent(ctx, service.CreateEventInput{
		Name:               req.Name,
		Date:               date,
		Venue:              req.Venue,
		StartTime:          req.StartTime,
		EndTime:            req.EndTime,
		VIPRows:            req.VIPRows,
		VIPPriceCents:      req.VIPPriceCents,
		StandardPriceCents: req.StandardPriceCents,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, ev)
}

// SetPricing reprices the event's rows.  Existing order items keep the
// price they were sold at.
func (h *AdminHandler) SetPricing(c echo.Context) error {
	var req pricingReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	ctx, cancel := requestCtx(c, adminWriteTimeout)
	defer cancel()

	id := c.Param("id")
	if _, err := h.events.GetEvent(ctx, id); err != nil {
		return writeError(c, err)
	}
	if err := h.layout.SetRowPricing(ctx, id, req.VIPRows, req.VIPPriceCents, req.StandardPriceCents); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// EnsureSeats creates the default grid if the event has none.
func (h *AdminHandler) EnsureSeats(c echo.Context) error {
	ctx, cancel := requestCtx(c, adminWriteTimeout)
	defer cancel()

	id := c.Param("id")
	if _, err := h.events.GetEvent(ctx, id); err != nil {
		return writeError(c, err)
	}
	if err := h.layout.EnsureSeatsExist(ctx, id); err != nil {
		return writeError(c, err)
	}
	n, err := h.seats.CountAvailable(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"event_id": id, "available": n})
}

// Bookings reports how many sold seats deleting the event would remove.
func (h *AdminHandler) Bookings(c echo.Context) error {
	ctx, cancel := requestCtx(c, defaultTimeout)
	defer cancel()

	id := c.Param("id")
	if _, err := h.events.GetEvent(ctx, id); err != nil {
		return writeError(c, err)
	}
	n, err := h.events.CountBookings(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"event_id": id, "bookings": n})
}

// DeleteEvent removes the event.  An event with bookings is only deleted
// with ?confirm=true; otherwise the count is returned with 409.
func (h *AdminHandler) DeleteEvent(c echo.Context) error {
	ctx, cancel := requestCtx(c, adminWriteTimeout)
	defer cancel()

	id := c.Param("id")
	confirm, _ := strconv.ParseBool(c.QueryParam("confirm"))
	if !confirm {
		n, err := h.events.CountBookings(ctx, id)
		if err != nil {
			return writeError(c, err)
		}
		if n > 0 {
			return c.JSON(http.StatusConflict, echo.Map{
				"error":    "event has bookings; repeat with confirm=true to delete them",
				"bookings": n,
			})
		}
	}
	removed, err := h.events.DeleteEvent(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"event_id": id, "bookings_removed": removed})
}

// Dashboard lists every event with its available-seat count.
func (h *AdminHandler) Dashboard(c echo.Context) error {
	ctx, cancel := requestCtx(c, defaultTimeout)
	defer cancel()

	rows, err := h.seats.AvailabilityByEvent(ctx)
	if err != nil {
		return writeError(c, err)
	}
	if rows == nil {
		rows = []model.EventAvailability{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": rows})
}
