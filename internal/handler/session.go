package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-booking/internal/service"
)

// SessionStore tracks one booking session per user and event.
type SessionStore interface {
	Open(ctx context.Context, userID, eventID string) (*service.Session, error)
	Get(userID, eventID string) (*service.Session, error)
	Close(ctx context.Context, userID, eventID string) error
}

// SessionHandler drives the seat-map booking flow for authenticated users.
type SessionHandler struct {
	sessions SessionStore
	events   EventReader
	layout   SeatEnsurer
}

func NewSessionHandler(sessions SessionStore, events EventReader, layout SeatEnsurer) *SessionHandler {
	return &SessionHandler{sessions: sessions, events: events, layout: layout}
}

type toggleReq struct {
	SeatID string `json:"seat_id" validate:"required,seatid"`
}

type sessionResp struct {
	Session  service.SessionView `json:"session"`
	Selected *bool               `json:"selected,omitempty"`
	OrderID  int64               `json:"order_id,omitempty"`
	Message  string              `json:"message,omitempty"`
}

func (h *SessionHandler) current(c echo.Context) (*service.Session, error) {
	uid, err := getUserID(c)
	if err != nil {
		return nil, err
	}
	return h.sessions.Get(uid, c.Param("id"))
}

// Open starts (or resumes) the caller's session on the event.
func (h *SessionHandler) Open(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := requestCtx(c, defaultTimeout)
	defer cancel()

	eventID := c.Param("id")
	if _, err := h.events.GetEvent(ctx, eventID); err != nil {
		return writeError(c, err)
	}
	if err := h.layout.EnsureSeatsExist(ctx, eventID); err != nil {
		return writeError(c, err)
	}
	s, err := h.sessions.Open(ctx, uid, eventID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, sessionResp{Session: s.View()})
}

// Get renders the session without touching the ledger.
func (h *SessionHandler) Get(c echo.Context) error {
	s, err := h.current(c)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, sessionResp{Session: s.View()})
}

// Abandon releases the cart and ends the session.
func (h *SessionHandler) Abandon(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := requestCtx(c, defaultTimeout)
	defer cancel()

	if err := h.sessions.Close(ctx, uid, c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Toggle flips one seat in the local selection.
func (h *SessionHandler) Toggle(c echo.Context) error {
	var req toggleReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	s, err := h.current(c)
	if err != nil {
		return writeError(c, err)
	}
	selected, err := s.Toggle(req.SeatID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, sessionResp{Session: s.View(), Selected: &selected})
}

// AddToCart reserves the selection.  Contention is a 409 carrying the
// refreshed seat map.
func (h *SessionHandler) AddToCart(c echo.Context) error {
	s, err := h.current(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := requestCtx(c, defaultTimeout)
	defer cancel()

	ok, err := s.AddSelectionToCart(ctx)
	if ok {
		return c.JSON(http.StatusOK, sessionResp{Session: s.View()})
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusConflict, sessionResp{
		Session: s.View(),
		Message: "some seats are no longer available, refreshing",
	})
}

// ClearCart releases every cart seat.
func (h *SessionHandler) ClearCart(c echo.Context) error {
	s, err := h.current(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := requestCtx(c, defaultTimeout)
	defer cancel()

	if err := s.ClearCart(ctx); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, sessionResp{Session: s.View()})
}

// Checkout commits the cart as an order.
func (h *SessionHandler) Checkout(c echo.Context) error {
	s, err := h.current(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := requestCtx(c, defaultTimeout)
	defer cancel()

	orderID, err := s.Checkout(ctx)
	if err != nil {
		if service.IsHoldExpired(err) {
			return c.JSON(http.StatusConflict, sessionResp{
				Session: s.View(),
				Message: "your seat hold expired, please choose again",
			})
		}
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, sessionResp{Session: s.View(), OrderID: orderID})
}
