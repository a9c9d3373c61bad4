package handler // handler defines http handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-booking/internal/middleware"
	"github.com/iliyamo/event-seat-booking/internal/repository"
	"github.com/iliyamo/event-seat-booking/internal/service"
)

const defaultTimeout = 5 * time.Second

// getUserID returns the caller identity set by JWTAuth.
func getUserID(c echo.Context) (string, error) {
	if id := middleware.UserID(c); id != "" {
		return id, nil
	}
	return "", errors.New("invalid user_id in context")
}

func requestCtx(c echo.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return context.WithTimeout(c.Request().Context(), timeout)
}

// statusFor maps service and repository errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case service.IsValidation(err),
		errors.Is(err, service.ErrEmptySelection),
		errors.Is(err, service.ErrEmptyCart):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrEventNotFound),
		errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrUnknownSeat):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrReferential),
		errors.Is(err, repository.ErrHoldExpired),
		errors.Is(err, service.ErrSeatUnavailable),
		errors.Is(err, service.ErrSeatInCart),
		errors.Is(err, service.ErrSessionClosed):
		return http.StatusConflict
	case errors.Is(err, service.ErrSessionBusy):
		return http.StatusTooManyRequests
	case repository.IsStorage(err), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error": "..."}.  Storage and unexpected
// failures get a generic retryable message instead of driver text.
func writeError(c echo.Context, err error) error {
	status := statusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusServiceUnavailable:
		msg = "storage unavailable, please retry"
	case http.StatusInternalServerError:
		msg = "internal error"
	}
	if status >= http.StatusInternalServerError {
		c.Logger().Error(err)
	}
	return c.JSON(status, echo.Map{"error": msg})
}
