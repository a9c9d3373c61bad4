package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/event-seat-booking/internal/repository"
	"github.com/iliyamo/event-seat-booking/internal/service"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrEmptyCart, http.StatusBadRequest},
		{service.ErrEmptySelection, http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", repository.ErrEventNotFound), http.StatusNotFound},
		{service.ErrUnknownSeat, http.StatusNotFound},
		{repository.ErrHoldExpired, http.StatusConflict},
		{service.ErrSeatUnavailable, http.StatusConflict},
		{service.ErrSessionBusy, http.StatusTooManyRequests},
		{context.DeadlineExceeded, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestWriteError_HidesInternalText(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	_ = writeError(c, errors.New("dial tcp 10.0.0.5:3306: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}

func TestSeatIDValidation(t *testing.T) {
	v := NewRequestValidator()
	assert.NoError(t, v.Validate(&toggleReq{SeatID: "H-12"}))
	assert.Error(t, v.Validate(&toggleReq{SeatID: "H12"}))
	assert.Error(t, v.Validate(&toggleReq{SeatID: "-12"}))
	assert.Error(t, v.Validate(&toggleReq{SeatID: ""}))
}
