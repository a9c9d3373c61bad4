package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/service"
)

// OrderReader serves a user's order history.
type OrderReader interface {
	FindOrdersByUser(ctx context.Context, userID string) ([]model.Order, error)
	OrderSummary(ctx context.Context, userID string, orderID int64) (service.OrderSummary, error)
}

type OrderHandler struct {
	orders OrderReader
}

func NewOrderHandler(orders OrderReader) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// ListOrders returns the caller's orders, newest first.
func (h *OrderHandler) ListOrders(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := requestCtx(c, defaultTimeout)
	defer cancel()

	orders, err := h.orders.FindOrdersByUser(ctx, uid)
	if err != nil {
		return writeError(c, err)
	}
	if orders == nil {
		orders = []model.Order{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": orders})
}

// GetOrder returns one of the caller's orders with its items.
func (h *OrderHandler) GetOrder(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	ctx, cancel := requestCtx(c, defaultTimeout)
	defer cancel()

	sum, err := h.orders.OrderSummary(ctx, uid, id)
	if err != nil {
		return writeError(c, err)
	}
	if sum.Items == nil {
		sum.Items = []model.OrderItem{}
	}
	return c.JSON(http.StatusOK, sum)
}
