package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
)

type OrderHTTP struct {
	Svc *service.OrderService
}

type orderView struct {
	ID            uint               `json:"id"`
	Name          string             `json:"name"`
	Email         string             `json:"email"`
	Address       string             `json:"address"`
	PostalCode    string             `json:"postal_code"`
	City          string             `json:"city"`
	Status        models.OrderStatus `json:"status"`
	PaymentMethod string             `json:"payment_method"`
	Items         []models.OrderItem `json:"items"`
	Total         string             `json:"total"`
	CreatedAt     time.Time          `json:"created_at"`
}

func newOrderView(o *models.Order) orderView {
	items := o.Items
	if items == nil {
		items = []models.OrderItem{}
	}
	return orderView{
		ID:            o.ID,
		Name:          o.Name,
		Email:         o.Email,
		Address:       o.Address,
		PostalCode:    o.PostalCode,
		City:          o.City,
		Status:        o.Status,
		PaymentMethod: o.PaymentMethod,
		Items:         items,
		Total:         o.Total().StringFixed(2),
		CreatedAt:     o.CreatedAt,
	}
}

func (h *OrderHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := auth.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	orders, err := h.Svc.List(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).Error("orders_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	out := make([]orderView, 0, len(orders))
	for i := range orders {
		out = append(out, newOrderView(&orders[i]))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := auth.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}

	o, err := h.Svc.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		logging.FromContext(ctx).Error("order_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, newOrderView(o))
}

// UpdateStatus is the admin-only status change.
func (h *OrderHTTP) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.update_status")

	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}

	var req struct {
		Status models.OrderStatus `json:"status" form:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	o, err := h.Svc.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		case errors.Is(err, models.ErrInvalidStatusTransition), errors.Is(err, service.ErrConflict):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			l.Error("update_status_error", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	}
	return c.JSON(http.StatusOK, newOrderView(o))
}
