package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/middleware/auth"
	sessionmw "github.com/Skotchmaster/storefront/internal/middleware/session"
	"github.com/Skotchmaster/storefront/internal/service"
)

const (
	productsPath = "/api/v1/products"
	cartPath     = "/api/v1/cart"
	ordersPath   = "/api/v1/orders"
)

type CheckoutHTTP struct {
	Svc     *service.CheckoutService
	Auth    *service.AuthService
	Catalog *service.CatalogService
}

// Form returns the pre-filled checkout form together with the cart summary.
func (h *CheckoutHTTP) Form(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.form")

	userID, err := auth.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	crt := sessionmw.Cart(c)
	if crt.Len() <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":    "your cart is empty",
			"redirect": productsPath,
		})
	}

	user, err := h.Auth.User(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}
		l.Error("checkout_form_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	view, err := renderCart(c, crt, h.Catalog)
	if err != nil {
		l.Error("checkout_form_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"form":          h.Svc.Defaults(user),
		"cart":          view,
		"pix_available": h.Svc.PaymentAvailable(),
	})
}

func (h *CheckoutHTTP) Submit(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.submit")

	userID, err := auth.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var form service.CheckoutForm
	if err := c.Bind(&form); err != nil {
		l.Warn("checkout_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Checkout(ctx, userID, sessionmw.Cart(c), form)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.Is(err, service.ErrEmptyCart):
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error":    "your cart is empty",
				"redirect": productsPath,
			})
		case errors.As(err, &verr):
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error":  "please correct the highlighted fields",
				"fields": verr.Fields,
			})
		case errors.Is(err, service.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{
				"error":    "a checkout for this cart is already in progress",
				"redirect": cartPath,
			})
		default:
			l.Error("checkout_error", "status", 500, "error", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"error":    "could not place the order, please try again",
				"redirect": cartPath,
			})
		}
	}

	if res.PaymentErr != nil {
		l.Warn("checkout_payment_unavailable", "order_id", res.Order.ID, "error", res.PaymentErr)
		return c.JSON(http.StatusCreated, echo.Map{
			"order":    newOrderView(res.Order),
			"error":    "order placed, but the Pix code could not be generated; contact support to pay",
			"redirect": ordersPath,
		})
	}

	l.Info("checkout_success", "order_id", res.Order.ID)
	return c.JSON(http.StatusCreated, echo.Map{
		"order":   newOrderView(res.Order),
		"payment": res.Payment,
	})
}
