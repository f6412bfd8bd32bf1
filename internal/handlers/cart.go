package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/logging"
	sessionmw "github.com/Skotchmaster/storefront/internal/middleware/session"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/service"
)

const (
	minQuantity = 1
	maxQuantity = 20
)

type CartHTTP struct {
	Catalog  *service.CatalogService
	Producer mykafka.Publisher
}

type updateForm struct {
	Quantity int  `json:"quantity"`
	Override bool `json:"override"`
}

type cartLineView struct {
	Product    models.Product `json:"product"`
	Quantity   int            `json:"quantity"`
	Price      string         `json:"price"`
	TotalPrice string         `json:"total_price"`
	UpdateForm updateForm     `json:"update_form"`
}

type cartView struct {
	Items      []cartLineView `json:"items"`
	TotalItems int            `json:"total_items"`
	TotalPrice string         `json:"total_price"`
}

func renderCart(c echo.Context, crt *cart.Cart, catalog cart.Catalog) (*cartView, error) {
	items, err := crt.Items(c.Request().Context(), catalog)
	if err != nil {
		return nil, err
	}

	view := &cartView{
		Items:      make([]cartLineView, 0, len(items)),
		TotalItems: crt.Len(),
		TotalPrice: crt.TotalPrice().StringFixed(2),
	}
	for _, it := range items {
		view.Items = append(view.Items, cartLineView{
			Product:    it.Product,
			Quantity:   it.Quantity,
			Price:      it.Price.StringFixed(2),
			TotalPrice: it.Total.StringFixed(2),
			UpdateForm: updateForm{Quantity: it.Quantity, Override: true},
		})
	}
	return view, nil
}

func (h *CartHTTP) Get(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "cart.get")

	view, err := renderCart(c, sessionmw.Cart(c), h.Catalog)
	if err != nil {
		l.Error("cart_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, view)
}

// Add puts a product in the cart. A quantity outside 1..20 or an unreadable
// body falls back to adding one unit.
func (h *CartHTTP) Add(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")

	p, err := h.product(c)
	if err != nil {
		return err
	}

	var req struct {
		Quantity int  `json:"quantity" form:"quantity"`
		Override bool `json:"override" form:"override"`
	}
	quantity, override := 1, false
	if err := c.Bind(&req); err == nil && req.Quantity >= minQuantity && req.Quantity <= maxQuantity {
		quantity, override = req.Quantity, req.Override
	}

	crt := sessionmw.Cart(c)
	crt.Add(*p, quantity, override)
	h.publishCart(c, crt, "cart_add", p.ID, quantity)
	l.Info("cart_add_success", "product_id", p.ID, "quantity", quantity, "override", override)

	view, err := renderCart(c, crt, h.Catalog)
	if err != nil {
		l.Error("cart_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, view)
}

// AddAJAX is the strict variant: the quantity must be within 1..20.
func (h *CartHTTP) AddAJAX(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add_ajax")

	p, err := h.product(c)
	if err != nil {
		return err
	}

	quantity := 1
	if raw := c.FormValue("quantity"); raw != "" {
		quantity, err = strconv.Atoi(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "quantity must be a number"})
		}
	}
	override := strings.EqualFold(c.FormValue("override"), "true")

	if quantity < minQuantity || quantity > maxQuantity {
		l.Warn("cart_add_error", "status", 400, "quantity", quantity)
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "quantity must be between 1 and 20"})
	}

	crt := sessionmw.Cart(c)
	crt.Add(*p, quantity, override)
	h.publishCart(c, crt, "cart_add", p.ID, quantity)

	return c.JSON(http.StatusOK, echo.Map{
		"success":     true,
		"total_items": crt.Len(),
		"total_price": crt.TotalPrice().StringFixed(2),
		"message":     p.Name + " added to cart",
	})
}

func (h *CartHTTP) Remove(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "cart.remove")

	p, err := h.product(c)
	if err != nil {
		return err
	}

	crt := sessionmw.Cart(c)
	crt.Remove(p.ID)
	h.publishCart(c, crt, "cart_remove", p.ID, 0)

	view, err := renderCart(c, crt, h.Catalog)
	if err != nil {
		l.Error("cart_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) Clear(c echo.Context) error {
	crt := sessionmw.Cart(c)
	crt.Clear()
	h.publishCart(c, crt, "cart_clear", 0, 0)
	return c.JSON(http.StatusOK, cartView{Items: []cartLineView{}, TotalItems: 0, TotalPrice: "0.00"})
}

func (h *CartHTTP) product(c echo.Context) (*models.Product, error) {
	ctx := c.Request().Context()

	id, err := uintParam(c, "product_id")
	if err != nil {
		return nil, err
	}
	p, err := h.Catalog.ProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		logging.FromContext(ctx).Error("cart_error", "status", 500, "error", err)
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return p, nil
}

func (h *CartHTTP) publishCart(c echo.Context, crt *cart.Cart, typ string, productID uint, quantity int) {
	publish(c, h.Producer, mykafka.TopicCartEvents, crt.SessionID(), map[string]any{
		"type":      typ,
		"session":   crt.SessionID(),
		"productID": productID,
		"quantity":  quantity,
	})
}
