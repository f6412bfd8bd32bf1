package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/testutil"
)

func (e *testEnv) placeOrder(t *testing.T, userID uint, status models.OrderStatus) *models.Order {
	o := &models.Order{
		UserID:        userID,
		Name:          "Ana",
		Email:         "ana@example.com",
		Address:       "Rua 1",
		PostalCode:    "50000-000",
		City:          "Recife",
		Status:        status,
		PaymentMethod: models.PaymentMethodPix,
		Items: []models.OrderItem{
			{ProductID: e.a.ID, Price: decimal.RequireFromString("10.50"), Quantity: 2},
			{ProductID: e.b.ID, Price: decimal.RequireFromString("25.00"), Quantity: 1},
		},
	}
	require.NoError(t, e.repo.CreateOrder(context.Background(), o))
	return o
}

func idParam(c echo.Context, id uint) {
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatUint(uint64(id), 10))
}

func TestOrders_ListAndGetOwn(t *testing.T) {
	env := newTestEnv(t)
	h := &OrderHTTP{Svc: &service.OrderService{Repo: env.repo, Producer: env.events}}
	other := testutil.CreateUser(t, env.db, "bia", "user")

	mine := env.placeOrder(t, env.user.ID, models.StatusAwaitingPayment)
	theirs := env.placeOrder(t, other.ID, models.StatusPending)

	c, rec := env.request(http.MethodGet, "/api/v1/orders", nil, nil, env.user.ID)
	require.NoError(t, h.List(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var list []orderView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)
	assert.Equal(t, "46.00", list[0].Total)

	c, rec = env.request(http.MethodGet, "/", nil, nil, env.user.ID)
	idParam(c, mine.ID)
	require.NoError(t, h.Get(c))
	require.Equal(t, http.StatusOK, rec.Code)

	c, _ = env.request(http.MethodGet, "/", nil, nil, env.user.ID)
	idParam(c, theirs.ID)
	assert.Equal(t, http.StatusNotFound, statusOf(t, h.Get(c)))
}

func TestOrders_UpdateStatus(t *testing.T) {
	env := newTestEnv(t)
	h := &OrderHTTP{Svc: &service.OrderService{Repo: env.repo, Producer: env.events}}
	o := env.placeOrder(t, env.user.ID, models.StatusAwaitingPayment)

	patch := func(status string) (int, string, error) {
		c, rec := env.request(http.MethodPatch, "/", strings.NewReader(`{"status":"`+status+`"}`), nil, 0)
		c.Request().Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		idParam(c, o.ID)
		err := h.UpdateStatus(c)
		return rec.Code, rec.Body.String(), err
	}

	code, body, err := patch("paid")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"status":"paid"`)
	assert.Contains(t, env.events.Types(), "order_status_changed")

	_, _, err = patch("awaiting_payment")
	assert.Equal(t, http.StatusConflict, statusOf(t, err))

	_, _, err = patch("refunded")
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	c, _ := env.request(http.MethodPatch, "/", strings.NewReader(`{"status":"paid"}`), nil, 0)
	c.Request().Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	idParam(c, 9999)
	assert.Equal(t, http.StatusNotFound, statusOf(t, h.UpdateStatus(c)))
}

func TestPixWebhook(t *testing.T) {
	env := newTestEnv(t)
	for _, m := range []string{http.MethodGet, http.MethodPost} {
		c, rec := env.request(m, "/api/v1/payments/pix/webhook", nil, nil, 0)
		require.NoError(t, PixWebhook(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	}
}
