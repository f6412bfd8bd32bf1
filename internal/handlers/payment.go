package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
)

// PixWebhook acknowledges provider callbacks. Payment confirmation is not
// processed yet; orders are moved to paid by an administrator.
func PixWebhook(c echo.Context) error {
	logging.FromContext(c.Request().Context()).Info("pix_webhook_received", "method", c.Request().Method)
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
