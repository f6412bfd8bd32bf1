package sessionmw

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/session"
)

const cartKey = "cart"

type Config struct {
	Store      session.Store
	CookieName string
	CartSlot   string
	TTL        time.Duration
	Secure     bool
}

// Middleware binds a session id to the request, loads its cart before the
// handler runs and saves it afterwards.
func Middleware(cfg Config) echo.MiddlewareFunc {
	if cfg.CookieName == "" {
		cfg.CookieName = "sessionid"
	}
	if cfg.CartSlot == "" {
		cfg.CartSlot = "cart"
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			l := logging.FromContext(ctx).With("middleware", "session")

			sid := ""
			if ck, err := c.Cookie(cfg.CookieName); err == nil {
				if _, perr := uuid.Parse(ck.Value); perr == nil {
					sid = ck.Value
				}
			}
			if sid == "" {
				sid = uuid.NewString()
			}
			c.SetCookie(&http.Cookie{
				Name:     cfg.CookieName,
				Value:    sid,
				Path:     "/",
				MaxAge:   int(cfg.TTL.Seconds()),
				HttpOnly: true,
				Secure:   cfg.Secure,
				SameSite: http.SameSiteLaxMode,
			})

			crt, err := cart.Load(ctx, cfg.Store, sid, cfg.CartSlot)
			if err != nil {
				l.Error("session_load_error", "status", 500, "error", err)
				return echo.NewHTTPError(http.StatusInternalServerError, "session unavailable")
			}
			c.Set(cartKey, crt)

			herr := next(c)

			if err := crt.Save(ctx); err != nil {
				l.Error("session_save_error", "error", err)
			}
			return herr
		}
	}
}

// Cart returns the cart loaded for this request.
func Cart(c echo.Context) *cart.Cart {
	crt, _ := c.Get(cartKey).(*cart.Cart)
	return crt
}

// Bind attaches a cart to the context directly. Used by handler tests.
func Bind(c echo.Context, crt *cart.Cart) {
	c.Set(cartKey, crt)
}
