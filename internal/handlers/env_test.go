package handlers

import (
	"context"
	"io"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/cart"
	sessionmw "github.com/Skotchmaster/storefront/internal/middleware/session"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/testutil"
)

type testEnv struct {
	db      *gorm.DB
	repo    *repo.GormRepo
	store   *session.RedisStore
	events  *testutil.Recorder
	catalog *service.CatalogService
	user    models.User
	a, b    models.Product
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.InitTestDB(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	r := &repo.GormRepo{DB: db}
	cat := testutil.CreateCategory(t, db, "Books", "books")
	return &testEnv{
		db:      db,
		repo:    r,
		store:   session.NewRedisStore(client, time.Hour),
		events:  &testutil.Recorder{},
		catalog: &service.CatalogService{Repo: r},
		user:    testutil.CreateUser(t, db, "ana", "user"),
		a:       testutil.CreateProduct(t, db, cat.ID, "A", "a", "10.50", true),
		b:       testutil.CreateProduct(t, db, cat.ID, "B", "b", "25.00", true),
	}
}

func (e *testEnv) cart(t *testing.T, sid string) *cart.Cart {
	crt, err := cart.Load(context.Background(), e.store, sid, "cart")
	require.NoError(t, err)
	return crt
}

// request builds an echo context with the session cart bound and, when
// userID is non-zero, an authenticated user.
func (e *testEnv) request(method, target string, body io.Reader, crt *cart.Cart, userID uint) (echo.Context, *httptest.ResponseRecorder) {
	ec := echo.New()
	req := httptest.NewRequest(method, target, body)
	rec := httptest.NewRecorder()
	c := ec.NewContext(req, rec)
	if crt != nil {
		sessionmw.Bind(c, crt)
	}
	if userID != 0 {
		c.Set("user_id", strconv.FormatUint(uint64(userID), 10))
		c.Set("role", "user")
	}
	return c, rec
}

func productParam(c echo.Context, id uint) {
	c.SetParamNames("product_id")
	c.SetParamValues(strconv.FormatUint(uint64(id), 10))
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected *echo.HTTPError, got %T", err)
	return he.Code
}
