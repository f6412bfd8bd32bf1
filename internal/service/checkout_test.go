package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/testutil"
)

type fakeNotifier struct {
	mu       sync.Mutex
	orders   []uint
	payloads []string
}

func (n *fakeNotifier) NotifyOrderConfirmed(_ context.Context, o *models.Order, payload string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, o.ID)
	n.payloads = append(n.payloads, payload)
}

type failingPayments struct{}

func (failingPayments) Generate(uint, decimal.Decimal) (*payment.Code, error) {
	return nil, errors.New("qr encoder exploded")
}

type checkoutEnv struct {
	db       *gorm.DB
	store    *session.RedisStore
	user     models.User
	a, b     models.Product
	notifier *fakeNotifier
	events   *testutil.Recorder
}

func newCheckoutEnv(t *testing.T) *checkoutEnv {
	db := testutil.InitTestDB(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cat := testutil.CreateCategory(t, db, "Books", "books")
	return &checkoutEnv{
		db:       db,
		store:    session.NewRedisStore(client, time.Hour),
		user:     testutil.CreateUser(t, db, "ana", "user"),
		a:        testutil.CreateProduct(t, db, cat.ID, "A", "a", "10.50", true),
		b:        testutil.CreateProduct(t, db, cat.ID, "B", "b", "25.00", true),
		notifier: &fakeNotifier{},
		events:   &testutil.Recorder{},
	}
}

func (e *checkoutEnv) service(t *testing.T, payments PaymentGenerator) *CheckoutService {
	r := &repo.GormRepo{DB: e.db}
	return NewCheckoutService(r, r, e.store, payments, e.notifier, e.events)
}

func (e *checkoutEnv) filledCart(t *testing.T) *cart.Cart {
	crt := cart.New(e.store, "sid-1", "cart")
	crt.Add(e.a, 2, false)
	crt.Add(e.b, 1, false)
	require.NoError(t, crt.Save(context.Background()))
	return crt
}

func validForm() CheckoutForm {
	return CheckoutForm{Name: "Ana", Email: "ana@example.com", Address: "Rua 1", PostalCode: "50000-000", City: "Recife"}
}

func generator(t *testing.T) *payment.Generator {
	g, err := payment.NewGenerator(payment.Merchant{Key: "chave@example.com", Name: "Loja", City: "Recife"})
	require.NoError(t, err)
	return g
}

func countOrders(t *testing.T, db *gorm.DB) int64 {
	var n int64
	require.NoError(t, db.Model(&models.Order{}).Count(&n).Error)
	return n
}

func TestCheckout_Success(t *testing.T) {
	env := newCheckoutEnv(t)
	svc := env.service(t, generator(t))
	crt := env.filledCart(t)

	res, err := svc.Checkout(context.Background(), env.user.ID, crt, validForm())
	require.NoError(t, err)
	require.NoError(t, res.PaymentErr)
	require.NotNil(t, res.Payment)

	assert.Equal(t, models.StatusAwaitingPayment, res.Order.Status)
	assert.Equal(t, "pix", res.Order.PaymentMethod)
	assert.Equal(t, "R$ 46.00", res.Payment.Amount)
	assert.Contains(t, res.Payment.Payload, "540546.00")
	assert.NotEmpty(t, res.Payment.QRCodeBase64)

	assert.EqualValues(t, 1, countOrders(t, env.db))
	stored, err := (&repo.GormRepo{DB: env.db}).OrderForUser(context.Background(), res.Order.ID, env.user.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	assert.Equal(t, "46.00", stored.Total().StringFixed(2))

	assert.True(t, crt.Empty())
	require.NoError(t, crt.Save(context.Background()))
	_, err = env.store.Get(context.Background(), "sid-1", "cart")
	assert.ErrorIs(t, err, session.ErrNoSlot)

	assert.Equal(t, []uint{res.Order.ID}, env.notifier.orders)
	assert.Equal(t, []string{"order_created"}, env.events.Types())
}

func TestCheckout_InvalidFormPersistsNothing(t *testing.T) {
	env := newCheckoutEnv(t)
	svc := env.service(t, generator(t))
	crt := env.filledCart(t)

	form := validForm()
	form.Email = "not-an-email"
	form.City = "   "

	_, err := svc.Checkout(context.Background(), env.user.ID, crt, form)
	require.ErrorIs(t, err, ErrValidation)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "city")

	assert.Zero(t, countOrders(t, env.db))
	assert.Equal(t, 3, crt.Len())
	assert.Empty(t, env.notifier.orders)
}

func TestCheckout_EmptyCart(t *testing.T) {
	env := newCheckoutEnv(t)
	svc := env.service(t, generator(t))

	_, err := svc.Checkout(context.Background(), env.user.ID, cart.New(env.store, "sid-2", "cart"), validForm())
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Zero(t, countOrders(t, env.db))
}

func TestCheckout_PaymentUnavailableKeepsOrder(t *testing.T) {
	env := newCheckoutEnv(t)
	svc := env.service(t, nil)
	assert.False(t, svc.PaymentAvailable())
	crt := env.filledCart(t)

	res, err := svc.Checkout(context.Background(), env.user.ID, crt, validForm())
	require.NoError(t, err)
	assert.ErrorIs(t, res.PaymentErr, ErrPaymentUnavailable)
	assert.Nil(t, res.Payment)
	assert.EqualValues(t, 1, countOrders(t, env.db))
	assert.True(t, crt.Empty())
	assert.Empty(t, env.notifier.orders)
}

func TestCheckout_PaymentFailureKeepsOrder(t *testing.T) {
	env := newCheckoutEnv(t)
	svc := env.service(t, failingPayments{})
	crt := env.filledCart(t)

	res, err := svc.Checkout(context.Background(), env.user.ID, crt, validForm())
	require.NoError(t, err)
	assert.ErrorIs(t, res.PaymentErr, ErrPaymentUnavailable)
	assert.Equal(t, models.StatusAwaitingPayment, res.Order.Status)
	assert.EqualValues(t, 1, countOrders(t, env.db))
	assert.Empty(t, env.notifier.orders)
}

func TestCheckout_PersistenceFailureKeepsCart(t *testing.T) {
	env := newCheckoutEnv(t)
	svc := env.service(t, generator(t))
	crt := env.filledCart(t)
	require.NoError(t, env.db.Migrator().DropTable(&models.OrderItem{}))

	_, err := svc.Checkout(context.Background(), env.user.ID, crt, validForm())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrValidation)

	assert.Zero(t, countOrders(t, env.db))
	assert.Equal(t, 3, crt.Len())
}

func TestCheckout_SkipsVanishedProducts(t *testing.T) {
	env := newCheckoutEnv(t)
	svc := env.service(t, generator(t))
	crt := env.filledCart(t)
	require.NoError(t, env.db.Delete(&models.Product{}, env.b.ID).Error)

	res, err := svc.Checkout(context.Background(), env.user.ID, crt, validForm())
	require.NoError(t, err)
	require.Len(t, res.Order.Items, 1)
	assert.Equal(t, "21.00", res.Order.Total().StringFixed(2))
}

func TestCheckout_Defaults(t *testing.T) {
	svc := NewCheckoutService(nil, nil, nil, nil, nil, nil)

	f := svc.Defaults(&models.User{Username: "ana", Email: "ana@example.com"})
	assert.Equal(t, "ana", f.Name)
	assert.Equal(t, "ana@example.com", f.Email)

	f = svc.Defaults(&models.User{Username: "ana", FullName: "Ana Souza"})
	assert.Equal(t, "Ana Souza", f.Name)
}

func TestCheckout_RepeatedSubmissionPlacesOneOrder(t *testing.T) {
	env := newCheckoutEnv(t)
	svc := env.service(t, generator(t))
	env.filledCart(t)
	ctx := context.Background()

	// two requests of the same session, both loaded before either finished
	first, err := cart.Load(ctx, env.store, "sid-1", "cart")
	require.NoError(t, err)
	second, err := cart.Load(ctx, env.store, "sid-1", "cart")
	require.NoError(t, err)

	res, err := svc.Checkout(ctx, env.user.ID, first, validForm())
	require.NoError(t, err)
	require.NotNil(t, res.Order)

	_, err = svc.Checkout(ctx, env.user.ID, second, validForm())
	assert.ErrorIs(t, err, ErrEmptyCart)

	assert.EqualValues(t, 1, countOrders(t, env.db))
	_, err = env.store.Get(ctx, "sid-1", "cart")
	assert.ErrorIs(t, err, session.ErrNoSlot)
}

func TestCheckout_ConcurrentSubmissionsPlaceOneOrder(t *testing.T) {
	env := newCheckoutEnv(t)
	svc := env.service(t, generator(t))
	env.filledCart(t)
	ctx := context.Background()

	const n = 5
	carts := make([]*cart.Cart, n)
	for i := range carts {
		crt, err := cart.Load(ctx, env.store, "sid-1", "cart")
		require.NoError(t, err)
		carts[i] = crt
	}

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range carts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Checkout(ctx, env.user.ID, carts[i], validForm())
		}(i)
	}
	wg.Wait()

	placed := 0
	for _, err := range errs {
		if err == nil {
			placed++
			continue
		}
		assert.ErrorIs(t, err, ErrEmptyCart)
	}
	assert.Equal(t, 1, placed)
	assert.EqualValues(t, 1, countOrders(t, env.db))
	assert.Len(t, env.notifier.orders, 1)
}

func TestCheckout_BusySessionIsConflict(t *testing.T) {
	env := newCheckoutEnv(t)
	svc := env.service(t, generator(t))
	crt := env.filledCart(t)

	unlock, err := env.store.Lock(context.Background(), "sid-1", "checkout")
	require.NoError(t, err)
	defer unlock(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err = svc.Checkout(ctx, env.user.ID, crt, validForm())
	assert.ErrorIs(t, err, ErrConflict)

	assert.Zero(t, countOrders(t, env.db))
	assert.Equal(t, 3, crt.Len())
}

func TestCheckout_NoResolvableItemsPersistsNothing(t *testing.T) {
	env := newCheckoutEnv(t)
	svc := env.service(t, generator(t))
	crt := env.filledCart(t)
	require.NoError(t, env.db.Where("1 = 1").Delete(&models.Product{}).Error)

	_, err := svc.Checkout(context.Background(), env.user.ID, crt, validForm())
	assert.ErrorIs(t, err, ErrEmptyCart)

	assert.Zero(t, countOrders(t, env.db))
	assert.Equal(t, 3, crt.Len())
	stored, err := crt.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Len())
	assert.Empty(t, env.notifier.orders)
}
