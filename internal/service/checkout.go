package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/session"
)

const checkoutLock = "checkout"

type PaymentGenerator interface {
	Generate(orderID uint, amount decimal.Decimal) (*payment.Code, error)
}

type Notifier interface {
	NotifyOrderConfirmed(ctx context.Context, order *models.Order, payload string)
}

type CheckoutForm struct {
	Name       string `json:"name" form:"name" validate:"required,max=100"`
	Email      string `json:"email" form:"email" validate:"required,email,max=254"`
	Address    string `json:"address" form:"address" validate:"required,max=250"`
	PostalCode string `json:"postal_code" form:"postal_code" validate:"required,max=20"`
	City       string `json:"city" form:"city" validate:"required,max=100"`
}

func (f CheckoutForm) trimmed() CheckoutForm {
	return CheckoutForm{
		Name:       strings.TrimSpace(f.Name),
		Email:      strings.TrimSpace(f.Email),
		Address:    strings.TrimSpace(f.Address),
		PostalCode: strings.TrimSpace(f.PostalCode),
		City:       strings.TrimSpace(f.City),
	}
}

type CheckoutResult struct {
	Order   *models.Order
	Payment *payment.Code
	// PaymentErr is set when the order was stored but no payment code was produced.
	PaymentErr error
}

type CheckoutService struct {
	Repo     *repo.GormRepo
	Catalog  cart.Catalog
	Payments PaymentGenerator
	Notifier Notifier
	Producer mykafka.Publisher
	Locks    session.Locker

	validate *validator.Validate
}

// NewCheckoutService wires the checkout. A nil payments generator means Pix
// is unavailable; a nil notifier disables confirmation emails. Without locks
// checkouts are serialized within this process only.
func NewCheckoutService(r *repo.GormRepo, catalog cart.Catalog, locks session.Locker, payments PaymentGenerator, notifier Notifier, producer mykafka.Publisher) *CheckoutService {
	if producer == nil {
		producer = mykafka.Noop{}
	}
	if locks == nil {
		locks = session.NewLocalLocker()
	}
	return &CheckoutService{
		Repo:     r,
		Catalog:  catalog,
		Locks:    locks,
		Payments: payments,
		Notifier: notifier,
		Producer: producer,
		validate: validator.New(),
	}
}

func (s *CheckoutService) PaymentAvailable() bool {
	return s.Payments != nil
}

// Defaults pre-fills the form from the customer's profile.
func (s *CheckoutService) Defaults(user *models.User) CheckoutForm {
	name := user.FullName
	if name == "" {
		name = user.Username
	}
	return CheckoutForm{Name: name, Email: user.Email}
}

// Checkout turns the session cart into a stored order. Checkouts of one
// session run one at a time against the stored cart, which is cleared
// before the lock is released; crt is cleared too on success.
func (s *CheckoutService) Checkout(ctx context.Context, userID uint, crt *cart.Cart, form CheckoutForm) (*CheckoutResult, error) {
	l := logging.FromContext(ctx).With("svc", "checkout", "user_id", userID)

	if crt.Len() <= 0 {
		return nil, ErrEmptyCart
	}

	form = form.trimmed()
	if err := s.validateForm(form); err != nil {
		l.Warn("checkout_invalid_form", "status", 400, "error", err)
		return nil, err
	}

	unlock, err := s.Locks.Lock(ctx, crt.SessionID(), checkoutLock)
	if err != nil {
		if errors.Is(err, session.ErrLocked) {
			l.Warn("checkout_busy", "status", 409, "error", err)
			return nil, fmt.Errorf("%w: checkout already in progress", ErrConflict)
		}
		l.Error("checkout_error", "status", 500, "reason", "cannot lock session", "error", err)
		return nil, fmt.Errorf("lock session: %w", err)
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			l.Warn("checkout_unlock_failed", "error", err)
		}
	}()

	stored, err := crt.Reload(ctx)
	if err != nil {
		l.Error("checkout_error", "status", 500, "reason", "cannot reload cart", "error", err)
		return nil, fmt.Errorf("reload cart: %w", err)
	}
	if stored.Len() <= 0 {
		// an earlier checkout of this session already placed the order
		l.Info("checkout_cart_already_empty", "session", crt.SessionID())
		return nil, ErrEmptyCart
	}

	res, err := s.place(ctx, userID, stored, form)
	if err != nil {
		return nil, err
	}
	crt.Clear()
	return res, nil
}

func (s *CheckoutService) place(ctx context.Context, userID uint, crt *cart.Cart, form CheckoutForm) (*CheckoutResult, error) {
	l := logging.FromContext(ctx).With("svc", "checkout", "user_id", userID)

	items, err := crt.Items(ctx, s.Catalog)
	if err != nil {
		l.Error("checkout_error", "status", 500, "reason", "cannot resolve cart", "error", err)
		return nil, err
	}

	order := &models.Order{
		UserID:        userID,
		Name:          form.Name,
		Email:         form.Email,
		Address:       form.Address,
		PostalCode:    form.PostalCode,
		City:          form.City,
		Status:        models.StatusAwaitingPayment,
		PaymentMethod: models.PaymentMethodPix,
	}
	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		p := it.Product
		order.Items = append(order.Items, models.OrderItem{
			ProductID: p.ID,
			Product:   &p,
			Price:     it.Price,
			Quantity:  uint(it.Quantity),
		})
	}

	if len(order.Items) == 0 {
		l.Warn("checkout_no_items", "status", 400, "reason", "no cart line resolves to a product")
		return nil, ErrEmptyCart
	}

	if err := s.Repo.CreateOrder(ctx, order); err != nil {
		l.Error("checkout_error", "status", 500, "reason", "cannot store order", "error", err)
		return nil, fmt.Errorf("store order: %w", err)
	}
	l = l.With("order_id", order.ID)

	crt.Clear()
	if err := crt.Save(ctx); err != nil {
		l.Error("cart_clear_failed", "error", err)
	}
	l.Info("order_created", "items", len(order.Items), "total", order.Total().StringFixed(2))

	if err := s.Producer.PublishEvent(ctx, mykafka.TopicOrderEvents, fmt.Sprint(order.ID), map[string]any{
		"type":    "order_created",
		"orderID": order.ID,
		"userID":  userID,
		"total":   order.Total().StringFixed(2),
	}); err != nil {
		l.Warn("kafka_publish_failed", "error", err)
	}

	res := &CheckoutResult{Order: order}
	if s.Payments == nil {
		l.Warn("payment_unavailable")
		res.PaymentErr = ErrPaymentUnavailable
		return res, nil
	}

	code, err := s.Payments.Generate(order.ID, order.Total())
	if err != nil {
		l.Error("payment_code_failed", "error", err)
		res.PaymentErr = fmt.Errorf("%w: %v", ErrPaymentUnavailable, err)
		return res, nil
	}
	res.Payment = code

	if s.Notifier != nil {
		s.Notifier.NotifyOrderConfirmed(ctx, order, code.Payload)
	}
	return res, nil
}

func (s *CheckoutService) validateForm(form CheckoutForm) error {
	err := s.validate.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[formFieldName(fe.Field())] = describe(fe)
	}
	return &ValidationError{Fields: fields}
}

func formFieldName(structField string) string {
	switch structField {
	case "PostalCode":
		return "postal_code"
	default:
		return strings.ToLower(structField)
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "enter a valid email address"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "invalid value"
	}
}
