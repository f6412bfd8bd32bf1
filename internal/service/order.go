package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/repo"
)

type OrderService struct {
	Repo     *repo.GormRepo
	Producer mykafka.Publisher
}

func (s *OrderService) List(ctx context.Context, userID uint) ([]models.Order, error) {
	return s.Repo.ListOrders(ctx, userID)
}

// Get returns the order only when it belongs to userID.
func (s *OrderService) Get(ctx context.Context, userID, orderID uint) (*models.Order, error) {
	o, err := s.Repo.OrderForUser(ctx, orderID, userID)
	if err != nil {
		return nil, notFound(err, "order")
	}
	return o, nil
}

func (s *OrderService) UpdateStatus(ctx context.Context, orderID uint, to models.OrderStatus) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "order.update_status", "order_id", orderID)

	if !to.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, to)
	}

	o, err := s.Repo.OrderByID(ctx, orderID)
	if err != nil {
		return nil, notFound(err, "order")
	}

	if !o.Status.CanTransition(to) {
		l.Warn("status_transition_rejected", "from", o.Status, "to", to)
		return nil, fmt.Errorf("%w: %s -> %s", models.ErrInvalidStatusTransition, o.Status, to)
	}

	if err := s.Repo.UpdateOrderStatus(ctx, o.ID, o.Status, to); err != nil {
		if errors.Is(err, repo.ErrStaleStatus) {
			return nil, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return nil, err
	}

	from := o.Status
	o.Status = to
	l.Info("status_changed", "from", from, "to", to)

	if s.Producer != nil {
		if err := s.Producer.PublishEvent(ctx, mykafka.TopicOrderEvents, fmt.Sprint(o.ID), map[string]any{
			"type":    "order_status_changed",
			"orderID": o.ID,
			"from":    from,
			"to":      to,
		}); err != nil {
			l.Warn("kafka_publish_failed", "error", err)
		}
	}
	return o, nil
}
