package order

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrInvalidTransition = errors.New("invalid order status transition")

const (
	// Delay before the "your order is being processed" follow-up email.
	processingEmailDelay = 90 * time.Minute
	// Delay before the post-delivery review request.
	followUpDelay = 72 * time.Hour
)

type Service interface {
	CreateOrder(ctx context.Context, o *Order) (*Order, error)
	GetOrderByNumber(ctx context.Context, number string) (*Order, error)
	UpdateStatus(ctx context.Context, number string, newStatus Status, tracking *TrackingUpdate) (*Order, error)
}

type service struct {
	repo      Repository
	notifier  Notifier
	scheduler Scheduler
	prefix    string
	now       func() time.Time
}

func NewService(repo Repository, notifier Notifier, scheduler Scheduler, prefix string) Service {
	return &service{
		repo:      repo,
		notifier:  notifier,
		scheduler: scheduler,
		prefix:    prefix,
		now:       time.Now,
	}
}

func (s *service) CreateOrder(ctx context.Context, o *Order) (*Order, error) {
	if err := validateTotals(o); err != nil {
		return nil, err
	}
	if len(o.Items) == 0 {
		return nil, errors.New("service: order must contain at least one item")
	}
	for _, item := range o.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("service: order item quantity for %q must be greater than zero", item.Name)
		}
		if item.UnitPrice < 0 {
			return nil, fmt.Errorf("service: order item price for %q cannot be negative", item.Name)
		}
	}

	o.Number = GenerateNumber(s.prefix, s.now())
	o.Status = StatusConfirmed

	if err := s.repo.Create(ctx, o); err != nil {
		log.Error().Err(err).Msg("service: failed to create order in repository")
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	log.Info().Str("order_number", o.Number).Msg("service: order created")

	// Notifications are best-effort from here on: the order row is the
	// unit of success, a failed send never fails the creation.
	s.notifyOnCreation(ctx, o)

	return o, nil
}

func (s *service) notifyOnCreation(ctx context.Context, o *Order) {
	if err := s.notifier.Dispatch(ctx, DispatchInput{Kind: KindConfirmed, Order: o}); err != nil {
		log.Warn().Err(err).Str("order_number", o.Number).Msg("service: confirmation email failed, scheduling retry")
		// The retry captures recipient and items now: the order row may
		// still be settling when the sweep picks this up.
		if serr := s.scheduler.Schedule(ctx, o.Number, KindConfirmed, o.RecipientEmail(), s.now(), o.Items); serr != nil {
			log.Error().Err(serr).Str("order_number", o.Number).Msg("service: failed to schedule confirmation retry")
		}
	}

	if err := s.scheduler.Schedule(ctx, o.Number, KindProcessing, o.RecipientEmail(), s.now().Add(processingEmailDelay), nil); err != nil {
		log.Error().Err(err).Str("order_number", o.Number).Msg("service: failed to schedule processing email")
	}
}

func (s *service) GetOrderByNumber(ctx context.Context, number string) (*Order, error) {
	o, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("service: failed to fetch order %s: %w", number, err)
	}
	return o, nil
}

func (s *service) UpdateStatus(ctx context.Context, number string, newStatus Status, tracking *TrackingUpdate) (*Order, error) {
	if !newStatus.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, newStatus)
	}

	current, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("service: failed to get order for status update: %w", err)
	}

	if err := checkTransition(current.Status, newStatus); err != nil {
		log.Warn().
			Str("order_number", number).
			Str("current_status", current.Status.String()).
			Str("new_status", newStatus.String()).
			Msg("service: invalid status transition attempt")
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, number, newStatus, tracking); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("service: failed to update order status: %w", err)
	}

	updated, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("service: failed to reread order after status update: %w", err)
	}

	log.Info().
		Str("order_number", number).
		Str("old_status", current.Status.String()).
		Str("new_status", newStatus.String()).
		Msg("service: order status updated")

	s.notifyOnTransition(ctx, updated, newStatus, tracking)

	return updated, nil
}

// checkTransition enforces the forward-only lifecycle: skipping ahead is
// fine, re-applying the current status is fine (it re-triggers the
// notifications), moving backward is not. Cancelled is reachable from any
// non-terminal status and terminal once reached.
func checkTransition(current, next Status) error {
	if current == StatusCancelled {
		return fmt.Errorf("%w: order is cancelled", ErrInvalidTransition)
	}
	if next == StatusCancelled {
		if current == StatusDelivered {
			return fmt.Errorf("%w: delivered order cannot be cancelled", ErrInvalidTransition)
		}
		return nil
	}
	if statusRank[next] < statusRank[current] {
		return fmt.Errorf("%w: cannot move from %s back to %s", ErrInvalidTransition, current, next)
	}
	return nil
}

func (s *service) notifyOnTransition(ctx context.Context, o *Order, newStatus Status, tracking *TrackingUpdate) {
	deliveryWindow := ""
	if tracking != nil && tracking.DeliveryWindow != nil {
		deliveryWindow = *tracking.DeliveryWindow
	}

	switch newStatus {
	case StatusShipped:
		s.dispatch(ctx, DispatchInput{Kind: KindShipped, Order: o})
	case StatusOutForDelivery:
		s.dispatch(ctx, DispatchInput{Kind: KindOutForDelivery, Order: o, DeliveryWindow: deliveryWindow})
	case StatusDelivered:
		s.dispatch(ctx, DispatchInput{Kind: KindDelivered, Order: o})
		if err := s.scheduler.Schedule(ctx, o.Number, KindFollowUp, o.RecipientEmail(), s.now().Add(followUpDelay), nil); err != nil {
			log.Error().Err(err).Str("order_number", o.Number).Msg("service: failed to schedule follow-up")
		}
	case StatusCancelled:
		// Pending delayed emails make no sense for a dead order.
		for _, kind := range []NotificationKind{KindFollowUp, KindProcessing} {
			if err := s.scheduler.Cancel(ctx, o.Number, kind); err != nil {
				log.Error().Err(err).Str("order_number", o.Number).Str("kind", kind.String()).Msg("service: failed to cancel pending job")
			}
		}
	}
}

func (s *service) dispatch(ctx context.Context, in DispatchInput) {
	if err := s.notifier.Dispatch(ctx, in); err != nil {
		log.Warn().Err(err).Str("order_number", in.Order.Number).Str("kind", in.Kind.String()).Msg("service: notification dispatch failed")
	}
}

func validateTotals(o *Order) error {
	if o.Subtotal < 0 || o.ShippingCost < 0 || o.Tax < 0 {
		return errors.New("service: monetary amounts must be non-negative")
	}
	if o.TotalAmount <= 0 {
		return fmt.Errorf("service: total must be positive, got %f", o.TotalAmount)
	}
	// Compare in cents to dodge float rounding.
	wantCents := int(math.Round((o.Subtotal + o.ShippingCost + o.Tax) * 100))
	gotCents := int(math.Round(o.TotalAmount * 100))
	if wantCents != gotCents {
		return fmt.Errorf("service: total %.2f does not equal subtotal + shipping + tax %.2f",
			o.TotalAmount, o.Subtotal+o.ShippingCost+o.Tax)
	}
	return nil
}
