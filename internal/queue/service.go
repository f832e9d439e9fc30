package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/clovelane/order-service/internal/order"
)

// Dispatcher is the immediate render-and-send path the sweep hands due
// jobs to. Satisfied by *notify.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, in order.DispatchInput) error
}

// OrderGetter fetches the current order snapshot at dispatch time.
type OrderGetter interface {
	GetByNumber(ctx context.Context, number string) (*order.Order, error)
}

// Service is the persistent delayed queue: durable scheduling plus the
// sweep that executes due jobs with bounded retries.
type Service struct {
	jobs       Repository
	orders     OrderGetter
	dispatcher Dispatcher
	now        func() time.Time
}

func NewService(jobs Repository, orders OrderGetter, dispatcher Dispatcher) *Service {
	return &Service{
		jobs:       jobs,
		orders:     orders,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// Schedule implements order.Scheduler. Multiple jobs for the same
// (order, kind) may coexist; callers wanting idempotence cancel first.
func (s *Service) Schedule(ctx context.Context, orderNumber string, kind order.NotificationKind, recipient string, at time.Time, items []order.OrderItem) error {
	if !kind.Valid() {
		return fmt.Errorf("queue: unknown notification kind %q", kind)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("queue: failed to generate job id: %w", err)
	}

	var metadata []byte
	if len(items) > 0 {
		metadata, err = json.Marshal(Metadata{Items: items})
		if err != nil {
			return fmt.Errorf("queue: failed to marshal job metadata: %w", err)
		}
	}

	job := &Job{
		ID:          id,
		OrderNumber: orderNumber,
		Kind:        kind,
		Recipient:   recipient,
		Status:      JobPending,
		Attempts:    0,
		ScheduledAt: at,
		Metadata:    metadata,
	}
	if err := s.jobs.Insert(ctx, job); err != nil {
		return err
	}

	log.Info().
		Str("order_number", orderNumber).
		Str("kind", kind.String()).
		Time("scheduled_at", at).
		Msg("queue: job scheduled")
	return nil
}

// Cancel implements order.Scheduler. Deleting zero rows is not an error.
func (s *Service) Cancel(ctx context.Context, orderNumber string, kind order.NotificationKind) error {
	deleted, err := s.jobs.DeletePending(ctx, orderNumber, kind)
	if err != nil {
		return err
	}
	if deleted > 0 {
		log.Info().Str("order_number", orderNumber).Str("kind", kind.String()).Int64("deleted", deleted).Msg("queue: pending jobs cancelled")
	}
	return nil
}

// Sweep claims and executes one batch of due jobs. Each job's outcome is
// independent; a failing job never aborts the rest of the batch.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	due, err := s.jobs.SelectDueBatch(ctx, s.now(), SweepBatchSize)
	if err != nil {
		return 0, err
	}

	processed := 0
	for i := range due {
		if s.processJob(ctx, &due[i]) {
			processed++
		}
	}
	return processed, nil
}

// processJob runs the claim / refetch / dispatch / settle cycle for one
// job. Returns true if the job was claimed by this sweeper.
func (s *Service) processJob(ctx context.Context, job *Job) bool {
	claimed, err := s.jobs.Claim(ctx, job.ID, s.now())
	if err != nil {
		log.Error().Err(err).Str("job_id", job.ID.String()).Msg("queue: failed to claim job")
		return false
	}
	if !claimed {
		// Another sweeper took it between select and claim.
		return false
	}

	if err := s.dispatchJob(ctx, job); err != nil {
		s.settleFailure(ctx, job, err)
		return true
	}

	if err := s.jobs.MarkSent(ctx, job.ID); err != nil {
		log.Error().Err(err).Str("job_id", job.ID.String()).Msg("queue: failed to mark job sent")
		return true
	}

	log.Info().
		Str("order_number", job.OrderNumber).
		Str("kind", job.Kind.String()).
		Int("attempts", job.Attempts).
		Msg("queue: job dispatched")
	return true
}

func (s *Service) dispatchJob(ctx context.Context, job *Job) error {
	// The snapshot is refetched every attempt: the job may predate the
	// order's final committed state.
	o, err := s.orders.GetByNumber(ctx, job.OrderNumber)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			// Retryable: the order row may simply not be visible yet.
			return fmt.Errorf("queue: order %s not found: %w", job.OrderNumber, err)
		}
		return fmt.Errorf("queue: failed to fetch order %s: %w", job.OrderNumber, err)
	}

	in := order.DispatchInput{Kind: job.Kind, Order: o}
	if job.Kind == order.KindConfirmed {
		// Confirmation retries use the contact and items captured at
		// schedule time; other kinds resolve from the live order.
		in.RecipientOverride = job.Recipient
		if len(job.Metadata) > 0 {
			var meta Metadata
			if err := json.Unmarshal(job.Metadata, &meta); err != nil {
				log.Warn().Err(err).Str("job_id", job.ID.String()).Msg("queue: unreadable job metadata, using live order items")
			} else {
				in.Items = meta.Items
			}
		}
	}

	return s.dispatcher.Dispatch(ctx, in)
}

func (s *Service) settleFailure(ctx context.Context, job *Job, dispatchErr error) {
	attempts := job.Attempts + 1

	if attempts >= RetryCeiling {
		if err := s.jobs.MarkFailed(ctx, job.ID, attempts, dispatchErr.Error()); err != nil {
			log.Error().Err(err).Str("job_id", job.ID.String()).Msg("queue: failed to mark job failed")
			return
		}
		log.Error().
			Err(dispatchErr).
			Str("order_number", job.OrderNumber).
			Str("kind", job.Kind.String()).
			Int("attempts", attempts).
			Msg("queue: retries exhausted, job abandoned")
		return
	}

	if err := s.jobs.Requeue(ctx, job.ID, attempts, dispatchErr.Error()); err != nil {
		log.Error().Err(err).Str("job_id", job.ID.String()).Msg("queue: failed to requeue job")
		return
	}
	log.Warn().
		Err(dispatchErr).
		Str("order_number", job.OrderNumber).
		Str("kind", job.Kind.String()).
		Int("attempts", attempts).
		Msg("queue: job attempt failed, requeued")
}
