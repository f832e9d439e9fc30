package order_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clovelane/order-service/internal/order"
)

type mockRepository struct {
	orders    map[string]*order.Order
	createErr error
	updateErr error
}

func newMockRepository() *mockRepository {
	return &mockRepository{orders: make(map[string]*order.Order)}
}

func (m *mockRepository) Create(ctx context.Context, o *order.Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	cp := *o
	m.orders[o.Number] = &cp
	return nil
}

func (m *mockRepository) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	o, ok := m.orders[number]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockRepository) UpdateStatus(ctx context.Context, number string, status order.Status, tracking *order.TrackingUpdate) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	o, ok := m.orders[number]
	if !ok {
		return order.ErrOrderNotFound
	}
	o.Status = status
	if tracking != nil {
		if tracking.TrackingNumber != nil {
			o.TrackingNumber = *tracking.TrackingNumber
		}
		if tracking.CourierName != nil {
			o.CourierName = *tracking.CourierName
		}
		if tracking.TrackingURL != nil {
			o.TrackingURL = *tracking.TrackingURL
		}
		if tracking.EstimatedDelivery != nil {
			est := *tracking.EstimatedDelivery
			o.EstimatedDelivery = &est
		}
	}
	return nil
}

type mockNotifier struct {
	dispatchErr error
	calls       []order.DispatchInput
}

func (m *mockNotifier) Dispatch(ctx context.Context, in order.DispatchInput) error {
	m.calls = append(m.calls, in)
	return m.dispatchErr
}

type scheduledJob struct {
	orderNumber string
	kind        order.NotificationKind
	recipient   string
	at          time.Time
	items       []order.OrderItem
}

type cancelledJob struct {
	orderNumber string
	kind        order.NotificationKind
}

type mockScheduler struct {
	scheduleErr error
	scheduled   []scheduledJob
	cancelled   []cancelledJob
}

func (m *mockScheduler) Schedule(ctx context.Context, orderNumber string, kind order.NotificationKind, recipient string, at time.Time, items []order.OrderItem) error {
	m.scheduled = append(m.scheduled, scheduledJob{orderNumber: orderNumber, kind: kind, recipient: recipient, at: at, items: items})
	return m.scheduleErr
}

func (m *mockScheduler) Cancel(ctx context.Context, orderNumber string, kind order.NotificationKind) error {
	m.cancelled = append(m.cancelled, cancelledJob{orderNumber: orderNumber, kind: kind})
	return nil
}

func validOrder() *order.Order {
	return &order.Order{
		Subtotal:     1000,
		ShippingCost: 0,
		Tax:          0,
		TotalAmount:  1000,
		Shipping: order.Contact{
			Name:  "Asha Rao",
			Email: "asha@example.com",
			Phone: "+919900112233",
		},
		Items: []order.OrderItem{
			{Name: "Linen Shirt", Size: "M", Color: "White", Quantity: 1, UnitPrice: 1000},
		},
	}
}

func newTestService(repo order.Repository, notifier order.Notifier, scheduler order.Scheduler) order.Service {
	return order.NewService(repo, notifier, scheduler, "CL")
}

func TestService_CreateOrder_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *order.Order)
		wantErr string
	}{
		{
			name:    "total_mismatch",
			mutate:  func(o *order.Order) { o.TotalAmount = 1100 },
			wantErr: "does not equal subtotal",
		},
		{
			name: "non_positive_total",
			mutate: func(o *order.Order) {
				o.Subtotal = 0
				o.TotalAmount = 0
			},
			wantErr: "total must be positive",
		},
		{
			name:    "negative_shipping",
			mutate:  func(o *order.Order) { o.ShippingCost = -10 },
			wantErr: "non-negative",
		},
		{
			name:    "no_items",
			mutate:  func(o *order.Order) { o.Items = nil },
			wantErr: "at least one item",
		},
		{
			name:    "zero_quantity",
			mutate:  func(o *order.Order) { o.Items[0].Quantity = 0 },
			wantErr: "greater than zero",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockRepository()
			notifier := &mockNotifier{}
			scheduler := &mockScheduler{}
			svc := newTestService(repo, notifier, scheduler)

			o := validOrder()
			tt.mutate(o)

			_, err := svc.CreateOrder(context.Background(), o)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Empty(t, notifier.calls)
			assert.Empty(t, scheduler.scheduled)
		})
	}
}

func TestService_CreateOrder_Success(t *testing.T) {
	repo := newMockRepository()
	notifier := &mockNotifier{}
	scheduler := &mockScheduler{}
	svc := newTestService(repo, notifier, scheduler)

	created, err := svc.CreateOrder(context.Background(), validOrder())
	require.NoError(t, err)

	assert.Regexp(t, `^CL\d{10}$`, created.Number)
	assert.Equal(t, order.StatusConfirmed, created.Status)

	require.Len(t, notifier.calls, 1)
	assert.Equal(t, order.KindConfirmed, notifier.calls[0].Kind)

	require.Len(t, scheduler.scheduled, 1)
	job := scheduler.scheduled[0]
	assert.Equal(t, order.KindProcessing, job.kind)
	assert.Equal(t, created.Number, job.orderNumber)
	assert.Equal(t, "asha@example.com", job.recipient)
	assert.WithinDuration(t, time.Now().Add(90*time.Minute), job.at, 2*time.Second)
}

func TestService_CreateOrder_EmailFailureSchedulesRetry(t *testing.T) {
	repo := newMockRepository()
	notifier := &mockNotifier{dispatchErr: errors.New("provider down")}
	scheduler := &mockScheduler{}
	svc := newTestService(repo, notifier, scheduler)

	created, err := svc.CreateOrder(context.Background(), validOrder())
	require.NoError(t, err, "notification failure must not fail order creation")

	require.Len(t, scheduler.scheduled, 2)

	retry := scheduler.scheduled[0]
	assert.Equal(t, order.KindConfirmed, retry.kind)
	assert.Equal(t, created.Number, retry.orderNumber)
	assert.Equal(t, "asha@example.com", retry.recipient)
	assert.WithinDuration(t, time.Now(), retry.at, 2*time.Second)
	require.Len(t, retry.items, 1)
	assert.Equal(t, "Linen Shirt", retry.items[0].Name)

	assert.Equal(t, order.KindProcessing, scheduler.scheduled[1].kind)
}

func TestService_UpdateStatus_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		current order.Status
		next    order.Status
		wantErr bool
	}{
		{name: "forward", current: order.StatusConfirmed, next: order.StatusShipped},
		{name: "skip_ahead", current: order.StatusConfirmed, next: order.StatusDelivered},
		{name: "same_status_retrigger", current: order.StatusDelivered, next: order.StatusDelivered},
		{name: "cancel_from_confirmed", current: order.StatusConfirmed, next: order.StatusCancelled},
		{name: "backward", current: order.StatusShipped, next: order.StatusProcessing, wantErr: true},
		{name: "out_of_cancelled", current: order.StatusCancelled, next: order.StatusShipped, wantErr: true},
		{name: "cancel_after_delivery", current: order.StatusDelivered, next: order.StatusCancelled, wantErr: true},
		{name: "unknown_status", current: order.StatusConfirmed, next: order.Status("refunded"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockRepository()
			repo.orders["CL2024000001"] = &order.Order{
				Number:   "CL2024000001",
				Status:   tt.current,
				Shipping: order.Contact{Email: "asha@example.com"},
			}
			svc := newTestService(repo, &mockNotifier{}, &mockScheduler{})

			_, err := svc.UpdateStatus(context.Background(), "CL2024000001", tt.next, nil)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, order.ErrInvalidTransition))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestService_UpdateStatus_OrderNotFound(t *testing.T) {
	svc := newTestService(newMockRepository(), &mockNotifier{}, &mockScheduler{})

	_, err := svc.UpdateStatus(context.Background(), "CL2024999999", order.StatusShipped, nil)
	assert.True(t, errors.Is(err, order.ErrOrderNotFound))
}

func TestService_UpdateStatus_ShippedPersistsTrackingAndNotifies(t *testing.T) {
	repo := newMockRepository()
	repo.orders["CL2024003421"] = &order.Order{
		Number:   "CL2024003421",
		Status:   order.StatusConfirmed,
		Shipping: order.Contact{Email: "asha@example.com", Phone: "+919900112233"},
	}
	notifier := &mockNotifier{}
	svc := newTestService(repo, notifier, &mockScheduler{})

	trk := "TRK123"
	courier := "Shiprocket"
	updated, err := svc.UpdateStatus(context.Background(), "CL2024003421", order.StatusShipped, &order.TrackingUpdate{
		TrackingNumber: &trk,
		CourierName:    &courier,
	})
	require.NoError(t, err)

	assert.Equal(t, order.StatusShipped, updated.Status)
	assert.Equal(t, "TRK123", updated.TrackingNumber)
	assert.Equal(t, "Shiprocket", updated.CourierName)

	require.Len(t, notifier.calls, 1)
	assert.Equal(t, order.KindShipped, notifier.calls[0].Kind)
	assert.Equal(t, "TRK123", notifier.calls[0].Order.TrackingNumber)
}

func TestService_UpdateStatus_DeliveredSchedulesFollowUp(t *testing.T) {
	repo := newMockRepository()
	repo.orders["CL2024003421"] = &order.Order{
		Number:   "CL2024003421",
		Status:   order.StatusOutForDelivery,
		Shipping: order.Contact{Email: "asha@example.com"},
	}
	notifier := &mockNotifier{}
	scheduler := &mockScheduler{}
	svc := newTestService(repo, notifier, scheduler)

	_, err := svc.UpdateStatus(context.Background(), "CL2024003421", order.StatusDelivered, nil)
	require.NoError(t, err)

	require.Len(t, notifier.calls, 1)
	assert.Equal(t, order.KindDelivered, notifier.calls[0].Kind)

	require.Len(t, scheduler.scheduled, 1)
	job := scheduler.scheduled[0]
	assert.Equal(t, order.KindFollowUp, job.kind)
	assert.Equal(t, "asha@example.com", job.recipient)
	assert.WithinDuration(t, time.Now().Add(72*time.Hour), job.at, 2*time.Second)

	// Re-applying delivered is allowed and schedules a second follow-up:
	// scheduling is not idempotent unless the caller cancels first.
	_, err = svc.UpdateStatus(context.Background(), "CL2024003421", order.StatusDelivered, nil)
	require.NoError(t, err)
	assert.Len(t, scheduler.scheduled, 2)
}

func TestService_UpdateStatus_CancelSuppressesPendingJobs(t *testing.T) {
	repo := newMockRepository()
	repo.orders["CL2024003421"] = &order.Order{
		Number: "CL2024003421",
		Status: order.StatusConfirmed,
	}
	notifier := &mockNotifier{}
	scheduler := &mockScheduler{}
	svc := newTestService(repo, notifier, scheduler)

	_, err := svc.UpdateStatus(context.Background(), "CL2024003421", order.StatusCancelled, nil)
	require.NoError(t, err)

	assert.Empty(t, notifier.calls)
	require.Len(t, scheduler.cancelled, 2)
	assert.Equal(t, order.KindFollowUp, scheduler.cancelled[0].kind)
	assert.Equal(t, order.KindProcessing, scheduler.cancelled[1].kind)
}

func TestService_UpdateStatus_NotificationFailureDoesNotFailUpdate(t *testing.T) {
	repo := newMockRepository()
	repo.orders["CL2024003421"] = &order.Order{
		Number:   "CL2024003421",
		Status:   order.StatusConfirmed,
		Shipping: order.Contact{Email: "asha@example.com"},
	}
	notifier := &mockNotifier{dispatchErr: errors.New("provider down")}
	svc := newTestService(repo, notifier, &mockScheduler{})

	updated, err := svc.UpdateStatus(context.Background(), "CL2024003421", order.StatusShipped, nil)
	require.NoError(t, err)
	assert.Equal(t, order.StatusShipped, updated.Status)
}
