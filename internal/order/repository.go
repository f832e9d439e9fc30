package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var ErrOrderNotFound = errors.New("order not found")

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByNumber(ctx context.Context, number string) (*Order, error)
	// UpdateStatus sets the new status and any non-nil tracking fields,
	// leaving everything else untouched.
	UpdateStatus(ctx context.Context, number string, status Status, tracking *TrackingUpdate) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, o *Order) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Str("order_number", o.Number).Msg("repository: failed to rollback transaction")
			}
		}
	}()

	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now

	queryOrder := `
		INSERT INTO orders (order_number, status, subtotal, shipping_cost, tax, total_amount,
			payment_method, payment_status, customer_email,
			shipping_name, shipping_email, shipping_phone, shipping_address, shipping_city, shipping_postal_code,
			billing_name, billing_email, billing_phone, billing_address, billing_city, billing_postal_code,
			tracking_number, courier_name, tracking_url, estimated_delivery, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)
	`
	_, err = tx.Exec(ctx, queryOrder,
		o.Number, string(o.Status), o.Subtotal, o.ShippingCost, o.Tax, o.TotalAmount,
		o.PaymentMethod, o.PaymentStatus, o.CustomerEmail,
		o.Shipping.Name, o.Shipping.Email, o.Shipping.Phone, o.Shipping.Address, o.Shipping.City, o.Shipping.PostalCode,
		o.Billing.Name, o.Billing.Email, o.Billing.Phone, o.Billing.Address, o.Billing.City, o.Billing.PostalCode,
		o.TrackingNumber, o.CourierName, o.TrackingURL, o.EstimatedDelivery, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert order: %w", err)
	}

	queryItem := `
		INSERT INTO order_items (order_number, name, size, color, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, item := range o.Items {
		_, err = tx.Exec(ctx, queryItem, o.Number, item.Name, item.Size, item.Color, item.Quantity, item.UnitPrice)
		if err != nil {
			return fmt.Errorf("repository: failed to insert order item for order %s: %w", o.Number, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository: failed to commit transaction: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByNumber(ctx context.Context, number string) (*Order, error) {
	queryOrder := `
		SELECT order_number, status, subtotal, shipping_cost, tax, total_amount,
			payment_method, payment_status, customer_email,
			shipping_name, shipping_email, shipping_phone, shipping_address, shipping_city, shipping_postal_code,
			billing_name, billing_email, billing_phone, billing_address, billing_city, billing_postal_code,
			tracking_number, courier_name, tracking_url, estimated_delivery, created_at, updated_at
		FROM orders
		WHERE order_number = $1
	`

	var o Order
	err := r.db.QueryRow(ctx, queryOrder, number).Scan(
		&o.Number, &o.Status, &o.Subtotal, &o.ShippingCost, &o.Tax, &o.TotalAmount,
		&o.PaymentMethod, &o.PaymentStatus, &o.CustomerEmail,
		&o.Shipping.Name, &o.Shipping.Email, &o.Shipping.Phone, &o.Shipping.Address, &o.Shipping.City, &o.Shipping.PostalCode,
		&o.Billing.Name, &o.Billing.Email, &o.Billing.Phone, &o.Billing.Address, &o.Billing.City, &o.Billing.PostalCode,
		&o.TrackingNumber, &o.CourierName, &o.TrackingURL, &o.EstimatedDelivery, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order %s: %w", number, err)
	}

	queryItems := `
		SELECT name, size, color, quantity, unit_price
		FROM order_items
		WHERE order_number = $1
		ORDER BY id ASC
	`
	rows, err := r.db.Query(ctx, queryItems, number)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items for %s: %w", number, err)
	}
	defer rows.Close()

	items := make([]OrderItem, 0)
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.Name, &item.Size, &item.Color, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item for %s: %w", number, err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items for %s: %w", number, err)
	}

	o.Items = items
	return &o, nil
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, number string, status Status, tracking *TrackingUpdate) error {
	sets := []string{"status = $1", "updated_at = $2"}
	args := []any{string(status), time.Now().UTC()}

	if tracking != nil {
		if tracking.TrackingNumber != nil {
			args = append(args, *tracking.TrackingNumber)
			sets = append(sets, fmt.Sprintf("tracking_number = $%d", len(args)))
		}
		if tracking.CourierName != nil {
			args = append(args, *tracking.CourierName)
			sets = append(sets, fmt.Sprintf("courier_name = $%d", len(args)))
		}
		if tracking.TrackingURL != nil {
			args = append(args, *tracking.TrackingURL)
			sets = append(sets, fmt.Sprintf("tracking_url = $%d", len(args)))
		}
		if tracking.EstimatedDelivery != nil {
			args = append(args, *tracking.EstimatedDelivery)
			sets = append(sets, fmt.Sprintf("estimated_delivery = $%d", len(args)))
		}
	}

	args = append(args, number)
	query := fmt.Sprintf("UPDATE orders SET %s WHERE order_number = $%d", strings.Join(sets, ", "), len(args))

	cmdTag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("repository: failed to update order status %s: %w", number, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}
