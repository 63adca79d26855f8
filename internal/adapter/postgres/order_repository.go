package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/chefbook/chefbook/internal/domain"
	"github.com/chefbook/chefbook/internal/interfaces"
)

type orderRepository struct {
	db DB
}

func NewOrderRepository(db DB) interfaces.OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, customer_id, chef_id, service_id, service_name, price,
	       scheduled_date, time_slot, duration_hours, food_preference,
	       phone, address, status, created_at, updated_at`

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return &domain.StoreUnavailableError{Op: "create order", Err: err}
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO orders (id, customer_id, chef_id, service_id, service_name, price,
		                    scheduled_date, time_slot, duration_hours, food_preference,
		                    phone, address, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = tx.Exec(ctx, query,
		order.ID, order.CustomerID, order.ChefID, order.ServiceID, order.ServiceName, order.Price,
		order.ScheduledDate, order.TimeSlot, order.DurationHours, order.FoodPreference,
		order.Phone, order.Address, order.Status, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return &domain.StoreUnavailableError{Op: "insert order", Err: err}
	}

	logQuery := `
		INSERT INTO order_status_log (order_id, status, changed_by, changed_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err = tx.Exec(ctx, logQuery, order.ID, order.Status, "customer", order.CreatedAt); err != nil {
		return &domain.StoreUnavailableError{Op: "log order status", Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return &domain.StoreUnavailableError{Op: "create order", Err: err}
	}
	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	var order domain.Order
	err := scanOrder(r.db.QueryRow(ctx, query, id), &order)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &domain.NotFoundError{Entity: "order", Key: id}
		}
		return nil, &domain.StoreUnavailableError{Op: "find order", Err: err}
	}

	return &order, nil
}

// UpdateStatusWithLog writes the new status guarded by the expected
// prior one, so two writers racing over the same order (the booking
// service and the sweeper run as separate processes) cannot both
// commit the same transition.
func (r *orderRepository) UpdateStatusWithLog(ctx context.Context, order *domain.Order, from domain.Status, changedBy string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return &domain.StoreUnavailableError{Op: "update order status", Err: err}
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	tag, err := tx.Exec(ctx, query, order.Status, order.UpdatedAt, order.ID, from)
	if err != nil {
		return &domain.StoreUnavailableError{Op: "update order status", Err: err}
	}
	if tag.RowsAffected() == 0 {
		// Either the order is gone or another writer moved it first.
		var current domain.Status
		err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, order.ID).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.NotFoundError{Entity: "order", Key: order.ID}
		}
		if err != nil {
			return &domain.StoreUnavailableError{Op: "update order status", Err: err}
		}
		return &domain.InvalidTransitionError{From: current, To: order.Status}
	}

	logQuery := `
		INSERT INTO order_status_log (order_id, status, changed_by, changed_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err = tx.Exec(ctx, logQuery, order.ID, order.Status, changedBy, order.UpdatedAt); err != nil {
		return &domain.StoreUnavailableError{Op: "log order status", Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return &domain.StoreUnavailableError{Op: "update order status", Err: err}
	}
	return nil
}

func (r *orderRepository) ListByChef(ctx context.Context, chefID string) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE chef_id = $1 ORDER BY created_at DESC`
	return r.queryOrders(ctx, query, chefID)
}

func (r *orderRepository) ListByCustomer(ctx context.Context, customerID string) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`
	return r.queryOrders(ctx, query, customerID)
}

// ListAll hides elapsed non-terminal orders so expired bookings never
// show up in the default admin listing, even between sweeps.
func (r *orderRepository) ListAll(ctx context.Context) ([]*domain.Order, error) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE status IN ('completed', 'cancelled') OR scheduled_date >= $1
		ORDER BY created_at DESC`
	return r.queryOrders(ctx, query, today)
}

func (r *orderRepository) ListAccepted(ctx context.Context) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE status = 'accepted' ORDER BY created_at DESC`
	return r.queryOrders(ctx, query)
}

func (r *orderRepository) PruneElapsed(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM orders
		WHERE status IN ('pending', 'accepted') AND scheduled_date < $1
	`
	tag, err := r.db.Exec(ctx, query, before)
	if err != nil {
		return 0, &domain.StoreUnavailableError{Op: "prune elapsed orders", Err: err}
	}
	return tag.RowsAffected(), nil
}

func (r *orderRepository) GetStatusHistory(ctx context.Context, orderID string) ([]*domain.StatusLog, error) {
	query := `
		SELECT id, order_id, status, changed_by, changed_at
		FROM order_status_log
		WHERE order_id = $1
		ORDER BY changed_at ASC
	`

	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, &domain.StoreUnavailableError{Op: "query status history", Err: err}
	}
	defer rows.Close()

	var logs []*domain.StatusLog
	for rows.Next() {
		var log domain.StatusLog
		if err := rows.Scan(&log.ID, &log.OrderID, &log.Status, &log.ChangedBy, &log.ChangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status log: %w", err)
		}
		logs = append(logs, &log)
	}

	return logs, nil
}

func (r *orderRepository) queryOrders(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, &domain.StoreUnavailableError{Op: "query orders", Err: err}
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		var order domain.Order
		if err := scanOrder(rows, &order); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, &order)
	}

	return orders, nil
}

func scanOrder(row Row, order *domain.Order) error {
	return row.Scan(
		&order.ID, &order.CustomerID, &order.ChefID, &order.ServiceID, &order.ServiceName,
		&order.Price, &order.ScheduledDate, &order.TimeSlot, &order.DurationHours,
		&order.FoodPreference, &order.Phone, &order.Address, &order.Status,
		&order.CreatedAt, &order.UpdatedAt,
	)
}
