package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/chefbook/chefbook/internal/domain"
	"github.com/chefbook/chefbook/internal/interfaces"
)

type chefRepository struct {
	db DB
}

func NewChefRepository(db DB) interfaces.ChefRepository {
	return &chefRepository{db: db}
}

const chefColumns = `id, user_id, display_name, bio, location, experience_years,
	       image_url, rating, total_orders, customers_served, created_at`

func (r *chefRepository) Create(ctx context.Context, chef *domain.Chef) error {
	// user_id carries a unique constraint: exactly one chef per user.
	query := `
		INSERT INTO chefs (id, user_id, display_name, bio, location, experience_years,
		                   image_url, rating, total_orders, customers_served, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.Exec(ctx, query,
		chef.ID, chef.UserID, chef.DisplayName, chef.Bio, chef.Location, chef.ExperienceYears,
		chef.ImageURL, chef.Rating, chef.TotalOrders, chef.CustomersServed, chef.CreatedAt,
	)
	if err != nil {
		return &domain.StoreUnavailableError{Op: "create chef", Err: err}
	}
	return nil
}

func (r *chefRepository) FindByID(ctx context.Context, id string) (*domain.Chef, error) {
	query := `SELECT ` + chefColumns + ` FROM chefs WHERE id = $1`
	return r.findOne(ctx, query, id)
}

func (r *chefRepository) FindByUserID(ctx context.Context, userID string) (*domain.Chef, error) {
	query := `SELECT ` + chefColumns + ` FROM chefs WHERE user_id = $1`
	return r.findOne(ctx, query, userID)
}

// IncrementTotalOrders bumps the counter with a store-side atomic
// increment so concurrent bookings for the same chef cannot lose an
// update.
func (r *chefRepository) IncrementTotalOrders(ctx context.Context, chefID string) error {
	return r.increment(ctx, `UPDATE chefs SET total_orders = total_orders + 1 WHERE id = $1`, chefID)
}

func (r *chefRepository) IncrementCustomersServed(ctx context.Context, chefID string) error {
	return r.increment(ctx, `UPDATE chefs SET customers_served = customers_served + 1 WHERE id = $1`, chefID)
}

func (r *chefRepository) increment(ctx context.Context, query, chefID string) error {
	tag, err := r.db.Exec(ctx, query, chefID)
	if err != nil {
		return &domain.StoreUnavailableError{Op: "increment chef counter", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Entity: "chef", Key: chefID}
	}
	return nil
}

func (r *chefRepository) findOne(ctx context.Context, query, key string) (*domain.Chef, error) {
	var chef domain.Chef
	err := r.db.QueryRow(ctx, query, key).Scan(
		&chef.ID, &chef.UserID, &chef.DisplayName, &chef.Bio, &chef.Location,
		&chef.ExperienceYears, &chef.ImageURL, &chef.Rating,
		&chef.TotalOrders, &chef.CustomersServed, &chef.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &domain.NotFoundError{Entity: "chef", Key: key}
		}
		return nil, &domain.StoreUnavailableError{Op: "find chef", Err: err}
	}

	return &chef, nil
}
