package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/chefbook/chefbook/internal/domain"
	"github.com/chefbook/chefbook/internal/interfaces"
)

type serviceRepository struct {
	db DB
}

func NewServiceRepository(db DB) interfaces.ServiceRepository {
	return &serviceRepository{db: db}
}

func (r *serviceRepository) Create(ctx context.Context, svc *domain.Service) error {
	query := `
		INSERT INTO services (id, chef_id, name, description, price, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		svc.ID, svc.ChefID, svc.Name, svc.Description, svc.Price, svc.Active, svc.CreatedAt,
	)
	if err != nil {
		return &domain.StoreUnavailableError{Op: "create service", Err: err}
	}
	return nil
}

func (r *serviceRepository) FindByID(ctx context.Context, id string) (*domain.Service, error) {
	query := `
		SELECT id, chef_id, name, description, price, active, created_at
		FROM services
		WHERE id = $1
	`

	var svc domain.Service
	err := r.db.QueryRow(ctx, query, id).Scan(
		&svc.ID, &svc.ChefID, &svc.Name, &svc.Description, &svc.Price, &svc.Active, &svc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &domain.NotFoundError{Entity: "service", Key: id}
		}
		return nil, &domain.StoreUnavailableError{Op: "find service", Err: err}
	}

	return &svc, nil
}

func (r *serviceRepository) ListByChef(ctx context.Context, chefID string) ([]*domain.Service, error) {
	query := `
		SELECT id, chef_id, name, description, price, active, created_at
		FROM services
		WHERE chef_id = $1 AND active
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, chefID)
	if err != nil {
		return nil, &domain.StoreUnavailableError{Op: "list services", Err: err}
	}
	defer rows.Close()

	var services []*domain.Service
	for rows.Next() {
		var svc domain.Service
		if err := rows.Scan(
			&svc.ID, &svc.ChefID, &svc.Name, &svc.Description, &svc.Price, &svc.Active, &svc.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		services = append(services, &svc)
	}

	return services, nil
}

// Deactivate marks a service inactive instead of deleting it, so
// historical orders keep a valid reference.
func (r *serviceRepository) Deactivate(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `UPDATE services SET active = false WHERE id = $1`, id)
	if err != nil {
		return &domain.StoreUnavailableError{Op: "deactivate service", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Entity: "service", Key: id}
	}
	return nil
}
