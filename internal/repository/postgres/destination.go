package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/farewatch-api/internal/model"
	"github.com/jwalitptl/farewatch-api/internal/repository"
	apperrors "github.com/jwalitptl/farewatch-api/pkg/errors"
)

type destinationRepository struct {
	BaseRepository
}

func NewDestinationRepository(base BaseRepository) repository.DestinationRepository {
	return &destinationRepository{base}
}

func (r *destinationRepository) ListActive(ctx context.Context) ([]*model.Destination, error) {
	query := `
		SELECT id, city_name, country, airport_code, is_active, created_at
		FROM destinations
		WHERE is_active = TRUE
		ORDER BY city_name ASC
	`
	var destinations []*model.Destination
	err := r.db.SelectContext(ctx, &destinations, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active destinations: %w", err)
	}
	return destinations, nil
}

func (r *destinationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Destination, error) {
	query := `
		SELECT id, city_name, country, airport_code, is_active, created_at
		FROM destinations
		WHERE id = $1
	`
	var destination model.Destination
	err := r.db.GetContext(ctx, &destination, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("destination", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get destination: %w", err)
	}
	return &destination, nil
}
