package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

const exceptionColumns = `
	id, doctor_id, doctor_name, date, reason, created_by, created_at
`

func (r *exceptionRepository) Create(ctx context.Context, exc *model.AvailabilityException) error {
	query := `
		INSERT INTO doctor_exceptions (
			id, doctor_id, doctor_name, date, reason, created_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		exc.ID,
		exc.DoctorID,
		exc.DoctorName,
		exc.Date,
		exc.Reason,
		exc.CreatedBy,
		exc.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create exception: %w", err)
	}
	return nil
}

func (r *exceptionRepository) Get(ctx context.Context, doctorID, id uuid.UUID) (*model.AvailabilityException, error) {
	query := `SELECT` + exceptionColumns + `FROM doctor_exceptions WHERE id = $1 AND doctor_id = $2`

	var exc model.AvailabilityException
	err := r.db.GetContext(ctx, &exc, query, id, doctorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get exception: %w", err)
	}
	return &exc, nil
}

func (r *exceptionRepository) Delete(ctx context.Context, doctorID, id uuid.UUID) error {
	query := `DELETE FROM doctor_exceptions WHERE id = $1 AND doctor_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, doctorID)
	if err != nil {
		return fmt.Errorf("failed to delete exception: %w", err)
	}
	return checkAffected(result)
}

func (r *exceptionRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.AvailabilityException, error) {
	query := `SELECT` + exceptionColumns + `FROM doctor_exceptions WHERE doctor_id = $1 ORDER BY date ASC`

	var exceptions []*model.AvailabilityException
	err := r.db.SelectContext(ctx, &exceptions, query, doctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list exceptions: %w", err)
	}
	return exceptions, nil
}

func (r *exceptionRepository) List(ctx context.Context) ([]*model.AvailabilityException, error) {
	query := `SELECT` + exceptionColumns + `FROM doctor_exceptions ORDER BY date ASC`

	var exceptions []*model.AvailabilityException
	err := r.db.SelectContext(ctx, &exceptions, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list exceptions: %w", err)
	}
	return exceptions, nil
}
