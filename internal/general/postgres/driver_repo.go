package postgres

import (
	"context"
	"errors"

	"taxi-dispatch/internal/domain/driver"
	"taxi-dispatch/internal/ports"

	"github.com/jackc/pgx/v5"
)

// DriverRepo persists drivers using pgx and plain SQL.
type DriverRepo struct{}

// NewDriverRepo constructs a new DriverRepo.
func NewDriverRepo() ports.DriverRepository {
	return &DriverRepo{}
}

// GetByID returns one driver by id.
func (repo *DriverRepo) GetByID(ctx context.Context, driverID string) (*driver.Driver, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var out driver.Driver
	var statusText string

	err = tx.QueryRow(ctx, `
		SELECT id, created_at, updated_at, name, vehicle_id, status
		FROM drivers
		WHERE id = $1
	`, driverID).Scan(
		&out.ID, &out.CreatedAt, &out.UpdatedAt,
		&out.Name, &out.VehicleID, &statusText,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	out.Status = driver.DriverStatus(statusText)
	return &out, nil
}

// UpdateStatus sets the driver status (idempotent if unchanged).
func (repo *DriverRepo) UpdateStatus(ctx context.Context, driverID string, status driver.DriverStatus) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	if !status.Valid() {
		return driver.ErrInvalidDriverStatus
	}

	// lock the row and read current status to keep transitions explicit
	var current string
	err = tx.QueryRow(ctx, `
		SELECT status
		FROM drivers
		WHERE id = $1
		FOR UPDATE
	`, driverID).Scan(&current)
	if err != nil {
		return err
	}

	// idempotent success
	if current == status.String() {
		return nil
	}

	_, err = tx.Exec(ctx, `
		UPDATE drivers
		SET status = $1,
		    updated_at = now()
		WHERE id = $2
	`, status.String(), driverID)
	return err
}

// ListAvailable returns drivers that may be offered trips.
func (repo *DriverRepo) ListAvailable(ctx context.Context, limit int) ([]driver.Driver, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	rows, err := tx.Query(ctx, `
		SELECT id, created_at, updated_at, name, vehicle_id, status
		FROM drivers
		WHERE status = 'AVAILABLE'
		ORDER BY updated_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []driver.Driver
	for rows.Next() {
		var d driver.Driver
		var statusText string
		if err := rows.Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt, &d.Name, &d.VehicleID, &statusText); err != nil {
			return nil, err
		}
		d.Status = driver.DriverStatus(statusText)
		out = append(out, d)
	}
	return out, rows.Err()
}
