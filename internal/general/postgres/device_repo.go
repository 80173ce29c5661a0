package postgres

import (
	"context"
	"errors"
	"time"

	"taxi-dispatch/internal/domain/device"
	"taxi-dispatch/internal/ports"

	"github.com/jackc/pgx/v5"
)

// DeviceRepo persists onboard devices using pgx and plain SQL.
type DeviceRepo struct{}

// NewDeviceRepo constructs a new DeviceRepo.
func NewDeviceRepo() ports.DeviceRepository {
	return &DeviceRepo{}
}



// Upsert inserts the device or refreshes its name/vehicle binding.
func (repo *DeviceRepo) Upsert(ctx context.Context, d *device.Device) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO devices (id, name, vehicle_id, status, last_ping)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    vehicle_id = EXCLUDED.vehicle_id,
		    updated_at = now()
		RETURNING created_at, updated_at
	`,
		d.ID, d.Name, d.VehicleID, d.Status.String(), d.LastPing,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	return err
}

// GetByID returns one device by id.
func (repo *DeviceRepo) GetByID(ctx context.Context, id string) (*device.Device, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	d, err := scanDevice(tx.QueryRow(ctx, `
		SELECT id, created_at, updated_at, name, vehicle_id, status, last_ping
		FROM devices
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, device.ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

// List returns all registered devices, most recently pinged first.
func (repo *DeviceRepo) List(ctx context.Context) ([]*device.Device, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT id, created_at, updated_at, name, vehicle_id, status, last_ping
		FROM devices
		ORDER BY last_ping DESC NULLS LAST, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*device.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Ping stamps last_ping and marks the device ONLINE.
func (repo *DeviceRepo) Ping(ctx context.Context, id string, at time.Time) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE devices
		SET last_ping = $1,
		    status = 'ONLINE',
		    updated_at = now()
		WHERE id = $2
	`, at, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return device.ErrNotFound
	}
	return nil
}

// MarkStale flips devices to OFFLINE when their last ping is older than the cutoff.
func (repo *DeviceRepo) MarkStale(ctx context.Context, cutoff time.Time) (int, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return 0, err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE devices
		SET status = 'OFFLINE',
		    updated_at = now()
		WHERE status = 'ONLINE'
		  AND (last_ping IS NULL OR last_ping < $1)
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func scanDevice(row pgx.Row) (*device.Device, error) {
	var d device.Device
	var statusText string
	err := row.Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt, &d.Name, &d.VehicleID, &statusText, &d.LastPing)
	if err != nil {
		return nil, err
	}
	d.Status = device.Status(statusText)
	return &d, nil
}
