package vehicle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type PostgresRegistry struct {
	db *sql.DB
}

func NewPostgresRegistry(db *sql.DB) *PostgresRegistry {
	return &PostgresRegistry{db: db}
}

func (r *PostgresRegistry) GetVehicleByID(ctx context.Context, id string) (Vehicle, error) {
	query := `SELECT id, label, image_key FROM vehicles WHERE id = $1`

	var v Vehicle
	err := r.db.QueryRowContext(ctx, query, id).Scan(&v.ID, &v.Label, &v.ImageKey)
	if errors.Is(err, sql.ErrNoRows) {
		return Vehicle{}, unknownVehicle(id)
	}
	if err != nil {
		return Vehicle{}, fmt.Errorf("failed to query vehicle: %w", err)
	}
	return v, nil
}

// SelectedVehicleID returns "" when no vehicle is selected.
func (r *PostgresRegistry) SelectedVehicleID(ctx context.Context) (string, error) {
	var id sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT vehicle_id FROM vehicle_selection WHERE singleton`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query selected vehicle: %w", err)
	}
	return id.String, nil
}

// Upsert creates or updates v.
func (r *PostgresRegistry) Upsert(ctx context.Context, v Vehicle) error {
	query := `
		INSERT INTO vehicles (id, label, image_key)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET label = EXCLUDED.label, image_key = EXCLUDED.image_key, updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, v.ID, v.Label, v.ImageKey); err != nil {
		return fmt.Errorf("failed to upsert vehicle %s: %w", v.ID, err)
	}
	return nil
}

// Select marks id as the selected vehicle. An empty id clears the selection.
func (r *PostgresRegistry) Select(ctx context.Context, id string) error {
	query := `
		INSERT INTO vehicle_selection (singleton, vehicle_id, updated_at)
		VALUES (TRUE, NULLIF($1, ''), NOW())
		ON CONFLICT (singleton) DO UPDATE
		SET vehicle_id = EXCLUDED.vehicle_id, updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to select vehicle %s: %w", id, err)
	}
	return nil
}
