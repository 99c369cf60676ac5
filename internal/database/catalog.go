package database

import (
	"context"
	"fmt"
	"time"

	"gentlecut/internal/model"
)

// UpsertBarber creates or updates a barber and returns its id.
func (db *DB) UpsertBarber(ctx context.Context, b model.Barber) (int64, error) {
	now := time.Now()
	if b.ID == 0 {
		res, err := db.ExecContext(ctx, `
			INSERT INTO barbers (name, image_url, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)`,
			b.Name, b.ImageURL, b.IsActive, now, now,
		)
		if err != nil {
			return 0, fmt.Errorf("insert barber: %w", err)
		}
		return res.LastInsertId()
	}

	_, err := db.ExecContext(ctx, `
		UPDATE barbers SET name = ?, image_url = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		b.Name, b.ImageURL, b.IsActive, now, b.ID,
	)
	if err != nil {
		return 0, fmt.Errorf("update barber %d: %w", b.ID, err)
	}
	return b.ID, nil
}

// ListBarbers returns all barbers, active first by insertion order.
func (db *DB) ListBarbers(ctx context.Context) ([]model.Barber, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT id, name, image_url, is_active FROM barbers ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("list barbers: %w", err)
	}
	defer rows.Close()

	var barbers []model.Barber
	for rows.Next() {
		var b model.Barber
		if err := rows.Scan(&b.ID, &b.Name, &b.ImageURL, &b.IsActive); err != nil {
			return nil, err
		}
		barbers = append(barbers, b)
	}
	return barbers, rows.Err()
}

// UpsertService creates or updates a catalog service and returns its id.
func (db *DB) UpsertService(ctx context.Context, s model.Service) (int64, error) {
	now := time.Now()
	if s.ID == 0 {
		res, err := db.ExecContext(ctx, `
			INSERT INTO services (name, price, duration, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)`,
			s.Name, s.Price, s.Duration, now, now,
		)
		if err != nil {
			return 0, fmt.Errorf("insert service: %w", err)
		}
		return res.LastInsertId()
	}

	_, err := db.ExecContext(ctx, `
		UPDATE services SET name = ?, price = ?, duration = ?, updated_at = ?
		WHERE id = ?`,
		s.Name, s.Price, s.Duration, now, s.ID,
	)
	if err != nil {
		return 0, fmt.Errorf("update service %d: %w", s.ID, err)
	}
	return s.ID, nil
}

// ListServices returns the service catalog.
func (db *DB) ListServices(ctx context.Context) ([]model.Service, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT id, name, price, duration FROM services ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var services []model.Service
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.Name, &s.Price, &s.Duration); err != nil {
			return nil, err
		}
		services = append(services, s)
	}
	return services, rows.Err()
}
