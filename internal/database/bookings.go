package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"gentlecut/internal/model"
)

// InsertBooking records a confirmed booking under its ledger id.
func (db *DB) InsertBooking(ctx context.Context, b model.Booking) error {
	serviceIDs, err := json.Marshal(b.ServiceIDs)
	if err != nil {
		return fmt.Errorf("marshal service ids: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO bookings (id, code, barber_id, date, time, service_ids,
			customer_name, customer_phone, customer_photo, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Code, b.BarberID, string(b.Date), b.Time, string(serviceIDs),
		b.Customer.Name, b.Customer.Phone, b.Customer.Photo, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert booking %d: %w", b.ID, err)
	}
	return nil
}

// DeleteBooking removes a booking row.
func (db *DB) DeleteBooking(ctx context.Context, bookingID int64) error {
	_, err := db.ExecContext(ctx, "DELETE FROM bookings WHERE id = ?", bookingID)
	if err != nil {
		return fmt.Errorf("delete booking %d: %w", bookingID, err)
	}
	return nil
}

// LoadBookings returns every persisted booking. Rows with a NULL date or
// time are kept as incomplete records; the ledger tolerates them.
func (db *DB) LoadBookings(ctx context.Context) ([]model.Booking, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, code, barber_id, date, time, service_ids,
			customer_name, customer_phone, customer_photo, created_at
		FROM bookings ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		var b model.Booking
		var code, date, slot, serviceIDs, name, phone, photo sql.NullString
		if err := rows.Scan(
			&b.ID, &code, &b.BarberID, &date, &slot, &serviceIDs,
			&name, &phone, &photo, &b.CreatedAt,
		); err != nil {
			return nil, err
		}
		b.Code = code.String
		b.Date = model.DateKey(date.String)
		b.Time = slot.String
		b.Customer = model.CustomerInfo{Name: name.String, Phone: phone.String, Photo: photo.String}
		if serviceIDs.Valid && serviceIDs.String != "" {
			if err := json.Unmarshal([]byte(serviceIDs.String), &b.ServiceIDs); err != nil {
				return nil, fmt.Errorf("booking %d service ids: %w", b.ID, err)
			}
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
