package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gentlecut/internal/model"
)

// SaveSchedule stores one barber's weekly pattern and overrides,
// replacing whatever was persisted before. Runs in one transaction so a
// partial schedule is never visible after a crash.
func (db *DB) SaveSchedule(ctx context.Context, barberID int64, sched model.Schedule) error {
	days, err := json.Marshal(sched.WeeklyPattern.WorkingDays)
	if err != nil {
		return fmt.Errorf("marshal working days: %w", err)
	}
	slots, err := json.Marshal(sched.WeeklyPattern.DefaultSlots)
	if err != nil {
		return fmt.Errorf("marshal default slots: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO weekly_patterns (barber_id, working_days, default_slots, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(barber_id) DO UPDATE SET
			working_days = excluded.working_days,
			default_slots = excluded.default_slots,
			updated_at = excluded.updated_at`,
		barberID, string(days), string(slots), now,
	)
	if err != nil {
		return fmt.Errorf("save pattern: %w", err)
	}

	if _, err = tx.ExecContext(ctx,
		"DELETE FROM schedule_overrides WHERE barber_id = ?", barberID,
	); err != nil {
		return fmt.Errorf("clear overrides: %w", err)
	}

	for date, ov := range sched.Overrides {
		ovSlots, err := json.Marshal(ov.Slots)
		if err != nil {
			return fmt.Errorf("marshal override slots: %w", err)
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO schedule_overrides (barber_id, date, is_working, slots, updated_at)
			VALUES (?, ?, ?, ?, ?)`,
			barberID, string(date), ov.IsWorking, string(ovSlots), now,
		); err != nil {
			return fmt.Errorf("save override %s: %w", date, err)
		}
	}

	return tx.Commit()
}

// LoadSchedules returns the persisted schedule of every barber.
func (db *DB) LoadSchedules(ctx context.Context) (map[int64]model.Schedule, error) {
	schedules := make(map[int64]model.Schedule)

	rows, err := db.QueryContext(ctx,
		"SELECT barber_id, working_days, default_slots FROM weekly_patterns",
	)
	if err != nil {
		return nil, fmt.Errorf("load patterns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var barberID int64
		var days, slots string
		if err := rows.Scan(&barberID, &days, &slots); err != nil {
			return nil, err
		}

		var pattern model.WeeklyPattern
		if err := json.Unmarshal([]byte(days), &pattern.WorkingDays); err != nil {
			return nil, fmt.Errorf("barber %d working days: %w", barberID, err)
		}
		if err := json.Unmarshal([]byte(slots), &pattern.DefaultSlots); err != nil {
			return nil, fmt.Errorf("barber %d default slots: %w", barberID, err)
		}
		schedules[barberID] = model.Schedule{
			WeeklyPattern: pattern,
			Overrides:     make(map[model.DateKey]model.DayOverride),
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ovRows, err := db.QueryContext(ctx,
		"SELECT barber_id, date, is_working, slots FROM schedule_overrides",
	)
	if err != nil {
		return nil, fmt.Errorf("load overrides: %w", err)
	}
	defer ovRows.Close()

	for ovRows.Next() {
		var barberID int64
		var date string
		var isWorking bool
		var slots string
		if err := ovRows.Scan(&barberID, &date, &isWorking, &slots); err != nil {
			return nil, err
		}

		sched, ok := schedules[barberID]
		if !ok {
			// Override without a pattern row; skip rather than fail the load.
			continue
		}
		var ov model.DayOverride
		ov.IsWorking = isWorking
		if err := json.Unmarshal([]byte(slots), &ov.Slots); err != nil {
			return nil, fmt.Errorf("barber %d override %s: %w", barberID, date, err)
		}
		sched.Overrides[model.DateKey(date)] = ov
	}
	return schedules, ovRows.Err()
}
