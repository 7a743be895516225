package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xavierca1/salespilot/internal/entity"
)

const slotUniqueConstraint = "bookings_slot_uq"

const bookingColumns = `id, lead_id, client_name, client_email, slot_date, time_slot, meeting_link, status, created_at`

type BookingRepository struct {
	DB *sql.DB
}

func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{DB: db}
}

func (r *BookingRepository) Create(ctx context.Context, b *entity.Booking) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		b.ID, b.LeadID, b.ClientName, b.ClientEmail, b.Date.Format(entity.DateLayout),
		b.TimeSlot, b.MeetingLink, string(b.Status), b.CreatedAt,
	)
	if uniqueConstraint(err) == slotUniqueConstraint {
		return entity.ErrSlotTaken
	}
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// Delete removes a booking. Used to undo a booking whose lead update failed.
func (r *BookingRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return entity.ErrBookingNotFound
	}
	return nil
}

func (r *BookingRepository) FindBySlot(ctx context.Context, date time.Time, slot string) (*entity.Booking, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE slot_date = $1 AND time_slot = $2`,
		date.Format(entity.DateLayout), slot)
	return scanBooking(row)
}

func (r *BookingRepository) FindByDate(ctx context.Context, date time.Time) ([]*entity.Booking, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE slot_date = $1 ORDER BY time_slot`,
		date.Format(entity.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	var out []*entity.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBooking(s scanner) (*entity.Booking, error) {
	var (
		b      entity.Booking
		status string
	)
	err := s.Scan(&b.ID, &b.LeadID, &b.ClientName, &b.ClientEmail, &b.Date,
		&b.TimeSlot, &b.MeetingLink, &status, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	b.Status = entity.BookingStatus(status)
	b.Date = time.Date(b.Date.Year(), b.Date.Month(), b.Date.Day(), 0, 0, 0, 0, time.UTC)
	b.CreatedAt = b.CreatedAt.UTC()
	return &b, nil
}
