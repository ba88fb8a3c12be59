package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/barberbook/libs/db"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/outbox"
)

const appointmentColumns = `id, name, address, phone, email, service, status, is_confirmed, created_at, last_updated`

// AppointmentRepository is the PostgreSQL record store. Every mutation writes
// its outbox event in the same transaction.
type AppointmentRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewAppointmentRepository(pool *db.Pool, outboxRepo *outbox.Repository) *AppointmentRepository {
	return &AppointmentRepository{pool: pool, outbox: outboxRepo}
}

func (r *AppointmentRepository) Create(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	saved, err := scanAppointment(tx.QueryRow(ctx, `
		INSERT INTO appointments
			(id, name, address, phone, email, service, status, is_confirmed, created_at, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+appointmentColumns,
		appt.ID, appt.Name, appt.Address, appt.Phone, appt.Email, appt.Service,
		string(appt.Status), appt.IsConfirmed, appt.CreatedAt, appt.LastUpdated))
	if err != nil {
		if isUniqueViolation(err) {
			return model.Appointment{}, ErrConflict
		}
		return model.Appointment{}, fmt.Errorf("insert appointment: %w", err)
	}

	evt, err := outbox.AppointmentEvent(outbox.TypeAppointmentBooked, saved)
	if err := r.writeOutbox(ctx, tx, evt, err); err != nil {
		return model.Appointment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, fmt.Errorf("commit: %w", err)
	}
	return saved, nil
}

func (r *AppointmentRepository) Confirm(ctx context.Context, id string, at time.Time) (model.Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	updated, err := scanAppointment(tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'Confirmed',
			is_confirmed = true,
			last_updated = $2
		WHERE id = $1
		RETURNING `+appointmentColumns, id, at.UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Appointment{}, ErrNotFound
		}
		return model.Appointment{}, fmt.Errorf("confirm appointment: %w", err)
	}

	evt, err := outbox.AppointmentEvent(outbox.TypeAppointmentConfirmed, updated)
	if err := r.writeOutbox(ctx, tx, evt, err); err != nil {
		return model.Appointment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, fmt.Errorf("commit: %w", err)
	}
	return updated, nil
}

func (r *AppointmentRepository) Delete(ctx context.Context, id string, at time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var deletedID string
	err = tx.QueryRow(ctx, `DELETE FROM appointments WHERE id = $1 RETURNING id`, id).Scan(&deletedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("delete appointment: %w", err)
	}

	evt, err := outbox.CancelledEvent(deletedID, at)
	if err := r.writeOutbox(ctx, tx, evt, err); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *AppointmentRepository) Get(ctx context.Context, id string) (model.Appointment, error) {
	appt, err := scanAppointment(r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, ErrNotFound
	}
	return appt, err
}

func (r *AppointmentRepository) List(ctx context.Context, status model.Status) ([]model.Appointment, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if status == "" {
		rows, err = r.pool.Query(ctx, `
			SELECT `+appointmentColumns+`
			FROM appointments
			ORDER BY created_at DESC, id
		`)
	} else {
		rows, err = r.pool.Query(ctx, `
			SELECT `+appointmentColumns+`
			FROM appointments
			WHERE status = $1
			ORDER BY created_at DESC, id
		`, string(status))
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	appts := []model.Appointment{}
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

func (r *AppointmentRepository) Ping(ctx context.Context) error {
	return db.ReadyCheck(r.pool)(ctx)
}

func (r *AppointmentRepository) writeOutbox(ctx context.Context, tx pgx.Tx, evt outbox.Event, err error) error {
	if err != nil {
		return fmt.Errorf("build outbox event: %w", err)
	}
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return fmt.Errorf("write outbox event: %w", err)
	}
	return nil
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var appt model.Appointment
	var status string
	err := row.Scan(
		&appt.ID,
		&appt.Name,
		&appt.Address,
		&appt.Phone,
		&appt.Email,
		&appt.Service,
		&status,
		&appt.IsConfirmed,
		&appt.CreatedAt,
		&appt.LastUpdated,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.Status = model.Status(status)
	appt.CreatedAt = appt.CreatedAt.UTC()
	appt.LastUpdated = appt.LastUpdated.UTC()
	return appt, nil
}
