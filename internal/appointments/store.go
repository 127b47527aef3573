package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when the referenced appointment does not exist.
var ErrNotFound = errors.New("appointments: not found")

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists appointments, patients, and doctors.
type Store struct {
	pool querier
}

func NewStore(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &Store{pool: pool}
}

func newStoreWithQuerier(q querier) *Store {
	if q == nil {
		panic("appointments: querier required")
	}
	return &Store{pool: q}
}

const appointmentColumns = `
	a.id, a.patient_id, COALESCE(a.patient_name, ''), COALESCE(a.patient_phone, ''),
	COALESCE(p.short_id, ''), a.doctor_id, a.doctor_label, a.title,
	COALESCE(a.notes, ''), a.starts_at, a.ends_at, a.status,
	COALESCE(a.room, ''), a.created_at, a.updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		appt      Appointment
		patientID *string
		rawStatus string
	)
	err := row.Scan(
		&appt.ID, &patientID, &appt.PatientName, &appt.PatientPhone,
		&appt.PatientShort, &appt.DoctorID, &appt.DoctorLabel, &appt.Title,
		&appt.Notes, &appt.StartsAt, &appt.EndsAt, &rawStatus,
		&appt.Room, &appt.CreatedAt, &appt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if patientID != nil {
		appt.PatientID = *patientID
	}
	status, err := ParseStoredStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	appt.Status = status
	return &appt, nil
}

// GetByID fetches one appointment.
func (s *Store) GetByID(ctx context.Context, id string) (*Appointment, error) {
	query := `
		SELECT` + appointmentColumns + `
		FROM appointments a
		LEFT JOIN patients p ON p.id = a.patient_id
		WHERE a.id = $1
	`
	appt, err := scanAppointment(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: get %s: %w", id, err)
	}
	return appt, nil
}

// UpdateStatus persists a status transition and returns the confirmed value.
// Last writer wins; there is no optimistic version column.
func (s *Store) UpdateStatus(ctx context.Context, id string, next Status) (Status, error) {
	query := `
		UPDATE appointments
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING status
	`
	var raw string
	if err := s.pool.QueryRow(ctx, query, id, next.String()).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StatusScheduled, ErrNotFound
		}
		return StatusScheduled, fmt.Errorf("appointments: update status %s: %w", id, err)
	}
	confirmed, err := ParseStoredStatus(raw)
	if err != nil {
		return StatusScheduled, fmt.Errorf("appointments: update status %s: %w", id, err)
	}
	return confirmed, nil
}

// ListWindow returns appointments starting inside [from, to), ordered by
// start time. The appointments page seeds a rolling 30-day window with it.
func (s *Store) ListWindow(ctx context.Context, from, to time.Time) ([]Appointment, error) {
	query := `
		SELECT` + appointmentColumns + `
		FROM appointments a
		LEFT JOIN patients p ON p.id = a.patient_id
		WHERE a.starts_at >= $1 AND a.starts_at < $2
		ORDER BY a.starts_at
	`
	rows, err := s.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("appointments: list window: %w", err)
	}
	defer rows.Close()

	var appts []Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan window row: %w", err)
		}
		appts = append(appts, *appt)
	}
	return appts, rows.Err()
}

// SearchPatients matches patients by name, file number, or phone. The page
// typeahead caps results at ten rows.
func (s *Store) SearchPatients(ctx context.Context, term string, limit int) ([]Patient, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT id, COALESCE(short_id, ''), full_name, COALESCE(phone, '')
		FROM patients
		WHERE LOWER(full_name) LIKE LOWER($1)
		   OR LOWER(short_id) LIKE LOWER($1)
		   OR phone LIKE $1
		ORDER BY full_name
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, "%"+term+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("appointments: search patients: %w", err)
	}
	defer rows.Close()

	var patients []Patient
	for rows.Next() {
		var p Patient
		if err := rows.Scan(&p.ID, &p.ShortID, &p.FullName, &p.Phone); err != nil {
			return nil, fmt.Errorf("appointments: scan patient row: %w", err)
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

// ListPatients returns patients ordered by name for the page seed.
func (s *Store) ListPatients(ctx context.Context, limit int) ([]Patient, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, COALESCE(short_id, ''), full_name, COALESCE(phone, '')
		FROM patients
		ORDER BY full_name
		LIMIT $1
	`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("appointments: list patients: %w", err)
	}
	defer rows.Close()

	var patients []Patient
	for rows.Next() {
		var p Patient
		if err := rows.Scan(&p.ID, &p.ShortID, &p.FullName, &p.Phone); err != nil {
			return nil, fmt.Errorf("appointments: scan patient row: %w", err)
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

// ListDoctors returns all doctors ordered by label.
func (s *Store) ListDoctors(ctx context.Context) ([]Doctor, error) {
	query := `
		SELECT id, doctor_label, COALESCE(color, '')
		FROM doctors
		ORDER BY doctor_label
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("appointments: list doctors: %w", err)
	}
	defer rows.Close()

	var doctors []Doctor
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(&d.ID, &d.Label, &d.Color); err != nil {
			return nil, fmt.Errorf("appointments: scan doctor row: %w", err)
		}
		doctors = append(doctors, d)
	}
	return doctors, rows.Err()
}
