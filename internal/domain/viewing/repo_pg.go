package viewing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lettings/viewings/internal/platform/db"
)

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const apptCols = `id, property_id, tenant_id, lessor_id, preferred_date::text, preferred_time,
	status, tenant_notes, lessor_notes, message, created_at, updated_at`

func (r *appointmentRepoPG) scanAppt(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var status string
	err := row.Scan(&a.ID, &a.PropertyID, &a.TenantID, &a.LessorID, &a.PreferredDate, &a.PreferredTime,
		&status, &a.TenantNotes, &a.LessorNotes, &a.Message, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, err
	}
	if a.Status, err = ParseStatus(status); err != nil {
		return nil, fmt.Errorf("appointment %s: %w", a.ID, err)
	}
	return &a, nil
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	if a.Status == "" {
		a.Status = StatusPending
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO viewing_appointment (id, property_id, tenant_id, lessor_id,
			preferred_date, preferred_time, status, tenant_notes, message)
		SELECT $1, p.id, $3, p.lessor_id, $4::text::date, $5, $6, $7, $8
		FROM property p WHERE p.id = $2
		RETURNING lessor_id, created_at, updated_at`,
		a.ID, a.PropertyID, a.TenantID, a.PreferredDate, a.PreferredTime,
		string(a.Status), a.TenantNotes, a.Message,
	).Scan(&a.LessorID, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrPropertyNotFound
	}
	if db.IsUniqueViolation(err) {
		return ErrSlotConflict
	}
	return err
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return r.scanAppt(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM viewing_appointment WHERE id = $1`, id))
}

func (r *appointmentRepoPG) ExistsConfirmedAt(ctx context.Context, propertyID, excludeID uuid.UUID, date, tm string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM viewing_appointment
			WHERE property_id = $1 AND id <> $2
			  AND preferred_date = $3::text::date AND preferred_time = $4
			  AND status = 'confirmed'
		)`, propertyID, excludeID, date, tm).Scan(&exists)
	return exists, err
}

func (r *appointmentRepoPG) ConfirmedTimes(ctx context.Context, propertyID uuid.UUID, date string) ([]string, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT preferred_time FROM viewing_appointment
		WHERE property_id = $1 AND preferred_date = $2::text::date AND status = 'confirmed'
		ORDER BY preferred_time`, propertyID, date)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *appointmentRepoPG) UpdateSchedule(ctx context.Context, id uuid.UUID, date, tm string, tenantNotes *string) (*Appointment, error) {
	a, err := r.scanAppt(r.conn(ctx).QueryRow(ctx, `
		UPDATE viewing_appointment
		SET preferred_date = $2::text::date, preferred_time = $3, tenant_notes = $4,
			status = 'pending', updated_at = NOW()
		WHERE id = $1 AND status <> 'cancelled'
		RETURNING `+apptCols, id, date, tm, tenantNotes))
	if errors.Is(err, ErrAppointmentNotFound) {
		return nil, r.missOrCancelled(ctx, id)
	}
	return a, err
}

func (r *appointmentRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, notes Notes) (*Appointment, error) {
	a, err := r.scanAppt(r.conn(ctx).QueryRow(ctx, `
		UPDATE viewing_appointment
		SET status = $2,
			tenant_notes = COALESCE($3, tenant_notes),
			lessor_notes = COALESCE($4, lessor_notes),
			updated_at = NOW()
		WHERE id = $1 AND status <> 'cancelled'
		RETURNING `+apptCols, id, string(status), notes.Tenant, notes.Lessor))
	if db.IsUniqueViolation(err) {
		return nil, ErrSlotConflict
	}
	if errors.Is(err, ErrAppointmentNotFound) {
		return nil, r.missOrCancelled(ctx, id)
	}
	return a, err
}

// missOrCancelled explains why a guarded update matched no row.
func (r *appointmentRepoPG) missOrCancelled(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM viewing_appointment WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrAppointmentCancelled
	}
	return ErrAppointmentNotFound
}

func (r *appointmentRepoPG) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*Appointment, int, error) {
	return r.list(ctx, "tenant_id", tenantID, limit, offset)
}

func (r *appointmentRepoPG) ListByLessor(ctx context.Context, lessorID string, limit, offset int) ([]*Appointment, int, error) {
	return r.list(ctx, "lessor_id", lessorID, limit, offset)
}

// list pages appointments filtered on column, which must be a trusted
// column name.
func (r *appointmentRepoPG) list(ctx context.Context, column, value string, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM viewing_appointment WHERE `+column+` = $1`, value).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+apptCols+` FROM viewing_appointment WHERE `+column+` = $1
		ORDER BY preferred_date DESC, preferred_time DESC LIMIT $2 OFFSET $3`, value, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppt(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}
