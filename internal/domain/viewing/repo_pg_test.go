package viewing

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/lettings/viewings/internal/platform/db"
	"github.com/lettings/viewings/migrations"
)

// pgTestPool connects to DATABASE_URL and applies the embedded migrations.
// Tests using it are skipped when no database is configured.
func pgTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres repository tests")
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, url, 8, 1)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := db.NewMigrator(pool, migrations.FS).Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

// createTestProperty inserts a property owned by a fresh lessor and removes
// it and its appointments when the test ends.
func createTestProperty(t *testing.T, pool *pgxpool.Pool) (propertyID uuid.UUID, lessorID string) {
	t.Helper()
	ctx := context.Background()
	propertyID = uuid.New()
	lessorID = "lessor-" + uuid.NewString()
	if _, err := pool.Exec(ctx, `INSERT INTO property (id, lessor_id) VALUES ($1, $2)`, propertyID, lessorID); err != nil {
		t.Fatalf("insert property: %v", err)
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, `DELETE FROM viewing_appointment WHERE property_id = $1`, propertyID)
		_, _ = pool.Exec(ctx, `DELETE FROM property WHERE id = $1`, propertyID)
	})
	return propertyID, lessorID
}

func createTestAppointment(t *testing.T, repo AppointmentRepository, propertyID uuid.UUID, status Status, date, tm string) *Appointment {
	t.Helper()
	a := &Appointment{
		PropertyID:    propertyID,
		TenantID:      "tenant-" + uuid.NewString(),
		PreferredDate: date,
		PreferredTime: tm,
		Status:        status,
	}
	if err := repo.Create(context.Background(), a); err != nil {
		t.Fatalf("create %s appointment: %v", status, err)
	}
	return a
}

func TestAppointmentRepoPG_Create(t *testing.T) {
	pool := pgTestPool(t)
	repo := NewAppointmentRepoPG(pool)
	ctx := context.Background()
	propertyID, lessorID := createTestProperty(t, pool)

	t.Run("CopiesLessorFromProperty", func(t *testing.T) {
		a := createTestAppointment(t, repo, propertyID, StatusPending, "2030-01-07", "10:00")
		if a.ID == uuid.Nil {
			t.Fatal("expected non-nil ID")
		}
		if a.LessorID != lessorID {
			t.Errorf("expected lessor %s, got %s", lessorID, a.LessorID)
		}

		got, err := repo.GetByID(ctx, a.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if got.PreferredDate != "2030-01-07" || got.PreferredTime != "10:00" || got.Status != StatusPending {
			t.Errorf("unexpected row: %+v", got)
		}
	})

	t.Run("UnknownProperty", func(t *testing.T) {
		err := repo.Create(ctx, &Appointment{
			PropertyID:    uuid.New(),
			TenantID:      "tenant-x",
			PreferredDate: "2030-01-07",
			PreferredTime: "10:00",
		})
		if !errors.Is(err, ErrPropertyNotFound) {
			t.Errorf("expected ErrPropertyNotFound, got %v", err)
		}
	})

	t.Run("GetByID_NotFound", func(t *testing.T) {
		if _, err := repo.GetByID(ctx, uuid.New()); !errors.Is(err, ErrAppointmentNotFound) {
			t.Errorf("expected ErrAppointmentNotFound, got %v", err)
		}
	})
}

func TestAppointmentRepoPG_ExistsConfirmedAt(t *testing.T) {
	pool := pgTestPool(t)
	repo := NewAppointmentRepoPG(pool)
	ctx := context.Background()
	propertyID, _ := createTestProperty(t, pool)
	const date, tm = "2030-01-08", "11:00"

	pending := createTestAppointment(t, repo, propertyID, StatusPending, date, tm)
	createTestAppointment(t, repo, propertyID, StatusCancelled, date, tm)

	taken, err := repo.ExistsConfirmedAt(ctx, propertyID, uuid.Nil, date, tm)
	if err != nil {
		t.Fatalf("ExistsConfirmedAt: %v", err)
	}
	if taken {
		t.Error("pending and cancelled occupants must not conflict")
	}

	confirmed := createTestAppointment(t, repo, propertyID, StatusConfirmed, date, tm)

	taken, err = repo.ExistsConfirmedAt(ctx, propertyID, pending.ID, date, tm)
	if err != nil {
		t.Fatalf("ExistsConfirmedAt: %v", err)
	}
	if !taken {
		t.Error("confirmed occupant must conflict for another appointment")
	}

	taken, err = repo.ExistsConfirmedAt(ctx, propertyID, confirmed.ID, date, tm)
	if err != nil {
		t.Fatalf("ExistsConfirmedAt: %v", err)
	}
	if taken {
		t.Error("an appointment must not conflict with itself")
	}

	otherProperty, _ := createTestProperty(t, pool)
	if taken, _ := repo.ExistsConfirmedAt(ctx, otherProperty, uuid.Nil, date, tm); taken {
		t.Error("confirmations on another property must not conflict")
	}

	times, err := repo.ConfirmedTimes(ctx, propertyID, date)
	if err != nil {
		t.Fatalf("ConfirmedTimes: %v", err)
	}
	if len(times) != 1 || times[0] != tm {
		t.Errorf("expected [%s], got %v", tm, times)
	}
}

func TestAppointmentRepoPG_UpdateStatus(t *testing.T) {
	pool := pgTestPool(t)
	repo := NewAppointmentRepoPG(pool)
	ctx := context.Background()
	propertyID, _ := createTestProperty(t, pool)

	t.Run("SecondConfirmationHitsUniqueIndex", func(t *testing.T) {
		createTestAppointment(t, repo, propertyID, StatusConfirmed, "2030-01-09", "09:00")
		other := createTestAppointment(t, repo, propertyID, StatusPending, "2030-01-09", "09:00")

		_, err := repo.UpdateStatus(ctx, other.ID, StatusConfirmed, Notes{})
		if !errors.Is(err, ErrSlotConflict) {
			t.Errorf("expected ErrSlotConflict, got %v", err)
		}
	})

	t.Run("NotesKeptWhenNil", func(t *testing.T) {
		a := createTestAppointment(t, repo, propertyID, StatusPending, "2030-01-09", "10:00")
		lessorNote := "see you there"
		updated, err := repo.UpdateStatus(ctx, a.ID, StatusConfirmed, Notes{Lessor: &lessorNote})
		if err != nil {
			t.Fatalf("UpdateStatus: %v", err)
		}
		if updated.Status != StatusConfirmed || updated.LessorNotes == nil || *updated.LessorNotes != lessorNote {
			t.Errorf("unexpected row: %+v", updated)
		}

		updated, err = repo.UpdateStatus(ctx, a.ID, StatusCancelled, Notes{})
		if err != nil {
			t.Fatalf("UpdateStatus: %v", err)
		}
		if updated.LessorNotes == nil || *updated.LessorNotes != lessorNote {
			t.Error("nil notes must leave the column untouched")
		}
	})

	t.Run("CancelledIsTerminal", func(t *testing.T) {
		a := createTestAppointment(t, repo, propertyID, StatusCancelled, "2030-01-09", "11:00")
		if _, err := repo.UpdateStatus(ctx, a.ID, StatusConfirmed, Notes{}); !errors.Is(err, ErrAppointmentCancelled) {
			t.Errorf("UpdateStatus: expected ErrAppointmentCancelled, got %v", err)
		}
		if _, err := repo.UpdateSchedule(ctx, a.ID, "2030-01-10", "11:00", nil); !errors.Is(err, ErrAppointmentCancelled) {
			t.Errorf("UpdateSchedule: expected ErrAppointmentCancelled, got %v", err)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		if _, err := repo.UpdateStatus(ctx, uuid.New(), StatusCancelled, Notes{}); !errors.Is(err, ErrAppointmentNotFound) {
			t.Errorf("expected ErrAppointmentNotFound, got %v", err)
		}
	})
}

func TestAppointmentRepoPG_UpdateScheduleResetsToPending(t *testing.T) {
	pool := pgTestPool(t)
	repo := NewAppointmentRepoPG(pool)
	propertyID, _ := createTestProperty(t, pool)
	a := createTestAppointment(t, repo, propertyID, StatusConfirmed, "2030-01-11", "09:00")

	note := "later please"
	moved, err := repo.UpdateSchedule(context.Background(), a.ID, "2030-01-14", "15:00", &note)
	if err != nil {
		t.Fatalf("UpdateSchedule: %v", err)
	}
	if moved.Status != StatusPending || moved.PreferredDate != "2030-01-14" || moved.PreferredTime != "15:00" {
		t.Errorf("unexpected row: %+v", moved)
	}
	if moved.TenantNotes == nil || *moved.TenantNotes != note {
		t.Errorf("expected tenant note %q, got %v", note, moved.TenantNotes)
	}
}

func TestAppointmentRepoPG_Lists(t *testing.T) {
	pool := pgTestPool(t)
	repo := NewAppointmentRepoPG(pool)
	ctx := context.Background()
	propertyID, lessorID := createTestProperty(t, pool)

	a := createTestAppointment(t, repo, propertyID, StatusPending, "2030-01-15", "09:00")
	createTestAppointment(t, repo, propertyID, StatusPending, "2030-01-16", "09:00")

	items, total, err := repo.ListByLessor(ctx, lessorID, 1, 0)
	if err != nil {
		t.Fatalf("ListByLessor: %v", err)
	}
	if total != 2 || len(items) != 1 || items[0].PreferredDate != "2030-01-16" {
		t.Errorf("unexpected page: total=%d items=%+v", total, items)
	}

	items, total, err = repo.ListByTenant(ctx, a.TenantID, 10, 0)
	if err != nil {
		t.Fatalf("ListByTenant: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].ID != a.ID {
		t.Errorf("unexpected tenant list: total=%d items=%+v", total, items)
	}
}

func TestConfirmAppointment_Postgres_OnlyOneOfConcurrentRequests(t *testing.T) {
	pool := pgTestPool(t)
	repo := NewAppointmentRepoPG(pool)
	propertyID, _ := createTestProperty(t, pool)
	svc := NewService(newTestScheduler(DefaultRules()), repo, db.NewTxManager(pool), NopNotifier{}, zerolog.Nop())

	const date, tm = "2030-01-17", "14:00"
	first := createTestAppointment(t, repo, propertyID, StatusPending, date, tm)
	second := createTestAppointment(t, repo, propertyID, StatusPending, date, tm)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []uuid.UUID{first.ID, second.ID} {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = svc.ConfirmAppointment(context.Background(), id, "")
		}(i, id)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrSlotConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != 1 {
		t.Errorf("expected one confirmation and one ErrSlotConflict, got %d and %d", ok, conflicts)
	}

	times, err := repo.ConfirmedTimes(context.Background(), propertyID, date)
	if err != nil {
		t.Fatalf("ConfirmedTimes: %v", err)
	}
	if len(times) != 1 {
		t.Errorf("expected exactly one confirmed appointment, got %d", len(times))
	}
}
