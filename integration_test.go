//go:build integration
// +build integration

package caretable_test

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/marshallshelly/caretable/pkg/clinic"
	"github.com/marshallshelly/caretable/pkg/pg"
	"github.com/marshallshelly/caretable/pkg/store"
)

// setupTestDB creates a PostgreSQL container and returns connection details
func setupTestDB(t *testing.T) (string, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	cleanup := func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return connStr, cleanup
}

func TestSnapshotRoundTrip(t *testing.T) {
	connStr, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	db, err := pg.ConnectWithURL(ctx, connStr)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	today := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	src, err := clinic.NewStore()
	if err != nil {
		t.Fatalf("Failed to build store: %v", err)
	}
	ids, err := clinic.Seed(src, today)
	if err != nil {
		t.Fatalf("Failed to seed store: %v", err)
	}

	// Delete a patient before saving so the identifier high-water mark is
	// ahead of the live rows.
	if err := src.Delete(clinic.EntityPatients, ids.Cho); err != nil {
		t.Fatalf("Failed to delete patient: %v", err)
	}

	snap, err := src.Snapshot()
	if err != nil {
		t.Fatalf("Failed to snapshot: %v", err)
	}
	if err := db.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("Failed to save snapshot: %v", err)
	}

	loaded, err := db.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("Failed to load snapshot: %v", err)
	}

	dst, err := clinic.NewStore()
	if err != nil {
		t.Fatalf("Failed to build store: %v", err)
	}
	if err := dst.Restore(loaded); err != nil {
		t.Fatalf("Failed to restore: %v", err)
	}

	for _, entity := range []string{
		clinic.EntityPatients,
		clinic.EntityDoctors,
		clinic.EntityAppointments,
		clinic.EntityPrescriptions,
		clinic.EntityMedications,
	} {
		want, err := src.Count(entity)
		if err != nil {
			t.Fatalf("Failed to count %s: %v", entity, err)
		}
		got, err := dst.Count(entity)
		if err != nil {
			t.Fatalf("Failed to count %s: %v", entity, err)
		}
		if got != want {
			t.Errorf("%s: got %d rows after restore, want %d", entity, got, want)
		}
	}

	// Identifiers must not be reused after the round trip.
	newID, err := dst.Insert(&clinic.Patient{
		FullName:    "Dara Osei",
		DateOfBirth: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		Gender:      clinic.GenderFemale,
		Phone:       "+1-555-0999",
	})
	if err != nil {
		t.Fatalf("Failed to insert after restore: %v", err)
	}
	if newID <= ids.Cho {
		t.Errorf("new patient id %d reuses identifier space at or below %d", newID, ids.Cho)
	}

	// Restored indexes must serve queries.
	q := clinic.NewQueries(dst)
	upcoming, err := q.UpcomingAppointments(ids.DrChen, today)
	if err != nil {
		t.Fatalf("Failed to query upcoming appointments: %v", err)
	}
	if len(upcoming) != 2 {
		t.Errorf("got %d upcoming appointments after restore, want 2", len(upcoming))
	}
}

func TestSnapshotOverwrite(t *testing.T) {
	connStr, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	db, err := pg.ConnectWithURL(ctx, connStr)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	today := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	s, err := clinic.NewStore()
	if err != nil {
		t.Fatalf("Failed to build store: %v", err)
	}
	if _, err := clinic.Seed(s, today); err != nil {
		t.Fatalf("Failed to seed store: %v", err)
	}

	save := func() {
		snap, err := s.Snapshot()
		if err != nil {
			t.Fatalf("Failed to snapshot: %v", err)
		}
		if err := db.SaveSnapshot(ctx, snap); err != nil {
			t.Fatalf("Failed to save snapshot: %v", err)
		}
	}
	save()

	// Shrink the dataset and save again; the persisted snapshot must be
	// fully replaced, not merged.
	meds, err := store.List[clinic.Medication](s)
	if err != nil {
		t.Fatalf("Failed to list medications: %v", err)
	}
	if err := s.Delete(clinic.EntityAppointments, mustFirstAppointment(t, s)); err != nil {
		t.Fatalf("Failed to delete appointment: %v", err)
	}
	save()

	loaded, err := db.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("Failed to load snapshot: %v", err)
	}
	dst, err := clinic.NewStore()
	if err != nil {
		t.Fatalf("Failed to build store: %v", err)
	}
	if err := dst.Restore(loaded); err != nil {
		t.Fatalf("Failed to restore: %v", err)
	}

	want, _ := s.Count(clinic.EntityAppointments)
	got, _ := dst.Count(clinic.EntityAppointments)
	if got != want {
		t.Errorf("got %d appointments after overwrite, want %d", got, want)
	}
	gotMeds, _ := dst.Count(clinic.EntityMedications)
	if gotMeds != len(meds) {
		t.Errorf("got %d medications after overwrite, want %d", gotMeds, len(meds))
	}
}

func mustFirstAppointment(t *testing.T, s *store.Store) int64 {
	t.Helper()
	appts, err := store.List[clinic.Appointment](s)
	if err != nil || len(appts) == 0 {
		t.Fatalf("no appointments to delete: %v", err)
	}
	return appts[0].ID
}
