package repository

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/okulpanel/sinav-backend/internal/model"
)

// The attempts table uses a SERIAL primary key, so the id column arrives as
// an int4. This pins the model field to a type pgx can actually scan it into.
func TestAttemptIDScansSerialColumn(t *testing.T) {
	m := pgtype.NewMap()
	var a model.Attempt

	plan := m.PlanScan(pgtype.Int4OID, pgtype.TextFormatCode, &a.ID)
	if plan == nil {
		t.Fatal("no scan plan for an int4 attempts.id")
	}
	if err := plan.Scan([]byte("42"), &a.ID); err != nil {
		t.Fatalf("scanning attempts.id: %v", err)
	}
	if a.ID != 42 {
		t.Fatalf("expected id 42, got %d", a.ID)
	}
}
