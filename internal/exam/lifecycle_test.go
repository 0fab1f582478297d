package exam

import (
	"errors"
	"testing"
	"time"
)

func TestPublish_FixesEndTimestamp(t *testing.T) {
	def := newDefinition(10, newQuestion(10, LabelB))
	def.DurationMinutes = 45

	if err := Publish(def); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if def.Status != StatusActive {
		t.Fatalf("expected ACTIVE, got %s", def.Status)
	}
	want := def.StartsAt.Add(45 * time.Minute)
	if def.EndsAt == nil || !def.EndsAt.Equal(want) {
		t.Fatalf("expected end %v, got %v", want, def.EndsAt)
	}
}

func TestPublish_RunsValidator(t *testing.T) {
	def := newDefinition(10) // no questions
	err := Publish(def)
	if err == nil {
		t.Fatal("expected publish to fail validation")
	}
	var errs ValidationErrors
	if !errors.As(err, &errs) {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if def.Status != StatusDraft {
		t.Fatalf("failed publish must leave state unchanged, got %s", def.Status)
	}
}

func TestRefreshEnd_OnlyWhileDraft(t *testing.T) {
	def := newDefinition(10, newQuestion(10, LabelB))
	def.RefreshEnd()
	first := *def.EndsAt

	def.DurationMinutes = 90
	def.RefreshEnd()
	if def.EndsAt.Equal(first) {
		t.Fatal("draft end timestamp should track duration changes")
	}

	if err := Publish(def); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	frozen := *def.EndsAt

	def.DurationMinutes = 10
	def.RefreshEnd()
	if !def.EndsAt.Equal(frozen) {
		t.Fatal("end timestamp must freeze once active")
	}
}

func TestLifecycle_TransitionTable(t *testing.T) {
	ops := map[string]func(*Definition) error{
		"publish": Publish,
		"close":   Close,
		"cancel":  Cancel,
	}

	tests := []struct {
		from Status
		op   string
		ok   bool
		want Status
	}{
		{StatusDraft, "publish", true, StatusActive},
		{StatusDraft, "close", false, StatusDraft},
		{StatusDraft, "cancel", true, StatusCancelled},
		{StatusActive, "publish", false, StatusActive},
		{StatusActive, "close", true, StatusClosed},
		{StatusActive, "cancel", true, StatusCancelled},
		{StatusClosed, "publish", false, StatusClosed},
		{StatusClosed, "close", false, StatusClosed},
		{StatusClosed, "cancel", false, StatusClosed},
		{StatusCancelled, "publish", false, StatusCancelled},
		{StatusCancelled, "close", false, StatusCancelled},
		{StatusCancelled, "cancel", false, StatusCancelled},
	}

	for _, tc := range tests {
		t.Run(string(tc.from)+"_"+tc.op, func(t *testing.T) {
			def := newDefinition(10, newQuestion(10, LabelB))
			def.Status = tc.from

			err := ops[tc.op](def)
			if tc.ok && err != nil {
				t.Fatalf("expected %s from %s to succeed, got %v", tc.op, tc.from, err)
			}
			if !tc.ok {
				var le *LifecycleError
				if !errors.As(err, &le) {
					t.Fatalf("expected LifecycleError, got %v", err)
				}
			}
			if def.Status != tc.want {
				t.Fatalf("expected status %s, got %s", tc.want, def.Status)
			}
		})
	}
}

func TestCloseDue(t *testing.T) {
	def := newDefinition(10, newQuestion(10, LabelB))
	if err := Publish(def); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	before := def.EndsAt.Add(-time.Minute)
	after := def.EndsAt.Add(time.Minute)

	if CloseDue(def, before) {
		t.Fatal("exam not yet due")
	}
	if !CloseDue(def, *def.EndsAt) {
		t.Fatal("exam due exactly at the end timestamp")
	}
	if !CloseDue(def, after) {
		t.Fatal("exam due after the end timestamp")
	}

	if err := Close(def); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if CloseDue(def, after) {
		t.Fatal("closed exams are never due again")
	}
}
