package exam

import (
	"fmt"
	"time"
)

// LifecycleError reports an illegal state transition. The definition is
// always left unchanged when one is returned.
type LifecycleError struct {
	Op   string
	From Status
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("cannot %s exam in status %s", e.Op, e.From)
}

// Publish moves a draft to ACTIVE. The full validator runs as a
// precondition; on success the end timestamp is fixed to
// StartsAt + DurationMinutes and never recomputed again.
func Publish(def *Definition) error {
	if def.Status != StatusDraft {
		return &LifecycleError{Op: "publish", From: def.Status}
	}
	if errs := Validate(def); len(errs) > 0 {
		return errs
	}
	end := def.ComputeEnd()
	def.EndsAt = &end
	def.Status = StatusActive
	return nil
}

// Close moves an ACTIVE exam to CLOSED. Triggered either by explicit teacher
// action or by the wall clock reaching the end timestamp (see CloseDue).
// Once closed, the definition and all questions are fully immutable.
func Close(def *Definition) error {
	if def.Status != StatusActive {
		return &LifecycleError{Op: "close", From: def.Status}
	}
	def.Status = StatusClosed
	return nil
}

// CloseDue reports whether the wall clock has reached the frozen end
// timestamp of an ACTIVE exam.
func CloseDue(def *Definition, now time.Time) bool {
	return def.Status == StatusActive && def.EndsAt != nil && !now.Before(*def.EndsAt)
}

// Cancel moves a DRAFT or ACTIVE exam to CANCELLED. In-flight submissions
// for a cancelled exam must be excluded from analytics input by the caller.
func Cancel(def *Definition) error {
	if def.Status != StatusDraft && def.Status != StatusActive {
		return &LifecycleError{Op: "cancel", From: def.Status}
	}
	def.Status = StatusCancelled
	return nil
}
