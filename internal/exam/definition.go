package exam

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status enumerates the lifecycle states of an exam definition.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusActive    Status = "ACTIVE"
	StatusClosed    Status = "CLOSED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal reports whether no further transition is legal from s.
func (s Status) Terminal() bool {
	return s == StatusClosed || s == StatusCancelled
}

// OptionSlots is the fixed number of option slots per question.
const OptionSlots = 5

// OptionLabel identifies one of the five fixed option slots.
type OptionLabel string

const (
	LabelA OptionLabel = "A"
	LabelB OptionLabel = "B"
	LabelC OptionLabel = "C"
	LabelD OptionLabel = "D"
	LabelE OptionLabel = "E"
)

// Labels lists the five slot labels in display order.
var Labels = [OptionSlots]OptionLabel{LabelA, LabelB, LabelC, LabelD, LabelE}

// Valid reports whether l is one of the five slot labels.
func (l OptionLabel) Valid() bool {
	for _, known := range Labels {
		if l == known {
			return true
		}
	}
	return false
}

// Option is one answer choice. An empty Text marks an unused slot;
// unused slots are never selectable.
type Option struct {
	Label OptionLabel `json:"label"`
	Text  string      `json:"text"`
}

// Empty reports whether the slot holds no selectable option text.
func (o Option) Empty() bool {
	return strings.TrimSpace(o.Text) == ""
}

// Question is a single-choice question with up to five labeled options.
// Questions are immutable once the owning exam leaves DRAFT.
type Question struct {
	ID           uuid.UUID           `json:"id"`
	Prompt       string              `json:"prompt"`
	Points       int                 `json:"points"`
	Options      [OptionSlots]Option `json:"options"`
	CorrectLabel OptionLabel         `json:"correct_label"`
}

// OptionByLabel returns the option in the slot identified by label.
func (q *Question) OptionByLabel(label OptionLabel) (Option, bool) {
	for _, o := range q.Options {
		if o.Label == label {
			return o, true
		}
	}
	return Option{}, false
}

// SelectableOptions counts the non-empty option slots.
func (q *Question) SelectableOptions() int {
	n := 0
	for _, o := range q.Options {
		if !o.Empty() {
			n++
		}
	}
	return n
}

// Definition is the authored, pre-delivery description of an exam and its
// question pool. The zero value is not usable; construct via the authoring
// layer and validate before publishing.
type Definition struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Subject         string     `json:"subject"`
	TeacherID       int        `json:"teacher_id"`
	DurationMinutes int        `json:"duration_minutes"`
	StartsAt        time.Time  `json:"starts_at"`
	EndsAt          *time.Time `json:"ends_at,omitempty"`
	MaxScore        int        `json:"max_score"`

	ShuffleQuestions      bool `json:"shuffle_questions"`
	ShuffleOptions        bool `json:"shuffle_options"`
	AllowBacktrack        bool `json:"allow_backtrack"`
	ShowResultAfterSubmit bool `json:"show_result_after_submit"`

	Status    Status     `json:"status"`
	Questions []Question `json:"questions,omitempty"`
}

// TotalPoints recomputes the assigned point total from the authoritative
// question list. Always recomputed, never maintained incrementally.
func (d *Definition) TotalPoints() int {
	total := 0
	for i := range d.Questions {
		total += d.Questions[i].Points
	}
	return total
}

// Editable reports whether questions and the point budget may still change.
func (d *Definition) Editable() bool {
	return d.Status == StatusDraft
}

// ComputeEnd derives the end timestamp from the scheduled start and duration.
func (d *Definition) ComputeEnd() time.Time {
	return d.StartsAt.Add(time.Duration(d.DurationMinutes) * time.Minute)
}

// RefreshEnd recomputes the derived end timestamp while the definition is
// still a draft. The value freezes at publish.
func (d *Definition) RefreshEnd() {
	if d.Status != StatusDraft {
		return
	}
	end := d.ComputeEnd()
	d.EndsAt = &end
}

// QuestionByID returns the question with the given ID, if present.
func (d *Definition) QuestionByID(id uuid.UUID) (*Question, bool) {
	for i := range d.Questions {
		if d.Questions[i].ID == id {
			return &d.Questions[i], true
		}
	}
	return nil, false
}
