package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/okulpanel/sinav-backend/internal/exam"
)

// CreateExamRequest is the payload for creating a new draft exam.
type CreateExamRequest struct {
	Title                 string    `json:"title" binding:"required,min=3,max=255"`
	Subject               string    `json:"subject" binding:"required,min=2,max=100"`
	DurationMinutes       int       `json:"duration_minutes" binding:"required,min=1,max=480"`
	StartsAt              time.Time `json:"starts_at" binding:"required"`
	MaxScore              int       `json:"max_score" binding:"required,min=1,max=1000"`
	ShuffleQuestions      bool      `json:"shuffle_questions"`
	ShuffleOptions        bool      `json:"shuffle_options"`
	AllowBacktrack        *bool     `json:"allow_backtrack" binding:"omitempty"`
	ShowResultAfterSubmit bool      `json:"show_result_after_submit"`
}

// UpdateExamRequest is the payload for updating a draft exam.
type UpdateExamRequest struct {
	Title                 string     `json:"title" binding:"omitempty,min=3,max=255"`
	Subject               string     `json:"subject" binding:"omitempty,min=2,max=100"`
	DurationMinutes       *int       `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	StartsAt              *time.Time `json:"starts_at" binding:"omitempty"`
	MaxScore              *int       `json:"max_score" binding:"omitempty,min=1,max=1000"`
	ShuffleQuestions      *bool      `json:"shuffle_questions" binding:"omitempty"`
	ShuffleOptions        *bool      `json:"shuffle_options" binding:"omitempty"`
	AllowBacktrack        *bool      `json:"allow_backtrack" binding:"omitempty"`
	ShowResultAfterSubmit *bool      `json:"show_result_after_submit" binding:"omitempty"`
}

// OptionPayload is one option slot in an authoring request.
type OptionPayload struct {
	Label string `json:"label" binding:"required,oneof=A B C D E"`
	Text  string `json:"text" binding:"max=1000"`
}

// AddQuestionRequest is the payload for adding a question to a draft exam.
type AddQuestionRequest struct {
	Prompt       string          `json:"prompt" binding:"required,min=1,max=2000"`
	Points       int             `json:"points" binding:"required,min=1"`
	Options      []OptionPayload `json:"options" binding:"required,min=2,max=5,dive"`
	CorrectLabel string          `json:"correct_label" binding:"required,oneof=A B C D E"`
}

// ReplaceQuestionsRequest bulk replaces a draft exam's question pool.
type ReplaceQuestionsRequest struct {
	Questions []AddQuestionRequest `json:"questions" binding:"required,dive"`
}

// Question converts the request into an engine question. All five slots are
// initialized with their labels so empty ones stay addressable.
func (r *AddQuestionRequest) Question() exam.Question {
	q := exam.Question{
		ID:           uuid.New(),
		Prompt:       r.Prompt,
		Points:       r.Points,
		CorrectLabel: exam.OptionLabel(r.CorrectLabel),
	}
	for i, label := range exam.Labels {
		q.Options[i] = exam.Option{Label: label}
	}
	for _, o := range r.Options {
		for i := range q.Options {
			if q.Options[i].Label == exam.OptionLabel(o.Label) {
				q.Options[i].Text = o.Text
			}
		}
	}
	return q
}

// QuestionForStudent is a question without the correct label, sent to students.
type QuestionForStudent struct {
	ID      uuid.UUID                     `json:"id"`
	Prompt  string                        `json:"prompt"`
	Points  int                           `json:"points"`
	Options [exam.OptionSlots]exam.Option `json:"options"`
}

// ExamPaper is the Redis-cached per-student delivery payload: materialized
// question order, no answer key.
type ExamPaper struct {
	ExamID          uuid.UUID            `json:"exam_id"`
	Title           string               `json:"title"`
	Subject         string               `json:"subject"`
	DurationMinutes int                  `json:"duration_minutes"`
	AllowBacktrack  bool                 `json:"allow_backtrack"`
	Questions       []QuestionForStudent `json:"questions"`
}
