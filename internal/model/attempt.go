package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates the states of a student's exam attempt.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "IN_PROGRESS"
	AttemptStatusSubmitted  AttemptStatus = "SUBMITTED"
)

// Attempt represents a student's attempt at an exam. A student gets at most
// one attempt per exam.
type Attempt struct {
	ID         int           `json:"id"`
	ExamID     uuid.UUID     `json:"exam_id"`
	StudentID  int           `json:"student_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	Status     AttemptStatus `json:"status"`
	TotalScore *int          `json:"total_score,omitempty"`
}

// SubmittedAnswer is one answer in a submission or autosave payload. Labels
// are as displayed to the student; the delivery layer canonicalizes them.
type SubmittedAnswer struct {
	QuestionID string `json:"question_id" binding:"required,uuid"`
	Selected   string `json:"selected" binding:"omitempty,oneof=A B C D E"`
}

// SubmitExamRequest is the payload for final submission of an attempt.
type SubmitExamRequest struct {
	Answers []SubmittedAnswer `json:"answers" binding:"dive"`
}

// AutosaveRequest is the payload for saving in-progress answers.
type AutosaveRequest struct {
	Answers []SubmittedAnswer `json:"answers" binding:"required,dive"`
}

// AttemptState is returned when a student resumes an in-progress attempt.
type AttemptState struct {
	ExamID           uuid.UUID         `json:"exam_id"`
	StudentID        int               `json:"student_id"`
	StartedAt        time.Time         `json:"started_at"`
	RemainingSeconds int               `json:"remaining_seconds"`
	SavedAnswers     map[string]string `json:"saved_answers"`
}
