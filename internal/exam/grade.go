package exam

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Answer is one recorded selection for one question. An empty Selected
// means the question was left blank. RecordedAt is informational only and
// never affects the score.
type Answer struct {
	QuestionID uuid.UUID   `json:"question_id"`
	Selected   OptionLabel `json:"selected"`
	RecordedAt time.Time   `json:"recorded_at,omitempty"`
}

// Submission is one student's complete answer set for one exam attempt.
// Selected labels must already be canonical (authored) labels; the delivery
// layer translates shuffled views via Materialized.CanonicalLabel first.
type Submission struct {
	ExamID     uuid.UUID `json:"exam_id"`
	StudentID  string    `json:"student_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Answers    []Answer  `json:"answers"`
}

// AnswerDetail is the per-question line of a graded result.
type AnswerDetail struct {
	QuestionID    uuid.UUID   `json:"question_id"`
	Selected      OptionLabel `json:"selected"`
	CorrectLabel  OptionLabel `json:"correct_label"`
	IsCorrect     bool        `json:"is_correct"`
	PointsAwarded int         `json:"points_awarded"`
}

// Result is the scored output of one submission. Derived, never authored:
// regrading the same inputs yields an identical value.
type Result struct {
	ExamID           uuid.UUID      `json:"exam_id"`
	StudentID        string         `json:"student_id"`
	TotalScore       int            `json:"total_score"`
	CorrectCount     int            `json:"correct_count"`
	IncorrectCount   int            `json:"incorrect_count"`
	BlankCount       int            `json:"blank_count"`
	TimeSpentMinutes int            `json:"time_spent_minutes"`
	Details          []AnswerDetail `json:"details"`
}

// Warning reports an answer that was discarded during grading, so the
// caller can log and audit it. Never fatal.
type Warning struct {
	QuestionID uuid.UUID `json:"question_id"`
	Reason     string    `json:"reason"`
}

func (w Warning) String() string {
	return fmt.Sprintf("answer for question %s dropped: %s", w.QuestionID, w.Reason)
}

// Grade scores one submission against the definition. Pure and idempotent:
// no randomness, no hidden state, safe to invoke concurrently for different
// students against the same definition.
//
// Every question in the definition produces exactly one detail line: a
// missing answer is blank (0 points), an exact label match is correct
// (full points), anything else is incorrect (0 points, no negative
// marking). Answers referencing unknown question IDs are dropped and
// reported as warnings.
func Grade(def *Definition, sub Submission) (*Result, []Warning) {
	byQuestion := make(map[uuid.UUID]Answer, len(sub.Answers))
	var warnings []Warning

	for _, a := range sub.Answers {
		if _, ok := def.QuestionByID(a.QuestionID); !ok {
			warnings = append(warnings, Warning{
				QuestionID: a.QuestionID,
				Reason:     "question not part of this exam",
			})
			continue
		}
		byQuestion[a.QuestionID] = a
	}

	res := &Result{
		ExamID:           def.ID,
		StudentID:        sub.StudentID,
		TimeSpentMinutes: timeSpentMinutes(sub),
		Details:          make([]AnswerDetail, 0, len(def.Questions)),
	}

	for i := range def.Questions {
		q := &def.Questions[i]
		detail := AnswerDetail{
			QuestionID:   q.ID,
			CorrectLabel: q.CorrectLabel,
		}

		answer, answered := byQuestion[q.ID]
		switch {
		case !answered || answer.Selected == "":
			res.BlankCount++
		case answer.Selected == q.CorrectLabel:
			detail.Selected = answer.Selected
			detail.IsCorrect = true
			detail.PointsAwarded = q.Points
			res.CorrectCount++
			res.TotalScore += q.Points
		default:
			detail.Selected = answer.Selected
			res.IncorrectCount++
		}

		res.Details = append(res.Details, detail)
	}

	return res, warnings
}

func timeSpentMinutes(sub Submission) int {
	if sub.FinishedAt.IsZero() || sub.StartedAt.IsZero() || sub.FinishedAt.Before(sub.StartedAt) {
		return 0
	}
	return int(sub.FinishedAt.Sub(sub.StartedAt).Minutes())
}
