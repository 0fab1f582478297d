package exam

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestGrade_MixedAnswers(t *testing.T) {
	q1 := newQuestion(10, LabelB)
	q2 := newQuestion(10, LabelA)
	q3 := newQuestion(5, LabelC)
	def := newDefinition(25, q1, q2, q3)

	sub := Submission{
		ExamID:    def.ID,
		StudentID: "2041",
		Answers: []Answer{
			{QuestionID: q1.ID, Selected: LabelB}, // correct
			{QuestionID: q2.ID, Selected: LabelC}, // incorrect
			// q3 left blank
		},
	}

	res, warnings := Grade(def, sub)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if res.TotalScore != 10 {
		t.Fatalf("expected total 10, got %d", res.TotalScore)
	}
	if res.CorrectCount != 1 || res.IncorrectCount != 1 || res.BlankCount != 1 {
		t.Fatalf("expected counts 1/1/1, got %d/%d/%d",
			res.CorrectCount, res.IncorrectCount, res.BlankCount)
	}
}

func TestGrade_CountsSumToQuestionCount(t *testing.T) {
	def := newDefinition(40,
		newQuestion(10, LabelA), newQuestion(10, LabelB),
		newQuestion(10, LabelC), newQuestion(10, LabelA))

	tests := []struct {
		name    string
		answers []Answer
	}{
		{"no answers", nil},
		{"all answered", []Answer{
			{QuestionID: def.Questions[0].ID, Selected: LabelA},
			{QuestionID: def.Questions[1].ID, Selected: LabelA},
			{QuestionID: def.Questions[2].ID, Selected: LabelC},
			{QuestionID: def.Questions[3].ID, Selected: LabelE},
		}},
		{"partially answered", []Answer{
			{QuestionID: def.Questions[1].ID, Selected: LabelB},
		}},
		{"explicit blanks", []Answer{
			{QuestionID: def.Questions[0].ID, Selected: ""},
			{QuestionID: def.Questions[2].ID, Selected: LabelB},
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, _ := Grade(def, Submission{ExamID: def.ID, StudentID: "s", Answers: tc.answers})
			sum := res.CorrectCount + res.IncorrectCount + res.BlankCount
			if sum != len(def.Questions) {
				t.Fatalf("counts sum %d, want %d", sum, len(def.Questions))
			}
			if len(res.Details) != len(def.Questions) {
				t.Fatalf("details %d, want %d", len(res.Details), len(def.Questions))
			}
		})
	}
}

func TestGrade_Idempotent(t *testing.T) {
	def := newDefinition(20, newQuestion(10, LabelB), newQuestion(10, LabelA))
	sub := Submission{
		ExamID:     def.ID,
		StudentID:  "2041",
		StartedAt:  time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 3, 2, 9, 33, 0, 0, time.UTC),
		Answers: []Answer{
			{QuestionID: def.Questions[0].ID, Selected: LabelB},
			{QuestionID: def.Questions[1].ID, Selected: LabelE},
		},
	}

	first, _ := Grade(def, sub)
	for i := 0; i < 5; i++ {
		again, _ := Grade(def, sub)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d diverged: %+v vs %+v", i, first, again)
		}
	}
	if first.TimeSpentMinutes != 33 {
		t.Fatalf("expected 33 minutes spent, got %d", first.TimeSpentMinutes)
	}
}

func TestGrade_UnknownQuestionDropped(t *testing.T) {
	def := newDefinition(10, newQuestion(10, LabelB))
	stale := uuid.New()

	sub := Submission{
		ExamID:    def.ID,
		StudentID: "2041",
		Answers: []Answer{
			{QuestionID: stale, Selected: LabelA},
			{QuestionID: def.Questions[0].ID, Selected: LabelB},
		},
	}

	res, warnings := Grade(def, sub)
	if len(warnings) != 1 || warnings[0].QuestionID != stale {
		t.Fatalf("expected one warning for %s, got %v", stale, warnings)
	}
	// Grading still completes for the rest.
	if res.TotalScore != 10 || res.CorrectCount != 1 {
		t.Fatalf("expected score 10 with 1 correct, got %d with %d", res.TotalScore, res.CorrectCount)
	}
}

func TestGrade_NoNegativeMarking(t *testing.T) {
	def := newDefinition(20, newQuestion(10, LabelB), newQuestion(10, LabelA))
	sub := Submission{
		ExamID:    def.ID,
		StudentID: "2041",
		Answers: []Answer{
			{QuestionID: def.Questions[0].ID, Selected: LabelC},
			{QuestionID: def.Questions[1].ID, Selected: LabelC},
		},
	}

	res, _ := Grade(def, sub)
	if res.TotalScore != 0 {
		t.Fatalf("wrong answers must award zero, got %d", res.TotalScore)
	}
	for _, d := range res.Details {
		if d.PointsAwarded != 0 {
			t.Fatalf("detail awarded %d for an incorrect answer", d.PointsAwarded)
		}
	}
}

func TestGrade_TimeSpentNeverNegative(t *testing.T) {
	def := newDefinition(10, newQuestion(10, LabelB))
	sub := Submission{
		ExamID:     def.ID,
		StudentID:  "2041",
		StartedAt:  time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), // clock skew
	}
	res, _ := Grade(def, sub)
	if res.TimeSpentMinutes != 0 {
		t.Fatalf("expected 0 minutes on skewed clocks, got %d", res.TimeSpentMinutes)
	}
}
