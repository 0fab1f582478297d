package exam

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

// newQuestion builds a valid three-option question used across the package
// tests.
func newQuestion(points int, correct OptionLabel) Question {
	return Question{
		ID:     uuid.New(),
		Prompt: "What is the capital of Australia?",
		Points: points,
		Options: [OptionSlots]Option{
			{Label: LabelA, Text: "Sydney"},
			{Label: LabelB, Text: "Canberra"},
			{Label: LabelC, Text: "Melbourne"},
			{Label: LabelD},
			{Label: LabelE},
		},
		CorrectLabel: correct,
	}
}

// newDefinition builds a draft definition with the given questions.
func newDefinition(maxScore int, questions ...Question) *Definition {
	return &Definition{
		ID:              uuid.New(),
		Title:           "Midterm",
		Subject:         "Geography",
		TeacherID:       1,
		DurationMinutes: 40,
		StartsAt:        time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		MaxScore:        maxScore,
		Status:          StatusDraft,
		Questions:       questions,
	}
}

func findCode(errs ValidationErrors, code ValidationCode) *ValidationError {
	for i := range errs {
		if errs[i].Code == code {
			return &errs[i]
		}
	}
	return nil
}

func TestValidate_OK(t *testing.T) {
	def := newDefinition(20, newQuestion(10, LabelB), newQuestion(10, LabelA))
	if errs := Validate(def); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestValidate_TitleRequired(t *testing.T) {
	def := newDefinition(20, newQuestion(10, LabelB))
	def.Title = "   "
	errs := Validate(def)
	if findCode(errs, CodeTitleRequired) == nil {
		t.Fatalf("expected TITLE_REQUIRED, got %v", errs)
	}
}

func TestValidate_NoQuestions(t *testing.T) {
	def := newDefinition(20)
	errs := Validate(def)
	if findCode(errs, CodeNoQuestions) == nil {
		t.Fatalf("expected NO_QUESTIONS, got %v", errs)
	}
}

func TestValidate_PointBudgetExceeded(t *testing.T) {
	def := newDefinition(15, newQuestion(10, LabelB), newQuestion(10, LabelA))
	errs := Validate(def)
	ve := findCode(errs, CodePointBudgetExceeded)
	if ve == nil {
		t.Fatalf("expected POINT_BUDGET_EXCEEDED, got %v", errs)
	}
	if ve.TotalPoints != 20 || ve.MaxScore != 15 {
		t.Fatalf("expected total=20 max=15, got total=%d max=%d", ve.TotalPoints, ve.MaxScore)
	}
}

func TestValidate_InvalidQuestions(t *testing.T) {
	blankPrompt := newQuestion(5, LabelA)
	blankPrompt.Prompt = " "

	zeroPoints := newQuestion(0, LabelA)

	oneOption := newQuestion(5, LabelA)
	oneOption.Options[1].Text = ""
	oneOption.Options[2].Text = ""

	emptyCorrect := newQuestion(5, LabelD) // slot D has no text

	bogusLabel := newQuestion(5, OptionLabel("F"))

	tests := []struct {
		name string
		q    Question
	}{
		{"blank prompt", blankPrompt},
		{"non-positive points", zeroPoints},
		{"fewer than two options", oneOption},
		{"correct label on empty slot", emptyCorrect},
		{"correct label outside A-E", bogusLabel},
	}

	for i, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			def := newDefinition(100, tc.q)
			errs := Validate(def)
			ve := findCode(errs, CodeInvalidQuestion)
			if ve == nil {
				t.Fatalf("expected INVALID_QUESTION, got %v", errs)
			}
			if ve.QuestionIndex != 0 {
				t.Fatalf("case %d: expected index 0, got %d", i, ve.QuestionIndex)
			}
			if ve.Reason == "" {
				t.Fatal("expected a reason")
			}
		})
	}
}

func TestCheckAddQuestion_BudgetGate(t *testing.T) {
	def := newDefinition(25, newQuestion(10, LabelB), newQuestion(10, LabelA))

	// Fits exactly.
	if err := CheckAddQuestion(def, newQuestion(5, LabelC)); err != nil {
		t.Fatalf("expected add to pass, got %v", err)
	}

	// Overflows: must report the would-be total.
	err := CheckAddQuestion(def, newQuestion(6, LabelC))
	if err == nil {
		t.Fatal("expected budget overflow")
	}
	ve, ok := err.(ValidationError)
	if !ok || ve.Code != CodePointBudgetExceeded {
		t.Fatalf("expected POINT_BUDGET_EXCEEDED, got %v", err)
	}
	if ve.TotalPoints != 26 || ve.MaxScore != 25 {
		t.Fatalf("expected would-be total 26 vs max 25, got %d vs %d", ve.TotalPoints, ve.MaxScore)
	}

	// The gate never mutates the definition.
	if got := def.TotalPoints(); got != 20 {
		t.Fatalf("definition mutated: total is %d", got)
	}
}

func TestCheckAddQuestion_RejectsInvalidQuestion(t *testing.T) {
	def := newDefinition(100)
	bad := newQuestion(-1, LabelA)
	if err := CheckAddQuestion(def, bad); err == nil {
		t.Fatal("expected invalid question to be rejected")
	}
}

func TestCheckReplaceQuestions(t *testing.T) {
	def := newDefinition(30, newQuestion(30, LabelA))

	// A valid pool replaces the old one regardless of the old total.
	pool := []Question{newQuestion(10, LabelB), newQuestion(20, LabelC)}
	if errs := CheckReplaceQuestions(def, pool); len(errs) != 0 {
		t.Fatalf("expected clean replacement, got %v", errs)
	}

	// Emptying the pool is fine while the exam is still being drafted.
	if errs := CheckReplaceQuestions(def, nil); len(errs) != 0 {
		t.Fatalf("expected empty pool to pass, got %v", errs)
	}

	// A pool over budget reports the candidate total, not the current one.
	over := []Question{newQuestion(25, LabelB), newQuestion(10, LabelC)}
	errs := CheckReplaceQuestions(def, over)
	ve := findCode(errs, CodePointBudgetExceeded)
	if ve == nil {
		t.Fatalf("expected POINT_BUDGET_EXCEEDED, got %v", errs)
	}
	if ve.TotalPoints != 35 || ve.MaxScore != 30 {
		t.Fatalf("expected total=35 max=30, got total=%d max=%d", ve.TotalPoints, ve.MaxScore)
	}

	// Bad questions and budget overflow are both reported in one pass.
	bad := newQuestion(25, LabelB)
	bad.Prompt = ""
	mixed := CheckReplaceQuestions(def, []Question{bad, newQuestion(10, LabelC)})
	if findCode(mixed, CodeInvalidQuestion) == nil || findCode(mixed, CodePointBudgetExceeded) == nil {
		t.Fatalf("expected both error codes, got %v", mixed)
	}
}

// Budget invariant: after a random sequence of accepted adds, the total
// never exceeds the maximum score.
func TestPointBudget_HeldAcrossMutations(t *testing.T) {
	def := newDefinition(50)
	points := []int{7, 13, 9, 21, 11, 4, 30, 2}

	for _, p := range points {
		q := newQuestion(p, LabelB)
		if err := CheckAddQuestion(def, q); err != nil {
			continue // rejected adds never land
		}
		def.Questions = append(def.Questions, q)
		if total := def.TotalPoints(); total > def.MaxScore {
			t.Fatalf("budget violated: %d > %d", total, def.MaxScore)
		}
	}

	if errs := Validate(def); findCode(errs, CodePointBudgetExceeded) != nil {
		t.Fatalf("budget error after gated adds: %v", errs)
	}
}
