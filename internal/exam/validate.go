package exam

import (
	"fmt"
	"strings"
)

// ValidationCode identifies a definition-authoring problem.
type ValidationCode string

const (
	CodeTitleRequired       ValidationCode = "TITLE_REQUIRED"
	CodeNoQuestions         ValidationCode = "NO_QUESTIONS"
	CodePointBudgetExceeded ValidationCode = "POINT_BUDGET_EXCEEDED"
	CodeInvalidQuestion     ValidationCode = "INVALID_QUESTION"
)

// ValidationError describes a single authoring problem. Always recoverable:
// the caller fixes the definition and validates again before publish.
type ValidationError struct {
	Code ValidationCode `json:"code"`

	// QuestionIndex is set for INVALID_QUESTION (0-based authoring order).
	QuestionIndex int    `json:"question_index,omitempty"`
	Reason        string `json:"reason,omitempty"`

	// TotalPoints and MaxScore are set for POINT_BUDGET_EXCEEDED.
	TotalPoints int `json:"total_points,omitempty"`
	MaxScore    int `json:"max_score,omitempty"`
}

func (e ValidationError) Error() string {
	switch e.Code {
	case CodePointBudgetExceeded:
		return fmt.Sprintf("point budget exceeded: %d assigned, %d allowed", e.TotalPoints, e.MaxScore)
	case CodeInvalidQuestion:
		return fmt.Sprintf("question %d invalid: %s", e.QuestionIndex+1, e.Reason)
	default:
		return string(e.Code)
	}
}

// ValidationErrors aggregates every problem found in one pass.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks a definition against every authoring rule and returns all
// problems found. Pure; the definition is never modified. An empty slice
// means the definition is publishable.
func Validate(def *Definition) ValidationErrors {
	var errs ValidationErrors

	if strings.TrimSpace(def.Title) == "" {
		errs = append(errs, ValidationError{Code: CodeTitleRequired})
	}

	if len(def.Questions) == 0 {
		errs = append(errs, ValidationError{Code: CodeNoQuestions})
	}

	if total := def.TotalPoints(); total > def.MaxScore {
		errs = append(errs, ValidationError{
			Code:        CodePointBudgetExceeded,
			TotalPoints: total,
			MaxScore:    def.MaxScore,
		})
	}

	for i := range def.Questions {
		if ve := validateQuestion(i, &def.Questions[i]); ve != nil {
			errs = append(errs, *ve)
		}
	}

	return errs
}

// CheckAddQuestion runs the incremental point-budget gate: it validates the
// candidate question and rejects the add when the new total would overflow
// the maximum score, reporting the would-be total.
func CheckAddQuestion(def *Definition, q Question) error {
	if ve := validateQuestion(len(def.Questions), &q); ve != nil {
		return *ve
	}
	if total := def.TotalPoints() + q.Points; total > def.MaxScore {
		return ValidationError{
			Code:        CodePointBudgetExceeded,
			TotalPoints: total,
			MaxScore:    def.MaxScore,
		}
	}
	return nil
}

// CheckReplaceQuestions validates a candidate replacement pool: every
// question must be individually valid and the combined points must fit the
// budget. An empty pool is allowed while drafting; Validate still blocks
// publishing it.
func CheckReplaceQuestions(def *Definition, questions []Question) ValidationErrors {
	var errs ValidationErrors

	total := 0
	for i := range questions {
		total += questions[i].Points
		if ve := validateQuestion(i, &questions[i]); ve != nil {
			errs = append(errs, *ve)
		}
	}
	if total > def.MaxScore {
		errs = append(errs, ValidationError{
			Code:        CodePointBudgetExceeded,
			TotalPoints: total,
			MaxScore:    def.MaxScore,
		})
	}
	return errs
}

func validateQuestion(index int, q *Question) *ValidationError {
	invalid := func(reason string) *ValidationError {
		return &ValidationError{
			Code:          CodeInvalidQuestion,
			QuestionIndex: index,
			Reason:        reason,
		}
	}

	if strings.TrimSpace(q.Prompt) == "" {
		return invalid("prompt is blank")
	}
	if q.Points <= 0 {
		return invalid("point value must be positive")
	}
	if q.SelectableOptions() < 2 {
		return invalid("fewer than two selectable options")
	}
	if !q.CorrectLabel.Valid() {
		return invalid(fmt.Sprintf("correct label %q is not a slot label", q.CorrectLabel))
	}
	opt, ok := q.OptionByLabel(q.CorrectLabel)
	if !ok || opt.Empty() {
		return invalid(fmt.Sprintf("correct label %q points at an empty slot", q.CorrectLabel))
	}
	return nil
}
