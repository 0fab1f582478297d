package exam

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/google/uuid"
)

func shuffleDefinition(n int) *Definition {
	questions := make([]Question, n)
	for i := range questions {
		q := newQuestion(1, LabelB)
		q.Prompt = fmt.Sprintf("question %d", i+1)
		questions[i] = q
	}
	def := newDefinition(n, questions...)
	def.ShuffleQuestions = true
	return def
}

func orderOf(m *Materialized) []uuid.UUID {
	ids := make([]uuid.UUID, len(m.Questions))
	for i, q := range m.Questions {
		ids[i] = q.ID
	}
	return ids
}

func TestMaterialize_NoShuffleKeepsAuthoredOrder(t *testing.T) {
	def := shuffleDefinition(6)
	def.ShuffleQuestions = false

	m := Materialize(def, "student-1")
	for i := range def.Questions {
		if m.Questions[i].ID != def.Questions[i].ID {
			t.Fatalf("position %d reordered without shuffle", i)
		}
	}
	if len(m.LabelMaps) != 0 {
		t.Fatalf("no label maps expected, got %d", len(m.LabelMaps))
	}
}

func TestMaterialize_DeterministicPerStudent(t *testing.T) {
	def := shuffleDefinition(12)

	first := Materialize(def, "student-1")
	second := Materialize(def, "student-1")
	if !reflect.DeepEqual(orderOf(first), orderOf(second)) {
		t.Fatal("same student must always see the same order")
	}
}

func TestMaterialize_DifferentStudentsDifferentOrders(t *testing.T) {
	def := shuffleDefinition(30)

	a := Materialize(def, "student-1")
	b := Materialize(def, "student-2")
	if reflect.DeepEqual(orderOf(a), orderOf(b)) {
		t.Fatal("distinct students should see distinct orders")
	}
}

func TestMaterialize_PermutationContainsEveryQuestion(t *testing.T) {
	def := shuffleDefinition(10)

	m := Materialize(def, "student-1")
	seen := make(map[uuid.UUID]bool, len(m.Questions))
	for _, q := range m.Questions {
		seen[q.ID] = true
	}
	for _, q := range def.Questions {
		if !seen[q.ID] {
			t.Fatalf("question %s missing from materialized view", q.ID)
		}
	}
}

func TestMaterialize_OptionShufflePreservesCorrectness(t *testing.T) {
	def := shuffleDefinition(8)
	def.ShuffleOptions = true

	m := Materialize(def, "student-7")

	for _, delivered := range m.Questions {
		authored, ok := def.QuestionByID(delivered.ID)
		if !ok {
			t.Fatalf("unknown question %s", delivered.ID)
		}
		authoredCorrect, _ := authored.OptionByLabel(authored.CorrectLabel)

		// The displayed correct label must point at the same text.
		displayedCorrect, ok := delivered.OptionByLabel(delivered.CorrectLabel)
		if !ok || displayedCorrect.Text != authoredCorrect.Text {
			t.Fatalf("correctness did not travel with the text: %q vs %q",
				displayedCorrect.Text, authoredCorrect.Text)
		}

		// A student selecting the displayed correct label is graded correct
		// after canonicalization.
		canonical := m.CanonicalLabel(delivered.ID, delivered.CorrectLabel)
		if canonical != authored.CorrectLabel {
			t.Fatalf("canonical label %s, want %s", canonical, authored.CorrectLabel)
		}
	}
}

func TestMaterialize_OptionShuffleGradesCorrectly(t *testing.T) {
	def := shuffleDefinition(5)
	def.ShuffleOptions = true

	m := Materialize(def, "student-3")

	// Student picks the displayed option whose text matches the authored
	// correct answer on every question.
	answers := make([]Answer, 0, len(m.Questions))
	for _, delivered := range m.Questions {
		answers = append(answers, Answer{
			QuestionID: delivered.ID,
			Selected:   m.CanonicalLabel(delivered.ID, delivered.CorrectLabel),
		})
	}

	res, warnings := Grade(def, Submission{
		ExamID:    def.ID,
		StudentID: "student-3",
		Answers:   answers,
	})
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if res.CorrectCount != len(def.Questions) {
		t.Fatalf("expected %d correct, got %d", len(def.Questions), res.CorrectCount)
	}
}

func TestCanonicalLabel_IdentityWithoutMaps(t *testing.T) {
	def := shuffleDefinition(3)
	def.ShuffleQuestions = false

	m := Materialize(def, "student-1")
	if got := m.CanonicalLabel(def.Questions[0].ID, LabelC); got != LabelC {
		t.Fatalf("expected identity mapping, got %s", got)
	}
	if got := m.CanonicalLabel(def.Questions[0].ID, ""); got != "" {
		t.Fatalf("blank must pass through, got %q", got)
	}
}
