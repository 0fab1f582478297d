package exam

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand"

	"github.com/google/uuid"
)

// Materialized is the per-student delivery view of an exam: the question
// order (and option order, when enabled) a given student sees. The same
// (exam, student) pair always materializes identically, so reopening a
// session shows the same paper.
type Materialized struct {
	Questions []Question

	// LabelMaps translates a displayed option label back to the authored
	// label, per question. Only populated for questions whose options were
	// permuted; absent entries mean the identity mapping.
	LabelMaps map[uuid.UUID]map[OptionLabel]OptionLabel
}

// Materialize builds the delivery view of def for one student. With both
// shuffle flags off this is the authored order unchanged. Shuffling never
// alters which answer is correct: the correct label travels with the option
// text, and LabelMaps lets the caller translate selections back to the
// authored labels grading runs against.
func Materialize(def *Definition, studentID string) *Materialized {
	m := &Materialized{
		Questions: make([]Question, len(def.Questions)),
		LabelMaps: make(map[uuid.UUID]map[OptionLabel]OptionLabel),
	}
	copy(m.Questions, def.Questions)

	if !def.ShuffleQuestions && !def.ShuffleOptions {
		return m
	}

	r := rand.New(rand.NewSource(seedFor(def.ID, studentID)))

	if def.ShuffleQuestions {
		r.Shuffle(len(m.Questions), func(i, j int) {
			m.Questions[i], m.Questions[j] = m.Questions[j], m.Questions[i]
		})
	}

	if def.ShuffleOptions {
		for i := range m.Questions {
			if labelMap := shuffleOptions(r, &m.Questions[i]); labelMap != nil {
				m.LabelMaps[m.Questions[i].ID] = labelMap
			}
		}
	}

	return m
}

// CanonicalLabel translates a label selected against this materialized view
// into the authored label. Blank selections pass through unchanged.
func (m *Materialized) CanonicalLabel(questionID uuid.UUID, selected OptionLabel) OptionLabel {
	if selected == "" {
		return selected
	}
	if labelMap, ok := m.LabelMaps[questionID]; ok {
		if authored, ok := labelMap[selected]; ok {
			return authored
		}
	}
	return selected
}

// seedFor derives the stable per-student seed from the exam and student
// identities, so different students see different orders but one student
// always sees the same one.
func seedFor(examID uuid.UUID, studentID string) int64 {
	sum := sha256.Sum256([]byte(examID.String() + ":" + studentID))
	return int64(binary.BigEndian.Uint64(sum[:8]))
}

// shuffleOptions permutes the non-empty option slots of q in place and
// re-labels the correct option so correctness follows the text. Returns the
// displayed-to-authored label map, or nil when nothing moved.
func shuffleOptions(r *rand.Rand, q *Question) map[OptionLabel]OptionLabel {
	var filled []Option
	for _, o := range q.Options {
		if !o.Empty() {
			filled = append(filled, o)
		}
	}
	if len(filled) < 2 {
		return nil
	}

	r.Shuffle(len(filled), func(i, j int) {
		filled[i], filled[j] = filled[j], filled[i]
	})

	labelMap := make(map[OptionLabel]OptionLabel, len(filled))
	authoredCorrect := q.CorrectLabel

	var options [OptionSlots]Option
	for i, label := range Labels {
		if i < len(filled) {
			labelMap[label] = filled[i].Label
			if filled[i].Label == authoredCorrect {
				q.CorrectLabel = label
			}
			options[i] = Option{Label: label, Text: filled[i].Text}
		} else {
			options[i] = Option{Label: label}
		}
	}
	q.Options = options

	return labelMap
}
