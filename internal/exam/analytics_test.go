package exam

import (
	"encoding/json"
	"math"
	"testing"
)

// resultWith builds a minimal graded result for aggregate-level tests.
func resultWith(studentID string, score, minutes int) Result {
	return Result{StudentID: studentID, TotalScore: score, TimeSpentMinutes: minutes}
}

func TestAnalyze_FourStudents(t *testing.T) {
	def := newDefinition(100, newQuestion(100, LabelB))

	results := []Result{
		resultWith("s-90", 90, 30),
		resultWith("s-70a", 70, 25),
		resultWith("s-70b", 70, 25), // tied on score and time
		resultWith("s-40", 40, 50),
	}

	report := Analyze(def, results)

	s := report.Summary
	if s.Participants != 4 {
		t.Fatalf("participants %d, want 4", s.Participants)
	}
	if s.PassCount != 3 || s.PassRate != 75 {
		t.Fatalf("pass count/rate %d/%.1f, want 3/75", s.PassCount, s.PassRate)
	}
	if s.MeanScore != 67.5 {
		t.Fatalf("mean %.2f, want 67.5", s.MeanScore)
	}
	if s.MedianScore != 70 {
		t.Fatalf("median %.2f, want 70", s.MedianScore)
	}
	if s.MinScore != 40 || s.MaxScore != 90 {
		t.Fatalf("min/max %d/%d, want 40/90", s.MinScore, s.MaxScore)
	}

	wantRanks := []int{1, 2, 2, 4}
	if len(report.Leaderboard) != 4 {
		t.Fatalf("leaderboard size %d", len(report.Leaderboard))
	}
	for i, want := range wantRanks {
		if report.Leaderboard[i].Rank != want {
			t.Fatalf("rank[%d] = %d, want %d", i, report.Leaderboard[i].Rank, want)
		}
	}
}

func TestAnalyze_TieBrokenByTimeSpent(t *testing.T) {
	def := newDefinition(100, newQuestion(100, LabelB))
	results := []Result{
		resultWith("slow", 70, 40),
		resultWith("fast", 70, 20),
		resultWith("top", 90, 35),
	}

	report := Analyze(def, results)
	lb := report.Leaderboard

	if lb[0].StudentID != "top" || lb[0].Rank != 1 {
		t.Fatalf("expected top first, got %+v", lb[0])
	}
	if lb[1].StudentID != "fast" || lb[1].Rank != 2 {
		t.Fatalf("faster completion ranks higher, got %+v", lb[1])
	}
	if lb[2].StudentID != "slow" || lb[2].Rank != 3 {
		t.Fatalf("expected slow third with rank 3, got %+v", lb[2])
	}
}

func TestAnalyze_Histogram(t *testing.T) {
	def := newDefinition(100, newQuestion(100, LabelB))
	results := []Result{
		resultWith("a", 90, 1),  // 81-100
		resultWith("b", 70, 1),  // 61-80
		resultWith("c", 70, 2),  // 61-80
		resultWith("d", 40, 1),  // 21-40
		resultWith("e", 0, 1),   // 0-20
		resultWith("f", 100, 1), // 81-100
	}

	report := Analyze(def, results)
	wantCounts := []int{1, 1, 0, 2, 2}
	if len(report.Histogram) != len(wantCounts) {
		t.Fatalf("bucket count %d", len(report.Histogram))
	}
	for i, want := range wantCounts {
		if report.Histogram[i].Count != want {
			t.Fatalf("bucket %d-%d count %d, want %d",
				report.Histogram[i].RangeLo, report.Histogram[i].RangeHi,
				report.Histogram[i].Count, want)
		}
	}
}

func TestAnalyze_QuestionStats(t *testing.T) {
	q := newQuestion(10, LabelB)
	def := newDefinition(10, q)

	// 10 participants: 8 correct, 1 incorrect (picked A), 1 blank.
	var results []Result
	for i := 0; i < 8; i++ {
		sub := Submission{ExamID: def.ID, StudentID: "c", Answers: []Answer{{QuestionID: q.ID, Selected: LabelB}}}
		r, _ := Grade(def, sub)
		results = append(results, *r)
	}
	wrong, _ := Grade(def, Submission{ExamID: def.ID, StudentID: "w", Answers: []Answer{{QuestionID: q.ID, Selected: LabelA}}})
	blank, _ := Grade(def, Submission{ExamID: def.ID, StudentID: "b"})
	results = append(results, *wrong, *blank)

	report := Analyze(def, results)
	qs := report.Questions[0]

	if qs.CorrectCount != 8 || qs.IncorrectCount != 1 || qs.BlankCount != 1 {
		t.Fatalf("counts %d/%d/%d, want 8/1/1", qs.CorrectCount, qs.IncorrectCount, qs.BlankCount)
	}
	if qs.CorrectRate != 80 {
		t.Fatalf("correct rate %.1f, want 80", qs.CorrectRate)
	}
	if qs.Difficulty != DifficultyEasy {
		t.Fatalf("difficulty %s, want EASY", qs.Difficulty)
	}

	// Option percentages run over the 9 non-blank respondents.
	for _, oc := range qs.Options {
		switch oc.Label {
		case LabelB:
			if oc.Count != 8 || math.Abs(oc.Percent-float64(8)/9*100) > 1e-9 {
				t.Fatalf("label B: %d / %.4f", oc.Count, oc.Percent)
			}
		case LabelA:
			if oc.Count != 1 {
				t.Fatalf("label A count %d, want 1", oc.Count)
			}
		default:
			if oc.Count != 0 {
				t.Fatalf("label %s count %d, want 0", oc.Label, oc.Count)
			}
		}
	}
}

func TestAnalyze_DifficultyBoundaries(t *testing.T) {
	tests := []struct {
		correct, total int
		want           Difficulty
	}{
		{7, 10, DifficultyEasy},   // 70
		{69, 100, DifficultyMedium},
		{4, 10, DifficultyMedium}, // 40
		{39, 100, DifficultyHard},
		{0, 10, DifficultyHard},
	}

	for _, tc := range tests {
		q := newQuestion(10, LabelB)
		def := newDefinition(10, q)

		var results []Result
		for i := 0; i < tc.total; i++ {
			selected := LabelA
			if i < tc.correct {
				selected = LabelB
			}
			r, _ := Grade(def, Submission{ExamID: def.ID, StudentID: "s", Answers: []Answer{{QuestionID: q.ID, Selected: selected}}})
			results = append(results, *r)
		}

		report := Analyze(def, results)
		if got := report.Questions[0].Difficulty; got != tc.want {
			t.Fatalf("%d/%d: difficulty %s, want %s", tc.correct, tc.total, got, tc.want)
		}
	}
}

func TestAnalyze_EmptyResults(t *testing.T) {
	def := newDefinition(10, newQuestion(10, LabelB))
	report := Analyze(def, nil)

	if !report.Summary.InsufficientData {
		t.Fatal("expected insufficient-data marker")
	}
	if report.Summary.PassRate != 0 || report.Summary.MeanScore != 0 {
		t.Fatal("empty input must yield zeroed aggregates, not NaN")
	}
	if report.Questions[0].Difficulty != DifficultyUndetermined {
		t.Fatalf("difficulty %s, want UNDETERMINED", report.Questions[0].Difficulty)
	}
	if len(report.Leaderboard) != 0 {
		t.Fatal("leaderboard must be empty")
	}

	// The report must serialize without NaN or Inf.
	if _, err := json.Marshal(report); err != nil {
		t.Fatalf("report not serializable: %v", err)
	}
}

func TestAnalyze_Rerunnable(t *testing.T) {
	def := newDefinition(100, newQuestion(100, LabelB))
	results := []Result{resultWith("a", 80, 10), resultWith("b", 30, 12)}

	first := Analyze(def, results)

	// A late submission lands; re-running simply yields the new report.
	late := append(results, resultWith("c", 55, 9))
	second := Analyze(def, late)

	if first.Summary.Participants != 2 || second.Summary.Participants != 3 {
		t.Fatalf("participants %d then %d", first.Summary.Participants, second.Summary.Participants)
	}
	if second.Summary.PassCount != 2 {
		t.Fatalf("pass count %d, want 2", second.Summary.PassCount)
	}
}
