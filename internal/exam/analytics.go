package exam

import (
	"sort"

	"github.com/google/uuid"
)

// PassThresholdRatio is the fraction of the maximum score a student must
// reach to count as passed.
const PassThresholdRatio = 0.5

// Difficulty is the discrete classification derived from a question's
// observed correct-rate.
type Difficulty string

const (
	DifficultyEasy         Difficulty = "EASY"
	DifficultyMedium       Difficulty = "MEDIUM"
	DifficultyHard         Difficulty = "HARD"
	DifficultyUndetermined Difficulty = "UNDETERMINED"
)

// histogramEdges defines the fixed score-percentage buckets. Configuration
// constants, never derived from the data.
var histogramEdges = [...]struct{ Lo, Hi int }{
	{0, 20}, {21, 40}, {41, 60}, {61, 80}, {81, 100},
}

// Summary holds the aggregate statistics of one exam's results.
// InsufficientData is set instead of dividing by zero when no results exist.
type Summary struct {
	Participants     int     `json:"participants"`
	MeanScore        float64 `json:"mean_score"`
	MedianScore      float64 `json:"median_score"`
	MinScore         int     `json:"min_score"`
	MaxScore         int     `json:"max_score"`
	PassCount        int     `json:"pass_count"`
	PassRate         float64 `json:"pass_rate"`
	InsufficientData bool    `json:"insufficient_data,omitempty"`
}

// HistogramBucket is one fixed-width percentage range with its count.
type HistogramBucket struct {
	RangeLo int `json:"range_lo"`
	RangeHi int `json:"range_hi"`
	Count   int `json:"count"`
}

// OptionCount is the selection tally for one option slot. Percent is taken
// over non-blank respondents only; blanks are tracked separately.
type OptionCount struct {
	Label   OptionLabel `json:"label"`
	Count   int         `json:"count"`
	Percent float64     `json:"percent"`
}

// QuestionStats is the per-question analysis block.
type QuestionStats struct {
	QuestionID     uuid.UUID                `json:"question_id"`
	CorrectCount   int                      `json:"correct_count"`
	IncorrectCount int                      `json:"incorrect_count"`
	BlankCount     int                      `json:"blank_count"`
	CorrectRate    float64                  `json:"correct_rate"`
	Difficulty     Difficulty               `json:"difficulty"`
	Options        [OptionSlots]OptionCount `json:"options"`
}

// LeaderboardEntry is one ranked row. Equal scores are ordered by ascending
// time spent; rows tied on both share a rank and the following rank skips.
type LeaderboardEntry struct {
	Rank             int    `json:"rank"`
	StudentID        string `json:"student_id"`
	TotalScore       int    `json:"total_score"`
	TimeSpentMinutes int    `json:"time_spent_minutes"`
}

// Report is the full analytics output for one exam. A pure aggregation over
// its inputs: re-running Analyze after a late submission simply yields the
// new report, nothing to undo.
type Report struct {
	ExamID      uuid.UUID          `json:"exam_id"`
	Summary     Summary            `json:"summary"`
	Histogram   []HistogramBucket  `json:"histogram"`
	Questions   []QuestionStats    `json:"questions"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

// Analyze aggregates the full set of graded results for one exam. The
// caller supplies a consistent snapshot; results of cancelled exams must
// already be excluded. Safe to re-run at any time.
func Analyze(def *Definition, results []Result) *Report {
	report := &Report{
		ExamID:      def.ID,
		Summary:     summarize(def, results),
		Histogram:   buildHistogram(def, results),
		Questions:   analyzeQuestions(def, results),
		Leaderboard: buildLeaderboard(results),
	}
	return report
}

func summarize(def *Definition, results []Result) Summary {
	s := Summary{Participants: len(results)}
	if len(results) == 0 {
		s.InsufficientData = true
		return s
	}

	scores := make([]int, len(results))
	sum := 0
	s.MinScore = results[0].TotalScore
	s.MaxScore = results[0].TotalScore
	passMark := float64(def.MaxScore) * PassThresholdRatio

	for i, r := range results {
		scores[i] = r.TotalScore
		sum += r.TotalScore
		if r.TotalScore < s.MinScore {
			s.MinScore = r.TotalScore
		}
		if r.TotalScore > s.MaxScore {
			s.MaxScore = r.TotalScore
		}
		if float64(r.TotalScore) >= passMark {
			s.PassCount++
		}
	}

	s.MeanScore = float64(sum) / float64(len(results))
	s.MedianScore = median(scores)
	s.PassRate = float64(s.PassCount) / float64(len(results)) * 100
	return s
}

func median(scores []int) float64 {
	sorted := make([]int, len(scores))
	copy(sorted, scores)
	sort.Ints(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[mid])
	}
	return float64(sorted[mid-1]+sorted[mid]) / 2
}

func buildHistogram(def *Definition, results []Result) []HistogramBucket {
	buckets := make([]HistogramBucket, len(histogramEdges))
	for i, edge := range histogramEdges {
		buckets[i] = HistogramBucket{RangeLo: edge.Lo, RangeHi: edge.Hi}
	}
	if def.MaxScore <= 0 {
		return buckets
	}

	for _, r := range results {
		pct := float64(r.TotalScore) / float64(def.MaxScore) * 100
		for i := range buckets {
			if pct <= float64(buckets[i].RangeHi) || i == len(buckets)-1 {
				buckets[i].Count++
				break
			}
		}
	}
	return buckets
}

func analyzeQuestions(def *Definition, results []Result) []QuestionStats {
	stats := make([]QuestionStats, len(def.Questions))

	for qi := range def.Questions {
		q := &def.Questions[qi]
		qs := QuestionStats{QuestionID: q.ID}
		for i, label := range Labels {
			qs.Options[i].Label = label
		}

		for ri := range results {
			detail, ok := detailFor(&results[ri], q.ID)
			if !ok {
				continue
			}
			switch {
			case detail.Selected == "":
				qs.BlankCount++
			case detail.IsCorrect:
				qs.CorrectCount++
			default:
				qs.IncorrectCount++
			}
			if detail.Selected != "" {
				for i := range qs.Options {
					if qs.Options[i].Label == detail.Selected {
						qs.Options[i].Count++
						break
					}
				}
			}
		}

		if len(results) > 0 {
			qs.CorrectRate = float64(qs.CorrectCount) / float64(len(results)) * 100
		}
		qs.Difficulty = classifyDifficulty(qs.CorrectRate, len(results))

		// Option percentages are taken over non-blank respondents only.
		if responded := qs.CorrectCount + qs.IncorrectCount; responded > 0 {
			for i := range qs.Options {
				qs.Options[i].Percent = float64(qs.Options[i].Count) / float64(responded) * 100
			}
		}

		stats[qi] = qs
	}

	return stats
}

func detailFor(r *Result, questionID uuid.UUID) (*AnswerDetail, bool) {
	for i := range r.Details {
		if r.Details[i].QuestionID == questionID {
			return &r.Details[i], true
		}
	}
	return nil, false
}

func classifyDifficulty(correctRate float64, participants int) Difficulty {
	switch {
	case participants == 0:
		return DifficultyUndetermined
	case correctRate >= 70:
		return DifficultyEasy
	case correctRate >= 40:
		return DifficultyMedium
	default:
		return DifficultyHard
	}
}

func buildLeaderboard(results []Result) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, len(results))
	for i, r := range results {
		entries[i] = LeaderboardEntry{
			StudentID:        r.StudentID,
			TotalScore:       r.TotalScore,
			TimeSpentMinutes: r.TimeSpentMinutes,
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].TotalScore != entries[j].TotalScore {
			return entries[i].TotalScore > entries[j].TotalScore
		}
		if entries[i].TimeSpentMinutes != entries[j].TimeSpentMinutes {
			return entries[i].TimeSpentMinutes < entries[j].TimeSpentMinutes
		}
		return entries[i].StudentID < entries[j].StudentID
	})

	for i := range entries {
		if i > 0 &&
			entries[i].TotalScore == entries[i-1].TotalScore &&
			entries[i].TimeSpentMinutes == entries[i-1].TimeSpentMinutes {
			entries[i].Rank = entries[i-1].Rank
		} else {
			entries[i].Rank = i + 1
		}
	}

	return entries
}
