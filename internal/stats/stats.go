// Package stats derives aggregate statistics over recorded quiz results.
// Everything here is pure and total: empty input yields a "no data" value,
// never an error, so an empty progress screen renders instead of failing.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/driveprep/driveprep/pkg/resultsink"
)

// PassThreshold is the percentage considered a passing practice test.
const PassThreshold = 80

// Count returns the number of recorded attempts.
func Count(results []resultsink.Result) int { return len(results) }

// Average returns the mean percentage rounded to the nearest integer. ok is
// false when there are no results.
func Average(results []resultsink.Result) (avg int, ok bool) {
	if len(results) == 0 {
		return 0, false
	}
	sum := 0
	for _, r := range results {
		sum += r.Percentage
	}
	return int(math.Round(float64(sum) / float64(len(results)))), true
}

// Best returns the highest-percentage attempt.
func Best(results []resultsink.Result) (resultsink.Result, bool) {
	if len(results) == 0 {
		return resultsink.Result{}, false
	}
	best := results[0]
	for _, r := range results[1:] {
		if r.Percentage > best.Percentage {
			best = r
		}
	}
	return best, true
}

// Latest returns the most recent attempt by timestamp.
func Latest(results []resultsink.Result) (resultsink.Result, bool) {
	if len(results) == 0 {
		return resultsink.Result{}, false
	}
	latest := results[0]
	for _, r := range results[1:] {
		if r.Timestamp.After(latest.Timestamp) {
			latest = r
		}
	}
	return latest, true
}

// TrendPoint is one attempt on the recent-trend chart.
type TrendPoint struct {
	Percentage int       `json:"percentage"`
	Timestamp  time.Time `json:"date_taken"`
}

// RecentTrend returns the last n attempts in chronological order.
func RecentTrend(results []resultsink.Result, n int) []TrendPoint {
	sorted := make([]resultsink.Result, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })
	if n > 0 && len(sorted) > n {
		sorted = sorted[len(sorted)-n:]
	}
	out := make([]TrendPoint, len(sorted))
	for i, r := range sorted {
		out[i] = TrendPoint{Percentage: r.Percentage, Timestamp: r.Timestamp}
	}
	return out
}

// StateStat is the per-state aggregate.
type StateStat struct {
	State   string `json:"state"`
	Count   int    `json:"count"`
	Average int    `json:"avg_percentage"`
}

// ByState groups results per state, sorted by state name.
func ByState(results []resultsink.Result) []StateStat {
	sums := map[string]*StateStat{}
	for _, r := range results {
		s, ok := sums[r.State]
		if !ok {
			s = &StateStat{State: r.State}
			sums[r.State] = s
		}
		s.Count++
		s.Average += r.Percentage
	}
	out := make([]StateStat, 0, len(sums))
	for _, s := range sums {
		s.Average = int(math.Round(float64(s.Average) / float64(s.Count)))
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].State < out[j].State })
	return out
}

// Analysis is a coarse performance read used by the study-plan surface.
type Analysis struct {
	Level        string   `json:"performance_level"`
	OverallScore int      `json:"overall_score"`
	TotalQuizzes int      `json:"total_quizzes"`
	WeakAreas    []string `json:"weak_areas"`
	ReadyForTest bool     `json:"ready_for_test"`
}

// Analyze buckets the running average into a performance level with
// suggested focus areas.
func Analyze(results []resultsink.Result) Analysis {
	avg, ok := Average(results)
	if !ok {
		return Analysis{Level: "unknown", WeakAreas: []string{}}
	}
	a := Analysis{
		OverallScore: avg,
		TotalQuizzes: len(results),
		ReadyForTest: avg >= PassThreshold,
	}
	switch {
	case avg >= 85:
		a.Level = "strong"
		a.WeakAreas = []string{"advanced_maneuvers"}
	case avg >= 70:
		a.Level = "moderate"
		a.WeakAreas = []string{"right_of_way", "parking"}
	case avg >= 50:
		a.Level = "needs_improvement"
		a.WeakAreas = []string{"traffic_signs", "speed_limits", "right_of_way"}
	default:
		a.Level = "beginner"
		a.WeakAreas = []string{"traffic_signs", "right_of_way", "parking", "speed_limits"}
	}
	return a
}
