// Package report builds certificate and report documents from leaderboard
// entries. Rendering (PDF, charts) is left to clients; everything here is a
// pure function of its inputs.
package report

import "math"

// PassMark is the minimum /20 grade for an achievement certificate.
const PassMark = 10.0

// PassPercentage is the minimum percentage counted in the class pass rate.
const PassPercentage = 50

// ScoreOutOf20 rescales a raw score to the /20 grading scale.
func ScoreOutOf20(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(score) / float64(total) * 20
}

// Observation labels a /20 grade.
func Observation(outOf20 float64) string {
	switch {
	case outOf20 >= 18:
		return "EXCELLENT"
	case outOf20 >= 16:
		return "VERY GOOD"
	case outOf20 >= 14:
		return "GOOD"
	case outOf20 >= 12:
		return "FAIRLY GOOD"
	case outOf20 >= 10:
		return "AVERAGE"
	default:
		return "INSUFFICIENT"
	}
}

// Performance labels a percentage.
func Performance(percentage int) string {
	switch {
	case percentage >= 90:
		return "EXCELLENT"
	case percentage >= 75:
		return "VERY GOOD"
	case percentage >= 60:
		return "GOOD"
	case percentage >= 50:
		return "PASSABLE"
	default:
		return "INSUFFICIENT"
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
