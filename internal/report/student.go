package report

import (
	"fmt"
	"time"

	"academy-quiz-service/internal/domain"
)

// Response-time thresholds in seconds for the diagnostic.
const (
	hastyBelow    = 20.0
	hesitantAbove = 50.0
)

// Diagnostic is the narrative part of a student report.
type Diagnostic struct {
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	Recommendations []string `json:"recommendations"`
}

// StudentReport is one student's performance page.
type StudentReport struct {
	ParticipantID       string     `json:"participantId,omitempty"`
	Name                string     `json:"name"`
	Class               string     `json:"class,omitempty"`
	RegisterNumber      string     `json:"registerNumber,omitempty"`
	CompletedAt         time.Time  `json:"completedAt"`
	Score               int        `json:"score"`
	TotalQuestions      int        `json:"totalQuestions"`
	Percentage          int        `json:"percentage"`
	ScoreOutOf20        float64    `json:"scoreOutOf20"`
	Performance         string     `json:"performance"`
	Rank                int        `json:"rank"`
	ClassSize           int        `json:"classSize"`
	ClassAverage        float64    `json:"classAverage"`
	GapToAverage        float64    `json:"gapToAverage"`
	Correct             int        `json:"correct"`
	Incorrect           int        `json:"incorrect"`
	Unanswered          int        `json:"unanswered"`
	AverageResponseTime float64    `json:"averageResponseTime"`
	Diagnostic          Diagnostic `json:"diagnostic"`
}

// NewStudentReport builds the report of entry ranked at rank within a class
// described by stats.
func NewStudentReport(entry domain.LeaderboardEntry, rank int, stats ClassStats) StudentReport {
	avgTime, timed := averageResponseTime(entry.Answers)
	gap := round1(float64(entry.Percentage) - stats.Average)
	return StudentReport{
		ParticipantID:       entry.ParticipantID,
		Name:                FullTitle(entry.Grade, entry.StudentName),
		Class:               entry.Class,
		RegisterNumber:      entry.RegisterNumber,
		CompletedAt:         entry.CompletedAt,
		Score:               entry.Score,
		TotalQuestions:      entry.TotalQuestions,
		Percentage:          entry.Percentage,
		ScoreOutOf20:        round2(ScoreOutOf20(entry.Score, entry.TotalQuestions)),
		Performance:         Performance(entry.Percentage),
		Rank:                rank,
		ClassSize:           stats.Students,
		ClassAverage:        stats.Average,
		GapToAverage:        gap,
		Correct:             entry.Score,
		Incorrect:           entry.Incorrect(),
		Unanswered:          entry.Unanswered(),
		AverageResponseTime: round1(avgTime),
		Diagnostic:          Diagnose(entry.Percentage, gap, avgTime, timed),
	}
}

// StudentReports builds a report per entry; entries must be in leaderboard order.
func StudentReports(entries []domain.LeaderboardEntry) []StudentReport {
	stats := ComputeClassStats(entries)
	out := make([]StudentReport, 0, len(entries))
	for i, e := range entries {
		out = append(out, NewStudentReport(e, i+1, stats))
	}
	return out
}

// ForParticipant builds the report of one participant from the sorted
// leaderboard of its discipline.
func ForParticipant(entries []domain.LeaderboardEntry, participantID string) (StudentReport, error) {
	stats := ComputeClassStats(entries)
	for i, e := range entries {
		if e.ParticipantID == participantID {
			return NewStudentReport(e, i+1, stats), nil
		}
	}
	return StudentReport{}, domain.ErrResultNotFound
}

// Diagnose combines the performance bracket, the gap to the class average
// and, when timed is set, the average response time.
func Diagnose(percentage int, gap, avgResponseTime float64, timed bool) Diagnostic {
	d := Diagnostic{Strengths: []string{}, Weaknesses: []string{}, Recommendations: []string{}}

	switch {
	case percentage >= 90:
		d.Strengths = append(d.Strengths,
			"Excellent command of the subject with a score above 90%",
			"Shows an in-depth understanding of the material")
		d.Recommendations = append(d.Recommendations,
			"Keep up this level of excellence",
			"Consider mentoring other students")
	case percentage >= 75:
		d.Strengths = append(d.Strengths,
			"Very good overall understanding of the subject",
			"Solid and consistent performance")
		d.Recommendations = append(d.Recommendations,
			"Review the few missed points to reach excellence",
			"Go deeper into the complex topics")
	case percentage >= 60:
		d.Strengths = append(d.Strengths, "Satisfactory understanding of the core concepts")
		d.Weaknesses = append(d.Weaknesses, "Some gaps in full command of the subject")
		d.Recommendations = append(d.Recommendations,
			"Review the chapters where mistakes were made",
			"Practice more with additional exercises")
	case percentage >= 50:
		d.Weaknesses = append(d.Weaknesses,
			"Partial understanding of the subject that needs strengthening",
			"Several key concepts need a thorough review")
		d.Recommendations = append(d.Recommendations,
			"Review the whole syllabus carefully",
			"Ask the instructor for help on the difficult points",
			"Increase study and practice time")
	default:
		d.Weaknesses = append(d.Weaknesses,
			"Insufficient understanding of the subject",
			"Requires substantial revision work")
		d.Recommendations = append(d.Recommendations,
			"Restart the syllabus from the beginning with the instructor",
			"Set up a structured revision plan",
			"Attend additional tutoring sessions")
	}

	switch {
	case gap > 10:
		d.Strengths = append(d.Strengths, fmt.Sprintf("Performance well above the class average (+%.1f%%)", gap))
	case gap > 0:
		d.Strengths = append(d.Strengths, fmt.Sprintf("Performance slightly above the class average (+%.1f%%)", gap))
	case gap > -10:
		d.Weaknesses = append(d.Weaknesses, fmt.Sprintf("Performance slightly below the class average (%.1f%%)", gap))
		d.Recommendations = append(d.Recommendations, "Study with classmates to understand their approach")
	default:
		d.Weaknesses = append(d.Weaknesses, fmt.Sprintf("Performance significantly below the class average (%.1f%%)", gap))
		d.Recommendations = append(d.Recommendations, "Meet the instructor for a personalised catch-up plan")
	}

	if !timed {
		return d
	}
	switch {
	case avgResponseTime < hastyBelow:
		d.Weaknesses = append(d.Weaknesses, "Very fast response time, possibly too hasty")
		d.Recommendations = append(d.Recommendations, "Take more time to think before answering")
	case avgResponseTime > hesitantAbove:
		d.Weaknesses = append(d.Weaknesses, "High response time, possibly indicating hesitation")
		d.Recommendations = append(d.Recommendations, "Build confidence by reviewing the syllabus further")
	default:
		d.Strengths = append(d.Strengths, "Appropriate management of thinking time")
	}
	return d
}

func averageResponseTime(answers []domain.Answer) (float64, bool) {
	if len(answers) == 0 {
		return 0, false
	}
	sum := 0
	for _, a := range answers {
		sum += a.TimeSpent
	}
	return float64(sum) / float64(len(answers)), true
}
