package report

import (
	"fmt"
	"time"

	"academy-quiz-service/internal/domain"
)

// Fixed page layout of the consolidated report.
const (
	coverPage        = 1
	contentsPage     = 2
	statsPage        = 3
	firstStudentPage = 4
	pagesPerStudent  = 2
)

// ContentsEntry is one line of the table of contents.
type ContentsEntry struct {
	Title string `json:"title"`
	Page  int    `json:"page"`
}

// Cover is the first page of the consolidated report.
type Cover struct {
	Title      string    `json:"title"`
	Discipline string    `json:"discipline"`
	Level      string    `json:"level"`
	Date       time.Time `json:"date"`
	Students   int       `json:"students"`
}

// Consolidated is the whole-class report of one discipline.
type Consolidated struct {
	Cover    Cover           `json:"cover"`
	Contents []ContentsEntry `json:"contents"`
	Stats    ClassStats      `json:"stats"`
	Students []StudentReport `json:"students"`
	FileName string          `json:"fileName"`
}

// NewConsolidated builds the report from a sorted leaderboard.
func NewConsolidated(d domain.Discipline, entries []domain.LeaderboardEntry, now time.Time) Consolidated {
	students := StudentReports(entries)
	contents := []ContentsEntry{
		{Title: "Cover", Page: coverPage},
		{Title: "Table of contents", Page: contentsPage},
		{Title: "1. Class statistics", Page: statsPage},
	}
	for i, s := range students {
		contents = append(contents, ContentsEntry{
			Title: fmt.Sprintf("%d. %s", i+2, s.Name),
			Page:  firstStudentPage + i*pagesPerStudent,
		})
	}
	return Consolidated{
		Cover: Cover{
			Title:      "CONSOLIDATED RESULTS REPORT",
			Discipline: d.FullName,
			Level:      d.Level,
			Date:       now,
			Students:   len(entries),
		},
		Contents: contents,
		Stats:    ComputeClassStats(entries),
		Students: students,
		FileName: fmt.Sprintf("Consolidated_Report_%s_%s.pdf", d.ID, now.Format("2006-01-02")),
	}
}
