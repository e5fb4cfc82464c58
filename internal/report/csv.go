package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"academy-quiz-service/internal/domain"
)

var csvHeader = []string{"Rank", "Name", "Score", "Percentage", "Date"}

// WriteCSV exports a sorted leaderboard.
func WriteCSV(w io.Writer, entries []domain.LeaderboardEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for i, e := range entries {
		record := []string{
			strconv.Itoa(i + 1),
			e.StudentName,
			fmt.Sprintf("%d/%d", e.Score, e.TotalQuestions),
			fmt.Sprintf("%d%%", e.Percentage),
			e.CompletedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
