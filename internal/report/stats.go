package report

import "academy-quiz-service/internal/domain"

// Bucket counts students in a percentage range.
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ClassStats summarizes the percentages of a discipline's leaderboard.
type ClassStats struct {
	Students     int      `json:"students"`
	Average      float64  `json:"average"`
	Highest      int      `json:"highest"`
	Lowest       int      `json:"lowest"`
	PassRate     float64  `json:"passRate"`
	Distribution []Bucket `json:"distribution"`
}

var buckets = []struct {
	label    string
	min, max int
}{
	{"90-100%", 90, 100},
	{"75-89%", 75, 89},
	{"60-74%", 60, 74},
	{"50-59%", 50, 59},
	{"<50%", 0, 49},
}

// ComputeClassStats returns zero values for an empty class.
func ComputeClassStats(entries []domain.LeaderboardEntry) ClassStats {
	stats := ClassStats{Students: len(entries), Distribution: make([]Bucket, len(buckets))}
	for i, b := range buckets {
		stats.Distribution[i].Label = b.label
	}
	if len(entries) == 0 {
		return stats
	}

	sum, passed := 0, 0
	stats.Highest = entries[0].Percentage
	stats.Lowest = entries[0].Percentage
	for _, e := range entries {
		p := e.Percentage
		sum += p
		if p > stats.Highest {
			stats.Highest = p
		}
		if p < stats.Lowest {
			stats.Lowest = p
		}
		if p >= PassPercentage {
			passed++
		}
		for i, b := range buckets {
			if p >= b.min && p <= b.max {
				stats.Distribution[i].Count++
				break
			}
		}
	}
	stats.Average = round1(float64(sum) / float64(len(entries)))
	stats.PassRate = round1(float64(passed) / float64(len(entries)) * 100)
	return stats
}
