package postgres

import (
	"context"
	"fmt"
	"time"

	"academy-quiz-service/internal/domain"
	"github.com/uptrace/bun"
)

type leaderboardRow struct {
	bun.BaseModel `bun:"table:leaderboard_entries"`

	ID             int64           `bun:"id,pk,autoincrement"`
	DisciplineID   string          `bun:"discipline_id,notnull"`
	ParticipantID  string          `bun:"participant_id"`
	StudentName    string          `bun:"student_name,notnull"`
	Grade          string          `bun:"grade"`
	Class          string          `bun:"class"`
	RegisterNumber string          `bun:"register_number"`
	Score          int             `bun:"score,notnull"`
	TotalQuestions int             `bun:"total_questions,notnull"`
	Percentage     int             `bun:"percentage,notnull"`
	Answers        []domain.Answer `bun:"answers,type:jsonb"`
	CompletedAt    time.Time       `bun:"completed_at,notnull"`
}

// LeaderboardStore persists completed attempts in leaderboard_entries. The
// serial id breaks score ties in insertion order.
type LeaderboardStore struct {
	db *bun.DB
}

func NewLeaderboardStore(db *bun.DB) *LeaderboardStore {
	return &LeaderboardStore{db: db}
}

func (s *LeaderboardStore) Insert(ctx context.Context, entry domain.LeaderboardEntry) error {
	row := toRow(entry)
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("insert leaderboard entry: %w", err)
	}
	return nil
}

func (s *LeaderboardStore) List(ctx context.Context, disciplineID string) ([]domain.LeaderboardEntry, error) {
	var rows []leaderboardRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("discipline_id = ?", disciplineID).
		OrderExpr("score DESC, percentage DESC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list leaderboard: %w", err)
	}
	out := make([]domain.LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.entry())
	}
	return out, nil
}

func (s *LeaderboardStore) Clear(ctx context.Context, disciplineID string) error {
	_, err := s.db.NewDelete().
		Model((*leaderboardRow)(nil)).
		Where("discipline_id = ?", disciplineID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("clear leaderboard: %w", err)
	}
	return nil
}

func toRow(e domain.LeaderboardEntry) leaderboardRow {
	return leaderboardRow{
		DisciplineID:   e.DisciplineID,
		ParticipantID:  e.ParticipantID,
		StudentName:    e.StudentName,
		Grade:          e.Grade,
		Class:          e.Class,
		RegisterNumber: e.RegisterNumber,
		Score:          e.Score,
		TotalQuestions: e.TotalQuestions,
		Percentage:     e.Percentage,
		Answers:        e.Answers,
		CompletedAt:    e.CompletedAt.UTC(),
	}
}

func (r leaderboardRow) entry() domain.LeaderboardEntry {
	return domain.LeaderboardEntry{
		DisciplineID: r.DisciplineID,
		Result: domain.Result{
			ParticipantID:  r.ParticipantID,
			StudentName:    r.StudentName,
			Grade:          r.Grade,
			Class:          r.Class,
			RegisterNumber: r.RegisterNumber,
			Score:          r.Score,
			TotalQuestions: r.TotalQuestions,
			Percentage:     r.Percentage,
			Answers:        r.Answers,
			CompletedAt:    r.CompletedAt,
		},
	}
}
