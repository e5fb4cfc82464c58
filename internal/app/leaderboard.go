package app

import (
	"context"
	"errors"
	"time"

	"academy-quiz-service/internal/domain"
	"academy-quiz-service/internal/logging"
	"github.com/sirupsen/logrus"
)

// rankMatchWindow bounds how far apart completion timestamps may be for the
// name-based rank lookup.
const rankMatchWindow = time.Second

// LeaderboardRepository persists completed attempts per discipline. List must
// return entries sorted with domain.SortLeaderboard semantics.
type LeaderboardRepository interface {
	Insert(ctx context.Context, entry domain.LeaderboardEntry) error
	List(ctx context.Context, disciplineID string) ([]domain.LeaderboardEntry, error)
	Clear(ctx context.Context, disciplineID string) error
}

// LeaderboardService is the append-only ranking of completed attempts.
type LeaderboardService struct {
	repo LeaderboardRepository
	log  logrus.FieldLogger
}

func NewLeaderboardService(repo LeaderboardRepository, log logrus.FieldLogger) *LeaderboardService {
	return &LeaderboardService{repo: repo, log: logging.OrDiscard(log).WithField("component", "leaderboard")}
}

// Record implements ResultRecorder.
func (s *LeaderboardService) Record(ctx context.Context, entry domain.LeaderboardEntry) error {
	_, err := s.Insert(ctx, entry)
	return err
}

// Insert appends entry and returns the re-sorted collection.
func (s *LeaderboardService) Insert(ctx context.Context, entry domain.LeaderboardEntry) ([]domain.LeaderboardEntry, error) {
	if entry.DisciplineID == "" {
		return nil, domain.ErrDisciplineNotFound
	}
	if err := s.repo.Insert(ctx, entry); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"discipline":  entry.DisciplineID,
		"participant": entry.ParticipantID,
		"score":       entry.Score,
	}).Info("attempt recorded")
	return s.repo.List(ctx, entry.DisciplineID)
}

// Load returns the sorted leaderboard of a discipline.
func (s *LeaderboardService) Load(ctx context.Context, disciplineID string) ([]domain.LeaderboardEntry, error) {
	return s.repo.List(ctx, disciplineID)
}

// Find returns the entry of a participant with its 1-based rank.
func (s *LeaderboardService) Find(ctx context.Context, disciplineID, participantID string) (domain.LeaderboardEntry, int, error) {
	entries, err := s.repo.List(ctx, disciplineID)
	if err != nil {
		return domain.LeaderboardEntry{}, 0, err
	}
	for i, e := range entries {
		if e.ParticipantID == participantID {
			return e, i + 1, nil
		}
	}
	return domain.LeaderboardEntry{}, 0, domain.ErrResultNotFound
}

// Rank returns the 1-based position of a participant, or 0 when absent.
func (s *LeaderboardService) Rank(ctx context.Context, disciplineID, participantID string) (int, error) {
	_, rank, err := s.Find(ctx, disciplineID, participantID)
	if errors.Is(err, domain.ErrResultNotFound) {
		return 0, nil
	}
	return rank, err
}

// RankByName locates an entry by name and a completion time within one second.
// Names are not unique; prefer Rank when a participant id is known.
func (s *LeaderboardService) RankByName(ctx context.Context, disciplineID, name string, completedAt time.Time) (int, error) {
	entries, err := s.repo.List(ctx, disciplineID)
	if err != nil {
		return 0, err
	}
	return RankByName(entries, name, completedAt), nil
}

// Clear drops every entry of a discipline.
func (s *LeaderboardService) Clear(ctx context.Context, disciplineID string) error {
	if err := s.repo.Clear(ctx, disciplineID); err != nil {
		return err
	}
	s.log.WithField("discipline", disciplineID).Warn("leaderboard cleared")
	return nil
}

// RankByName scans sorted entries for name with a near-equal completion time.
func RankByName(entries []domain.LeaderboardEntry, name string, completedAt time.Time) int {
	for i, e := range entries {
		if e.StudentName != name {
			continue
		}
		d := e.CompletedAt.Sub(completedAt)
		if d < 0 {
			d = -d
		}
		if d < rankMatchWindow {
			return i + 1
		}
	}
	return 0
}
