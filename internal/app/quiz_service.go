package app

import (
	"context"
	"sync"
	"time"

	"academy-quiz-service/internal/domain"
	"academy-quiz-service/internal/logging"
	"github.com/sirupsen/logrus"
)

// BankRepository loads question banks (from cache/backing store).
type BankRepository interface {
	GetBank(ctx context.Context, disciplineID string) (domain.QuestionBank, error)
}

// QuizConfig holds the timing knobs of an attempt.
type QuizConfig struct {
	QuestionBudget time.Duration
	TickInterval   time.Duration
	// IdleAfter releases runners nobody watches and whose countdown is stopped
	// for this long; zero keeps them until Close.
	IdleAfter time.Duration
}

// QuizService contains the participant-facing quiz use cases.
type QuizService struct {
	catalog     *Catalog
	banks       BankRepository
	coordinator *Coordinator
	leaderboard *LeaderboardService
	cfg         QuizConfig
	log         logrus.FieldLogger

	mu      sync.Mutex
	runners map[string]*Runner

	stopSweep chan struct{}
	closeOnce sync.Once
	sweepDone chan struct{}
}

func NewQuizService(catalog *Catalog, banks BankRepository, coordinator *Coordinator, leaderboard *LeaderboardService, cfg QuizConfig, log logrus.FieldLogger) *QuizService {
	if cfg.QuestionBudget <= 0 {
		cfg.QuestionBudget = DefaultQuestionBudget
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	s := &QuizService{
		catalog:     catalog,
		banks:       banks,
		coordinator: coordinator,
		leaderboard: leaderboard,
		cfg:         cfg,
		log:         logging.OrDiscard(log).WithField("component", "quiz"),
		runners:     make(map[string]*Runner),
		stopSweep:   make(chan struct{}),
		sweepDone:   make(chan struct{}),
	}
	if cfg.IdleAfter > 0 {
		go s.sweep()
	} else {
		close(s.sweepDone)
	}
	return s
}

func (s *QuizService) Disciplines() []domain.Discipline { return s.catalog.List() }

func (s *QuizService) Discipline(id string) (domain.Discipline, error) { return s.catalog.Get(id) }

// Bank returns the question bank of a known discipline.
func (s *QuizService) Bank(ctx context.Context, disciplineID string) (domain.QuestionBank, error) {
	if _, err := s.catalog.Get(disciplineID); err != nil {
		return domain.QuestionBank{}, err
	}
	bank, err := s.banks.GetBank(ctx, disciplineID)
	if err != nil {
		return domain.QuestionBank{}, err
	}
	bank.DisciplineID = disciplineID
	return bank, nil
}

// Join admits a participant to a discipline's waiting list.
func (s *QuizService) Join(ctx context.Context, disciplineID, pin string, identity domain.Participant) (domain.Participant, error) {
	// Preload the bank; participants cannot join a discipline without questions.
	if _, err := s.Bank(ctx, disciplineID); err != nil {
		return domain.Participant{}, err
	}
	return s.coordinator.Join(ctx, disciplineID, pin, identity)
}

// Runner returns the live runner of a participant, creating it on first use.
func (s *QuizService) Runner(ctx context.Context, participantID string) (*Runner, error) {
	s.mu.Lock()
	if r, ok := s.runners[participantID]; ok {
		s.mu.Unlock()
		return r, nil
	}
	s.mu.Unlock()

	participant, err := s.coordinator.Participant(ctx, participantID)
	if err != nil {
		return nil, err
	}
	bank, err := s.Bank(ctx, participant.DisciplineID)
	if err != nil {
		return nil, err
	}
	session := NewQuizSession(s.cfg.QuestionBudget, s.leaderboard)
	session.Load(bank)
	runner := NewRunner(participant, session, s.cfg.TickInterval)

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.runners[participantID]; ok {
		return existing, nil
	}
	s.runners[participantID] = runner
	return runner, nil
}

// AwaitStart blocks until the participant's discipline session is active and
// then starts the attempt. It returns immediately when the attempt already
// started or completed.
func (s *QuizService) AwaitStart(ctx context.Context, participantID string) error {
	runner, err := s.Runner(ctx, participantID)
	if err != nil {
		return err
	}
	if runner.Snapshot().Phase != PhaseNotStarted.String() {
		return nil
	}
	p := runner.Participant()
	updates, cancel, err := s.coordinator.Subscribe(ctx, p.DisciplineID)
	if err != nil {
		return err
	}
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case status, ok := <-updates:
			if !ok {
				return nil
			}
			if !status.Active {
				continue
			}
			if runner.StartIfWaiting() {
				s.log.WithFields(logrus.Fields{"discipline": p.DisciplineID, "participant": p.ID}).Info("attempt auto-started")
			}
			return nil
		}
	}
}

// Result returns a participant's completed entry and rank.
func (s *QuizService) Result(ctx context.Context, disciplineID, participantID string) (domain.LeaderboardEntry, int, error) {
	if _, err := s.catalog.Get(disciplineID); err != nil {
		return domain.LeaderboardEntry{}, 0, err
	}
	return s.leaderboard.Find(ctx, disciplineID, participantID)
}

// Release stops and forgets a participant's runner.
func (s *QuizService) Release(participantID string) {
	s.mu.Lock()
	runner, ok := s.runners[participantID]
	delete(s.runners, participantID)
	s.mu.Unlock()
	if ok {
		runner.Close()
	}
}

// Close stops the idle sweeper and every runner.
func (s *QuizService) Close() {
	s.closeOnce.Do(func() { close(s.stopSweep) })
	<-s.sweepDone
	s.mu.Lock()
	runners := s.runners
	s.runners = make(map[string]*Runner)
	s.mu.Unlock()
	for _, r := range runners {
		r.Close()
	}
}

func (s *QuizService) sweep() {
	defer close(s.sweepDone)
	interval := s.cfg.IdleAfter / 2
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopSweep:
			return
		case now := <-ticker.C:
			s.releaseIdle(now)
		}
	}
}

// releaseIdle drops runners left without subscribers and without a running
// countdown for longer than IdleAfter.
func (s *QuizService) releaseIdle(now time.Time) {
	var idle []string
	s.mu.Lock()
	for id, r := range s.runners {
		if since, ok := r.IdleSince(); ok && now.Sub(since) > s.cfg.IdleAfter {
			idle = append(idle, id)
		}
	}
	s.mu.Unlock()
	for _, id := range idle {
		s.Release(id)
		s.log.WithField("participant", id).Info("idle runner released")
	}
}
