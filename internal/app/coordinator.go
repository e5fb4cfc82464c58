package app

import (
	"context"
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"academy-quiz-service/internal/domain"
	"academy-quiz-service/internal/logging"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CoordinatorRepository is the shared store behind session coordination
// (in-memory for a single process, Redis when several instances share state).
type CoordinatorRepository interface {
	SavePIN(ctx context.Context, pin domain.SessionPIN) error
	// LoadPIN returns the zero PIN when none was generated.
	LoadPIN(ctx context.Context) (domain.SessionPIN, error)
	// AddParticipant stores p unless a participant with the same name already
	// waits in the discipline; it returns the stored participant and whether it
	// was added.
	AddParticipant(ctx context.Context, p domain.Participant) (domain.Participant, bool, error)
	Participant(ctx context.Context, id string) (domain.Participant, error)
	Participants(ctx context.Context, disciplineID string) ([]domain.Participant, error)
	SetActive(ctx context.Context, disciplineID string, startedAt time.Time) error
	// Active returns the flag and its start time; inactive disciplines return false.
	Active(ctx context.Context, disciplineID string) (bool, time.Time, error)
	// ResetSession clears the active flag and the waiting list.
	ResetSession(ctx context.Context, disciplineID string) error
}

// CoordinatorConfig tunes PIN validity and status propagation.
type CoordinatorConfig struct {
	PINTTL       time.Duration
	PollInterval time.Duration
	// StaleAfter reports an active flag older than this as inactive; zero disables.
	StaleAfter time.Duration
}

func (c CoordinatorConfig) withDefaults() CoordinatorConfig {
	if c.PINTTL <= 0 {
		c.PINTTL = 4 * time.Hour
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	return c
}

// Coordinator admits participants with a session PIN and tells subscribers
// when the instructor starts a discipline session.
type Coordinator struct {
	repo CoordinatorRepository
	cfg  CoordinatorConfig
	now  func() time.Time
	log  logrus.FieldLogger

	mu       sync.Mutex
	watchers map[string]*statusWatcher
}

type statusWatcher struct {
	subs map[chan domain.SessionStatus]struct{}
	last domain.SessionStatus
	stop chan struct{}
}

func NewCoordinator(repo CoordinatorRepository, cfg CoordinatorConfig, log logrus.FieldLogger) *Coordinator {
	return NewCoordinatorWithClock(repo, cfg, log, time.Now)
}

// NewCoordinatorWithClock is test-only for deterministic timestamps.
func NewCoordinatorWithClock(repo CoordinatorRepository, cfg CoordinatorConfig, log logrus.FieldLogger, now func() time.Time) *Coordinator {
	return &Coordinator{
		repo:     repo,
		cfg:      cfg.withDefaults(),
		now:      now,
		log:      logging.OrDiscard(log).WithField("component", "coordinator"),
		watchers: make(map[string]*statusWatcher),
	}
}

// GeneratePIN issues a new 6-digit PIN, replacing the previous one.
func (c *Coordinator) GeneratePIN(ctx context.Context) (domain.SessionPIN, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return domain.SessionPIN{}, err
	}
	pin := domain.SessionPIN{
		Code:      strconv.FormatInt(n.Int64()+100000, 10),
		ExpiresAt: c.now().Add(c.cfg.PINTTL),
	}
	if err := c.repo.SavePIN(ctx, pin); err != nil {
		return domain.SessionPIN{}, err
	}
	c.log.WithField("expiresAt", pin.ExpiresAt).Info("session pin generated")
	return pin, nil
}

// ValidatePIN reports whether code matches the stored, unexpired PIN.
func (c *Coordinator) ValidatePIN(ctx context.Context, code string) (bool, error) {
	pin, err := c.repo.LoadPIN(ctx)
	if err != nil {
		return false, err
	}
	return pin.Valid(strings.TrimSpace(code), c.now()), nil
}

// Join admits a participant to the waiting list of a discipline. A name that
// already waits returns the existing participant.
func (c *Coordinator) Join(ctx context.Context, disciplineID, code string, identity domain.Participant) (domain.Participant, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.Participant{}, domain.ErrPINRequired
	}
	identity.Name = strings.TrimSpace(identity.Name)
	if identity.Name == "" {
		return domain.Participant{}, domain.ErrNameRequired
	}
	ok, err := c.ValidatePIN(ctx, code)
	if err != nil {
		return domain.Participant{}, err
	}
	if !ok {
		return domain.Participant{}, domain.ErrInvalidPIN
	}

	identity.ID = uuid.New().String()
	identity.DisciplineID = disciplineID
	identity.JoinedAt = c.now()
	stored, added, err := c.repo.AddParticipant(ctx, identity)
	if err != nil {
		return domain.Participant{}, err
	}
	if added {
		c.log.WithFields(logrus.Fields{"discipline": disciplineID, "participant": stored.ID}).Info("participant joined")
		c.refresh(ctx, disciplineID)
	}
	return stored, nil
}

// Participant looks up a joined participant by id.
func (c *Coordinator) Participant(ctx context.Context, id string) (domain.Participant, error) {
	return c.repo.Participant(ctx, id)
}

// StartSessionForAll flips the discipline's active flag.
func (c *Coordinator) StartSessionForAll(ctx context.Context, disciplineID string) (domain.SessionStatus, error) {
	if err := c.repo.SetActive(ctx, disciplineID, c.now()); err != nil {
		return domain.SessionStatus{}, err
	}
	c.log.WithField("discipline", disciplineID).Info("session started for all")
	return c.refresh(ctx, disciplineID), nil
}

// StopSession clears the active flag and the waiting list for a new sitting.
func (c *Coordinator) StopSession(ctx context.Context, disciplineID string) (domain.SessionStatus, error) {
	if err := c.repo.ResetSession(ctx, disciplineID); err != nil {
		return domain.SessionStatus{}, err
	}
	c.log.WithField("discipline", disciplineID).Info("session stopped")
	return c.refresh(ctx, disciplineID), nil
}

// Status reads the current session state of a discipline.
func (c *Coordinator) Status(ctx context.Context, disciplineID string) (domain.SessionStatus, error) {
	active, startedAt, err := c.repo.Active(ctx, disciplineID)
	if err != nil {
		return domain.SessionStatus{}, err
	}
	waiting, err := c.repo.Participants(ctx, disciplineID)
	if err != nil {
		return domain.SessionStatus{}, err
	}
	if active && c.cfg.StaleAfter > 0 && c.now().Sub(startedAt) > c.cfg.StaleAfter {
		active = false
	}
	status := domain.SessionStatus{DisciplineID: disciplineID, Active: active, Waiting: waiting}
	if active {
		status.StartedAt = startedAt
	}
	if status.Waiting == nil {
		status.Waiting = []domain.Participant{}
	}
	return status, nil
}

// Subscribe returns a channel receiving the current status followed by every
// change. Changes made through another Coordinator sharing the repository are
// picked up by polling. The caller must invoke the returned cancel function.
func (c *Coordinator) Subscribe(ctx context.Context, disciplineID string) (<-chan domain.SessionStatus, func(), error) {
	status, err := c.Status(ctx, disciplineID)
	if err != nil {
		return nil, nil, err
	}
	ch := make(chan domain.SessionStatus, 8)

	c.mu.Lock()
	w, ok := c.watchers[disciplineID]
	if !ok {
		w = &statusWatcher{
			subs: make(map[chan domain.SessionStatus]struct{}),
			last: status,
			stop: make(chan struct{}),
		}
		c.watchers[disciplineID] = w
		go c.poll(disciplineID, w)
	}
	w.subs[ch] = struct{}{}
	ch <- status
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if _, ok := w.subs[ch]; !ok {
			return
		}
		delete(w.subs, ch)
		close(ch)
		if len(w.subs) == 0 && c.watchers[disciplineID] == w {
			delete(c.watchers, disciplineID)
			close(w.stop)
		}
	}
	return ch, cancel, nil
}

func (c *Coordinator) poll(disciplineID string, w *statusWatcher) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.cfg.PollInterval)
			status, err := c.Status(ctx, disciplineID)
			cancel()
			if err != nil {
				c.log.WithError(err).WithField("discipline", disciplineID).Warn("session poll failed")
				continue
			}
			c.publish(status)
		}
	}
}

// refresh re-reads the status and pushes it to local subscribers.
func (c *Coordinator) refresh(ctx context.Context, disciplineID string) domain.SessionStatus {
	status, err := c.Status(ctx, disciplineID)
	if err != nil {
		c.log.WithError(err).WithField("discipline", disciplineID).Warn("session status refresh failed")
		return domain.SessionStatus{DisciplineID: disciplineID}
	}
	c.publish(status)
	return status
}

func (c *Coordinator) publish(status domain.SessionStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.watchers[status.DisciplineID]
	if !ok || sameStatus(w.last, status) {
		return
	}
	w.last = status
	for ch := range w.subs {
		select {
		case ch <- status:
		default:
			// drop the stale update so a slow subscriber never blocks the others
			select {
			case <-ch:
			default:
			}
			ch <- status
		}
	}
}

func sameStatus(a, b domain.SessionStatus) bool {
	if a.Active != b.Active || !a.StartedAt.Equal(b.StartedAt) || len(a.Waiting) != len(b.Waiting) {
		return false
	}
	for i := range a.Waiting {
		if a.Waiting[i].ID != b.Waiting[i].ID {
			return false
		}
	}
	return true
}
