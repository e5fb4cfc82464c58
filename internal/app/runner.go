package app

import (
	"context"
	"sync"
	"time"

	"academy-quiz-service/internal/domain"
)

// Runner owns one participant's QuizSession and drives its countdown with a
// ticker while the attempt is in progress.
type Runner struct {
	participant domain.Participant
	interval    time.Duration

	mu          sync.Mutex
	session     *QuizSession
	subscribers map[chan SessionSnapshot]struct{}
	stopTick    chan struct{}
	lastActive  time.Time
	closed      bool
	wg          sync.WaitGroup
}

// NewRunner wraps session for participant. interval is the countdown tick
// period (one second in production).
func NewRunner(participant domain.Participant, session *QuizSession, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = time.Second
	}
	return &Runner{
		participant: participant,
		interval:    interval,
		session:     session,
		subscribers: make(map[chan SessionSnapshot]struct{}),
		lastActive:  time.Now(),
	}
}

func (r *Runner) Participant() domain.Participant { return r.participant }

// Start begins the attempt and the countdown ticker.
func (r *Runner) Start() (SessionSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return SessionSnapshot{}, domain.ErrNotInProgress
	}
	if err := r.session.Start(r.participant); err != nil {
		return r.session.Snapshot(), err
	}
	r.restartTickerLocked()
	return r.broadcastLocked(), nil
}

// StartIfWaiting starts the attempt only when it has not started yet; it
// reports whether it did.
func (r *Runner) StartIfWaiting() bool {
	r.mu.Lock()
	waiting := !r.closed && r.session.Phase() == PhaseNotStarted
	r.mu.Unlock()
	if !waiting {
		return false
	}
	_, err := r.Start()
	return err == nil
}

// Tick applies one countdown step immediately.
func (r *Runner) Tick() SessionSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session.Tick() {
		if r.session.Locked() {
			r.stopTickerLocked()
		}
		return r.broadcastLocked()
	}
	return r.session.Snapshot()
}

func (r *Runner) Answer(questionID, option int) (domain.Answer, SessionSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	answer, err := r.session.Answer(questionID, option)
	if err != nil {
		return domain.Answer{}, r.session.Snapshot(), err
	}
	return answer, r.broadcastLocked(), nil
}

func (r *Runner) Advance(direction int) SessionSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session.Advance(direction) {
		r.restartTickerLocked()
		return r.broadcastLocked()
	}
	return r.session.Snapshot()
}

func (r *Runner) GoTo(index int) SessionSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session.GoTo(index) {
		r.restartTickerLocked()
		return r.broadcastLocked()
	}
	return r.session.Snapshot()
}

// Submit scores the attempt and stops the countdown.
func (r *Runner) Submit(ctx context.Context) (domain.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result, err := r.session.Submit(ctx)
	if err != nil {
		return domain.Result{}, err
	}
	r.stopTickerLocked()
	r.broadcastLocked()
	return result, nil
}

// Reset returns the attempt to not started and stops the countdown.
func (r *Runner) Reset() SessionSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopTickerLocked()
	r.session.Reset()
	return r.broadcastLocked()
}

func (r *Runner) Snapshot() SessionSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.Snapshot()
}

// Result returns the completed result, if any.
func (r *Runner) Result() (domain.Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.Result()
}

// Subscribe returns a channel of state snapshots, starting with the current one.
// The caller must invoke the returned cancel function.
func (r *Runner) Subscribe() (<-chan SessionSnapshot, func()) {
	ch := make(chan SessionSnapshot, 8)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	r.subscribers[ch] = struct{}{}
	r.lastActive = time.Now()
	ch <- r.session.Snapshot()
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		if _, ok := r.subscribers[ch]; ok {
			delete(r.subscribers, ch)
			close(ch)
			r.lastActive = time.Now()
		}
		r.mu.Unlock()
	}
	return ch, cancel
}

// IdleSince reports when the runner last changed state or lost a subscriber.
// It returns false while the countdown runs or someone is subscribed.
func (r *Runner) IdleSince() (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopTick != nil || len(r.subscribers) > 0 {
		return time.Time{}, false
	}
	return r.lastActive, true
}

// Close stops the ticker, closes every subscription and waits for the ticker
// goroutine to exit.
func (r *Runner) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.stopTickerLocked()
	for ch := range r.subscribers {
		delete(r.subscribers, ch)
		close(ch)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Runner) restartTickerLocked() {
	r.stopTickerLocked()
	stop := make(chan struct{})
	r.stopTick = stop
	r.wg.Add(1)
	go r.tickLoop(stop)
}

func (r *Runner) stopTickerLocked() {
	if r.stopTick != nil {
		close(r.stopTick)
		r.stopTick = nil
	}
}

func (r *Runner) tickLoop(stop chan struct{}) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.mu.Lock()
			select {
			case <-stop:
				r.mu.Unlock()
				return
			default:
			}
			changed := r.session.Tick()
			locked := r.session.Locked()
			if locked {
				// nothing changes until the participant moves on
				r.stopTickerLocked()
			}
			if changed {
				r.broadcastLocked()
			}
			r.mu.Unlock()
			if locked {
				return
			}
		}
	}
}

func (r *Runner) broadcastLocked() SessionSnapshot {
	r.lastActive = time.Now()
	snap := r.session.Snapshot()
	for ch := range r.subscribers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return snap
}
