package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/autoneg/negolog/internal/outcome"
	"github.com/autoneg/negolog/internal/strategy"
)

// #region options

// Observer is called after every transcript step.
type Observer func(sessionID string, step Step)

// Option customizes a session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithObserver registers a step observer.
func WithObserver(o Observer) Option {
	return func(s *Session) { s.observers = append(s.observers, o) }
}

// WithID overrides the generated session id.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// #endregion options

// #region session

// Session runs one alternating-offers negotiation between A and B.
type Session struct {
	id        string
	cfg       Config
	a, b      Party
	space     *outcome.Space
	state     State
	steps     []Step
	logger    *slog.Logger
	observers []Observer
}

// New validates the parties and returns a session in the not-started state.
func New(a, b Party, cfg Config, opts ...Option) (*Session, error) {
	for _, p := range []Party{a, b} {
		if p.Strategy == nil || p.Preference == nil {
			return nil, fmt.Errorf("party %q: missing strategy or preference: %w", p.Name, ErrInvalidParty)
		}
	}
	if !sameSpace(a.Preference.Space(), b.Preference.Space()) {
		return nil, ErrIncompatible
	}
	if cfg.Rounds < 0 {
		return nil, fmt.Errorf("rounds %d: %w", cfg.Rounds, ErrInvalidParty)
	}
	s := &Session{
		id:     uuid.New().String(),
		cfg:    cfg,
		a:      a,
		b:      b,
		space:  a.Preference.Space(),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.With("session", s.id)
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Transcript returns a copy of the steps taken so far.
func (s *Session) Transcript() []Step {
	out := make([]Step, len(s.steps))
	copy(out, s.steps)
	return out
}

// Run drives the session to a terminal state. The returned error is non-nil only
// when the session ends in StateError. ctx is checked between rounds.
func (s *Session) Run(ctx context.Context) (Result, error) {
	if s.state != StateNotStarted {
		return Result{}, ErrAlreadyRun
	}
	start := time.Now()
	s.state = StateRunning
	s.a.Strategy.Initiate(s.b.Name)
	s.b.Strategy.Initiate(s.a.Name)
	s.logger.Debug("session started", "a", s.a.Strategy.Name(), "b", s.b.Strategy.Name(), "rounds", s.cfg.Rounds)

	var (
		agreement outcome.Bid
		runErr    error
		lastB     outcome.Bid
		rounds    int
	)
	R := float64(s.cfg.Rounds)

	for r := 0; r < s.cfg.Rounds; r++ {
		if err := ctx.Err(); err != nil {
			runErr = fmt.Errorf("round %d: %w", r, err)
			break
		}
		rounds = r + 1

		// A answers B's previous offer.
		t := float64(r) / R
		if r > 0 {
			s.a.Strategy.ReceiveOffer(lastB, t)
		}
		actA := s.a.Strategy.Act(t)
		done, err := s.apply(r, t, ActorA, s.a.Strategy, actA, lastB)
		if err != nil {
			runErr = err
			break
		}
		if done {
			agreement = lastB
			break
		}

		// B answers A's offer.
		tb := (float64(r) + 0.5) / R
		s.b.Strategy.ReceiveOffer(actA.Bid, tb)
		actB := s.b.Strategy.Act(tb)
		done, err = s.apply(r, tb, ActorB, s.b.Strategy, actB, actA.Bid)
		if err != nil {
			runErr = err
			break
		}
		if done {
			agreement = actA.Bid
			break
		}
		lastB = actB.Bid
	}

	res := Result{
		ID:        s.id,
		NameA:     s.a.Name,
		NameB:     s.b.Name,
		StrategyA: s.a.Strategy.Name(),
		StrategyB: s.b.Strategy.Name(),
		Rounds:    rounds,
		Deadline:  s.cfg.Rounds,
		StartedAt: start,
	}
	switch {
	case runErr != nil:
		s.state = StateError
		res.Err = runErr
	case !agreement.IsZero():
		s.state = StateAgreed
		res.Agreement = agreement
	default:
		s.state = StateTimedOut
	}
	res.State = s.state

	agreed := s.state == StateAgreed
	res.UtilityA, res.UtilityB = s.a.Preference.Reservation(), s.b.Preference.Reservation()
	if agreed {
		res.UtilityA, res.UtilityB = s.a.Preference.Utility(agreement), s.b.Preference.Utility(agreement)
	}
	s.a.Strategy.Terminate(agreed, s.b.Name, res.UtilityA)
	s.b.Strategy.Terminate(agreed, s.a.Name, res.UtilityB)

	res.Steps = s.Transcript()
	res.Elapsed = time.Since(start)

	s.logger.Info("session finished",
		"state", s.state.String(),
		"rounds", rounds,
		"utility_a", res.UtilityA,
		"utility_b", res.UtilityB,
	)
	if runErr != nil {
		return res, runErr
	}
	return res, nil
}

// apply validates and records one action. pending is the offer on the table.
// It reports whether the action ended the session in agreement.
func (s *Session) apply(round int, t float64, actor string, st strategy.Strategy, act strategy.Action, pending outcome.Bid) (bool, error) {
	step := Step{Round: round, Time: t, Actor: actor, Action: act.Kind}
	if tr, ok := st.(strategy.Tracer); ok {
		trace := tr.LastTrace()
		step.Trace = &trace
	}

	switch act.Kind {
	case strategy.ActionAccept:
		if pending.IsZero() {
			return false, fmt.Errorf("%s accepted with no offer on the table at round %d: %w", st.Name(), round, ErrInvalidAction)
		}
		step.Bid = pending
	case strategy.ActionOffer:
		if !s.space.Contains(act.Bid) {
			return false, fmt.Errorf("%s offered a bid outside the space at round %d: %w", st.Name(), round, ErrInvalidAction)
		}
		step.Bid = act.Bid
	default:
		return false, fmt.Errorf("%s at round %d: %w", st.Name(), round, ErrNoAction)
	}

	step.UtilityA = s.a.Preference.Utility(step.Bid)
	step.UtilityB = s.b.Preference.Utility(step.Bid)
	s.steps = append(s.steps, step)
	s.logger.Debug("step",
		"round", round,
		"actor", actor,
		"action", act.Kind.String(),
		"bid", s.space.String(step.Bid),
		"utility_a", step.UtilityA,
		"utility_b", step.UtilityB,
	)
	for _, o := range s.observers {
		o(s.id, step)
	}
	return act.Kind == strategy.ActionAccept, nil
}

// sameSpace reports whether two spaces have the same issues and values in order.
func sameSpace(x, y *outcome.Space) bool {
	if x == y {
		return true
	}
	xi, yi := x.Issues(), y.Issues()
	if len(xi) != len(yi) {
		return false
	}
	for i := range xi {
		if xi[i].Name != yi[i].Name || len(xi[i].Values) != len(yi[i].Values) {
			return false
		}
		for j := range xi[i].Values {
			if xi[i].Values[j] != yi[i].Values[j] {
				return false
			}
		}
	}
	return true
}

// #endregion session
