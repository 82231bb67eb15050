package session

import (
	"errors"
	"time"

	"github.com/autoneg/negolog/internal/outcome"
	"github.com/autoneg/negolog/internal/preference"
	"github.com/autoneg/negolog/internal/strategy"
)

// #region errors
var (
	ErrNoAction      = errors.New("strategy returned no action")
	ErrInvalidAction = errors.New("invalid action")
	ErrAlreadyRun    = errors.New("session already run")
	ErrIncompatible  = errors.New("parties negotiate over different outcome spaces")
	ErrInvalidParty  = errors.New("invalid party")
)

// #endregion errors

// #region state

// State is the session lifecycle position.
type State int

const (
	StateNotStarted State = iota
	StateRunning
	StateAgreed
	StateTimedOut
	StateError
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateAgreed:
		return "agreed"
	case StateTimedOut:
		return "timed_out"
	case StateError:
		return "error"
	default:
		return "not_started"
	}
}

// ParseState is the inverse of State.String.
func ParseState(s string) State {
	for _, st := range []State{StateRunning, StateAgreed, StateTimedOut, StateError} {
		if st.String() == s {
			return st
		}
	}
	return StateNotStarted
}

// MarshalText renders the state by name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText parses a state name; unknown names become StateNotStarted.
func (s *State) UnmarshalText(b []byte) error {
	*s = ParseState(string(b))
	return nil
}

// #endregion state

// #region party

// Party is one side of the negotiation.
type Party struct {
	Name       string
	Strategy   strategy.Strategy
	Preference *preference.Model
}

// #endregion party

// #region transcript

// Actor labels which party took a step.
const (
	ActorA = "A"
	ActorB = "B"
)

// Step is one transcript row. For accepts Bid is the accepted offer.
type Step struct {
	Round    int                 `json:"round"`
	Time     float64             `json:"time"`
	Actor    string              `json:"actor"`
	Action   strategy.ActionKind `json:"action"`
	Bid      outcome.Bid         `json:"-"`
	UtilityA float64             `json:"utility_a"`
	UtilityB float64             `json:"utility_b"`
	Trace    *strategy.Trace     `json:"trace,omitempty"`
}

// Result summarizes a finished session.
type Result struct {
	ID        string
	NameA     string
	NameB     string
	StrategyA string
	StrategyB string
	State     State
	Agreement outcome.Bid
	UtilityA  float64 // agreement utility, or reservation without agreement
	UtilityB  float64
	Rounds    int // rounds started
	Deadline  int
	Steps     []Step
	Err       error
	StartedAt time.Time
	Elapsed   time.Duration
}

// Agreed reports whether the session ended in agreement.
func (r Result) Agreed() bool {
	return r.State == StateAgreed
}

// #endregion transcript

// #region config

// Config controls a session.
type Config struct {
	Rounds int // round budget R
}

// DefaultConfig returns a 100 round session.
func DefaultConfig() Config {
	return Config{Rounds: 100}
}

// #endregion config
