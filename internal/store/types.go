package store

import (
	"time"

	"github.com/autoneg/negolog/internal/outcome"
	"github.com/autoneg/negolog/internal/preference"
	"github.com/autoneg/negolog/internal/session"
)

// #region session-meta
// SessionMeta is the context saved alongside a session result so it can be
// replayed or exported later.
type SessionMeta struct {
	TournamentID string
	Issues       []outcome.Issue
	ProfileA     preference.Profile
	ProfileB     preference.Profile
}
// #endregion session-meta

// #region session-record
// SessionRecord is one row of the sessions table.
type SessionRecord struct {
	SessionID    string
	TournamentID string
	NameA        string
	NameB        string
	StrategyA    string
	StrategyB    string
	State        session.State
	Agreement    map[string]string
	UtilityA     float64
	UtilityB     float64
	Rounds       int
	Deadline     int
	Error        string
	Issues       []outcome.Issue
	ProfileA     preference.Profile
	ProfileB     preference.Profile
	CreatedAt    time.Time
	Elapsed      time.Duration
}
// #endregion session-record

// #region step-record
// StepRecord is one row of the session_steps table, decoded.
type StepRecord struct {
	Seq       int
	Round     int
	Time      float64
	Actor     string
	Action    string
	BidKey    string
	Offer     map[string]string
	UtilityA  float64
	UtilityB  float64
	Target    float64
	Threshold float64
	HasTrace  bool
}
// #endregion step-record

// #region pair-stats
// PairStats aggregates stored sessions per (strategy A, strategy B) pair.
type PairStats struct {
	StrategyA    string
	StrategyB    string
	Sessions     int
	Agreements   int
	Errors       int
	MeanUtilityA float64
	MeanUtilityB float64
	MeanRounds   float64
}

// AgreementRate is agreements over sessions, 0 when empty.
func (p PairStats) AgreementRate() float64 {
	if p.Sessions == 0 {
		return 0
	}
	return float64(p.Agreements) / float64(p.Sessions)
}
// #endregion pair-stats
