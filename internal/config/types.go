package config

import "errors"

// ErrInvalidScenario is returned when a scenario file cannot describe a session.
var ErrInvalidScenario = errors.New("invalid scenario")

// #region scenario
// Scenario is a complete negotiation setup: the outcome space, both parties'
// preferences and strategies, and run settings.
type Scenario struct {
	Name       string         `yaml:"name"`
	Issues     []IssueSpec    `yaml:"issues"`
	PartyA     PartySpec      `yaml:"party_a"`
	PartyB     PartySpec      `yaml:"party_b"`
	Session    SessionSpec    `yaml:"session"`
	Tournament TournamentSpec `yaml:"tournament"`
	Store      StoreSpec      `yaml:"store"`
	RPC        RPCSpec        `yaml:"rpc"`
}

// IssueSpec is one issue and its ordered values.
type IssueSpec struct {
	Name   string   `yaml:"name"`
	Values []string `yaml:"values"`
}

// PartySpec is one side's identity, strategy and linear additive preferences.
type PartySpec struct {
	Name        string                        `yaml:"name"`
	Strategy    string                        `yaml:"strategy"`
	Remote      string                        `yaml:"remote"` // strategy host address, empty for local
	Reservation float64                       `yaml:"reservation"`
	Weights     map[string]float64            `yaml:"weights"`
	Scores      map[string]map[string]float64 `yaml:"scores"`
}

// SessionSpec holds single-session settings.
type SessionSpec struct {
	Rounds int   `yaml:"rounds"`
	Seed   int64 `yaml:"seed"`
}

// TournamentSpec holds tournament settings.
type TournamentSpec struct {
	Strategies []string `yaml:"strategies"` // round robin over these, default: whole catalog
	Repeat     int      `yaml:"repeat"`
	Workers    int      `yaml:"workers"` // 0 = all CPUs
	Estimators bool     `yaml:"estimators"`
}

// StoreSpec locates the result database.
type StoreSpec struct {
	Path string `yaml:"path"`
}

// RPCSpec is where a strategy host listens.
type RPCSpec struct {
	Addr string `yaml:"addr"`
}
// #endregion scenario
