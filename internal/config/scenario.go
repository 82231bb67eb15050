// Package config loads negotiation scenarios from YAML.
// Settings resolve, highest priority first: command-line flags,
// environment (NEGOLOG_DB, NEGOLOG_ADDR), the scenario file, defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/autoneg/negolog/internal/outcome"
	"github.com/autoneg/negolog/internal/preference"
)

// #region defaults
const (
	defaultRounds   = 100
	defaultSeed     = 1
	defaultStrategy = "boulware"
	defaultDB       = "negolog.db"
	defaultAddr     = "localhost:50061"
)

// Default returns the built-in buyer/seller trade scenario.
func Default() *Scenario {
	weights := map[string]float64{"price": 0.5, "quantity": 0.3, "delivery": 0.2}
	return &Scenario{
		Name: "trade",
		Issues: []IssueSpec{
			{Name: "price", Values: []string{"low", "medium", "high"}},
			{Name: "quantity", Values: []string{"1", "2", "3"}},
			{Name: "delivery", Values: []string{"fast", "normal", "slow"}},
		},
		PartyA: PartySpec{
			Name:     "buyer",
			Strategy: "boulware",
			Weights:  weights,
			Scores: map[string]map[string]float64{
				"price":    {"low": 1.0, "medium": 0.5, "high": 0.0},
				"quantity": {"1": 0.0, "2": 0.5, "3": 1.0},
				"delivery": {"fast": 1.0, "normal": 0.5, "slow": 0.0},
			},
		},
		PartyB: PartySpec{
			Name:     "seller",
			Strategy: "conceder",
			Weights:  weights,
			Scores: map[string]map[string]float64{
				"price":    {"low": 0.0, "medium": 0.5, "high": 1.0},
				"quantity": {"1": 1.0, "2": 0.5, "3": 0.0},
				"delivery": {"fast": 0.0, "normal": 0.5, "slow": 1.0},
			},
		},
		Session:    SessionSpec{Rounds: defaultRounds, Seed: defaultSeed},
		Tournament: TournamentSpec{Repeat: 1},
		Store:      StoreSpec{Path: envOr("NEGOLOG_DB", defaultDB)},
		RPC:        RPCSpec{Addr: envOr("NEGOLOG_ADDR", defaultAddr)},
	}
}
// #endregion defaults

// #region load
// LoadScenario reads a scenario file, or returns Default when path is empty.
// Missing settings are defaulted and environment overrides applied.
func LoadScenario(path string) (*Scenario, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	sc.applyDefaults()
	sc.applyEnv()
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (s *Scenario) applyDefaults() {
	if s.PartyA.Name == "" {
		s.PartyA.Name = "A"
	}
	if s.PartyB.Name == "" {
		s.PartyB.Name = "B"
	}
	if s.PartyA.Strategy == "" {
		s.PartyA.Strategy = defaultStrategy
	}
	if s.PartyB.Strategy == "" {
		s.PartyB.Strategy = defaultStrategy
	}
	if s.Session.Rounds == 0 {
		s.Session.Rounds = defaultRounds
	}
	if s.Session.Seed == 0 {
		s.Session.Seed = defaultSeed
	}
	if s.Tournament.Repeat == 0 {
		s.Tournament.Repeat = 1
	}
	if s.Store.Path == "" {
		s.Store.Path = defaultDB
	}
	if s.RPC.Addr == "" {
		s.RPC.Addr = defaultAddr
	}
}

func (s *Scenario) applyEnv() {
	s.Store.Path = envOr("NEGOLOG_DB", s.Store.Path)
	s.RPC.Addr = envOr("NEGOLOG_ADDR", s.RPC.Addr)
}

// Validate checks settings the preference model does not.
func (s *Scenario) Validate() error {
	if len(s.Issues) == 0 {
		return fmt.Errorf("%w: no issues", ErrInvalidScenario)
	}
	if s.Session.Rounds < 1 {
		return fmt.Errorf("%w: rounds must be positive, got %d", ErrInvalidScenario, s.Session.Rounds)
	}
	if s.Tournament.Repeat < 1 || s.Tournament.Workers < 0 {
		return fmt.Errorf("%w: tournament repeat and workers", ErrInvalidScenario)
	}
	if s.PartyA.Name == s.PartyB.Name {
		return fmt.Errorf("%w: both parties are named %q", ErrInvalidScenario, s.PartyA.Name)
	}
	return nil
}

// Save writes the scenario as YAML.
func (s *Scenario) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal scenario: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write scenario: %w", err)
	}
	return nil
}
// #endregion load

// #region build
// Built is a scenario turned into runtime objects.
type Built struct {
	Space  *outcome.Space
	ModelA *preference.Model
	ModelB *preference.Model
}

// OutcomeIssues converts the issue specs.
func (s *Scenario) OutcomeIssues() []outcome.Issue {
	out := make([]outcome.Issue, len(s.Issues))
	for i, is := range s.Issues {
		out[i] = outcome.Issue{Name: is.Name, Values: append([]string(nil), is.Values...)}
	}
	return out
}

// Profile converts a party spec into a preference profile.
func (p PartySpec) Profile() preference.Profile {
	return preference.Profile{
		IssueWeights: p.Weights,
		ValueScores:  p.Scores,
		Reservation:  p.Reservation,
	}
}

// Build constructs the outcome space and both preference models.
func (s *Scenario) Build() (Built, error) {
	space, err := outcome.NewSpace(s.OutcomeIssues()...)
	if err != nil {
		return Built{}, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	a, err := preference.New(space, s.PartyA.Profile())
	if err != nil {
		return Built{}, fmt.Errorf("party %s: %w", s.PartyA.Name, err)
	}
	b, err := preference.New(space, s.PartyB.Profile())
	if err != nil {
		return Built{}, fmt.Errorf("party %s: %w", s.PartyB.Name, err)
	}
	return Built{Space: space, ModelA: a, ModelB: b}, nil
}
// #endregion build

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
// #endregion helpers
