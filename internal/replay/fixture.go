package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/autoneg/negolog/internal/outcome"
	"github.com/autoneg/negolog/internal/preference"
	"github.com/autoneg/negolog/internal/strategy"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	Issues          []FixtureIssue          `json:"issues"`
	Profile         FixtureProfile          `json:"profile"`
	Config          FixtureConfig           `json:"config"`
	Interactions    []FixtureInteraction    `json:"interactions"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureIssue mirrors outcome.Issue with JSON tags.
type FixtureIssue struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// FixtureProfile mirrors preference.Profile with JSON tags.
type FixtureProfile struct {
	IssueWeights map[string]float64            `json:"issue_weights"`
	ValueScores  map[string]map[string]float64 `json:"value_scores"`
	Reservation  float64                       `json:"reservation"`
}

// FixtureConfig mirrors ReplayConfig with JSON tags.
type FixtureConfig struct {
	Strategy string `json:"strategy"`
	Seed     int64  `json:"seed"`
	Deadline int    `json:"deadline"`
}

// FixtureInteraction is one received offer. A nil Offer means nothing was received.
type FixtureInteraction struct {
	Round int               `json:"round"`
	Time  float64           `json:"time"`
	Offer map[string]string `json:"offer,omitempty"`
}

// FixtureExpectedResult captures the expected action per round. Utility is the
// utility of the offered or accepted bid to the strategy under replay.
type FixtureExpectedResult struct {
	Round   int     `json:"round"`
	Action  string  `json:"action"`
	Utility float64 `json:"utility"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// SaveFixture writes f as indented JSON.
func SaveFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// ToModel builds the outcome space and preference model of the fixture.
func (f *Fixture) ToModel() (*preference.Model, error) {
	issues := make([]outcome.Issue, len(f.Issues))
	for i, is := range f.Issues {
		issues[i] = outcome.Issue{Name: is.Name, Values: is.Values}
	}
	space, err := outcome.NewSpace(issues...)
	if err != nil {
		return nil, fmt.Errorf("fixture space: %w", err)
	}
	m, err := preference.New(space, preference.Profile{
		IssueWeights: f.Profile.IssueWeights,
		ValueScores:  f.Profile.ValueScores,
		Reservation:  f.Profile.Reservation,
	})
	if err != nil {
		return nil, fmt.Errorf("fixture profile: %w", err)
	}
	return m, nil
}

// ToInteractions converts the fixture's offers to domain interactions.
func (f *Fixture) ToInteractions(space *outcome.Space) ([]Interaction, error) {
	out := make([]Interaction, len(f.Interactions))
	for i, fi := range f.Interactions {
		out[i] = Interaction{Round: fi.Round, Time: fi.Time}
		if fi.Offer == nil {
			continue
		}
		bid, err := space.Parse(fi.Offer)
		if err != nil {
			return nil, fmt.Errorf("interaction %d: %w", i, err)
		}
		out[i].Bid = bid
	}
	return out, nil
}

// ToReplayConfig converts a FixtureConfig to a domain ReplayConfig.
func (fc *FixtureConfig) ToReplayConfig() ReplayConfig {
	cfg := DefaultReplayConfig()
	cfg.Strategy = fc.Strategy
	cfg.Seed = fc.Seed
	cfg.Deadline = fc.Deadline
	return cfg
}

// #endregion fixture-loader

// #region fixture-builder

// NewFixture assembles a fixture from a model, a replay config and an offer stream.
// Expected results are taken from results when given.
func NewFixture(description string, model *preference.Model, profile preference.Profile, config ReplayConfig, interactions []Interaction, results []ReplayResult) *Fixture {
	space := model.Space()
	f := &Fixture{
		Description: description,
		Profile: FixtureProfile{
			IssueWeights: profile.IssueWeights,
			ValueScores:  profile.ValueScores,
			Reservation:  profile.Reservation,
		},
		Config: FixtureConfig{Strategy: config.Strategy, Seed: config.Seed, Deadline: config.Deadline},
	}
	for _, is := range space.Issues() {
		f.Issues = append(f.Issues, FixtureIssue{Name: is.Name, Values: is.Values})
	}
	for _, inter := range interactions {
		fi := FixtureInteraction{Round: inter.Round, Time: inter.Time}
		if !inter.Bid.IsZero() {
			fi.Offer = space.Format(inter.Bid)
		}
		f.Interactions = append(f.Interactions, fi)
	}
	for _, r := range results {
		f.ExpectedResults = append(f.ExpectedResults, FixtureExpectedResult{
			Round:   r.Round,
			Action:  r.Action.String(),
			Utility: r.Utility,
		})
	}
	return f
}

// Check compares replay results against the fixture's expectations and returns
// one message per mismatch.
func (f *Fixture) Check(results []ReplayResult) []string {
	var diffs []string
	if len(results) != len(f.ExpectedResults) {
		diffs = append(diffs, fmt.Sprintf("expected %d results, got %d", len(f.ExpectedResults), len(results)))
	}
	for i, want := range f.ExpectedResults {
		if i >= len(results) {
			break
		}
		got := results[i]
		if got.Round != want.Round || got.Action != strategy.ParseActionKind(want.Action) {
			diffs = append(diffs, fmt.Sprintf("round %d: expected %s, got round %d %s", want.Round, want.Action, got.Round, got.Action))
			continue
		}
		if d := got.Utility - want.Utility; d > 1e-9 || d < -1e-9 {
			diffs = append(diffs, fmt.Sprintf("round %d: expected utility %.4f, got %.4f", want.Round, want.Utility, got.Utility))
		}
	}
	return diffs
}

// #endregion fixture-builder
