package replay

import (
	"fmt"
	"math"

	"github.com/autoneg/negolog/internal/outcome"
	"github.com/autoneg/negolog/internal/preference"
	"github.com/autoneg/negolog/internal/session"
	"github.com/autoneg/negolog/internal/strategy"
)

// #region types
// Interaction is one recorded opponent offer delivered to the strategy under replay,
// which then acts at the same time. A zero Bid means nothing was received.
type Interaction struct {
	Round int
	Time  float64
	Bid   outcome.Bid
}

// ReplayConfig selects the strategy under replay.
type ReplayConfig struct {
	Strategy string
	Seed     int64
	Deadline int
	Opponent string
}

// DefaultReplayConfig returns a Boulware replay over 100 rounds.
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{
		Strategy: "boulware",
		Seed:     1,
		Deadline: 100,
		Opponent: "replay",
	}
}

// ReplayResult captures the strategy's answer to one interaction.
type ReplayResult struct {
	Round   int
	Time    float64
	Action  strategy.ActionKind
	Bid     outcome.Bid // offered bid, or the accepted one
	Utility float64
	Trace   *strategy.Trace
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalTurns int
	Offers     int
	Accepts    int
	Nones      int
	MinOffered float64
	MaxOffered float64
}

// #endregion types

// #region replay
// Replay feeds interactions to a fresh strategy and records every action. It stops
// at the first accept or none, as a live session would.
func Replay(model *preference.Model, interactions []Interaction, config ReplayConfig) ([]ReplayResult, error) {
	st, err := strategy.New(config.Strategy, strategy.Params{
		Preference: model,
		Deadline:   config.Deadline,
		Seed:       config.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	st.Initiate(config.Opponent)

	results := make([]ReplayResult, 0, len(interactions))
	for _, inter := range interactions {
		// 1. Deliver
		if !inter.Bid.IsZero() {
			st.ReceiveOffer(inter.Bid, inter.Time)
		}

		// 2. Act
		act := st.Act(inter.Time)
		r := ReplayResult{Round: inter.Round, Time: inter.Time, Action: act.Kind, Bid: act.Bid}
		if act.Kind == strategy.ActionAccept {
			r.Bid = inter.Bid
		}
		if !r.Bid.IsZero() {
			r.Utility = model.Utility(r.Bid)
		}
		if tr, ok := st.(strategy.Tracer); ok {
			trace := tr.LastTrace()
			r.Trace = &trace
		}
		results = append(results, r)

		if act.Kind != strategy.ActionOffer {
			break
		}
	}
	st.Terminate(false, config.Opponent, model.Reservation())
	return results, nil
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult) ReplaySummary {
	s := ReplaySummary{
		TotalTurns: len(results),
		MinOffered: math.Inf(1),
		MaxOffered: math.Inf(-1),
	}
	for _, r := range results {
		switch r.Action {
		case strategy.ActionOffer:
			s.Offers++
			s.MinOffered = math.Min(s.MinOffered, r.Utility)
			s.MaxOffered = math.Max(s.MaxOffered, r.Utility)
		case strategy.ActionAccept:
			s.Accepts++
		default:
			s.Nones++
		}
	}
	if s.Offers == 0 {
		s.MinOffered, s.MaxOffered = 0, 0
	}
	return s
}

// Divergence returns the index of the first result that differs between two runs,
// or -1 when they match.
func Divergence(a, b []ReplayResult) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i].Action != b[i].Action || !a[i].Bid.Equal(b[i].Bid) {
			return i
		}
	}
	if len(a) != len(b) {
		return n
	}
	return -1
}

// CheckDeterminism replays twice with the same config and reports the first divergence.
func CheckDeterminism(model *preference.Model, interactions []Interaction, config ReplayConfig) (int, error) {
	first, err := Replay(model, interactions, config)
	if err != nil {
		return 0, err
	}
	second, err := Replay(model, interactions, config)
	if err != nil {
		return 0, err
	}
	return Divergence(first, second), nil
}

// #endregion replay

// #region transcript
// InteractionsFromSteps rebuilds the offer stream one actor received in a recorded
// session with the given round budget.
func InteractionsFromSteps(steps []session.Step, actor string, rounds int) []Interaction {
	R := float64(rounds)
	var out []Interaction
	switch actor {
	case session.ActorA:
		// A acts at r/R after receiving B's offer from round r-1.
		var prev outcome.Bid
		for _, st := range steps {
			if st.Actor == session.ActorA {
				out = append(out, Interaction{Round: st.Round, Time: float64(st.Round) / R, Bid: prev})
				continue
			}
			prev = st.Bid
		}
	case session.ActorB:
		// B acts at (r+0.5)/R after receiving A's offer from round r.
		for _, st := range steps {
			if st.Actor == session.ActorA && st.Action == strategy.ActionOffer {
				out = append(out, Interaction{Round: st.Round, Time: (float64(st.Round) + 0.5) / R, Bid: st.Bid})
			}
		}
	}
	return out
}

// #endregion transcript
