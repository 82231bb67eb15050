package main

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/autoneg/negolog/internal/outcome"
	"github.com/autoneg/negolog/internal/preference"
	"github.com/autoneg/negolog/internal/replay"
	"github.com/autoneg/negolog/internal/session"
	"github.com/autoneg/negolog/internal/store"
	"github.com/autoneg/negolog/internal/strategy"
)

// #region replay-cmd
var (
	replayFixture  string
	replaySession  string
	replayActor    string
	replayStrategy string
	replaySeed     int64
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay recorded offers against a strategy",
	Long: `Feed a recorded offer stream to a fresh strategy and compare its moves with
the recorded ones. The stream comes from a JSON fixture or from one side of a
stored session. Exits non-zero when any move diverges.

Examples:
  negolog replay --fixture internal/replay/testdata/boulware_buyer.json
  negolog replay --session 3f2a... --actor B
  negolog replay --session 3f2a... --actor A --strategy conceder`,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replayFixture, "fixture", "", "fixture JSON (fixture mode)")
	replayCmd.Flags().StringVar(&replaySession, "session", "", "stored session id (DB mode)")
	replayCmd.Flags().StringVar(&replayActor, "actor", session.ActorA, "side to replay in DB mode, A or B")
	replayCmd.Flags().StringVar(&replayStrategy, "strategy", "", "strategy under replay (default: the recorded one)")
	replayCmd.Flags().Int64Var(&replaySeed, "seed", 1, "strategy seed in DB mode")
	replayCmd.MarkFlagsMutuallyExclusive("fixture", "session")
	replayCmd.MarkFlagsOneRequired("fixture", "session")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	if replayFixture != "" {
		return runFixtureMode(replayFixture)
	}
	sc, err := loadScenario()
	if err != nil {
		return err
	}
	st, err := openStore(sc)
	if err != nil {
		return err
	}
	defer st.Close()
	return runDBMode(st, replaySession, replayActor)
}
// #endregion replay-cmd

// #region fixture-mode
func runFixtureMode(path string) error {
	f, err := replay.LoadFixture(path)
	if err != nil {
		return err
	}
	model, err := f.ToModel()
	if err != nil {
		return err
	}
	interactions, err := f.ToInteractions(model.Space())
	if err != nil {
		return err
	}
	config := f.Config.ToReplayConfig()
	if replayStrategy != "" {
		config.Strategy = replayStrategy
	}
	results, err := replay.Replay(model, interactions, config)
	if err != nil {
		return err
	}

	expected := make([]replay.ReplayResult, len(f.ExpectedResults))
	for i, e := range f.ExpectedResults {
		expected[i] = replay.ReplayResult{Round: e.Round, Action: strategy.ParseActionKind(e.Action), Utility: e.Utility}
	}
	return printComparison(results, expected)
}
// #endregion fixture-mode

// #region db-mode
// sessionSide rebuilds one side of a stored session: its preference model, the
// offers it received and the moves it made.
type sessionSide struct {
	record       store.SessionRecord
	model        *preference.Model
	profile      preference.Profile
	strategy     string
	interactions []replay.Interaction
	recorded     []replay.ReplayResult
}

func loadSide(st *store.Store, id, actor string) (sessionSide, error) {
	rec, err := st.GetSession(id)
	if err != nil {
		return sessionSide{}, err
	}
	space, err := outcome.NewSpace(rec.Issues...)
	if err != nil {
		return sessionSide{}, fmt.Errorf("session space: %w", err)
	}
	side := sessionSide{record: rec}
	switch actor {
	case session.ActorA:
		side.profile, side.strategy = rec.ProfileA, rec.StrategyA
	case session.ActorB:
		side.profile, side.strategy = rec.ProfileB, rec.StrategyB
	default:
		return sessionSide{}, fmt.Errorf("actor must be %s or %s, got %q", session.ActorA, session.ActorB, actor)
	}
	if side.model, err = preference.New(space, side.profile); err != nil {
		return sessionSide{}, err
	}
	steps, err := st.Transcript(id, space)
	if err != nil {
		return sessionSide{}, err
	}
	side.interactions = replay.InteractionsFromSteps(steps, actor, rec.Deadline)
	for _, s := range steps {
		if s.Actor != actor {
			continue
		}
		side.recorded = append(side.recorded, replay.ReplayResult{
			Round:   s.Round,
			Time:    s.Time,
			Action:  s.Action,
			Bid:     s.Bid,
			Utility: side.model.Utility(s.Bid),
			Trace:   s.Trace,
		})
	}
	return side, nil
}

func runDBMode(st *store.Store, id, actor string) error {
	side, err := loadSide(st, id, actor)
	if err != nil {
		return err
	}
	config := replay.DefaultReplayConfig()
	config.Strategy = side.strategy
	if replayStrategy != "" {
		config.Strategy = replayStrategy
	}
	config.Seed = replaySeed
	config.Deadline = side.record.Deadline
	if actor == session.ActorA {
		config.Opponent = side.record.NameB
	} else {
		config.Opponent = side.record.NameA
	}

	results, err := replay.Replay(side.model, side.interactions, config)
	if err != nil {
		return err
	}
	if idx, err := replay.CheckDeterminism(side.model, side.interactions, config); err == nil && idx >= 0 {
		fmt.Printf("warning: %s is not deterministic, runs diverge at move %d\n", config.Strategy, idx)
	}
	return printComparison(results, side.recorded)
}
// #endregion db-mode

// #region comparison
// printComparison prints recorded against replayed moves and fails when any differ.
func printComparison(results, expected []replay.ReplayResult) error {
	if jsonOut {
		if err := printJSON(map[string]any{"replayed": results, "expected": expected}); err != nil {
			return err
		}
	} else {
		fmt.Printf("%-6s| %-17s| %-17s| %s\n", "Round", "Expected", "Replayed", "Match")
		fmt.Printf("%-6s+%-18s+%-18s+%s\n", "------", "------------------", "------------------", "------")
	}

	total := len(results)
	if len(expected) > total {
		total = len(expected)
	}
	matches := 0
	for i := 0; i < total; i++ {
		exp, got := "-", "-"
		ok := i < len(results) && i < len(expected) && movesMatch(expected[i], results[i])
		if i < len(expected) {
			exp = moveString(expected[i])
		}
		if i < len(results) {
			got = moveString(results[i])
		}
		round := i
		if i < len(expected) {
			round = expected[i].Round
		}
		match := "DIFF"
		if ok {
			match = "OK"
			matches++
		}
		if !jsonOut {
			fmt.Printf("%-6d| %-17s| %-17s| %s\n", round, exp, got, match)
		}
	}

	diverge := total - matches
	if !jsonOut {
		s := replay.Summarize(results)
		fmt.Printf("\nSummary: %d total, %d match, %d diverge\n", total, matches, diverge)
		fmt.Printf("Replayed: %d offers (utility %.4f..%.4f), %d accepts, %d none\n",
			s.Offers, s.MinOffered, s.MaxOffered, s.Accepts, s.Nones)
	}
	if diverge > 0 {
		return fmt.Errorf("%d of %d moves diverge", diverge, total)
	}
	return nil
}

func movesMatch(want, got replay.ReplayResult) bool {
	return want.Round == got.Round && want.Action == got.Action && math.Abs(want.Utility-got.Utility) <= 1e-9
}

func moveString(r replay.ReplayResult) string {
	return fmt.Sprintf("%s %.4f", r.Action, r.Utility)
}
// #endregion comparison
