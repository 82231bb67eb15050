package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/autoneg/negolog/internal/agentrpc"
	"github.com/autoneg/negolog/internal/config"
	"github.com/autoneg/negolog/internal/eval"
	"github.com/autoneg/negolog/internal/opponent"
	"github.com/autoneg/negolog/internal/preference"
	"github.com/autoneg/negolog/internal/session"
	"github.com/autoneg/negolog/internal/strategy"
)

// #region run-cmd
var (
	runStrategyA  string
	runStrategyB  string
	runRounds     int
	runSeed       int64
	runSave       bool
	runEstimators bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one negotiation session",
	Long: `Run one alternating-offer session between the scenario's two parties and
print the transcript. A party with a remote address is played by a strategy host.

Examples:
  negolog run
  negolog run --a parscat --b iamhaggler --rounds 200
  negolog run -s scenario.yaml --save --json`,
	RunE: runSession,
}

func init() {
	runCmd.Flags().StringVar(&runStrategyA, "a", "", "strategy for party A (overrides scenario)")
	runCmd.Flags().StringVar(&runStrategyB, "b", "", "strategy for party B (overrides scenario)")
	runCmd.Flags().IntVar(&runRounds, "rounds", 0, "round budget (overrides scenario)")
	runCmd.Flags().Int64Var(&runSeed, "seed", 0, "random seed (overrides scenario)")
	runCmd.Flags().BoolVar(&runSave, "save", false, "store the result")
	runCmd.Flags().BoolVar(&runEstimators, "estimators", false, "attach a frequency opponent estimator to both strategies")
	rootCmd.AddCommand(runCmd)
}

func runSession(cmd *cobra.Command, args []string) error {
	sc, err := loadScenario()
	if err != nil {
		return err
	}
	if runStrategyA != "" {
		sc.PartyA.Strategy = runStrategyA
	}
	if runStrategyB != "" {
		sc.PartyB.Strategy = runStrategyB
	}
	if runRounds > 0 {
		sc.Session.Rounds = runRounds
	}
	if runSeed != 0 {
		sc.Session.Seed = runSeed
	}
	built, err := sc.Build()
	if err != nil {
		return err
	}

	rounds := sc.Session.Rounds
	a, closeA, err := buildParty(sc.PartyA, built.ModelA, rounds, sc.Session.Seed, runEstimators)
	if err != nil {
		return err
	}
	defer closeA()
	b, closeB, err := buildParty(sc.PartyB, built.ModelB, rounds, sc.Session.Seed+1, runEstimators)
	if err != nil {
		return err
	}
	defer closeB()

	s, err := session.New(a, b, session.Config{Rounds: rounds}, session.WithLogger(slog.Default()))
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	res, runErr := s.Run(ctx)

	if err := printTranscript(built.Space, res); err != nil {
		return err
	}
	if !jsonOut {
		printEval(eval.NewEvalHarness(eval.DefaultEvalConfig(), built.ModelA, built.ModelB).Run(res))
		printEstimators(a, b)
		printEstimators(b, a)
	}

	if runSave {
		st, err := openStore(sc)
		if err != nil {
			return err
		}
		defer st.Close()
		id, err := st.SaveResult(res, sessionMeta(sc, ""))
		if err != nil {
			return fmt.Errorf("save result: %w", err)
		}
		slog.Info("session stored", "session", id, "db", sc.Store.Path)
	}
	return runErr
}
// #endregion run-cmd

// #region parties
// buildParty creates one side's strategy, proxied to a host when spec.Remote is set.
// The returned func releases the connection.
func buildParty(spec config.PartySpec, model *preference.Model, rounds int, seed int64, estimators bool) (session.Party, func(), error) {
	p := strategy.Params{Preference: model, Deadline: rounds, Seed: seed, Logger: slog.Default()}
	if estimators {
		p.Estimators = []opponent.Estimator{opponent.NewFrequencyEstimator(model.Space(), opponent.DefaultFrequencyConfig())}
	}
	party := session.Party{Name: spec.Name, Preference: model}

	if spec.Remote == "" {
		st, err := strategy.New(spec.Strategy, p)
		if err != nil {
			return party, nil, fmt.Errorf("party %s: %w", spec.Name, err)
		}
		party.Strategy = st
		return party, func() {}, nil
	}

	conn, err := agentrpc.Dial(spec.Remote)
	if err != nil {
		return party, nil, fmt.Errorf("party %s: %w", spec.Name, err)
	}
	cfg := agentrpc.DefaultRemoteConfig()
	cfg.Strategy = spec.Strategy
	st, err := agentrpc.NewRemote(conn, cfg, p)
	if err != nil {
		conn.Close()
		return party, nil, fmt.Errorf("party %s: %w", spec.Name, err)
	}
	party.Strategy = st
	return party, func() { conn.Close() }, nil
}
// #endregion parties

// #region report
func printEval(res eval.EvalResult) {
	fmt.Println()
	for _, m := range res.Metrics {
		status := "ok"
		if !m.Pass {
			status = "FAIL"
		}
		fmt.Printf("  %-16s %8.4f  %s\n", m.Name, m.Value, status)
	}
	if res.Reason != "" {
		fmt.Printf("  reason: %s\n", res.Reason)
	}
}

// printEstimators reports how well own's opponent estimators learned other's preferences.
func printEstimators(own, other session.Party) {
	holder, ok := own.Strategy.(interface{ Estimators() []opponent.Estimator })
	if !ok {
		return
	}
	for _, est := range holder.Estimators() {
		fmt.Printf("  %s %s estimator rmse: %.4f", own.Name, est.Name(), eval.EstimatorRMSE(est, other.Preference))
		if f, ok := est.(*opponent.FrequencyEstimator); ok {
			fmt.Printf("  weights: %.3f", f.Weights())
		}
		fmt.Println()
	}
}
// #endregion report
