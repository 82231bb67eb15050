package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/autoneg/negolog/internal/config"
	"github.com/autoneg/negolog/internal/logging"
	"github.com/autoneg/negolog/internal/store"
)

// #region root
var (
	scenarioPath string
	dbPath       string
	logLevel     string
	logFormat    string
	jsonOut      bool
)

var rootCmd = &cobra.Command{
	Use:   "negolog",
	Short: "Bilateral negotiation testbed",
	Long: `negolog runs alternating-offer negotiations between automated strategies
over a multi-issue outcome space.

Commands:
  run             Run one session and print its transcript
  tournament      Run every strategy pairing and summarize
  inspect         Browse stored sessions
  replay          Replay a fixture or stored session against a strategy
  export-fixture  Turn a stored session into a replay fixture
  serve           Host strategies for remote sessions over gRPC`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger, err := logging.NewLogger(os.Stderr, logLevel, logFormat)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&scenarioPath, "scenario", "s", "", "scenario YAML (default: built-in trade scenario)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "result database (default: scenario store.path or $NEGOLOG_DB)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "text or json")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output as JSON instead of a table")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
// #endregion root

// #region helpers
// loadScenario resolves the scenario and applies the --db override.
func loadScenario() (*config.Scenario, error) {
	sc, err := config.LoadScenario(scenarioPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		sc.Store.Path = dbPath
	}
	return sc, nil
}

func openStore(sc *config.Scenario) (*store.Store, error) {
	st, err := store.NewStore(sc.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", sc.Store.Path, err)
	}
	return st, nil
}

func sessionMeta(sc *config.Scenario, tournamentID string) store.SessionMeta {
	return store.SessionMeta{
		TournamentID: tournamentID,
		Issues:       sc.OutcomeIssues(),
		ProfileA:     sc.PartyA.Profile(),
		ProfileB:     sc.PartyB.Profile(),
	}
}
// #endregion helpers
