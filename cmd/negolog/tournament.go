package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/autoneg/negolog/internal/agentrpc"
	"github.com/autoneg/negolog/internal/strategy"
	"github.com/autoneg/negolog/internal/tournament"
)

// #region tournament-cmd
const remotePrefix = "remote:"

var (
	tourStrategies []string
	tourRepeat     int
	tourWorkers    int
	tourRemote     string
	tourSave       bool
)

var tournamentCmd = &cobra.Command{
	Use:   "tournament",
	Short: "Run a round robin of strategies",
	Long: `Play every ordered pairing of the given strategies on the scenario's two
preference profiles and print per-pair summaries. Names prefixed with "remote:"
are played by the strategy host given with --remote.

Examples:
  negolog tournament
  negolog tournament --strategies boulware,conceder,parscat --repeat 5 --save
  negolog tournament --remote localhost:50061 --strategies boulware,remote:iamhaggler`,
	RunE: runTournament,
}

func init() {
	tournamentCmd.Flags().StringSliceVar(&tourStrategies, "strategies", nil, "strategies to pair (default: scenario list, else whole catalog)")
	tournamentCmd.Flags().IntVar(&tourRepeat, "repeat", 0, "sessions per pairing (overrides scenario)")
	tournamentCmd.Flags().IntVar(&tourWorkers, "workers", 0, "parallel sessions (overrides scenario, default all CPUs)")
	tournamentCmd.Flags().StringVar(&tourRemote, "remote", "", "strategy host for remote: names")
	tournamentCmd.Flags().BoolVar(&tourSave, "save", false, "store every session")
	rootCmd.AddCommand(tournamentCmd)
}

func runTournament(cmd *cobra.Command, args []string) error {
	sc, err := loadScenario()
	if err != nil {
		return err
	}
	built, err := sc.Build()
	if err != nil {
		return err
	}

	names := tourStrategies
	if len(names) == 0 {
		names = sc.Tournament.Strategies
	}
	if len(names) == 0 {
		names = strategy.Names()
	}

	cfg := tournament.DefaultConfig()
	cfg.Rounds = sc.Session.Rounds
	cfg.Seed = sc.Session.Seed
	cfg.Repeat = sc.Tournament.Repeat
	cfg.Estimators = sc.Tournament.Estimators
	if sc.Tournament.Workers > 0 {
		cfg.Workers = sc.Tournament.Workers
	}
	if tourRepeat > 0 {
		cfg.Repeat = tourRepeat
	}
	if tourWorkers > 0 {
		cfg.Workers = tourWorkers
	}

	opts := []tournament.Option{tournament.WithLogger(slog.Default())}
	if tourRemote != "" {
		conn, err := agentrpc.Dial(tourRemote)
		if err != nil {
			return err
		}
		defer conn.Close()
		opts = append(opts, tournament.WithResolver(remoteResolver(conn)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	report, err := tournament.New(cfg, built.ModelA, built.ModelB, opts...).Run(ctx, tournament.RoundRobin(names))
	if err != nil {
		return err
	}

	if tourSave {
		st, err := openStore(sc)
		if err != nil {
			return err
		}
		defer st.Close()
		meta := sessionMeta(sc, report.ID)
		for _, res := range report.Results {
			if _, err := st.SaveResult(res, meta); err != nil {
				return fmt.Errorf("save result: %w", err)
			}
		}
		slog.Info("tournament stored", "tournament", report.ID, "sessions", len(report.Results), "db", sc.Store.Path)
	}

	if jsonOut {
		return printJSON(report.Summaries)
	}
	printSummaries(report)
	return nil
}

// remoteResolver builds remote: names on conn and everything else locally.
func remoteResolver(conn *grpc.ClientConn) tournament.Resolver {
	return func(name string, p strategy.Params) (strategy.Strategy, error) {
		if hosted, ok := strings.CutPrefix(name, remotePrefix); ok {
			return agentrpc.Factory(conn, hosted)(p)
		}
		return strategy.New(name, p)
	}
}
// #endregion tournament-cmd

// #region tournament-output
func printSummaries(report tournament.Report) {
	fmt.Printf("Tournament %s\n\n", report.ID)
	fmt.Printf("%-14s %-14s %5s %7s %7s %7s %7s %7s %7s\n",
		"A", "B", "N", "Agree", "Util A", "Util B", "Welfare", "Pareto", "Rounds")
	fmt.Printf("%-14s+%-14s+%5s+%7s+%7s+%7s+%7s+%7s+%7s\n",
		"--------------", "--------------", "-----", "-------", "-------", "-------", "-------", "-------", "-------")
	for _, s := range report.Summaries {
		fmt.Printf("%-14s %-14s %5d %7.2f %7.4f %7.4f %7.4f %7.4f %7.1f\n",
			s.StrategyA, s.StrategyB, s.Sessions, s.AgreementRate,
			s.MeanUtilityA, s.MeanUtilityB, s.MeanWelfare, s.MeanParetoGap, s.MeanRounds)
		if s.Errors > 0 {
			fmt.Printf("%-14s %d session(s) failed\n", "", s.Errors)
		}
	}
}
// #endregion tournament-output
