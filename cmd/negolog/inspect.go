package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/autoneg/negolog/internal/store"
)

// #region inspect-cmd
var (
	inspectLast       int
	inspectSession    string
	inspectSummary    bool
	inspectTournament string
	inspectAgainst    string
	inspectMinSamples int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Browse stored sessions",
	Long: `List recent sessions, show one session's transcript, aggregate results per
strategy pair, or pick the best stored strategy against an opponent.

Examples:
  negolog inspect --last 20
  negolog inspect --session 3f2a...
  negolog inspect --summary --tournament 9c1e...
  negolog inspect --against boulware`,
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().IntVar(&inspectLast, "last", 20, "show N most recent sessions")
	inspectCmd.Flags().StringVar(&inspectSession, "session", "", "show a single session's transcript")
	inspectCmd.Flags().BoolVar(&inspectSummary, "summary", false, "aggregate by strategy pair")
	inspectCmd.Flags().StringVar(&inspectTournament, "tournament", "", "restrict --summary to one tournament")
	inspectCmd.Flags().StringVar(&inspectAgainst, "against", "", "report the best strategy against this opponent")
	inspectCmd.Flags().IntVar(&inspectMinSamples, "min-samples", 3, "sessions required for --against")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	sc, err := loadScenario()
	if err != nil {
		return err
	}
	st, err := openStore(sc)
	if err != nil {
		return err
	}
	defer st.Close()

	switch {
	case inspectSession != "":
		return runDetailMode(st, inspectSession)
	case inspectSummary:
		return runSummaryMode(st, inspectTournament)
	case inspectAgainst != "":
		name, score, err := st.BestStrategy(inspectAgainst, inspectMinSamples)
		if err != nil {
			return err
		}
		if name == "" {
			fmt.Fprintf(os.Stderr, "no strategy has %d stored sessions against %s\n", inspectMinSamples, inspectAgainst)
			return nil
		}
		if jsonOut {
			return printJSON(map[string]any{"against": inspectAgainst, "best": name, "score": score})
		}
		fmt.Printf("Best against %s: %s (decayed mean utility %.4f)\n", inspectAgainst, name, score)
		return nil
	default:
		return runListMode(st, inspectLast)
	}
}
// #endregion inspect-cmd

// #region list-mode
func runListMode(st *store.Store, last int) error {
	recs, err := st.ListSessions(last)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(os.Stderr, "no sessions found")
		return nil
	}
	if jsonOut {
		return printJSON(recs)
	}
	fmt.Printf("%-36s  %-12s  %-12s  %-10s  %6s  %6s  %6s  %s\n",
		"Session", "A", "B", "State", "Util A", "Util B", "Rounds", "Time")
	fmt.Printf("%-36s+-%-12s+-%-12s+-%-10s+-%6s+-%6s+-%6s+-%s\n",
		strings.Repeat("-", 36), "------------", "------------", "----------", "------", "------", "------", "--------------------")
	for _, r := range recs {
		fmt.Printf("%-36s  %-12s  %-12s  %-10s  %6.4f  %6.4f  %6d  %s\n",
			r.SessionID, r.StrategyA, r.StrategyB, r.State, r.UtilityA, r.UtilityB, r.Rounds,
			r.CreatedAt.Format("2006-01-02T15:04:05Z"))
	}
	return nil
}
// #endregion list-mode

// #region detail-mode
func runDetailMode(st *store.Store, id string) error {
	rec, err := st.GetSession(id)
	if err != nil {
		return err
	}
	steps, err := st.Steps(id)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(map[string]any{"session": rec, "steps": steps})
	}

	fmt.Printf("Session:    %s\n", rec.SessionID)
	if rec.TournamentID != "" {
		fmt.Printf("Tournament: %s\n", rec.TournamentID)
	}
	fmt.Printf("Parties:    %s (%s) vs %s (%s)\n", rec.NameA, rec.StrategyA, rec.NameB, rec.StrategyB)
	fmt.Printf("State:      %s after %d/%d rounds in %s\n", rec.State, rec.Rounds, rec.Deadline, rec.Elapsed)
	fmt.Printf("Utility:    A=%.4f B=%.4f\n", rec.UtilityA, rec.UtilityB)
	if rec.Agreement != nil {
		fmt.Printf("Agreement:  %s\n", formatOffer(rec.Agreement))
	}
	if rec.Error != "" {
		fmt.Printf("Error:      %s\n", rec.Error)
	}

	fmt.Printf("\n%-4s %-6s %-7s %-5s %-7s %-7s %-7s %-7s  %s\n",
		"Seq", "Round", "Time", "Actor", "Action", "Util A", "Util B", "Target", "Offer")
	for _, s := range steps {
		target := "-"
		if s.HasTrace {
			target = fmt.Sprintf("%.4f", s.Target)
		}
		fmt.Printf("%-4d %-6d %-7.4f %-5s %-7s %-7.4f %-7.4f %-7s  %s\n",
			s.Seq, s.Round, s.Time, s.Actor, s.Action, s.UtilityA, s.UtilityB, target, formatOffer(s.Offer))
	}
	return nil
}

// formatOffer renders an assignment with issues in name order.
func formatOffer(offer map[string]string) string {
	if len(offer) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(offer))
	for k := range offer {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + offer[k]
	}
	return strings.Join(parts, " ")
}
// #endregion detail-mode

// #region summary-mode
func runSummaryMode(st *store.Store, tournamentID string) error {
	stats, err := st.PairSummaries(tournamentID)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(stats)
	}
	fmt.Printf("%-14s %-14s %5s %7s %7s %7s %7s %7s\n", "A", "B", "N", "Agree", "Errors", "Util A", "Util B", "Rounds")
	for _, p := range stats {
		fmt.Printf("%-14s %-14s %5d %7.2f %7d %7.4f %7.4f %7.1f\n",
			p.StrategyA, p.StrategyB, p.Sessions, p.AgreementRate(), p.Errors, p.MeanUtilityA, p.MeanUtilityB, p.MeanRounds)
	}
	return nil
}
// #endregion summary-mode
