package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/autoneg/negolog/internal/replay"
	"github.com/autoneg/negolog/internal/session"
)

// #region export-cmd
var (
	exportSession string
	exportActor   string
	exportOut     string
	exportSeed    int64
)

var exportCmd = &cobra.Command{
	Use:   "export-fixture",
	Short: "Export one side of a stored session as a replay fixture",
	Long: `Write the offers one side received, its preferences and its recorded moves
as a JSON fixture that "negolog replay --fixture" can check.

Examples:
  negolog export-fixture --session 3f2a... --actor B --out seller.json`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportSession, "session", "", "stored session id")
	exportCmd.Flags().StringVar(&exportActor, "actor", session.ActorA, "side to export, A or B")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output fixture JSON path")
	exportCmd.Flags().Int64Var(&exportSeed, "seed", 1, "strategy seed recorded in the fixture")
	exportCmd.MarkFlagRequired("session")
	exportCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	sc, err := loadScenario()
	if err != nil {
		return err
	}
	st, err := openStore(sc)
	if err != nil {
		return err
	}
	defer st.Close()

	side, err := loadSide(st, exportSession, exportActor)
	if err != nil {
		return err
	}
	if len(side.recorded) == 0 {
		return fmt.Errorf("session %s has no moves by %s", exportSession, exportActor)
	}

	config := replay.DefaultReplayConfig()
	config.Strategy = side.strategy
	config.Seed = exportSeed
	config.Deadline = side.record.Deadline
	desc := fmt.Sprintf("Stored session %s: %s as %s, %s after %d moves",
		side.record.SessionID, side.strategy, exportActor, side.record.State, len(side.recorded))
	fixture := replay.NewFixture(desc, side.model, side.profile, config, side.interactions, side.recorded)

	if err := replay.SaveFixture(exportOut, fixture); err != nil {
		return err
	}
	fmt.Printf("Wrote fixture to %s (%d interactions)\n", exportOut, len(fixture.Interactions))
	return nil
}
// #endregion export-cmd
