package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/autoneg/negolog/internal/outcome"
	"github.com/autoneg/negolog/internal/session"
)

// #region output
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type stepRow struct {
	session.Step
	Offer map[string]string `json:"offer,omitempty"`
}

func printTranscript(space *outcome.Space, res session.Result) error {
	if jsonOut {
		rows := make([]stepRow, len(res.Steps))
		for i, st := range res.Steps {
			rows[i] = stepRow{Step: st}
			if !st.Bid.IsZero() {
				rows[i].Offer = space.Format(st.Bid)
			}
		}
		return printJSON(struct {
			ID       string    `json:"id"`
			State    string    `json:"state"`
			UtilityA float64   `json:"utility_a"`
			UtilityB float64   `json:"utility_b"`
			Rounds   int       `json:"rounds"`
			Steps    []stepRow `json:"steps"`
		}{res.ID, res.State.String(), res.UtilityA, res.UtilityB, res.Rounds, rows})
	}

	fmt.Printf("%-6s %-7s %-5s %-7s %-7s %-7s %-7s  %s\n", "Round", "Time", "Actor", "Action", "Util A", "Util B", "Target", "Bid")
	fmt.Printf("%-6s+%-7s+%-5s+%-7s+%-7s+%-7s+%-7s+-%s\n", "------", "-------", "-----", "-------", "-------", "-------", "-------", "--------------------")
	for _, st := range res.Steps {
		target := "-"
		if st.Trace != nil {
			target = fmt.Sprintf("%.4f", st.Trace.Target)
		}
		fmt.Printf("%-6d %-7.4f %-5s %-7s %-7.4f %-7.4f %-7s  %s\n",
			st.Round, st.Time, st.Actor, st.Action, st.UtilityA, st.UtilityB, target, space.String(st.Bid))
	}
	fmt.Printf("\nSession %s: %s after %d rounds (%s vs %s)\n", res.ID, res.State, res.Rounds, res.StrategyA, res.StrategyB)
	if res.Agreed() {
		fmt.Printf("Agreement: %s\n", space.String(res.Agreement))
	}
	fmt.Printf("Utility: A=%.4f B=%.4f\n", res.UtilityA, res.UtilityB)
	if res.Err != nil {
		fmt.Printf("Error: %v\n", res.Err)
	}
	return nil
}
// #endregion output
