package store

import (
	"fmt"
	"math"
	"time"

	"github.com/autoneg/negolog/internal/logging"
)

// #region pair-summaries
// PairSummaries aggregates every stored session by strategy pair, optionally
// restricted to one tournament.
func (s *Store) PairSummaries(tournamentID string) ([]PairStats, error) {
	query := `SELECT strategy_a, strategy_b, COUNT(*),
		SUM(CASE WHEN state = 'agreed' THEN 1 ELSE 0 END),
		SUM(CASE WHEN state = 'error' THEN 1 ELSE 0 END),
		AVG(utility_a), AVG(utility_b), AVG(rounds)
		FROM sessions`
	var args []any
	if tournamentID != "" {
		query += ` WHERE tournament_id = ?`
		args = append(args, tournamentID)
	}
	query += ` GROUP BY strategy_a, strategy_b ORDER BY strategy_a, strategy_b`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("pair summaries: %w", err)
	}
	defer rows.Close()

	var out []PairStats
	for rows.Next() {
		var p PairStats
		if err := rows.Scan(&p.StrategyA, &p.StrategyB, &p.Sessions, &p.Agreements, &p.Errors,
			&p.MeanUtilityA, &p.MeanUtilityB, &p.MeanRounds); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
// #endregion pair-summaries

// #region best-strategy
// HalfLife is the age at which a stored session counts half in BestStrategy.
const HalfLife = 7 * 24 * time.Hour

// BestStrategy returns the strategy with the highest decay-weighted utility
// earned against the opponent strategy, from either side of the table.
// Returns ("", 0, nil) when no strategy has minSamples sessions.
func (s *Store) BestStrategy(against string, minSamples int) (string, float64, error) {
	rows, err := s.db.Query(`
		SELECT strategy_a, utility_a, created_at FROM sessions WHERE strategy_b = ? AND state != 'error'
		UNION ALL
		SELECT strategy_b, utility_b, created_at FROM sessions WHERE strategy_a = ? AND state != 'error'`,
		against, against,
	)
	if err != nil {
		return "", 0, fmt.Errorf("best strategy: %w", err)
	}
	defer rows.Close()

	type accum struct {
		weightedSum float64
		totalWeight float64
		count       int
	}

	now := time.Now()
	byName := make(map[string]*accum)
	for rows.Next() {
		var name, createdStr string
		var utility float64
		if err := rows.Scan(&name, &utility, &createdStr); err != nil {
			return "", 0, fmt.Errorf("scan outcome: %w", err)
		}
		createdAt, err := time.Parse(logging.TimeLayout, createdStr)
		if err != nil {
			continue
		}
		weight := math.Pow(0.5, now.Sub(createdAt).Hours()/HalfLife.Hours())
		a, ok := byName[name]
		if !ok {
			a = &accum{}
			byName[name] = a
		}
		a.weightedSum += utility * weight
		a.totalWeight += weight
		a.count++
	}
	if err := rows.Err(); err != nil {
		return "", 0, err
	}

	best, bestScore := "", -1.0
	for name, a := range byName {
		if a.count < minSamples || a.totalWeight == 0 {
			continue
		}
		avg := a.weightedSum / a.totalWeight
		// Ties go to the lexically smaller name so results do not depend on map order.
		if avg > bestScore || (avg == bestScore && name < best) {
			best, bestScore = name, avg
		}
	}
	if best == "" {
		return "", 0, nil
	}
	return best, bestScore, nil
}
// #endregion best-strategy
