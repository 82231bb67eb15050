package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// #region execer
// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}
// #endregion execer

// #region log-step
// LogStep writes a transcript entry to the session_steps table.
func LogStep(db Execer, entry StepEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO session_steps (session_id, seq, round, time, actor, action, bid_key, offer_json, utility_a, utility_b, trace_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.SessionID,
		entry.Seq,
		entry.Round,
		entry.Time,
		entry.Actor,
		entry.Action,
		nullIfEmpty(entry.BidKey),
		nullIfEmpty(entry.OfferJSON),
		entry.UtilityA,
		entry.UtilityB,
		nullIfEmpty(entry.TraceJSON),
		entry.CreatedAt.UTC().Format(TimeLayout),
	)
	if err != nil {
		return fmt.Errorf("log step: %w", err)
	}
	return nil
}
// #endregion log-step

// #region helpers
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
