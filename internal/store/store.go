package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/autoneg/negolog/internal/logging"
	"github.com/autoneg/negolog/internal/outcome"
	"github.com/autoneg/negolog/internal/session"
	"github.com/autoneg/negolog/internal/strategy"
)

// ErrNotFound is returned when a session id is not in the store.
var ErrNotFound = errors.New("session not found")

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id     TEXT PRIMARY KEY,
	tournament_id  TEXT,
	name_a         TEXT NOT NULL,
	name_b         TEXT NOT NULL,
	strategy_a     TEXT NOT NULL,
	strategy_b     TEXT NOT NULL,
	state          TEXT NOT NULL,
	agreement_json TEXT,
	utility_a      REAL NOT NULL,
	utility_b      REAL NOT NULL,
	rounds         INTEGER NOT NULL,
	deadline       INTEGER NOT NULL,
	error          TEXT,
	issues_json    TEXT NOT NULL,
	profile_a_json TEXT NOT NULL,
	profile_b_json TEXT NOT NULL,
	created_at     TEXT NOT NULL,
	elapsed_ms     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS session_steps (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	round      INTEGER NOT NULL,
	time       REAL NOT NULL,
	actor      TEXT NOT NULL,
	action     TEXT NOT NULL,
	bid_key    TEXT,
	offer_json TEXT,
	utility_a  REAL NOT NULL,
	utility_b  REAL NOT NULL,
	trace_json TEXT,
	created_at TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);

CREATE INDEX IF NOT EXISTS idx_sessions_pair ON sessions(strategy_a, strategy_b);
CREATE INDEX IF NOT EXISTS idx_steps_session ON session_steps(session_id, seq);
`
// #endregion schema

// #region store-struct
// Store persists negotiation sessions and their transcripts in SQLite.
type Store struct {
	db *sql.DB
}
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	// foreign_keys is per connection, so it rides on the DSN for every pooled conn.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}
// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}
// #endregion db-accessor

// #region save-result
// SaveResult stores a finished session and its transcript atomically and returns
// its id. Results without an id, such as sessions that failed to start, get one.
func (s *Store) SaveResult(res session.Result, meta SessionMeta) (string, error) {
	if res.ID == "" {
		res.ID = uuid.New().String()
	}
	space, err := outcome.NewSpace(meta.Issues...)
	if err != nil {
		return "", fmt.Errorf("session space: %w", err)
	}
	issuesJSON, err := json.Marshal(meta.Issues)
	if err != nil {
		return "", fmt.Errorf("marshal issues: %w", err)
	}
	profA, err := json.Marshal(meta.ProfileA)
	if err != nil {
		return "", fmt.Errorf("marshal profile a: %w", err)
	}
	profB, err := json.Marshal(meta.ProfileB)
	if err != nil {
		return "", fmt.Errorf("marshal profile b: %w", err)
	}
	var agreement any
	if !res.Agreement.IsZero() {
		b, err := json.Marshal(space.Format(res.Agreement))
		if err != nil {
			return "", fmt.Errorf("marshal agreement: %w", err)
		}
		agreement = string(b)
	}
	var errText any
	if res.Err != nil {
		errText = res.Err.Error()
	}
	createdAt := res.StartedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO sessions (session_id, tournament_id, name_a, name_b, strategy_a, strategy_b, state,
		  agreement_json, utility_a, utility_b, rounds, deadline, error, issues_json, profile_a_json,
		  profile_b_json, created_at, elapsed_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID, nullIfEmpty(meta.TournamentID), res.NameA, res.NameB, res.StrategyA, res.StrategyB,
		res.State.String(), agreement, res.UtilityA, res.UtilityB, res.Rounds, res.Deadline, errText,
		string(issuesJSON), string(profA), string(profB),
		createdAt.UTC().Format(logging.TimeLayout), res.Elapsed.Milliseconds(),
	)
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}

	for i, st := range res.Steps {
		entry, err := stepEntry(res, i, st, space)
		if err != nil {
			return "", err
		}
		if err := logging.LogStep(tx, entry); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return res.ID, nil
}

func stepEntry(res session.Result, seq int, st session.Step, space *outcome.Space) (logging.StepEntry, error) {
	entry := logging.StepEntry{
		SessionID: res.ID,
		Seq:       seq,
		Round:     st.Round,
		Time:      st.Time,
		Actor:     st.Actor,
		Action:    st.Action.String(),
		BidKey:    st.Bid.Key(),
		UtilityA:  st.UtilityA,
		UtilityB:  st.UtilityB,
		CreatedAt: res.StartedAt.UTC(),
	}
	if !st.Bid.IsZero() {
		b, err := json.Marshal(space.Format(st.Bid))
		if err != nil {
			return entry, fmt.Errorf("marshal offer: %w", err)
		}
		entry.OfferJSON = string(b)
	}
	if st.Trace != nil {
		name := res.StrategyA
		if st.Actor == session.ActorB {
			name = res.StrategyB
		}
		b, err := json.Marshal(logging.DecisionRecord{Strategy: name, Target: st.Trace.Target, Threshold: st.Trace.Threshold})
		if err != nil {
			return entry, fmt.Errorf("marshal trace: %w", err)
		}
		entry.TraceJSON = string(b)
	}
	return entry, nil
}
// #endregion save-result

// #region get-session
// GetSession retrieves a stored session by id.
func (s *Store) GetSession(id string) (SessionRecord, error) {
	row := s.db.QueryRow(selectSession+` WHERE session_id = ?`, id)
	rec, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionRecord{}, fmt.Errorf("get session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return SessionRecord{}, fmt.Errorf("get session %s: %w", id, err)
	}
	return rec, nil
}
// #endregion get-session

// #region list-sessions
// ListSessions returns the most recent sessions, newest first.
func (s *Store) ListSessions(limit int) ([]SessionRecord, error) {
	rows, err := s.db.Query(selectSession+` ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
// #endregion list-sessions

// #region steps
// Steps returns a session's transcript in order.
func (s *Store) Steps(sessionID string) ([]StepRecord, error) {
	rows, err := s.db.Query(
		`SELECT seq, round, time, actor, action, bid_key, offer_json, utility_a, utility_b, trace_json
		 FROM session_steps WHERE session_id = ? ORDER BY seq`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	var out []StepRecord
	for rows.Next() {
		var rec StepRecord
		var bidKey, offerJSON, traceJSON sql.NullString
		if err := rows.Scan(&rec.Seq, &rec.Round, &rec.Time, &rec.Actor, &rec.Action,
			&bidKey, &offerJSON, &rec.UtilityA, &rec.UtilityB, &traceJSON); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		rec.BidKey = bidKey.String
		if offerJSON.Valid {
			if err := json.Unmarshal([]byte(offerJSON.String), &rec.Offer); err != nil {
				return nil, fmt.Errorf("unmarshal offer: %w", err)
			}
		}
		if traceJSON.Valid {
			var d logging.DecisionRecord
			if err := json.Unmarshal([]byte(traceJSON.String), &d); err != nil {
				return nil, fmt.Errorf("unmarshal trace: %w", err)
			}
			rec.Target, rec.Threshold, rec.HasTrace = d.Target, d.Threshold, true
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Transcript rebuilds session steps over space, for replay.
func (s *Store) Transcript(sessionID string, space *outcome.Space) ([]session.Step, error) {
	recs, err := s.Steps(sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]session.Step, len(recs))
	for i, r := range recs {
		st := session.Step{
			Round:    r.Round,
			Time:     r.Time,
			Actor:    r.Actor,
			Action:   strategy.ParseActionKind(r.Action),
			UtilityA: r.UtilityA,
			UtilityB: r.UtilityB,
		}
		if r.Offer != nil {
			bid, err := space.Parse(r.Offer)
			if err != nil {
				return nil, fmt.Errorf("step %d: %w", r.Seq, err)
			}
			st.Bid = bid
		}
		out[i] = st
	}
	return out, nil
}
// #endregion steps

// #region helpers
const selectSession = `SELECT session_id, tournament_id, name_a, name_b, strategy_a, strategy_b, state,
	agreement_json, utility_a, utility_b, rounds, deadline, error, issues_json, profile_a_json,
	profile_b_json, created_at, elapsed_ms FROM sessions`

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (SessionRecord, error) {
	var rec SessionRecord
	var tournamentID, agreementJSON, errText sql.NullString
	var state, issuesJSON, profA, profB, createdStr string
	var elapsedMS int64
	err := row.Scan(&rec.SessionID, &tournamentID, &rec.NameA, &rec.NameB, &rec.StrategyA, &rec.StrategyB,
		&state, &agreementJSON, &rec.UtilityA, &rec.UtilityB, &rec.Rounds, &rec.Deadline, &errText,
		&issuesJSON, &profA, &profB, &createdStr, &elapsedMS)
	if err != nil {
		return SessionRecord{}, err
	}
	rec.State = session.ParseState(state)
	rec.TournamentID = tournamentID.String
	rec.Error = errText.String
	if agreementJSON.Valid {
		if err := json.Unmarshal([]byte(agreementJSON.String), &rec.Agreement); err != nil {
			return SessionRecord{}, fmt.Errorf("unmarshal agreement: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(issuesJSON), &rec.Issues); err != nil {
		return SessionRecord{}, fmt.Errorf("unmarshal issues: %w", err)
	}
	if err := json.Unmarshal([]byte(profA), &rec.ProfileA); err != nil {
		return SessionRecord{}, fmt.Errorf("unmarshal profile a: %w", err)
	}
	if err := json.Unmarshal([]byte(profB), &rec.ProfileB); err != nil {
		return SessionRecord{}, fmt.Errorf("unmarshal profile b: %w", err)
	}
	rec.CreatedAt, _ = time.Parse(logging.TimeLayout, createdStr)
	rec.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	return rec, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
