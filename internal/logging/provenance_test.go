package logging

import (
	"bytes"
	"database/sql"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`CREATE TABLE session_steps (
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
		created_at TEXT NOT NULL
	)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

// #endregion helpers

// #region log-step-tests
func TestLogStep_Success(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	entry := StepEntry{
		SessionID: "s1",
		Seq:       3,
		Round:     1,
		Time:      0.15,
		Actor:     "B",
		Action:    "offer",
		BidKey:    "2,0,1",
		OfferJSON: `{"price":"high"}`,
		UtilityA:  0.25,
		UtilityB:  0.75,
		TraceJSON: `{"target":0.8}`,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := LogStep(db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM session_steps").Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}

	var sessionID, action string
	var utilB float64
	db.QueryRow("SELECT session_id, action, utility_b FROM session_steps").Scan(&sessionID, &action, &utilB)
	if sessionID != "s1" || action != "offer" || utilB != 0.75 {
		t.Errorf("unexpected row %q %q %v", sessionID, action, utilB)
	}
}

func TestLogStep_ZeroCreatedAt(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	before := time.Now().UTC()
	if err := LogStep(db, StepEntry{SessionID: "s2", Actor: "A", Action: "accept"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var createdAtStr string
	db.QueryRow("SELECT created_at FROM session_steps").Scan(&createdAtStr)
	createdAt, err := time.Parse(TimeLayout, createdAtStr)
	if err != nil {
		t.Fatalf("parse created_at: %v", err)
	}
	if createdAt.Before(before) {
		t.Error("expected auto-filled created_at to be >= test start time")
	}
}

func TestLogStep_EmptyOptionalFields(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	if err := LogStep(db, StepEntry{SessionID: "s3", Actor: "A", Action: "none"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var bidKey, offerJSON, traceJSON sql.NullString
	db.QueryRow("SELECT bid_key, offer_json, trace_json FROM session_steps").Scan(&bidKey, &offerJSON, &traceJSON)
	if bidKey.Valid || offerJSON.Valid || traceJSON.Valid {
		t.Error("expected NULL for empty optional fields")
	}
}

func TestLogStep_InTransaction(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := LogStep(tx, StepEntry{SessionID: "s4", Actor: "A", Action: "offer"}); err != nil {
		t.Fatalf("LogStep: %v", err)
	}
	tx.Rollback()

	var count int
	db.QueryRow("SELECT COUNT(*) FROM session_steps").Scan(&count)
	if count != 0 {
		t.Errorf("expected rollback to discard the row, got %d", count)
	}
}

func TestLogStep_Error(t *testing.T) {
	db := setupDB(t)
	db.Close() // close to force error

	if err := LogStep(db, StepEntry{SessionID: "s5"}); err == nil {
		t.Fatal("expected error on closed db")
	}
}

// #endregion log-step-tests

// #region null-if-empty-tests
func TestNullIfEmpty_Empty(t *testing.T) {
	result := nullIfEmpty("")
	if result != nil {
		t.Errorf("expected nil for empty string, got %v", result)
	}
}

func TestNullIfEmpty_NonEmpty(t *testing.T) {
	result := nullIfEmpty("hello")
	if result != "hello" {
		t.Errorf("expected 'hello', got %v", result)
	}
}

// #endregion null-if-empty-tests

// #region logger-tests
func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLogger(&buf, "warn", "json")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	l.Info("hidden")
	l.Warn("shown", "k", 1)
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"msg":"shown"`) {
		t.Errorf("unexpected output %q", out)
	}
	if _, err := NewLogger(&buf, "loud", "text"); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := NewLogger(&buf, "info", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

// #endregion logger-tests
