package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/autoneg/negolog/internal/preference"
)

// #region load-tests
func TestLoadScenario_File(t *testing.T) {
	sc, err := LoadScenario(filepath.Join("testdata", "trade.yaml"))
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	if sc.Name != "trade" || len(sc.Issues) != 3 {
		t.Fatalf("unexpected scenario: %+v", sc)
	}
	if sc.PartyA.Strategy != "boulware" || sc.PartyB.Strategy != "conceder" {
		t.Errorf("unexpected strategies %s/%s", sc.PartyA.Strategy, sc.PartyB.Strategy)
	}
	if sc.Session.Rounds != 100 || sc.Session.Seed != 7 {
		t.Errorf("unexpected session spec: %+v", sc.Session)
	}
	if sc.Tournament.Repeat != 2 || len(sc.Tournament.Strategies) != 3 {
		t.Errorf("unexpected tournament spec: %+v", sc.Tournament)
	}
	if sc.PartyB.Reservation != 0.1 {
		t.Errorf("expected seller reservation 0.1, got %v", sc.PartyB.Reservation)
	}
}

func TestLoadScenario_Defaults(t *testing.T) {
	t.Setenv("NEGOLOG_DB", "")
	t.Setenv("NEGOLOG_ADDR", "")
	path := filepath.Join(t.TempDir(), "min.yaml")
	minimal := "issues:\n  - name: price\n    values: [low, high]\n" +
		"party_a:\n  weights: {price: 1}\n  scores: {price: {low: 1, high: 0}}\n" +
		"party_b:\n  weights: {price: 1}\n  scores: {price: {low: 0, high: 1}}\n"
	if err := os.WriteFile(path, []byte(minimal), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	if sc.PartyA.Name != "A" || sc.PartyB.Name != "B" {
		t.Errorf("expected default party names, got %s/%s", sc.PartyA.Name, sc.PartyB.Name)
	}
	if sc.PartyA.Strategy != "boulware" || sc.Session.Rounds != 100 || sc.Session.Seed != 1 {
		t.Errorf("defaults not applied: %+v %+v", sc.PartyA, sc.Session)
	}
	if sc.Store.Path != "negolog.db" || sc.RPC.Addr != "localhost:50061" || sc.Tournament.Repeat != 1 {
		t.Errorf("defaults not applied: %+v %+v %+v", sc.Store, sc.RPC, sc.Tournament)
	}
}

func TestLoadScenario_EnvOverrides(t *testing.T) {
	t.Setenv("NEGOLOG_DB", "/tmp/other.db")
	t.Setenv("NEGOLOG_ADDR", "127.0.0.1:9999")
	sc, err := LoadScenario(filepath.Join("testdata", "trade.yaml"))
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	if sc.Store.Path != "/tmp/other.db" || sc.RPC.Addr != "127.0.0.1:9999" {
		t.Errorf("env overrides not applied: %+v %+v", sc.Store, sc.RPC)
	}
}

func TestLoadScenario_Errors(t *testing.T) {
	if _, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	tests := []struct {
		name string
		body string
	}{
		{"no-issues", "name: empty\n"},
		{"bad-rounds", "issues: [{name: a, values: [x]}]\nsession: {rounds: -3}\n"},
		{"same-names", "issues: [{name: a, values: [x]}]\nparty_a: {name: me}\nparty_b: {name: me}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "s.yaml")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := LoadScenario(path); !errors.Is(err, ErrInvalidScenario) {
				t.Fatalf("expected ErrInvalidScenario, got %v", err)
			}
		})
	}

	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("issues: [\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadScenario(path); err == nil || errors.Is(err, ErrInvalidScenario) {
		t.Errorf("expected parse error, got %v", err)
	}
}

// #endregion load-tests

// #region build-tests
func TestBuild_Default(t *testing.T) {
	b, err := Default().Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if b.Space.Size() != 27 {
		t.Fatalf("expected 27 bids, got %d", b.Space.Size())
	}
	best, err := b.ModelA.BestBid()
	if err != nil {
		t.Fatalf("BestBid: %v", err)
	}
	if b.ModelB.Utility(best) != 0 {
		t.Errorf("expected zero-sum profiles, seller utility %v", b.ModelB.Utility(best))
	}
}

func TestBuild_InvalidProfile(t *testing.T) {
	sc := Default()
	sc.PartyB.Weights = map[string]float64{"price": 1}
	if _, err := sc.Build(); !errors.Is(err, preference.ErrInvalidProfile) {
		t.Fatalf("expected ErrInvalidProfile, got %v", err)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	sc := Default()
	sc.Session.Seed = 42
	if err := sc.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	if got.Session.Seed != 42 || got.PartyA.Scores["price"]["low"] != 1 {
		t.Errorf("round trip lost data: %+v", got)
	}
}

// #endregion build-tests
