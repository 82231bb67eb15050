package session

import (
	"context"
	"errors"
	"testing"

	"github.com/autoneg/negolog/internal/outcome"
	"github.com/autoneg/negolog/internal/preference"
	"github.com/autoneg/negolog/internal/strategy"
)

// #region helpers
func tradeSpace(t *testing.T) *outcome.Space {
	t.Helper()
	s, err := outcome.NewSpace(
		outcome.Issue{Name: "price", Values: []string{"low", "medium", "high"}},
		outcome.Issue{Name: "quantity", Values: []string{"1", "2", "3"}},
		outcome.Issue{Name: "delivery", Values: []string{"fast", "normal", "slow"}},
	)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	return s
}

func models(t *testing.T) (buyer, seller *preference.Model) {
	t.Helper()
	space := tradeSpace(t)
	weights := map[string]float64{"price": 0.5, "quantity": 0.3, "delivery": 0.2}
	b, err := preference.New(space, preference.Profile{
		IssueWeights: weights,
		ValueScores: map[string]map[string]float64{
			"price":    {"low": 1.0, "medium": 0.5, "high": 0.0},
			"quantity": {"1": 0.0, "2": 0.5, "3": 1.0},
			"delivery": {"fast": 1.0, "normal": 0.5, "slow": 0.0},
		},
	})
	if err != nil {
		t.Fatalf("buyer: %v", err)
	}
	s, err := preference.New(space, preference.Profile{
		IssueWeights: weights,
		ValueScores: map[string]map[string]float64{
			"price":    {"low": 0.0, "medium": 0.5, "high": 1.0},
			"quantity": {"1": 1.0, "2": 0.5, "3": 0.0},
			"delivery": {"fast": 0.0, "normal": 0.5, "slow": 1.0},
		},
	})
	if err != nil {
		t.Fatalf("seller: %v", err)
	}
	return b, s
}

func party(t *testing.T, name, strat string, m *preference.Model, rounds int) Party {
	t.Helper()
	st, err := strategy.New(strat, strategy.Params{Preference: m, Deadline: rounds, Seed: 1})
	if err != nil {
		t.Fatalf("strategy.New(%s): %v", strat, err)
	}
	return Party{Name: name, Strategy: st, Preference: m}
}

type termCall struct {
	agreed   bool
	opponent string
	score    float64
}

// scripted plays a fixed list of actions and records lifecycle calls.
type scripted struct {
	actions   []strategy.Action
	next      int
	initiated []string
	received  int
	terms     []termCall
}

func (s *scripted) Name() string             { return "scripted" }
func (s *scripted) Initiate(opponent string) { s.initiated = append(s.initiated, opponent) }
func (s *scripted) ReceiveOffer(outcome.Bid, float64) {
	s.received++
}
func (s *scripted) Act(float64) strategy.Action {
	if s.next >= len(s.actions) {
		return s.actions[len(s.actions)-1]
	}
	a := s.actions[s.next]
	s.next++
	return a
}
func (s *scripted) Terminate(agreed bool, opponent string, score float64) {
	s.terms = append(s.terms, termCall{agreed, opponent, score})
}

// #endregion helpers

// #region scenario-tests
func TestRun_BoulwareVsConcederAgrees(t *testing.T) {
	buyer, seller := models(t)
	s, err := New(
		party(t, "buyer", "boulware", buyer, 100),
		party(t, "seller", "conceder", seller, 100),
		Config{Rounds: 100},
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State != StateAgreed {
		t.Fatalf("expected agreement, got %v after %d rounds", res.State, res.Rounds)
	}
	if res.UtilityA < 0.5 || res.UtilityB < 0.5 {
		t.Errorf("expected both utilities >= 0.5, got %v / %v", res.UtilityA, res.UtilityB)
	}
	last := res.Steps[len(res.Steps)-1]
	if last.Action != strategy.ActionAccept || !last.Bid.Equal(res.Agreement) {
		t.Errorf("last step should accept the agreement, got %+v", last)
	}
	if res.Rounds > 100 {
		t.Errorf("ran %d rounds past the deadline", res.Rounds)
	}
}

func TestRun_BoulwareVsBoulwareOneRoundTimesOut(t *testing.T) {
	buyer, seller := models(t)
	s, err := New(
		party(t, "buyer", "boulware", buyer, 1),
		party(t, "seller", "boulware", seller, 1),
		Config{Rounds: 1},
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State != StateTimedOut {
		t.Fatalf("expected timeout, got %v", res.State)
	}
	if len(res.Steps) != 2 {
		t.Errorf("expected one offer from each side, got %d steps", len(res.Steps))
	}
	if res.Steps[0].Time != 0 || res.Steps[1].Time != 0.5 {
		t.Errorf("unexpected step times %v, %v", res.Steps[0].Time, res.Steps[1].Time)
	}
	if res.UtilityA != buyer.Reservation() {
		t.Errorf("expected reservation utility without agreement, got %v", res.UtilityA)
	}
}

func TestRun_AllPairsTerminate(t *testing.T) {
	buyer, seller := models(t)
	for _, a := range strategy.Names() {
		for _, b := range strategy.Names() {
			t.Run(a+"-vs-"+b, func(t *testing.T) {
				s, err := New(party(t, "A", a, buyer, 60), party(t, "B", b, seller, 60), Config{Rounds: 60})
				if err != nil {
					t.Fatalf("New: %v", err)
				}
				res, err := s.Run(context.Background())
				if err != nil {
					t.Fatalf("Run: %v", err)
				}
				if res.State != StateAgreed && res.State != StateTimedOut {
					t.Fatalf("unexpected terminal state %v", res.State)
				}
				if res.Rounds > 60 {
					t.Fatalf("exceeded round budget: %d", res.Rounds)
				}
			})
		}
	}
}

// #endregion scenario-tests

// #region error-tests
func TestRun_Errors(t *testing.T) {
	buyer, seller := models(t)
	best, _ := buyer.BestBid()
	tests := []struct {
		name    string
		actions []strategy.Action
		want    error
	}{
		{"none", []strategy.Action{strategy.None()}, ErrNoAction},
		{"accept-without-offer", []strategy.Action{strategy.Accept()}, ErrInvalidAction},
		{"bid-outside-space", []strategy.Action{strategy.Offer(outcome.NewBid(9, 9, 9))}, ErrInvalidAction},
		{"malformed-bid", []strategy.Action{strategy.Offer(outcome.Bid{})}, ErrInvalidAction},
		{"none-later", []strategy.Action{strategy.Offer(best), strategy.None()}, ErrNoAction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &scripted{actions: tt.actions}
			s, err := New(Party{Name: "A", Strategy: a, Preference: buyer}, party(t, "B", "boulware", seller, 10), Config{Rounds: 10})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			res, err := s.Run(context.Background())
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if res.State != StateError || s.State() != StateError {
				t.Errorf("expected error state, got %v", res.State)
			}
			if len(a.terms) != 1 || a.terms[0].agreed {
				t.Errorf("expected one non-agreed Terminate, got %+v", a.terms)
			}
		})
	}
}

func TestRun_CanceledContext(t *testing.T) {
	buyer, seller := models(t)
	s, err := New(party(t, "A", "boulware", buyer, 10), party(t, "B", "boulware", seller, 10), Config{Rounds: 10})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := s.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res.State != StateError || len(res.Steps) != 0 {
		t.Errorf("expected error before any step, got %v with %d steps", res.State, len(res.Steps))
	}
}

func TestRun_OnlyOnce(t *testing.T) {
	buyer, seller := models(t)
	s, _ := New(party(t, "A", "linear", buyer, 5), party(t, "B", "linear", seller, 5), Config{Rounds: 5})
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := s.Run(context.Background()); !errors.Is(err, ErrAlreadyRun) {
		t.Fatalf("expected ErrAlreadyRun, got %v", err)
	}
}

func TestNew_Invalid(t *testing.T) {
	buyer, _ := models(t)
	other, err := outcome.NewSpace(outcome.Issue{Name: "price", Values: []string{"low", "high"}})
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	om, err := preference.New(other, preference.Profile{
		IssueWeights: map[string]float64{"price": 1},
		ValueScores:  map[string]map[string]float64{"price": {"low": 1, "high": 0}},
	})
	if err != nil {
		t.Fatalf("preference.New: %v", err)
	}
	a := party(t, "A", "linear", buyer, 5)
	if _, err := New(a, Party{Name: "B", Strategy: &scripted{}, Preference: om}, Config{Rounds: 5}); !errors.Is(err, ErrIncompatible) {
		t.Errorf("expected ErrIncompatible, got %v", err)
	}
	if _, err := New(a, Party{Name: "B"}, Config{Rounds: 5}); !errors.Is(err, ErrInvalidParty) {
		t.Errorf("expected ErrInvalidParty, got %v", err)
	}
}

// #endregion error-tests

// #region lifecycle-tests
func TestRun_LifecycleCalls(t *testing.T) {
	buyer, seller := models(t)
	best, _ := buyer.BestBid()
	a := &scripted{actions: []strategy.Action{strategy.Offer(best)}}
	b := &scripted{actions: []strategy.Action{strategy.Offer(best), strategy.Accept()}}
	var observed []Step
	s, err := New(
		Party{Name: "alice", Strategy: a, Preference: buyer},
		Party{Name: "bob", Strategy: b, Preference: seller},
		Config{Rounds: 10},
		WithObserver(func(_ string, st Step) { observed = append(observed, st) }),
		WithID("fixed-id"),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ID != "fixed-id" || res.State != StateAgreed {
		t.Fatalf("unexpected result %s %v", res.ID, res.State)
	}
	// A offers, B counters, A offers, B accepts in round 1.
	if res.Rounds != 2 || len(observed) != 4 {
		t.Errorf("expected 2 rounds and 4 observed steps, got %d and %d", res.Rounds, len(observed))
	}
	if len(a.initiated) != 1 || a.initiated[0] != "bob" {
		t.Errorf("A initiated with %v", a.initiated)
	}
	if len(a.terms) != 1 || !a.terms[0].agreed || a.terms[0].opponent != "bob" || a.terms[0].score != 1 {
		t.Errorf("A terminate calls %+v", a.terms)
	}
	if len(b.terms) != 1 || b.terms[0].score != 0 {
		t.Errorf("B terminate calls %+v", b.terms)
	}
	if a.received != 1 || b.received != 2 {
		t.Errorf("unexpected offer deliveries A=%d B=%d", a.received, b.received)
	}
}

func TestState_TextRoundTrip(t *testing.T) {
	for _, st := range []State{StateNotStarted, StateRunning, StateAgreed, StateTimedOut, StateError} {
		if got := ParseState(st.String()); got != st {
			t.Errorf("ParseState(%q) = %v", st.String(), got)
		}
		text, _ := st.MarshalText()
		var back State
		if err := back.UnmarshalText(text); err != nil || back != st {
			t.Errorf("text round trip of %v gave %v (%v)", st, back, err)
		}
	}
	if got := ParseState("bogus"); got != StateNotStarted {
		t.Errorf("unknown state parsed as %v", got)
	}
}

// #endregion lifecycle-tests
