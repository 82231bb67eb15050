package tournament

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/autoneg/negolog/internal/outcome"
	"github.com/autoneg/negolog/internal/preference"
	"github.com/autoneg/negolog/internal/session"
	"github.com/autoneg/negolog/internal/strategy"
)

func models(t *testing.T) (*preference.Model, *preference.Model) {
	t.Helper()
	space, err := outcome.NewSpace(
		outcome.Issue{Name: "price", Values: []string{"low", "medium", "high"}},
		outcome.Issue{Name: "quantity", Values: []string{"1", "2", "3"}},
		outcome.Issue{Name: "delivery", Values: []string{"fast", "normal", "slow"}},
	)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	weights := map[string]float64{"price": 0.5, "quantity": 0.3, "delivery": 0.2}
	buyer, err := preference.New(space, preference.Profile{
		IssueWeights: weights,
		ValueScores: map[string]map[string]float64{
			"price":    {"low": 1, "medium": 0.5, "high": 0},
			"quantity": {"1": 0, "2": 0.5, "3": 1},
			"delivery": {"fast": 1, "normal": 0.5, "slow": 0},
		},
	})
	if err != nil {
		t.Fatalf("buyer: %v", err)
	}
	seller, err := preference.New(space, preference.Profile{
		IssueWeights: weights,
		ValueScores: map[string]map[string]float64{
			"price":    {"low": 0, "medium": 0.5, "high": 1},
			"quantity": {"1": 1, "2": 0.5, "3": 0},
			"delivery": {"fast": 0, "normal": 0.5, "slow": 1},
		},
	})
	if err != nil {
		t.Fatalf("seller: %v", err)
	}
	return buyer, seller
}

func TestRoundRobin(t *testing.T) {
	got := RoundRobin([]string{"linear", "boulware"})
	if len(got) != 4 {
		t.Fatalf("expected 4 matchups, got %d", len(got))
	}
	if got[0] != (Matchup{"boulware", "boulware"}) || got[3] != (Matchup{"linear", "linear"}) {
		t.Errorf("unexpected order %v", got)
	}
}

func TestRun_SummariesAndOrder(t *testing.T) {
	buyer, seller := models(t)
	var mu sync.Mutex
	steps := 0
	tour := New(Config{Workers: 3, Rounds: 100, Repeat: 2, Seed: 5, Estimators: true}, buyer, seller,
		WithObserver(func(string, session.Step) {
			mu.Lock()
			steps++
			mu.Unlock()
		}))
	matchups := []Matchup{{"boulware", "conceder"}, {"linear", "linear"}}
	report, err := tour.Run(context.Background(), matchups)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Results) != 4 || len(report.Summaries) != 2 {
		t.Fatalf("expected 4 results and 2 summaries, got %d and %d", len(report.Results), len(report.Summaries))
	}
	if report.Results[0].StrategyA != "boulware" || report.Results[3].StrategyA != "linear" {
		t.Errorf("results not in job order")
	}
	bc := report.Summaries[0]
	if bc.Sessions != 2 || bc.AgreementRate != 1 {
		t.Errorf("expected boulware-conceder to always agree, got %+v", bc)
	}
	if bc.MeanUtilityA < 0.5 || bc.MeanUtilityB < 0.5 {
		t.Errorf("expected fair split, got %+v", bc)
	}
	total := 0
	for _, r := range report.Results {
		total += len(r.Steps)
	}
	if steps != total {
		t.Errorf("observer saw %d steps, transcripts hold %d", steps, total)
	}
}

func TestRun_Deterministic(t *testing.T) {
	buyer, seller := models(t)
	matchups := RoundRobin([]string{"parscat", "iamhaggler"})
	run := func() Report {
		r, err := New(Config{Workers: 4, Rounds: 40, Repeat: 1, Seed: 9}, buyer, seller).Run(context.Background(), matchups)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return r
	}
	a, b := run(), run()
	for i := range a.Results {
		ra, rb := a.Results[i], b.Results[i]
		if ra.State != rb.State || ra.Rounds != rb.Rounds || ra.UtilityA != rb.UtilityA {
			t.Fatalf("session %d differs: %v/%d vs %v/%d", i, ra.State, ra.Rounds, rb.State, rb.Rounds)
		}
	}
}

func TestRun_UnknownStrategyIsRecorded(t *testing.T) {
	buyer, seller := models(t)
	report, err := New(DefaultConfig(), buyer, seller).Run(context.Background(), []Matchup{{"boulware", "missing"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	res := report.Results[0]
	if res.State != session.StateError || !errors.Is(res.Err, strategy.ErrUnknownStrategy) {
		t.Errorf("expected recorded ErrUnknownStrategy, got %v %v", res.State, res.Err)
	}
	if report.Summaries[0].Errors != 1 {
		t.Errorf("expected one error in summary, got %+v", report.Summaries[0])
	}
}

func TestRun_CustomResolver(t *testing.T) {
	buyer, seller := models(t)
	calls := 0
	var mu sync.Mutex
	resolve := func(name string, p strategy.Params) (strategy.Strategy, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return strategy.New("linear", p)
	}
	if _, err := New(Config{Workers: 1, Rounds: 10, Repeat: 3}, buyer, seller, WithResolver(resolve)).
		Run(context.Background(), []Matchup{{"x", "y"}}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != 6 {
		t.Errorf("expected 6 resolver calls, got %d", calls)
	}
}

func TestRun_Canceled(t *testing.T) {
	buyer, seller := models(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Config{Workers: 1, Rounds: 10}, buyer, seller).Run(ctx, RoundRobin(strategy.Names()))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRun_CanceledAfterQueueing(t *testing.T) {
	buyer, seller := models(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// The only job is already with a worker when the context goes away.
	resolve := func(name string, p strategy.Params) (strategy.Strategy, error) {
		cancel()
		return strategy.New(name, p)
	}
	_, err := New(Config{Workers: 1, Rounds: 10}, buyer, seller, WithResolver(resolve)).
		Run(ctx, []Matchup{{"boulware", "conceder"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
