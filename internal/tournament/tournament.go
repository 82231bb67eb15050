package tournament

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/autoneg/negolog/internal/eval"
	"github.com/autoneg/negolog/internal/opponent"
	"github.com/autoneg/negolog/internal/preference"
	"github.com/autoneg/negolog/internal/session"
	"github.com/autoneg/negolog/internal/strategy"
)

// #region types

// Matchup pairs a strategy for side A with one for side B.
type Matchup struct {
	StrategyA string
	StrategyB string
}

// Config controls a tournament run.
type Config struct {
	Workers    int
	Rounds     int
	Repeat     int // sessions per matchup
	Seed       int64
	Estimators bool // attach a frequency estimator to every strategy
}

// DefaultConfig runs each matchup once over 100 rounds on all CPUs.
func DefaultConfig() Config {
	return Config{
		Workers: runtime.NumCPU(),
		Rounds:  100,
		Repeat:  1,
		Seed:    1,
	}
}

// Resolver builds a strategy by name. strategy.New is the default.
type Resolver func(name string, p strategy.Params) (strategy.Strategy, error)

// PairSummary aggregates the sessions of one matchup.
type PairSummary struct {
	StrategyA     string
	StrategyB     string
	Sessions      int
	Agreements    int
	Errors        int
	AgreementRate float64
	MeanUtilityA  float64
	MeanUtilityB  float64
	MeanWelfare   float64
	MeanRounds    float64
	MeanParetoGap float64
}

// Report is the outcome of a tournament.
type Report struct {
	ID        string
	Results   []session.Result // in job order: matchup-major, then repetition
	Summaries []PairSummary    // in matchup order
}

// #endregion types

// #region tournament

// Tournament runs independent sessions between two preference profiles.
type Tournament struct {
	cfg      Config
	a, b     *preference.Model
	resolve  Resolver
	logger   *slog.Logger
	observer session.Observer
	harness  *eval.EvalHarness
}

// Option customizes a tournament.
type Option func(*Tournament)

// WithResolver replaces the strategy lookup, e.g. to include remote strategies.
func WithResolver(r Resolver) Option {
	return func(t *Tournament) { t.resolve = r }
}

// WithLogger sets the tournament logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tournament) { t.logger = l }
}

// WithObserver is forwarded to every session. It must be safe for concurrent use.
func WithObserver(o session.Observer) Option {
	return func(t *Tournament) { t.observer = o }
}

// New creates a tournament where side A negotiates with model a and side B with b.
func New(cfg Config, a, b *preference.Model, opts ...Option) *Tournament {
	t := &Tournament{
		cfg:     cfg,
		a:       a,
		b:       b,
		resolve: strategy.New,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(t)
	}
	if t.cfg.Workers < 1 {
		t.cfg.Workers = 1
	}
	if t.cfg.Repeat < 1 {
		t.cfg.Repeat = 1
	}
	t.harness = eval.NewEvalHarness(eval.DefaultEvalConfig(), a, b)
	return t
}

type job struct {
	index   int
	matchup Matchup
	seed    int64
}

// Run plays every matchup Repeat times on a bounded worker pool. Session failures
// are recorded in their results; only cancellation aborts the run.
func (t *Tournament) Run(ctx context.Context, matchups []Matchup) (Report, error) {
	report := Report{ID: uuid.New().String()}
	jobs := make([]job, 0, len(matchups)*t.cfg.Repeat)
	for _, m := range matchups {
		for r := 0; r < t.cfg.Repeat; r++ {
			idx := len(jobs)
			jobs = append(jobs, job{index: idx, matchup: m, seed: t.cfg.Seed + int64(idx)*2})
		}
	}
	results := make([]session.Result, len(jobs))
	t.logger.Info("tournament started", "id", report.ID, "sessions", len(jobs), "workers", t.cfg.Workers)

	queue := make(chan job)
	var wg sync.WaitGroup
	for w := 0; w < t.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range queue {
				results[j.index] = t.play(ctx, j)
			}
		}()
	}

	var runErr error
feed:
	for _, j := range jobs {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
			break feed
		case queue <- j:
		}
	}
	close(queue)
	wg.Wait()
	// Cancellation after the last job was queued still cuts running sessions short.
	if runErr == nil {
		runErr = ctx.Err()
	}
	if runErr != nil {
		return report, fmt.Errorf("tournament %s: %w", report.ID, runErr)
	}

	report.Results = results
	report.Summaries = t.summarize(matchups, results)
	t.logger.Info("tournament finished", "id", report.ID, "sessions", len(results))
	return report, nil
}

// play runs one session with fresh strategies. Construction failures become error results.
func (t *Tournament) play(ctx context.Context, j job) session.Result {
	fail := func(err error) session.Result {
		return session.Result{
			StrategyA: j.matchup.StrategyA,
			StrategyB: j.matchup.StrategyB,
			State:     session.StateError,
			Err:       err,
			Deadline:  t.cfg.Rounds,
		}
	}
	sa, err := t.resolve(j.matchup.StrategyA, t.params(t.a, t.b, j.seed))
	if err != nil {
		return fail(err)
	}
	sb, err := t.resolve(j.matchup.StrategyB, t.params(t.b, t.a, j.seed+1))
	if err != nil {
		return fail(err)
	}
	opts := []session.Option{session.WithLogger(t.logger)}
	if t.observer != nil {
		opts = append(opts, session.WithObserver(t.observer))
	}
	s, err := session.New(
		session.Party{Name: "A", Strategy: sa, Preference: t.a},
		session.Party{Name: "B", Strategy: sb, Preference: t.b},
		session.Config{Rounds: t.cfg.Rounds},
		opts...,
	)
	if err != nil {
		return fail(err)
	}
	res, err := s.Run(ctx)
	if err != nil {
		t.logger.Warn("session failed", "session", res.ID, "a", j.matchup.StrategyA, "b", j.matchup.StrategyB, "err", err)
	}
	return res
}

func (t *Tournament) params(own, other *preference.Model, seed int64) strategy.Params {
	p := strategy.Params{Preference: own, Deadline: t.cfg.Rounds, Seed: seed, Logger: t.logger}
	if t.cfg.Estimators {
		p.Estimators = []opponent.Estimator{opponent.NewFrequencyEstimator(own.Space(), opponent.DefaultFrequencyConfig())}
	}
	return p
}

// #endregion tournament

// #region summary

func (t *Tournament) summarize(matchups []Matchup, results []session.Result) []PairSummary {
	byPair := make(map[Matchup]*PairSummary)
	var order []Matchup
	for _, m := range matchups {
		if _, ok := byPair[m]; !ok {
			byPair[m] = &PairSummary{StrategyA: m.StrategyA, StrategyB: m.StrategyB}
			order = append(order, m)
		}
	}
	for i, res := range results {
		m := matchups[i/t.cfg.Repeat]
		ps := byPair[m]
		ps.Sessions++
		if res.State == session.StateError {
			ps.Errors++
			continue
		}
		if res.Agreed() {
			ps.Agreements++
		}
		ev := t.harness.Run(res)
		welfare, _ := ev.Metric("social_welfare")
		gap, _ := ev.Metric("pareto_distance")
		ps.MeanUtilityA += res.UtilityA
		ps.MeanUtilityB += res.UtilityB
		ps.MeanWelfare += welfare
		ps.MeanParetoGap += gap
		ps.MeanRounds += float64(res.Rounds)
	}
	out := make([]PairSummary, 0, len(order))
	for _, m := range order {
		ps := byPair[m]
		if ok := ps.Sessions - ps.Errors; ok > 0 {
			n := float64(ok)
			ps.MeanUtilityA /= n
			ps.MeanUtilityB /= n
			ps.MeanWelfare /= n
			ps.MeanParetoGap /= n
			ps.MeanRounds /= n
			ps.AgreementRate = float64(ps.Agreements) / n
		}
		out = append(out, *ps)
	}
	return out
}

// #endregion summary

// #region matchups

// RoundRobin returns every ordered pair of the given strategy names.
func RoundRobin(names []string) []Matchup {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	var out []Matchup
	for _, a := range sorted {
		for _, b := range sorted {
			out = append(out, Matchup{StrategyA: a, StrategyB: b})
		}
	}
	return out
}

// #endregion matchups
