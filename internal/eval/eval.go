package eval

import (
	"fmt"
	"math"
	"sort"

	"github.com/autoneg/negolog/internal/opponent"
	"github.com/autoneg/negolog/internal/preference"
	"github.com/autoneg/negolog/internal/session"
)

// #region eval-harness
// EvalHarness scores negotiation outcomes for a fixed pair of preference models.
type EvalHarness struct {
	config   EvalConfig
	a, b     *preference.Model
	frontier []Point
	bestNash float64
}

// NewEvalHarness precomputes the Pareto frontier and the best Nash product.
func NewEvalHarness(config EvalConfig, a, b *preference.Model) *EvalHarness {
	h := &EvalHarness{config: config, a: a, b: b}
	h.frontier = ParetoFrontier(a, b)
	for _, p := range h.frontier {
		h.bestNash = math.Max(h.bestNash, nashProduct(p, a.Reservation(), b.Reservation()))
	}
	return h
}

// Frontier returns the Pareto-optimal points sorted by descending utility for A.
func (h *EvalHarness) Frontier() []Point {
	return append([]Point(nil), h.frontier...)
}

// Run measures one session result.
func (h *EvalHarness) Run(res session.Result) EvalResult {
	var metrics []EvalMetric
	passed := true
	var failReasons []string

	p := Point{UtilityA: res.UtilityA, UtilityB: res.UtilityB}

	// 1. Agreement
	agreed := res.Agreed()
	agreePass := agreed || !h.config.RequireAgreement
	metrics = append(metrics, EvalMetric{Name: "agreement", Value: boolValue(agreed), Pass: agreePass})
	if !agreePass {
		passed = false
		failReasons = append(failReasons, "no agreement")
	}

	// 2. Social welfare
	welfare := p.UtilityA + p.UtilityB
	welfarePass := welfare >= h.config.MinSocialWelfare
	metrics = append(metrics, EvalMetric{Name: "social_welfare", Value: welfare, Pass: welfarePass})
	if !welfarePass {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("social welfare %.4f below %.4f", welfare, h.config.MinSocialWelfare))
	}

	// 3. Pareto distance
	dist := h.ParetoDistance(p)
	distPass := dist <= h.config.MaxParetoDistance
	metrics = append(metrics,
		EvalMetric{Name: "pareto_distance", Value: dist, Pass: distPass},
		EvalMetric{Name: "pareto_optimal", Value: boolValue(agreed && dist < 1e-9), Pass: true},
	)
	if !distPass {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("pareto distance %.4f exceeds %.4f", dist, h.config.MaxParetoDistance))
	}

	// 4. Nash: informational only
	nash := nashProduct(p, h.a.Reservation(), h.b.Reservation())
	ratio := 0.0
	if h.bestNash > 0 {
		ratio = nash / h.bestNash
	}
	metrics = append(metrics,
		EvalMetric{Name: "nash_product", Value: nash, Pass: true},
		EvalMetric{Name: "nash_ratio", Value: ratio, Pass: ratio >= h.config.MinNashRatio},
	)

	reason := "all checks passed"
	if !passed {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}
	return EvalResult{Passed: passed, Metrics: metrics, Reason: reason}
}

// ParetoDistance is the Euclidean distance from p to the nearest frontier point.
func (h *EvalHarness) ParetoDistance(p Point) float64 {
	best := math.Inf(1)
	for _, q := range h.frontier {
		best = math.Min(best, math.Hypot(p.UtilityA-q.UtilityA, p.UtilityB-q.UtilityB))
	}
	if math.IsInf(best, 1) {
		return 0
	}
	return best
}

// #endregion eval-harness

// #region frontier
// ParetoFrontier returns the non-dominated outcome points, deduplicated, sorted by
// descending utility for A.
func ParetoFrontier(a, b *preference.Model) []Point {
	bids := a.Space().Enumerate()
	pts := make([]Point, len(bids))
	for i, bid := range bids {
		pts[i] = Point{UtilityA: a.Utility(bid), UtilityB: b.Utility(bid)}
	}
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].UtilityA != pts[j].UtilityA {
			return pts[i].UtilityA > pts[j].UtilityA
		}
		return pts[i].UtilityB > pts[j].UtilityB
	})
	var out []Point
	bestB := math.Inf(-1)
	for _, p := range pts {
		if p.UtilityB > bestB {
			out = append(out, p)
			bestB = p.UtilityB
		}
	}
	return out
}

// #endregion frontier

// #region estimator-accuracy
// EstimatorRMSE is the root mean squared error of an opponent estimator against
// the opponent's true preference model over the whole space.
func EstimatorRMSE(est opponent.Estimator, truth *preference.Model) float64 {
	bids := truth.Space().Enumerate()
	if len(bids) == 0 {
		return 0
	}
	var sum float64
	for _, bid := range bids {
		d := est.Utility(bid) - truth.Utility(bid)
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(bids)))
}

// #endregion estimator-accuracy

// #region helpers
func nashProduct(p Point, resA, resB float64) float64 {
	return math.Max(0, p.UtilityA-resA) * math.Max(0, p.UtilityB-resB)
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers
