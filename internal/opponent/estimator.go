package opponent

import (
	"github.com/autoneg/negolog/internal/outcome"
)

// #region estimator

// Estimator learns the opponent's preferences from the offers it makes.
type Estimator interface {
	Name() string
	Update(bid outcome.Bid, t float64)
	Utility(bid outcome.Bid) float64
}

// FrequencyConfig controls how fast issue weights shift toward stable issues.
type FrequencyConfig struct {
	LearningRate float64
}

// DefaultFrequencyConfig returns the standard learning rate.
func DefaultFrequencyConfig() FrequencyConfig {
	return FrequencyConfig{LearningRate: 0.1}
}

// FrequencyEstimator assumes issues the opponent rarely changes matter most to it,
// and values it offers often score highest.
type FrequencyEstimator struct {
	cfg     FrequencyConfig
	space   *outcome.Space
	weights []float64
	counts  [][]int
	last    outcome.Bid
	updates int
}

// NewFrequencyEstimator starts from uniform weights and no value counts.
func NewFrequencyEstimator(space *outcome.Space, cfg FrequencyConfig) *FrequencyEstimator {
	n := space.NumIssues()
	e := &FrequencyEstimator{
		cfg:     cfg,
		space:   space,
		weights: make([]float64, n),
		counts:  make([][]int, n),
	}
	for i, issue := range space.Issues() {
		e.weights[i] = 1 / float64(n)
		e.counts[i] = make([]int, len(issue.Values))
	}
	return e
}

// Name identifies the estimator.
func (e *FrequencyEstimator) Name() string { return "frequency" }

// Update folds one opponent offer into the model. Bids outside the space are ignored.
func (e *FrequencyEstimator) Update(bid outcome.Bid, _ float64) {
	if !e.space.Contains(bid) {
		return
	}
	if !e.last.IsZero() {
		var total float64
		for i := range e.weights {
			if bid.Index(i) == e.last.Index(i) {
				e.weights[i] += e.cfg.LearningRate
			}
			total += e.weights[i]
		}
		for i := range e.weights {
			e.weights[i] /= total
		}
	}
	for i := range e.counts {
		e.counts[i][bid.Index(i)]++
	}
	e.last = bid
	e.updates++
}

// Utility estimates the opponent's utility for bid in [0,1].
func (e *FrequencyEstimator) Utility(bid outcome.Bid) float64 {
	if e.updates == 0 || !e.space.Contains(bid) {
		return 0
	}
	var u float64
	for i, w := range e.weights {
		u += w * e.valueScore(i, bid.Index(i))
	}
	return u
}

// Weights returns the current normalized issue weights.
func (e *FrequencyEstimator) Weights() []float64 {
	return append([]float64(nil), e.weights...)
}

func (e *FrequencyEstimator) valueScore(issue, value int) float64 {
	maxCount := 0
	for _, c := range e.counts[issue] {
		if c > maxCount {
			maxCount = c
		}
	}
	return float64(e.counts[issue][value]+1) / float64(maxCount+1)
}

// #endregion estimator
