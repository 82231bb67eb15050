package opponent

import (
	"math"
)

// #region config

// ConcessionConfig parameterizes the opponent concession model.
type ConcessionConfig struct {
	Slots           int     // time slots over [0,1]
	UtilitySamples  int     // rows of the acceptance surface
	TimeSamples     int     // columns of the acceptance surface minus one
	TrendTarget     float64 // value the linear trend reaches at t=1
	MinIntercept    float64
	InitialVariance float64
	RiskParameter   float64
	Discount        float64
	ConcessionSlack float64 // added to the observed opponent range when flooring the target
}

// DefaultConcessionConfig returns the standard model parameters.
func DefaultConcessionConfig() ConcessionConfig {
	return ConcessionConfig{
		Slots:           36,
		UtilitySamples:  100,
		TimeSamples:     100,
		TrendTarget:     0.9,
		MinIntercept:    0.5,
		InitialVariance: 0.01,
		RiskParameter:   1.0,
		Discount:        1.0,
		ConcessionSlack: 0.1,
	}
}

// #endregion config

// #region model

// ConcessionModel predicts when and at which utility the opponent concedes most, and
// turns that prediction into a target utility for our own offers.
type ConcessionModel struct {
	cfg ConcessionConfig

	utilitySamples []float64
	timeSamples    []float64
	utility        [][]float64 // [row][col] risk x discount

	sampleTimes []float64
	sampleUtils []float64
	slotMax     float64
	lastSlot    int
	intercept   float64
	gradient    float64
	adjust      []float64

	means     []float64
	variances []float64

	lastRegTime float64
	lastRegUtil float64
	maxOffered  float64
	minOffered  float64

	lastFit *GPFit
}

// NewConcessionModel builds a model with fresh per-instance state.
func NewConcessionModel(cfg ConcessionConfig) *ConcessionModel {
	m := &ConcessionModel{cfg: cfg}

	m.utilitySamples = make([]float64, cfg.UtilitySamples)
	for i := range m.utilitySamples {
		m.utilitySamples[i] = 1 - (float64(i)+0.5)/float64(cfg.UtilitySamples+1)
	}
	m.timeSamples = make([]float64, cfg.TimeSamples+1)
	for i := range m.timeSamples {
		m.timeSamples[i] = float64(i) / float64(cfg.TimeSamples)
	}
	m.utility = utilitySurface(m.utilitySamples, m.timeSamples, cfg.RiskParameter, cfg.Discount)

	m.lastSlot = -1
	m.setTrend(cfg.MinIntercept)
	m.means = make([]float64, len(m.timeSamples))
	m.variances = make([]float64, len(m.timeSamples))
	for i, t := range m.timeSamples {
		m.means[i] = 1 - 0.5*t
		m.variances[i] = cfg.InitialVariance
	}

	m.lastRegTime = 0
	m.lastRegUtil = 1
	m.maxOffered = math.Inf(-1)
	m.minOffered = math.Inf(1)
	return m
}

func (m *ConcessionModel) setTrend(intercept float64) {
	m.intercept = intercept
	m.gradient = m.cfg.TrendTarget - intercept
	m.adjust = make([]float64, len(m.timeSamples))
	for i, t := range m.timeSamples {
		m.adjust[i] = m.intercept + m.gradient*t
	}
}

// Target records an opponent offer of the given utility at time t and returns the
// utility we should aim for now.
func (m *ConcessionModel) Target(oppUtility, t float64) float64 {
	m.maxOffered = math.Max(m.maxOffered, oppUtility)
	m.minOffered = math.Min(m.minOffered, oppUtility)

	slot := int(math.Floor(t * float64(m.cfg.Slots)))
	refit := false
	if slot != m.lastSlot {
		if m.lastSlot != -1 {
			if len(m.sampleUtils) == 0 {
				m.setTrend(math.Max(m.cfg.MinIntercept, m.slotMax))
			}
			m.sampleTimes = append(m.sampleTimes, (float64(m.lastSlot)+0.5)/float64(m.cfg.Slots))
			m.sampleUtils = append(m.sampleUtils, m.slotMax)
			refit = true
		}
		m.lastSlot = slot
		m.slotMax = 0
	}
	m.slotMax = math.Max(m.slotMax, oppUtility)

	if slot == 0 {
		return 1 - t/2
	}
	if refit {
		m.regress()
	}

	prob, cum := acceptanceSurfaces(m.utilitySamples, m.timeSamples, m.means, m.variances, t)
	bestTime, bestUtil := expectedBestAgreement(prob, cum, m.utility, m.utilitySamples, m.timeSamples, t)

	target := bestUtil
	if d := bestTime - m.lastRegTime; d > 0 {
		target = m.lastRegUtil + (t-m.lastRegTime)*(bestUtil-m.lastRegUtil)/d
	}
	m.lastRegUtil = target
	m.lastRegTime = t
	return m.limitConcession(target)
}

// regress refits the GP to the detrended slot samples. On failure the trend is kept
// with a wide variance so the surfaces stay well defined.
func (m *ConcessionModel) regress() {
	if len(m.sampleTimes) == 0 {
		return
	}
	y := make([]float64, len(m.sampleUtils))
	for i, u := range m.sampleUtils {
		y[i] = u - m.intercept - m.gradient*m.sampleTimes[i]
	}
	fit, err := FitGP(m.sampleTimes, y)
	if err != nil {
		for i := range m.means {
			m.means[i] = m.adjust[i]
			m.variances[i] = fallbackVar
		}
		m.lastFit = nil
		return
	}
	mu, variance := fit.Predict(m.timeSamples)
	for i := range m.means {
		m.means[i] = mu[i] + m.adjust[i]
		m.variances[i] = variance[i]
	}
	m.lastFit = fit
}

// limitConcession floors the target by the spread of utilities the opponent has offered.
func (m *ConcessionModel) limitConcession(target float64) float64 {
	limit := 1 - ((m.maxOffered - m.minOffered) + m.cfg.ConcessionSlack)
	if limit > target {
		return limit
	}
	return target
}

// #endregion model

// #region introspection

// Prediction returns copies of the current mean and variance grids.
func (m *ConcessionModel) Prediction() (means, variances []float64) {
	return append([]float64(nil), m.means...), append([]float64(nil), m.variances...)
}

// Samples returns the completed slot samples as (time, max utility) pairs.
func (m *ConcessionModel) Samples() (times, utils []float64) {
	return append([]float64(nil), m.sampleTimes...), append([]float64(nil), m.sampleUtils...)
}

// Trend returns the intercept and gradient of the linear floor.
func (m *ConcessionModel) Trend() (intercept, gradient float64) {
	return m.intercept, m.gradient
}

// LastFit returns the most recent successful GP fit, nil if none.
func (m *ConcessionModel) LastFit() *GPFit {
	return m.lastFit
}

// #endregion introspection
