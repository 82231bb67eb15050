package eval

// #region eval-config
// EvalConfig holds the thresholds a negotiation outcome is judged against.
type EvalConfig struct {
	MinSocialWelfare  float64 // fail below this sum of utilities
	MaxParetoDistance float64 // fail if the outcome is further than this from the frontier
	MinNashRatio      float64 // informational, compared against nash product / best nash product
	RequireAgreement  bool
}

// DefaultEvalConfig returns lenient defaults suitable for tournaments.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		MinSocialWelfare:  0.8,
		MaxParetoDistance: 0.1,
		MinNashRatio:      0.5,
		RequireAgreement:  false,
	}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single outcome measurement.
type EvalMetric struct {
	Name  string
	Value float64
	Pass  bool
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the judgement on one negotiation outcome.
type EvalResult struct {
	Passed  bool
	Metrics []EvalMetric
	Reason  string
}

// Metric returns the named metric value.
func (r EvalResult) Metric(name string) (float64, bool) {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m.Value, true
		}
	}
	return 0, false
}

// #endregion eval-result

// #region outcome-point
// Point is an outcome in utility space.
type Point struct {
	UtilityA float64
	UtilityB float64
}

// #endregion outcome-point
