package strategy

import (
	"fmt"
	"math"

	"github.com/autoneg/negolog/internal/outcome"
)

// #region config

// TimeConcessionConfig shapes the concession curve.
type TimeConcessionConfig struct {
	Exponent float64 // e < 1 concedes late, e > 1 concedes early
	Floor    float64 // lowest target regardless of reservation
}

// DefaultTimeConcessionConfig returns a curve with exponent e and the standard floor.
func DefaultTimeConcessionConfig(e float64) TimeConcessionConfig {
	return TimeConcessionConfig{Exponent: e, Floor: 0.5}
}

const (
	BoulwareExponent = 0.2
	LinearExponent   = 1.0
	ConcederExponent = 5.0
)

// #endregion config

// #region curve

// Target is the time-dependent aspiration min + (max-min)(1 - t^(1/e)).
func Target(t, lo, hi, e float64) float64 {
	t = math.Max(0, math.Min(1, t))
	return lo + (hi-lo)*(1-math.Pow(t, 1/e))
}

// #endregion curve

// #region strategy

// TimeConcession concedes from its best utility toward a floor following a fixed curve.
type TimeConcession struct {
	base
	cfg    TimeConcessionConfig
	hi, lo float64
}

// NewTimeConcession builds a time-concession strategy named name.
func NewTimeConcession(name string, cfg TimeConcessionConfig, p Params) (*TimeConcession, error) {
	if cfg.Exponent <= 0 {
		return nil, fmt.Errorf("%s: exponent %v: %w", name, cfg.Exponent, ErrInvalidParams)
	}
	b, err := newBase(name, p)
	if err != nil {
		return nil, err
	}
	s := &TimeConcession{base: b, cfg: cfg}
	s.hi = s.pref.MaxUtility()
	s.lo = math.Min(s.hi, math.Max(s.pref.Reservation(), cfg.Floor))
	return s, nil
}

// Initiate resets per-session state.
func (s *TimeConcession) Initiate(opponent string) {
	s.initiate(opponent)
}

// ReceiveOffer records the opponent's offer.
func (s *TimeConcession) ReceiveOffer(bid outcome.Bid, t float64) {
	s.observe(bid, t)
}

// Act offers the bid nearest the current target, or accepts when the opponent's
// last offer meets the target or the bid about to be offered.
func (s *TimeConcession) Act(t float64) Action {
	target := Target(t, s.lo, s.hi, s.cfg.Exponent)
	s.trace = Trace{Target: target, Threshold: target}

	planned, err := s.pref.NearestBid(s.rng, target)
	if err != nil {
		s.logger.Warn("no bid near target", "target", target, "err", err)
		return None()
	}
	last, ok := s.received.Last()
	if ok && (last.Utility >= target || last.Utility >= s.pref.Utility(planned)) {
		return Accept()
	}
	return Offer(planned)
}

// #endregion strategy
