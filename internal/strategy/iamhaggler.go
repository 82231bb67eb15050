package strategy

import (
	"github.com/autoneg/negolog/internal/opponent"
	"github.com/autoneg/negolog/internal/outcome"
)

// #region config

// IAMhagglerConfig holds the acceptance constants and the opponent model parameters.
type IAMhagglerConfig struct {
	AcceptMultiplier float64
	MaxAspiration    float64
	BandWidth        float64 // half width of the offer band around the target
	Model            opponent.ConcessionConfig
}

// DefaultIAMhagglerConfig returns the standard configuration.
func DefaultIAMhagglerConfig() IAMhagglerConfig {
	return IAMhagglerConfig{
		AcceptMultiplier: 1.02,
		MaxAspiration:    0.9,
		BandWidth:        0.025,
		Model:            opponent.DefaultConcessionConfig(),
	}
}

// #endregion config

// #region iamhaggler

// IAMhaggler predicts the time and utility of the opponent's largest concession
// and steers its target toward that point.
type IAMhaggler struct {
	base
	cfg   IAMhagglerConfig
	model *opponent.ConcessionModel

	maxUtility   float64
	bestReceived outcome.Bid
	prevTarget   float64
}

// NewIAMhaggler builds an IAMhaggler strategy.
func NewIAMhaggler(cfg IAMhagglerConfig, p Params) (*IAMhaggler, error) {
	b, err := newBase("iamhaggler", p)
	if err != nil {
		return nil, err
	}
	s := &IAMhaggler{base: b, cfg: cfg}
	s.reset()
	return s, nil
}

func (s *IAMhaggler) reset() {
	s.model = opponent.NewConcessionModel(s.cfg.Model)
	s.maxUtility = 0
	s.bestReceived = outcome.Bid{}
	s.prevTarget = 1
}

// Initiate resets the opponent model and per-session state.
func (s *IAMhaggler) Initiate(opponent string) {
	s.initiate(opponent)
	s.reset()
}

// ReceiveOffer records the opponent's offer.
func (s *IAMhaggler) ReceiveOffer(bid outcome.Bid, t float64) {
	s.observe(bid, t)
}

// Model exposes the opponent concession model.
func (s *IAMhaggler) Model() *opponent.ConcessionModel { return s.model }

// Act feeds the opponent's last offer to the model and answers with an offer
// near the resulting target, or accepts.
func (s *IAMhaggler) Act(t float64) Action {
	last, ok := s.received.Last()
	if !ok {
		a := s.bestOffer()
		if a.Kind == ActionOffer {
			s.prevTarget = s.pref.Utility(a.Bid)
			s.trace = Trace{Target: s.prevTarget}
		}
		return a
	}

	if last.Utility > s.maxUtility {
		s.bestReceived = last.Bid
		s.maxUtility = last.Utility
	}

	target := s.model.Target(last.Utility, t)
	s.trace = Trace{Target: target, Threshold: target / s.cfg.AcceptMultiplier}

	// Target just dropped below what the opponent already offered.
	if target <= s.maxUtility && s.prevTarget > s.maxUtility && !s.bestReceived.IsZero() {
		return Offer(s.bestReceived)
	}
	s.prevTarget = target

	planned, ok := s.inRange(target-s.cfg.BandWidth, target+s.cfg.BandWidth)
	if !ok {
		return None()
	}
	opp := last.Utility * s.cfg.AcceptMultiplier
	if opp >= s.prevTarget || opp >= s.cfg.MaxAspiration || opp >= s.pref.Utility(planned) {
		return Accept()
	}
	return Offer(planned)
}

// #endregion iamhaggler
