package strategy

import (
	"github.com/autoneg/negolog/internal/outcome"
)

// #region parscat

const (
	parsCatMaxAttempts = 1000
	parsCatDrift       = 0.01
)

// ParsCat follows a piecewise time schedule for both offers and acceptance and
// never offers less than the best bid the opponent has already made.
type ParsCat struct {
	base
	maxBid outcome.Bid
	t      float64 // time of the latest offer or act
	t1     float64 // time of the previous act
}

// NewParsCat builds a ParsCat strategy.
func NewParsCat(p Params) (*ParsCat, error) {
	b, err := newBase("parscat", p)
	if err != nil {
		return nil, err
	}
	return &ParsCat{base: b}, nil
}

// Initiate resets per-session state.
func (s *ParsCat) Initiate(opponent string) {
	s.initiate(opponent)
	s.t, s.t1 = 0, 0
	s.maxBid, _ = s.pref.BestBid()
}

// ReceiveOffer records the opponent's offer and its arrival time.
func (s *ParsCat) ReceiveOffer(bid outcome.Bid, t float64) {
	s.t = t
	s.observe(bid, t)
}

// Act offers a bid from the schedule or accepts the opponent's last offer.
func (s *ParsCat) Act(t float64) Action {
	if s.received.Len() == 0 {
		if s.maxBid.IsZero() {
			return s.bestOffer()
		}
		s.trace = Trace{Target: s.pref.Utility(s.maxBid)}
		return Offer(s.maxBid)
	}

	bid, ok := s.scheduledBid()
	if !ok {
		return None()
	}
	myUtil := s.pref.Utility(bid)
	s.t, s.t1 = t, t

	threshold := acceptThreshold(t)
	s.trace = Trace{Target: myUtil, Threshold: threshold}

	last, _ := s.received.Last()
	if last.Bid.Equal(bid) || last.Utility == myUtil || last.Utility >= threshold {
		return Accept()
	}
	return Offer(bid)
}

// acceptThreshold is the minimum acceptable utility at time t. Times outside the
// schedule, including the gap at 0.375, use 0.8.
func acceptThreshold(t float64) float64 {
	switch {
	case t >= 0 && t <= 0.25:
		return 1 - t*0.4
	case 0.25 < t && t < 0.375:
		return 0.9 + (t-0.25)*0.4
	case 0.375 < t && t <= 0.5:
		return 0.95 - (t-0.375)*0.4
	case 0.5 < t && t <= 0.6:
		return 0.9 - (t - 0.5)
	case 0.6 < t && t <= 0.7:
		return 0.8 + (t-0.6)*2
	case 0.7 < t && t <= 0.8:
		return 1 - (t-0.7)*3
	case 0.8 < t && t <= 0.9:
		return 0.7 + (t-0.8)*1
	case 0.9 < t && t <= 0.95:
		return 0.8 - (t-0.9)*6
	case 0.95 < t && t <= 1:
		return 0.5 + (t-0.95)*4
	default:
		return 0.8
	}
}

// offerBand returns the center and half width of the offer band for the previous
// act time t1 and current time t.
func offerBand(t1, t float64) (tresh, width float64) {
	switch {
	case t1 == 1:
		return 0.5, 0.05
	case t1 >= 0.95:
		return 1 - t/4 - 0.01, 0.02
	case t1 >= 0.9:
		return 0.8 + t1/5, 0.02
	case t1 >= 0.8:
		return 0.7 + t1/5, 0.02
	case t1 >= 0.5:
		return 0.9 - t1/5, 0.02
	default:
		return 1 - t1/4, 0.01
	}
}

// clampBand caps the band center at 1 and drops it to 0.49 at or below 0.5.
func clampBand(tresh, width float64) (float64, float64) {
	if tresh > 1 {
		return 1, 0.01
	}
	if tresh <= 0.5 {
		return 0.49, 0.01
	}
	return tresh, width
}

// scheduledBid samples a bid in the offer band, drifting the band down on misses,
// then substitutes the opponent's best bid when it is worth more to us.
func (s *ParsCat) scheduledBid() (outcome.Bid, bool) {
	check := 0.0
	tresh, width := offerBand(s.t1, s.t)
	tresh, width = clampBand(tresh-check, width)

	bid, ok := s.inRange(tresh-width, tresh+width)
	if !ok {
		return outcome.Bid{}, false
	}
	for counter := 1; counter < parsCatMaxAttempts; counter++ {
		u := s.pref.Utility(bid)
		if u >= tresh-width && u <= tresh+width {
			break
		}
		if bid, ok = s.inRange(0, 1); !ok {
			return outcome.Bid{}, false
		}
		tresh, width = clampBand(tresh-check, width)
		check += parsCatDrift
	}

	if best, ok := s.received.Best(); ok && s.pref.Utility(bid) < best.Utility {
		return best.Bid, true
	}
	return bid, true
}

// #endregion parscat
