package preference

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/autoneg/negolog/internal/outcome"
)

// utilityGrid is the resolution utilities are snapped to, so that bids whose weighted
// sums are mathematically equal also compare equal in floating point.
const utilityGrid = 1e10

// #region model

// Model is a linear additive utility function over an outcome space.
// It is immutable after construction and safe for concurrent reads.
type Model struct {
	space       *outcome.Space
	weights     []float64
	scores      [][]float64
	reservation float64

	sortOnce sync.Once
	sorted   []ScoredBid // descending by utility, stable over enumeration order

	cache sync.Map // bid key -> float64, private to this model
}

// New validates the profile against the space and returns a model.
func New(space *outcome.Space, p Profile) (*Model, error) {
	if space == nil {
		return nil, fmt.Errorf("%w: nil space", ErrInvalidProfile)
	}
	if p.Reservation < 0 || p.Reservation > 1 || math.IsNaN(p.Reservation) {
		return nil, fmt.Errorf("%w: reservation %v outside [0,1]", ErrInvalidProfile, p.Reservation)
	}

	issues := space.Issues()
	weights := make([]float64, len(issues))
	scores := make([][]float64, len(issues))
	var total float64

	for i, is := range issues {
		w, ok := p.IssueWeights[is.Name]
		if !ok {
			return nil, fmt.Errorf("%w: no weight for issue %q", ErrInvalidProfile, is.Name)
		}
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("%w: weight %v for issue %q", ErrInvalidProfile, w, is.Name)
		}
		weights[i] = w
		total += w

		vs, ok := p.ValueScores[is.Name]
		if !ok {
			return nil, fmt.Errorf("%w: no value scores for issue %q", ErrInvalidProfile, is.Name)
		}
		scores[i] = make([]float64, len(is.Values))
		for j, v := range is.Values {
			sc, ok := vs[v]
			if !ok {
				return nil, fmt.Errorf("%w: no score for %s=%s", ErrInvalidProfile, is.Name, v)
			}
			if sc < 0 || sc > 1 || math.IsNaN(sc) {
				return nil, fmt.Errorf("%w: score %v for %s=%s outside [0,1]", ErrInvalidProfile, sc, is.Name, v)
			}
			scores[i][j] = sc
		}
	}
	if len(issues) > 0 && total == 0 {
		return nil, fmt.Errorf("%w: issue weights sum to zero", ErrInvalidProfile)
	}
	for i := range weights {
		weights[i] /= total
	}

	return &Model{
		space:       space,
		weights:     weights,
		scores:      scores,
		reservation: p.Reservation,
	}, nil
}

// Space returns the outcome space the model is defined over.
func (m *Model) Space() *outcome.Space {
	return m.space
}

// Reservation returns the utility of reaching no agreement.
func (m *Model) Reservation() float64 {
	return m.reservation
}

// Weight returns the normalized weight of issue i.
func (m *Model) Weight(i int) float64 {
	return m.weights[i]
}

// #endregion model

// #region utility

// Utility returns the weighted score of b in [0,1]. Bids outside the space score 0.
func (m *Model) Utility(b outcome.Bid) float64 {
	if !m.space.Contains(b) {
		return 0
	}
	key := b.Key()
	if u, ok := m.cache.Load(key); ok {
		return u.(float64)
	}
	var u float64
	for i, w := range m.weights {
		u += w * m.scores[i][b.Index(i)]
	}
	u = clamp01(math.Round(u*utilityGrid) / utilityGrid)
	m.cache.Store(key, u)
	return u
}

// #endregion utility

// #region enumeration

// Bids returns every bid sorted by descending utility. Built once on first use.
func (m *Model) Bids() []ScoredBid {
	m.sortOnce.Do(func() {
		all := m.space.Enumerate()
		sorted := make([]ScoredBid, len(all))
		for i, b := range all {
			sorted[i] = ScoredBid{Bid: b, Utility: m.Utility(b)}
		}
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Utility > sorted[j].Utility
		})
		m.sorted = sorted
	})
	return m.sorted
}

// BestBid returns the maximum utility bid.
func (m *Model) BestBid() (outcome.Bid, error) {
	bids := m.Bids()
	if len(bids) == 0 {
		return outcome.Bid{}, ErrEmptySpace
	}
	return bids[0].Bid, nil
}

// MaxUtility returns the utility of the best bid, or 0 for an empty space.
func (m *Model) MaxUtility() float64 {
	bids := m.Bids()
	if len(bids) == 0 {
		return 0
	}
	return bids[0].Utility
}

// MinUtility returns the utility of the worst bid, or 0 for an empty space.
func (m *Model) MinUtility() float64 {
	bids := m.Bids()
	if len(bids) == 0 {
		return 0
	}
	return bids[len(bids)-1].Utility
}

// #endregion enumeration

// #region sampling

// RandomBidInRange returns a bid whose utility lies in [lo, hi], chosen uniformly among
// all such bids. When no bid qualifies it returns the bid closest to the band, preferring
// the higher side on ties. rng may be nil, in which case the first candidate is taken.
func (m *Model) RandomBidInRange(rng *rand.Rand, lo, hi float64) (outcome.Bid, error) {
	if lo > hi || math.IsNaN(lo) || math.IsNaN(hi) {
		return outcome.Bid{}, fmt.Errorf("%w: [%v, %v]", ErrInvalidRange, lo, hi)
	}
	bids := m.Bids()
	n := len(bids)
	if n == 0 {
		return outcome.Bid{}, ErrEmptySpace
	}

	first := sort.Search(n, func(i int) bool { return bids[i].Utility <= hi })
	end := sort.Search(n, func(i int) bool { return bids[i].Utility < lo })
	if first < end {
		return pick(rng, bids[first:end]), nil
	}

	// No bid in band: first is the largest bid below lo, first-1 the smallest above hi.
	switch {
	case first == 0:
		return bids[0].Bid, nil
	case first == n:
		return bids[n-1].Bid, nil
	}
	above, below := bids[first-1], bids[first]
	if above.Utility-hi <= lo-below.Utility {
		return above.Bid, nil
	}
	return below.Bid, nil
}

// NearestBid returns a bid whose utility is as close as possible to target, chosen
// uniformly among the bids sharing that closest utility.
func (m *Model) NearestBid(rng *rand.Rand, target float64) (outcome.Bid, error) {
	bids := m.Bids()
	n := len(bids)
	if n == 0 {
		return outcome.Bid{}, ErrEmptySpace
	}
	i := sort.Search(n, func(i int) bool { return bids[i].Utility <= target })
	var u float64
	switch {
	case i == 0:
		u = bids[0].Utility
	case i == n:
		u = bids[n-1].Utility
	default:
		above, below := bids[i-1].Utility, bids[i].Utility
		u = below
		if above-target <= target-below {
			u = above
		}
	}
	return m.RandomBidInRange(rng, u, u)
}

// RandomBid draws a bid uniformly from the whole space.
func (m *Model) RandomBid(rng *rand.Rand) (outcome.Bid, error) {
	if m.space.Size() == 0 {
		return outcome.Bid{}, ErrEmptySpace
	}
	if rng == nil {
		return m.Bids()[0].Bid, nil
	}
	return m.space.RandomBid(rng), nil
}

func pick(rng *rand.Rand, candidates []ScoredBid) outcome.Bid {
	if rng == nil {
		return candidates[0].Bid
	}
	return candidates[rng.Intn(len(candidates))].Bid
}

// #endregion sampling

// #region helpers
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion helpers
