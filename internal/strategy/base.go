package strategy

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/autoneg/negolog/internal/history"
	"github.com/autoneg/negolog/internal/opponent"
	"github.com/autoneg/negolog/internal/outcome"
	"github.com/autoneg/negolog/internal/preference"
)

// #region base

// base carries the state shared by every built-in strategy.
type base struct {
	name     string
	pref     *preference.Model
	deadline int
	rng      *rand.Rand
	params   Params
	logger   *slog.Logger

	opponent string
	received *history.History
	trace    Trace
}

func newBase(name string, p Params) (base, error) {
	if p.Preference == nil {
		return base{}, fmt.Errorf("%s: nil preference: %w", name, ErrInvalidParams)
	}
	if p.Deadline < 0 {
		return base{}, fmt.Errorf("%s: negative deadline %d: %w", name, p.Deadline, ErrInvalidParams)
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return base{
		name:     name,
		pref:     p.Preference,
		deadline: p.Deadline,
		rng:      rand.New(rand.NewSource(p.Seed)),
		params:   p,
		logger:   logger.With("strategy", name),
		received: history.New(),
	}, nil
}

func (b *base) Name() string { return b.name }

// Estimators returns the opponent estimators this strategy feeds.
func (b *base) Estimators() []opponent.Estimator { return b.params.Estimators }

// LastTrace reports the target and threshold behind the last Act.
func (b *base) LastTrace() Trace { return b.trace }

func (b *base) initiate(opponent string) {
	b.opponent = opponent
	b.received = history.New()
	b.trace = Trace{}
}

// observe records an opponent offer and feeds the estimators.
func (b *base) observe(bid outcome.Bid, t float64) history.Entry {
	e := history.Entry{Bid: bid, Utility: b.pref.Utility(bid), Time: t}
	b.received.Add(e)
	for _, est := range b.params.Estimators {
		est.Update(bid, t)
	}
	return e
}

func (b *base) Terminate(agreed bool, opponent string, finalScore float64) {
	attrs := []any{
		"opponent", opponent,
		"agreed", agreed,
		"final_score", finalScore,
		"offers_received", b.received.Len(),
		"distinct_bids", b.received.DistinctBids(),
		"mean_offer_utility", b.received.MeanUtility(),
	}
	if lo, hi, ok := b.received.UtilityRange(); ok {
		attrs = append(attrs, "offer_utility_lo", lo, "offer_utility_hi", hi)
	}
	b.logger.Debug("session terminated", attrs...)
}

// bestOffer offers the top bid, or None when the space is empty.
func (b *base) bestOffer() Action {
	bid, err := b.pref.BestBid()
	if err != nil {
		b.logger.Warn("no bid to offer", "err", err)
		return None()
	}
	return Offer(bid)
}

// inRange samples a bid within [lo,hi] and falls back to a uniform bid.
func (b *base) inRange(lo, hi float64) (outcome.Bid, bool) {
	bid, err := b.pref.RandomBidInRange(b.rng, lo, hi)
	if err == nil {
		return bid, true
	}
	bid, err = b.pref.RandomBid(b.rng)
	if err != nil {
		return outcome.Bid{}, false
	}
	return bid, true
}

// #endregion base
