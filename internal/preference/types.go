package preference

import (
	"errors"

	"github.com/autoneg/negolog/internal/outcome"
)

// #region errors

var (
	// ErrInvalidRange is returned by range queries whose lower bound exceeds the upper bound.
	ErrInvalidRange = errors.New("invalid utility range")
	// ErrEmptySpace is returned by queries against a space that contains no bids.
	ErrEmptySpace = errors.New("empty outcome space")
	// ErrInvalidProfile is returned when weights or scores do not describe the space.
	ErrInvalidProfile = errors.New("invalid preference profile")
)

// #endregion errors

// #region profile

// Profile is the raw, loader-supplied description of a linear additive utility function.
type Profile struct {
	IssueWeights map[string]float64            // per issue, normalized to sum 1 on construction
	ValueScores  map[string]map[string]float64 // per issue, per value, in [0,1]
	Reservation  float64                       // utility of no agreement
}

// #endregion profile

// #region scored-bid

// ScoredBid pairs a bid with its utility under one model.
type ScoredBid struct {
	Bid     outcome.Bid
	Utility float64
}

// #endregion scored-bid
