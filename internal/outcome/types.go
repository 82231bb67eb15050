package outcome

import (
	"errors"
	"strconv"
	"strings"
)

// #region errors

var (
	// ErrInvalidSpace is returned when issues are malformed (duplicate names, no values).
	ErrInvalidSpace = errors.New("invalid outcome space")
	// ErrInvalidBid is returned when a bid does not fit the space it is used with.
	ErrInvalidBid = errors.New("invalid bid")
)

// #endregion errors

// #region issue

// Issue is one independently valued attribute of an outcome.
type Issue struct {
	Name   string
	Values []string
}

// #endregion issue

// #region bid

// Bid assigns exactly one value index to every issue of a space.
// Bids are immutable values; they never carry a utility.
type Bid struct {
	values []int
}

// NewBid builds a bid from per-issue value indices. The slice is copied.
func NewBid(values ...int) Bid {
	v := make([]int, len(values))
	copy(v, values)
	return Bid{values: v}
}

// Len returns the number of issues assigned.
func (b Bid) Len() int {
	return len(b.values)
}

// IsZero reports whether the bid assigns nothing.
func (b Bid) IsZero() bool {
	return len(b.values) == 0
}

// Index returns the value index assigned to issue i.
func (b Bid) Index(i int) int {
	return b.values[i]
}

// Indices returns a copy of the assignment.
func (b Bid) Indices() []int {
	out := make([]int, len(b.values))
	copy(out, b.values)
	return out
}

// Equal reports whether both bids assign the same value to every issue.
func (b Bid) Equal(o Bid) bool {
	if len(b.values) != len(o.values) {
		return false
	}
	for i, v := range b.values {
		if o.values[i] != v {
			return false
		}
	}
	return true
}

// Key returns a canonical string usable as a map key.
func (b Bid) Key() string {
	var sb strings.Builder
	for i, v := range b.values {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(v))
	}
	return sb.String()
}

// #endregion bid
