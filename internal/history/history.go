package history

import "github.com/autoneg/negolog/internal/outcome"

// #region entry

// Entry is one offer received from the opponent.
type Entry struct {
	Bid     outcome.Bid
	Utility float64 // utility to the owner of the history
	Time    float64 // relative time the offer was received
}

// #endregion entry

// #region history

// History is an append-only log of received offers with incremental best/last tracking.
type History struct {
	entries []Entry
	best    int // index of the max utility entry, -1 when empty
}

// New returns an empty history.
func New() *History {
	return &History{best: -1}
}

// Add appends an entry. Earlier entries win ties for best.
func (h *History) Add(e Entry) {
	h.entries = append(h.entries, e)
	if h.best < 0 || e.Utility > h.entries[h.best].Utility {
		h.best = len(h.entries) - 1
	}
}

// Len returns the number of recorded offers.
func (h *History) Len() int {
	return len(h.entries)
}

// Last returns the most recent entry.
func (h *History) Last() (Entry, bool) {
	if len(h.entries) == 0 {
		return Entry{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// Best returns the entry with the highest utility seen so far.
func (h *History) Best() (Entry, bool) {
	if h.best < 0 {
		return Entry{}, false
	}
	return h.entries[h.best], true
}

// #endregion history

// #region aggregates

// UtilityRange returns the lowest and highest utility observed.
func (h *History) UtilityRange() (lo, hi float64, ok bool) {
	if len(h.entries) == 0 {
		return 0, 0, false
	}
	lo, hi = h.entries[0].Utility, h.entries[0].Utility
	for _, e := range h.entries[1:] {
		if e.Utility < lo {
			lo = e.Utility
		}
		if e.Utility > hi {
			hi = e.Utility
		}
	}
	return lo, hi, true
}

// MeanUtility returns the average utility of received offers, 0 when empty.
func (h *History) MeanUtility() float64 {
	if len(h.entries) == 0 {
		return 0
	}
	var sum float64
	for _, e := range h.entries {
		sum += e.Utility
	}
	return sum / float64(len(h.entries))
}

// DistinctBids counts how many different bids the opponent has offered.
func (h *History) DistinctBids() int {
	seen := make(map[string]struct{}, len(h.entries))
	for _, e := range h.entries {
		seen[e.Bid.Key()] = struct{}{}
	}
	return len(seen)
}

// #endregion aggregates
