package outcome

import (
	"fmt"
	"math/rand"
	"strings"
)

// #region space

// Space is the immutable universe of bids defined by a list of issues.
type Space struct {
	issues []Issue
	index  map[string]int
	values []map[string]int
}

// NewSpace validates the issues and returns a space over them.
// A space without issues is valid and contains no bids.
func NewSpace(issues ...Issue) (*Space, error) {
	s := &Space{
		issues: make([]Issue, len(issues)),
		index:  make(map[string]int, len(issues)),
		values: make([]map[string]int, len(issues)),
	}
	for i, is := range issues {
		if is.Name == "" {
			return nil, fmt.Errorf("%w: issue %d has no name", ErrInvalidSpace, i)
		}
		if _, dup := s.index[is.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate issue %q", ErrInvalidSpace, is.Name)
		}
		if len(is.Values) == 0 {
			return nil, fmt.Errorf("%w: issue %q has no values", ErrInvalidSpace, is.Name)
		}
		vals := make(map[string]int, len(is.Values))
		for j, v := range is.Values {
			if _, dup := vals[v]; dup {
				return nil, fmt.Errorf("%w: issue %q repeats value %q", ErrInvalidSpace, is.Name, v)
			}
			vals[v] = j
		}
		s.index[is.Name] = i
		s.values[i] = vals
		s.issues[i] = Issue{Name: is.Name, Values: append([]string(nil), is.Values...)}
	}
	return s, nil
}

// Issues returns the issues in declaration order.
func (s *Space) Issues() []Issue {
	out := make([]Issue, len(s.issues))
	copy(out, s.issues)
	return out
}

// NumIssues returns the number of issues.
func (s *Space) NumIssues() int {
	return len(s.issues)
}

// IssueIndex returns the position of the named issue.
func (s *Space) IssueIndex(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// ValueIndex returns the position of value within the named issue.
func (s *Space) ValueIndex(issue, value string) (int, bool) {
	i, ok := s.index[issue]
	if !ok {
		return 0, false
	}
	j, ok := s.values[i][value]
	return j, ok
}

// Size returns the number of distinct bids. Zero for a space without issues.
func (s *Space) Size() int {
	if len(s.issues) == 0 {
		return 0
	}
	n := 1
	for _, is := range s.issues {
		n *= len(is.Values)
	}
	return n
}

// #endregion space

// #region bids

// Contains reports whether b is a valid bid of this space.
func (s *Space) Contains(b Bid) bool {
	if len(s.issues) == 0 || b.Len() != len(s.issues) {
		return false
	}
	for i, v := range b.values {
		if v < 0 || v >= len(s.issues[i].Values) {
			return false
		}
	}
	return true
}

// Enumerate returns every bid in lexicographic order of value indices.
func (s *Space) Enumerate() []Bid {
	n := s.Size()
	if n == 0 {
		return nil
	}
	out := make([]Bid, 0, n)
	cur := make([]int, len(s.issues))
	for {
		out = append(out, NewBid(cur...))
		// odometer increment, last issue fastest
		i := len(cur) - 1
		for i >= 0 {
			cur[i]++
			if cur[i] < len(s.issues[i].Values) {
				break
			}
			cur[i] = 0
			i--
		}
		if i < 0 {
			return out
		}
	}
}

// RandomBid draws a bid uniformly from the space. Returns the zero bid for an empty space.
func (s *Space) RandomBid(rng *rand.Rand) Bid {
	if len(s.issues) == 0 {
		return Bid{}
	}
	v := make([]int, len(s.issues))
	for i, is := range s.issues {
		v[i] = rng.Intn(len(is.Values))
	}
	return Bid{values: v}
}

// #endregion bids

// #region conversion

// Format maps each issue name to the value assigned by b.
func (s *Space) Format(b Bid) map[string]string {
	out := make(map[string]string, len(s.issues))
	if !s.Contains(b) {
		return out
	}
	for i, is := range s.issues {
		out[is.Name] = is.Values[b.values[i]]
	}
	return out
}

// Parse builds a bid from an issue-name to value map covering every issue.
func (s *Space) Parse(assignment map[string]string) (Bid, error) {
	if len(s.issues) == 0 {
		return Bid{}, fmt.Errorf("%w: space has no issues", ErrInvalidBid)
	}
	if len(assignment) != len(s.issues) {
		return Bid{}, fmt.Errorf("%w: %d values for %d issues", ErrInvalidBid, len(assignment), len(s.issues))
	}
	v := make([]int, len(s.issues))
	for i, is := range s.issues {
		val, ok := assignment[is.Name]
		if !ok {
			return Bid{}, fmt.Errorf("%w: missing issue %q", ErrInvalidBid, is.Name)
		}
		j, ok := s.values[i][val]
		if !ok {
			return Bid{}, fmt.Errorf("%w: issue %q has no value %q", ErrInvalidBid, is.Name, val)
		}
		v[i] = j
	}
	return Bid{values: v}, nil
}

// String renders b as "issue=value" pairs in issue order.
func (s *Space) String(b Bid) string {
	if !s.Contains(b) {
		return "<none>"
	}
	parts := make([]string, len(s.issues))
	for i, is := range s.issues {
		parts[i] = is.Name + "=" + is.Values[b.values[i]]
	}
	return strings.Join(parts, " ")
}

// #endregion conversion
