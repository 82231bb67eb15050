package strategy

import (
	"errors"
	"log/slog"

	"github.com/autoneg/negolog/internal/opponent"
	"github.com/autoneg/negolog/internal/outcome"
	"github.com/autoneg/negolog/internal/preference"
)

// #region errors
var (
	ErrUnknownStrategy = errors.New("unknown strategy")
	ErrInvalidParams   = errors.New("invalid strategy params")
)

// #endregion errors

// #region action

// ActionKind discriminates the three possible moves.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionOffer
	ActionAccept
)

func (k ActionKind) String() string {
	switch k {
	case ActionOffer:
		return "offer"
	case ActionAccept:
		return "accept"
	default:
		return "none"
	}
}

// ParseActionKind is the inverse of ActionKind.String.
func ParseActionKind(s string) ActionKind {
	switch s {
	case "offer":
		return ActionOffer
	case "accept":
		return ActionAccept
	default:
		return ActionNone
	}
}

// MarshalText renders the kind by name.
func (k ActionKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText parses a kind name; unknown names become ActionNone.
func (k *ActionKind) UnmarshalText(b []byte) error {
	*k = ParseActionKind(string(b))
	return nil
}

// Action is a strategy's move. Bid is set only for offers.
type Action struct {
	Kind ActionKind
	Bid  outcome.Bid
}

// Offer proposes bid.
func Offer(bid outcome.Bid) Action { return Action{Kind: ActionOffer, Bid: bid} }

// Accept takes the opponent's last offer.
func Accept() Action { return Action{Kind: ActionAccept} }

// None signals the strategy could not act.
func None() Action { return Action{Kind: ActionNone} }

// #endregion action

// #region strategy

// Strategy is a negotiating agent. Times are relative in [0,1].
type Strategy interface {
	Name() string
	Initiate(opponent string)
	ReceiveOffer(bid outcome.Bid, t float64)
	Act(t float64) Action
	Terminate(agreed bool, opponent string, finalScore float64)
}

// Trace is the decision detail behind the most recent Act.
type Trace struct {
	Target    float64 `json:"target"`
	Threshold float64 `json:"threshold"`
}

// Tracer is implemented by strategies that can explain their last move.
type Tracer interface {
	LastTrace() Trace
}

// Params is everything a strategy is constructed from.
type Params struct {
	Preference *preference.Model
	Deadline   int // rounds
	Seed       int64
	Estimators []opponent.Estimator
	Logger     *slog.Logger
}

// Factory builds a fresh strategy instance.
type Factory func(p Params) (Strategy, error)

// #endregion strategy
