package agentrpc

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/autoneg/negolog/internal/outcome"
)

// #region fields
func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func numberField(s *structpb.Struct, key string) float64 {
	return s.GetFields()[key].GetNumberValue()
}

func boolField(s *structpb.Struct, key string) bool {
	return s.GetFields()[key].GetBoolValue()
}

func structField(s *structpb.Struct, key string) *structpb.Struct {
	return s.GetFields()[key].GetStructValue()
}
// #endregion fields

// #region bids
// encodeBid renders a bid as an {issue: value} object.
func encodeBid(space *outcome.Space, b outcome.Bid) map[string]any {
	out := make(map[string]any, b.Len())
	for k, v := range space.Format(b) {
		out[k] = v
	}
	return out
}

// decodeBid parses an {issue: value} object back into a bid of space.
func decodeBid(space *outcome.Space, s *structpb.Struct) (outcome.Bid, error) {
	if s == nil {
		return outcome.Bid{}, fmt.Errorf("missing offer: %w", outcome.ErrInvalidBid)
	}
	assignment := make(map[string]string, len(s.GetFields()))
	for k, v := range s.GetFields() {
		sv, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return outcome.Bid{}, fmt.Errorf("issue %s: non-string value: %w", k, outcome.ErrInvalidBid)
		}
		assignment[k] = sv.StringValue
	}
	return space.Parse(assignment)
}
// #endregion bids
