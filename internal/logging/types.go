package logging

import "time"

// TimeLayout is a fixed-width UTC timestamp, so stored values sort chronologically as text.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// #region step-entry
// StepEntry is a single row in the session_steps table.
type StepEntry struct {
	SessionID string
	Seq       int
	Round     int
	Time      float64
	Actor     string // "A" | "B"
	Action    string // "offer" | "accept" | "none"
	BidKey    string
	OfferJSON string
	UtilityA  float64
	UtilityB  float64
	TraceJSON string
	CreatedAt time.Time
}
// #endregion step-entry

// #region decision-record
// DecisionRecord captures what the acting strategy reported about a step.
// Serialized as JSON into session_steps.trace_json for later inspection.
type DecisionRecord struct {
	Strategy  string  `json:"strategy"`
	Target    float64 `json:"target"`
	Threshold float64 `json:"threshold"`
}
// #endregion decision-record
