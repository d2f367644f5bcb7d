package handler

// SimulationRequestedResponse acknowledges an accepted simulation request.
// The result arrives later through the oracle callback; poll the twin's
// result endpoint for it.
type SimulationRequestedResponse struct {
	TwinID          int64  `json:"twin_id"`
	Kind            string `json:"kind"`
	OracleRequestID string `json:"oracle_request_id"`
}

// SimulationAppliedResponse acknowledges an applied simulation callback.
type SimulationAppliedResponse struct {
	OracleRequestID string `json:"oracle_request_id"`
	TwinID          int64  `json:"twin_id"`
	Revealed        bool   `json:"revealed"`
}

// CountAppliedResponse acknowledges an applied count callback.
type CountAppliedResponse struct {
	OracleRequestID string `json:"oracle_request_id"`
	Category        string `json:"category"`
	Count           uint64 `json:"count"`
}
