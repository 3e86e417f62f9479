// Package patterns mines behavioral patterns from a crash-safe NDJSON
// event spool and the persisted claim graph.
//
// Producers append events to a single spool file with no locking; the
// miner claims the file by atomic rename before reading, so a rotation
// never loses a concurrent writer's bytes and never reads a file still
// being appended to.
package patterns

// Internal pattern types as persisted; each maps 1:1 to an
// externally-facing name.
const (
	internalHandoffLoop      = "handoff_loop"
	internalStall            = "stall"
	internalEscalationSpiral = "escalation_spiral"

	TypeCoordination = "coordination"
	TypeFailure      = "failure"
	TypeSuccess      = "success"
)

var internalToExternal = map[string]string{
	internalHandoffLoop:      TypeCoordination,
	internalStall:            TypeFailure,
	internalEscalationSpiral: TypeSuccess,
}

var externalToInternal = map[string]string{
	TypeCoordination: internalHandoffLoop,
	TypeFailure:      internalStall,
	TypeSuccess:      internalEscalationSpiral,
}

// Event is one spooled observation of agent activity. Producers may tag
// an event with one scope or several; scope-less events are dropped
// before detection.
type Event struct {
	Agent     string   `json:"agent,omitempty"`
	ClaimType string   `json:"claim_type,omitempty"`
	Outcome   string   `json:"outcome,omitempty"`
	Status    string   `json:"status,omitempty"`
	Session   string   `json:"session,omitempty"`
	Scope     string   `json:"scope,omitempty"`
	Scopes    []string `json:"scopes,omitempty"`
	Timestamp int64    `json:"timestamp,omitempty"`
}

// Pattern is an aggregated signal keyed by (type, scope, agent set).
type Pattern struct {
	ID string `json:"id"`
	// PatternType is the externally-facing name: coordination, failure,
	// or success.
	PatternType string   `json:"pattern_type"`
	Scope       string   `json:"scope"`
	Agents      []string `json:"agents,omitempty"`
	Frequency   int64    `json:"frequency"`
	Confidence  float64  `json:"confidence"`
	RiskScore   float64  `json:"risk_score"`
	Active      bool     `json:"active"`
	FirstSeen   int64    `json:"first_seen"`
	LastSeen    int64    `json:"last_seen"`
	Resolution  string   `json:"resolution,omitempty"`
}

// ProcessSpoolResult reports one mining pass.
type ProcessSpoolResult struct {
	ProcessedEvents  int       `json:"processed_events"`
	DetectedPatterns int       `json:"detected_patterns"`
	Patterns         []Pattern `json:"patterns"`
}

// QueryPatternsParams holds the filters for query-patterns. PatternType
// takes the external name.
type QueryPatternsParams struct {
	PatternType string `json:"pattern_type,omitempty"`
	Scope       string `json:"scope,omitempty"`
	Active      *bool  `json:"active,omitempty"`
	Since       int64  `json:"since,omitempty"`
	Until       int64  `json:"until,omitempty"`
	Limit       int    `json:"limit,omitempty"`
}

// QueryPatternsResult holds query output with the total match count.
type QueryPatternsResult struct {
	Patterns []Pattern `json:"patterns"`
	Total    int       `json:"total"`
}

// ResolveParams marks a pattern resolved or re-activates it.
type ResolveParams struct {
	PatternID  string `json:"pattern_id"`
	Resolution string `json:"resolution,omitempty"`
	Active     bool   `json:"active"`
}
