package claims

import (
	"fmt"
	"strings"
)

// ─── Enums ───────────────────────────────────────────────────────────────────

// ClaimType categorizes what kind of statement a claim carries.
type ClaimType string

const (
	TypeFact       ClaimType = "fact"
	TypeDecision   ClaimType = "decision"
	TypeHypothesis ClaimType = "hypothesis"
	TypeNegative   ClaimType = "negative"
)

var validClaimTypes = map[ClaimType]bool{
	TypeFact:       true,
	TypeDecision:   true,
	TypeHypothesis: true,
	TypeNegative:   true,
}

// ValidateClaimType returns an OpError with code invalid_claim_type if the
// type is not recognized.
func ValidateClaimType(t ClaimType) error {
	if !validClaimTypes[t] {
		return &OpError{Code: CodeInvalidClaimType,
			Message: fmt.Sprintf("invalid claim type %q: must be one of: fact, decision, hypothesis, negative", t)}
	}
	return nil
}

// Status is a claim's lifecycle state.
type Status string

const (
	StatusProposed     Status = "proposed"
	StatusConfirmed    Status = "confirmed"
	StatusContested    Status = "contested"
	StatusPendingProof Status = "pending_proof"
	StatusDeprecated   Status = "deprecated"
)

var validStatuses = map[Status]bool{
	StatusProposed:     true,
	StatusConfirmed:    true,
	StatusContested:    true,
	StatusPendingProof: true,
	StatusDeprecated:   true,
}

// ValidateStatus returns an OpError with code invalid_status if the status
// is not recognized.
func ValidateStatus(s Status) error {
	if !validStatuses[s] {
		return &OpError{Code: CodeInvalidStatus,
			Message: fmt.Sprintf("invalid status %q: must be one of: proposed, confirmed, contested, pending_proof, deprecated", s)}
	}
	return nil
}

// Position is one agent's consensus vote on a claim.
type Position string

const (
	PositionSupport   Position = "support"
	PositionChallenge Position = "challenge"
	PositionAbstain   Position = "abstain"
)

var validPositions = map[Position]bool{
	PositionSupport:   true,
	PositionChallenge: true,
	PositionAbstain:   true,
}

// ValidatePosition returns an OpError with code invalid_position if the
// position is not recognized.
func ValidatePosition(p Position) error {
	if !validPositions[p] {
		return &OpError{Code: CodeInvalidPosition,
			Message: fmt.Sprintf("invalid position %q: must be one of: support, challenge, abstain", p)}
	}
	return nil
}

// EvidenceRelation describes how an evidence ref bears on a claim.
type EvidenceRelation string

const (
	RelationSupports    EvidenceRelation = "supports"
	RelationContradicts EvidenceRelation = "contradicts"
	RelationCausedBy    EvidenceRelation = "caused_by"
)

var validRelations = map[EvidenceRelation]bool{
	RelationSupports:    true,
	RelationContradicts: true,
	RelationCausedBy:    true,
}

// Outcome is the post-hoc verdict on a decision.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeFailure Outcome = "failure"
	OutcomeUnknown Outcome = "unknown"
)

var validOutcomes = map[Outcome]bool{
	OutcomeSuccess: true,
	OutcomePartial: true,
	OutcomeFailure: true,
	OutcomeUnknown: true,
}

// ValidateOutcome returns an OpError with code invalid_outcome if the
// outcome is not recognized.
func ValidateOutcome(o Outcome) error {
	if !validOutcomes[o] {
		return &OpError{Code: CodeInvalidOutcome,
			Message: fmt.Sprintf("invalid outcome %q: must be one of: success, partial, failure, unknown", o)}
	}
	return nil
}

// ContradictionReason labels why two beliefs conflict.
type ContradictionReason string

const (
	ReasonNegativeVsNonNegative ContradictionReason = "negative_vs_non_negative_same_scope"
	ReasonSupersedesConflict    ContradictionReason = "supersedes_conflict_same_scope"
)

// ─── Roles ───────────────────────────────────────────────────────────────────

// DefaultRole is where unknown role names normalize to.
const DefaultRole = "analyst"

// roleAliases maps alternate role spellings to the canonical roster names.
// Unknown inputs normalize to DefaultRole rather than passing through.
var roleAliases = map[string]string{
	"architect":    "architect",
	"architecture": "architect",
	"design":       "architect",
	"devops":       "devops",
	"infra":        "devops",
	"ops":          "devops",
	"sre":          "devops",
	"backend":      "devops",
	"analyst":      "analyst",
	"qa":           "analyst",
	"research":     "analyst",
	"data":         "analyst",
}

// NormalizeRole maps a role name through the alias table to its canonical
// form. Unrecognized names collapse to DefaultRole.
func NormalizeRole(role string) string {
	if canonical, ok := roleAliases[strings.TrimSpace(strings.ToLower(role))]; ok {
		return canonical
	}
	return DefaultRole
}

// NormalizeRoles maps a roster through NormalizeRole, deduplicating while
// preserving first-seen order.
func NormalizeRoles(roles []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range roles {
		c := NormalizeRole(r)
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// ─── Error codes ─────────────────────────────────────────────────────────────

// Operation failure codes surfaced across the operation boundary.
const (
	CodeUnavailable       = "unavailable"
	CodeStatementRequired = "statement_required"
	CodeAgentRequired     = "agent_required"
	CodeInvalidClaimType  = "invalid_claim_type"
	CodeInvalidStatus     = "invalid_status"
	CodeInvalidPosition   = "invalid_position"
	CodeInvalidTransition = "invalid_transition"
	CodeInvalidOutcome    = "invalid_outcome"
	CodeInvalidRelation   = "invalid_relation"
	CodeClaimNotFound     = "claim_not_found"
	CodeDecisionNotFound  = "decision_not_found"
	CodeSnapshotNotFound  = "snapshot_not_found"
	CodeDBError           = "db_error"
)

// OpError is a tagged operation failure. Validation and not-found errors
// carry their code to the caller; infrastructure failures use CodeDBError
// with the underlying message passed through.
type OpError struct {
	Code    string
	Message string
}

func (e *OpError) Error() string {
	return e.Code + ": " + e.Message
}

// dbErr wraps an infrastructure failure as a db_error OpError.
func dbErr(op string, err error) error {
	return &OpError{Code: CodeDBError, Message: op + ": " + err.Error()}
}

// ─── Models ──────────────────────────────────────────────────────────────────

// Claim is a persisted statement with a lifecycle.
type Claim struct {
	ID             string    `json:"id"`
	IdempotencyKey *string   `json:"idempotency_key,omitempty"`
	Statement      string    `json:"statement"`
	ClaimType      ClaimType `json:"claim_type"`
	Owner          string    `json:"owner"`
	Confidence     float64   `json:"confidence"`
	Status         Status    `json:"status"`
	Supersedes     *string   `json:"supersedes,omitempty"`
	Session        *string   `json:"session,omitempty"`
	TTLHours       *float64  `json:"ttl_hours,omitempty"`
	Scopes         []string  `json:"scopes,omitempty"`
	CreatedAt      int64     `json:"created_at"`
	UpdatedAt      int64     `json:"updated_at"`
}

// Evidence is one claim↔evidence binding.
type Evidence struct {
	ClaimID     string           `json:"claim_id"`
	EvidenceRef string           `json:"evidence_ref"`
	AddedBy     string           `json:"added_by"`
	Relation    EvidenceRelation `json:"relation"`
	Weight      float64          `json:"weight"`
	CreatedAt   int64            `json:"created_at"`
}

// StatusChange is one append-only audit row from claim_status_history.
type StatusChange struct {
	ID        int64  `json:"id"`
	ClaimID   string `json:"claim_id"`
	OldStatus Status `json:"old_status"`
	NewStatus Status `json:"new_status"`
	ChangedBy string `json:"changed_by"`
	Reason    string `json:"reason,omitempty"`
	ChangedAt int64  `json:"changed_at"`
}

// Vote is one agent's recorded consensus position on a claim.
type Vote struct {
	ClaimID   string   `json:"claim_id"`
	Agent     string   `json:"agent"`
	Position  Position `json:"position"`
	Reason    string   `json:"reason,omitempty"`
	CreatedAt int64    `json:"created_at"`
}

// Decision references exactly one claim and records who decided and why.
type Decision struct {
	ID           string                `json:"id"`
	ClaimID      string                `json:"claim_id"`
	DecidedBy    string                `json:"decided_by"`
	Context      string                `json:"context,omitempty"`
	Rationale    string                `json:"rationale,omitempty"`
	Outcome      Outcome               `json:"outcome"`
	OutcomeNotes string                `json:"outcome_notes,omitempty"`
	Alternatives []DecisionAlternative `json:"alternatives,omitempty"`
	CreatedAt    int64                 `json:"created_at"`
}

// DecisionAlternative is a rejected alternative attached to a decision.
type DecisionAlternative struct {
	ClaimID *string `json:"claim_id,omitempty"`
	Reason  string  `json:"reason,omitempty"`
}

// Belief is one (claim, confidence) entry in a snapshot.
type Belief struct {
	ClaimID    string  `json:"claim_id"`
	Confidence float64 `json:"confidence"`
}

// Snapshot is an immutable per-agent capture of held beliefs.
type Snapshot struct {
	ID        string   `json:"id"`
	Agent     string   `json:"agent"`
	Session   *string  `json:"session,omitempty"`
	Beliefs   []Belief `json:"beliefs"`
	CreatedAt int64    `json:"created_at"`
}

// Contradiction is a detected conflict between two beliefs in a snapshot.
// ClaimA sorts lexically before ClaimB.
type Contradiction struct {
	ID         int64               `json:"id"`
	SnapshotID string              `json:"snapshot_id"`
	Agent      string              `json:"agent"`
	ClaimA     string              `json:"claim_a"`
	ClaimB     string              `json:"claim_b"`
	Reason     ContradictionReason `json:"reason"`
	CreatedAt  int64               `json:"created_at"`
}

// Stats holds aggregate claim-graph statistics.
type Stats struct {
	TotalClaims    int            `json:"total_claims"`
	ClaimsByStatus map[string]int `json:"claims_by_status"`
	TotalDecisions int            `json:"total_decisions"`
	TotalSnapshots int            `json:"total_snapshots"`
	TotalPatterns  int            `json:"total_patterns"`
}

// ─── Params / results ────────────────────────────────────────────────────────

// CreateClaimParams holds the input for create-claim.
type CreateClaimParams struct {
	Statement      string    `json:"statement"`
	ClaimType      ClaimType `json:"claim_type"`
	Owner          string    `json:"owner"`
	Status         Status    `json:"status,omitempty"`
	Scopes         []string  `json:"scopes,omitempty"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	Confidence     *float64  `json:"confidence,omitempty"`
	Session        string    `json:"session,omitempty"`
	Supersedes     string    `json:"supersedes,omitempty"`
	TTLHours       *float64  `json:"ttl_hours,omitempty"`
}

// CreateClaimResult reports creation or idempotent replay.
type CreateClaimResult struct {
	// Status is "created" or "duplicate".
	Status string `json:"status"`
	Claim  *Claim `json:"claim"`
}

// QueryClaimsParams holds the filters for query-claims.
type QueryClaimsParams struct {
	Scope        string   `json:"scope,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`
	ClaimType    ClaimType `json:"claim_type,omitempty"`
	Status       Status   `json:"status,omitempty"`
	Owner        string   `json:"owner,omitempty"`
	Session      string   `json:"session,omitempty"`
	SessionsBack int      `json:"sessions_back,omitempty"`
	Since        int64    `json:"since,omitempty"`
	Until        int64    `json:"until,omitempty"`
	Text         string   `json:"text,omitempty"`
	Limit        int      `json:"limit,omitempty"`
	// Order is "recency" (default) or "rank". A text query forces rank.
	Order string `json:"order,omitempty"`
}

// QueryClaimsResult holds query output with the total match count.
type QueryClaimsResult struct {
	Claims []Claim `json:"claims"`
	Total  int     `json:"total"`
}

// UpdateStatusParams holds the input for update-claim-status.
type UpdateStatusParams struct {
	ClaimID   string `json:"claim_id"`
	Status    Status `json:"status"`
	ChangedBy string `json:"changed_by"`
	Reason    string `json:"reason,omitempty"`
}

// ConsensusParams holds the input for record-consensus.
type ConsensusParams struct {
	ClaimID      string   `json:"claim_id"`
	Agent        string   `json:"agent"`
	Position     Position `json:"position"`
	Reason       string   `json:"reason,omitempty"`
	ActiveAgents []string `json:"active_agents,omitempty"`
}

// StatusUpdate describes the auto-transition outcome of record-consensus.
type StatusUpdate struct {
	// Changed is true when the vote triggered a status transition.
	Changed   bool   `json:"changed"`
	NewStatus Status `json:"new_status,omitempty"`
	// Reason is "challenge_recorded", "all_support", or
	// "insufficient_consensus".
	Reason string `json:"reason"`
	// Missing lists roster agents still lacking a support vote when
	// Reason is insufficient_consensus.
	Missing []string `json:"missing,omitempty"`
}

// ConsensusResult is the output of record-consensus.
type ConsensusResult struct {
	Claim        *Claim       `json:"claim"`
	Consensus    []Vote       `json:"consensus"`
	StatusUpdate StatusUpdate `json:"status_update"`
}

// AddEvidenceParams holds the input for add-evidence.
type AddEvidenceParams struct {
	ClaimID     string           `json:"claim_id"`
	EvidenceRef string           `json:"evidence_ref"`
	AddedBy     string           `json:"added_by"`
	Relation    EvidenceRelation `json:"relation,omitempty"`
	Weight      *float64         `json:"weight,omitempty"`
}

// AddEvidenceResult reports the binding, or the idempotent no-op.
type AddEvidenceResult struct {
	// Status is "added" or "duplicate".
	Status   string    `json:"status"`
	Evidence *Evidence `json:"evidence"`
}

// SnapshotParams holds the input for create-belief-snapshot.
type SnapshotParams struct {
	Agent      string `json:"agent"`
	Session    string `json:"session,omitempty"`
	MaxBeliefs int    `json:"max_beliefs,omitempty"`
}

// SnapshotResult holds the persisted snapshot and its contradictions.
type SnapshotResult struct {
	Snapshot       *Snapshot       `json:"snapshot"`
	Contradictions []Contradiction `json:"contradictions"`
}

// BeliefsParams holds the input for get-agent-beliefs.
type BeliefsParams struct {
	Agent   string `json:"agent"`
	Session string `json:"session,omitempty"`
	Latest  bool   `json:"latest,omitempty"`
}

// BeliefsResult lists an agent's snapshots, newest first.
type BeliefsResult struct {
	Snapshots []Snapshot `json:"snapshots"`
	Latest    *Snapshot  `json:"latest,omitempty"`
}

// ContradictionsParams holds the filters for get-contradictions.
type ContradictionsParams struct {
	Agent   string `json:"agent,omitempty"`
	Session string `json:"session,omitempty"`
	ClaimID string `json:"claim_id,omitempty"`
	Since   int64  `json:"since,omitempty"`
	Until   int64  `json:"until,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

// CreateDecisionParams holds the input for create-decision.
type CreateDecisionParams struct {
	ClaimID      string                `json:"claim_id"`
	DecidedBy    string                `json:"decided_by"`
	Context      string                `json:"context,omitempty"`
	Rationale    string                `json:"rationale,omitempty"`
	Outcome      Outcome               `json:"outcome,omitempty"`
	Alternatives []DecisionAlternative `json:"alternatives,omitempty"`
}

// RecordOutcomeParams holds the input for record-outcome.
type RecordOutcomeParams struct {
	DecisionID string  `json:"decision_id"`
	Outcome    Outcome `json:"outcome"`
	Notes      string  `json:"notes,omitempty"`
}
