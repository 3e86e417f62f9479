package dispatch

import (
	"encoding/json"
	"fmt"

	"github.com/anamnesos/hivemind-sub007/internal/claims"
	"github.com/anamnesos/hivemind-sub007/internal/patterns"
)

type opFunc func(c *core, payload json.RawMessage) (any, error)

// operations is the full named-operation surface.
var operations = map[string]opFunc{
	"create-claim":           opCreateClaim,
	"get-claim":              opGetClaim,
	"query-claims":           opQueryClaims,
	"update-claim-status":    opUpdateStatus,
	"get-status-history":     opStatusHistory,
	"record-consensus":       opRecordConsensus,
	"add-evidence":           opAddEvidence,
	"get-evidence":           opGetEvidence,
	"create-belief-snapshot": opCreateSnapshot,
	"get-agent-beliefs":      opAgentBeliefs,
	"get-contradictions":     opContradictions,
	"create-decision":        opCreateDecision,
	"record-outcome":         opRecordOutcome,
	"get-decision":           opGetDecision,
	"append-event":           opAppendEvent,
	"process-pattern-spool":  opProcessSpool,
	"query-patterns":         opQueryPatterns,
	"resolve-pattern":        opResolvePattern,
	"expire-claims":          opExpireClaims,
	"integrity-check":        opIntegrityCheck,
	"get-stats":              opStats,
}

func decode[T any](payload json.RawMessage) (T, error) {
	var p T
	if len(payload) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		return p, &claims.OpError{Code: claims.CodeDBError, Message: "decode payload: " + err.Error()}
	}
	return p, nil
}

func opCreateClaim(c *core, payload json.RawMessage) (any, error) {
	p, err := decode[claims.CreateClaimParams](payload)
	if err != nil {
		return nil, err
	}
	return c.store.CreateClaim(p)
}

func opGetClaim(c *core, payload json.RawMessage) (any, error) {
	p, err := decode[struct {
		ClaimID string `json:"claim_id"`
	}](payload)
	if err != nil {
		return nil, err
	}
	claim, err := c.store.GetClaim(p.ClaimID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"claim": claim}, nil
}

func opQueryClaims(c *core, payload json.RawMessage) (any, error) {
	p, err := decode[claims.QueryClaimsParams](payload)
	if err != nil {
		return nil, err
	}
	return c.store.QueryClaims(p)
}

func opUpdateStatus(c *core, payload json.RawMessage) (any, error) {
	p, err := decode[claims.UpdateStatusParams](payload)
	if err != nil {
		return nil, err
	}
	claim, err := c.store.UpdateStatus(p)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": claim.Status, "claim": claim}, nil
}

func opStatusHistory(c *core, payload json.RawMessage) (any, error) {
	p, err := decode[struct {
		ClaimID string `json:"claim_id"`
	}](payload)
	if err != nil {
		return nil, err
	}
	history, err := c.store.StatusHistory(p.ClaimID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"history": history}, nil
}

func opRecordConsensus(c *core, payload json.RawMessage) (any, error) {
	p, err := decode[claims.ConsensusParams](payload)
	if err != nil {
		return nil, err
	}
	return c.store.RecordConsensus(p)
}

func opAddEvidence(c *core, payload json.RawMessage) (any, error) {
	p, err := decode[claims.AddEvidenceParams](payload)
	if err != nil {
		return nil, err
	}
	return c.store.AddEvidence(p)
}

func opGetEvidence(c *core, payload json.RawMessage) (any, error) {
	p, err := decode[struct {
		ClaimID string `json:"claim_id"`
	}](payload)
	if err != nil {
		return nil, err
	}
	if _, err := c.store.GetClaim(p.ClaimID); err != nil {
		return nil, err
	}
	evidence, err := c.store.ClaimEvidence(p.ClaimID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"evidence": evidence}, nil
}

func opCreateSnapshot(c *core, payload json.RawMessage) (any, error) {
	p, err := decode[claims.SnapshotParams](payload)
	if err != nil {
		return nil, err
	}
	res, err := c.store.CreateSnapshot(p)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"snapshot": res.Snapshot,
		"contradictions": map[string]any{
			"count": len(res.Contradictions),
			"items": res.Contradictions,
		},
	}, nil
}

func opAgentBeliefs(c *core, payload json.RawMessage) (any, error) {
	p, err := decode[claims.BeliefsParams](payload)
	if err != nil {
		return nil, err
	}
	return c.store.GetAgentBeliefs(p)
}

func opContradictions(c *core, payload json.RawMessage) (any, error) {
	p, err := decode[claims.ContradictionsParams](payload)
	if err != nil {
		return nil, err
	}
	contradictions, err := c.store.GetContradictions(p)
	if err != nil {
		return nil, err
	}
	return map[string]any{"contradictions": contradictions}, nil
}

func opCreateDecision(c *core, payload json.RawMessage) (any, error) {
	p, err := decode[claims.CreateDecisionParams](payload)
	if err != nil {
		return nil, err
	}
	decision, err := c.store.CreateDecision(p)
	if err != nil {
		return nil, err
	}
	return map[string]any{"decision": decision}, nil
}

func opRecordOutcome(c *core, payload json.RawMessage) (any, error) {
	p, err := decode[claims.RecordOutcomeParams](payload)
	if err != nil {
		return nil, err
	}
	decision, err := c.store.RecordOutcome(p)
	if err != nil {
		return nil, err
	}
	return map[string]any{"decision": decision}, nil
}

func opGetDecision(c *core, payload json.RawMessage) (any, error) {
	p, err := decode[struct {
		DecisionID string `json:"decision_id"`
	}](payload)
	if err != nil {
		return nil, err
	}
	decision, err := c.store.GetDecision(p.DecisionID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"decision": decision}, nil
}

func opAppendEvent(c *core, payload json.RawMessage) (any, error) {
	ev, err := decode[patterns.Event](payload)
	if err != nil {
		return nil, err
	}
	spool := patterns.NewSpool(c.opts.Config.ResolvedSpoolPath(), nil)
	if err := spool.Append(ev); err != nil {
		return nil, &claims.OpError{Code: claims.CodeDBError, Message: err.Error()}
	}
	return map[string]any{"appended": true}, nil
}

func opProcessSpool(c *core, payload json.RawMessage) (any, error) {
	p, err := decode[struct {
		SpoolPath string `json:"spool_path"`
	}](payload)
	if err != nil {
		return nil, err
	}
	path := p.SpoolPath
	if path == "" {
		path = c.opts.Config.ResolvedSpoolPath()
	}
	res, err := c.miner.ProcessSpool(path)
	if err != nil {
		return nil, &claims.OpError{Code: claims.CodeDBError, Message: err.Error()}
	}
	return res, nil
}

func opQueryPatterns(c *core, payload json.RawMessage) (any, error) {
	p, err := decode[patterns.QueryPatternsParams](payload)
	if err != nil {
		return nil, err
	}
	if p.PatternType != "" {
		switch p.PatternType {
		case patterns.TypeCoordination, patterns.TypeFailure, patterns.TypeSuccess:
		default:
			return nil, &claims.OpError{Code: "invalid_pattern_type",
				Message: fmt.Sprintf("invalid pattern type %q: must be one of: coordination, failure, success", p.PatternType)}
		}
	}
	res, err := c.miner.QueryPatterns(p)
	if err != nil {
		return nil, &claims.OpError{Code: claims.CodeDBError, Message: err.Error()}
	}
	return res, nil
}

func opResolvePattern(c *core, payload json.RawMessage) (any, error) {
	p, err := decode[patterns.ResolveParams](payload)
	if err != nil {
		return nil, err
	}
	pattern, err := c.miner.Resolve(p)
	if err != nil {
		return nil, &claims.OpError{Code: claims.CodeDBError, Message: err.Error()}
	}
	return map[string]any{"pattern": pattern}, nil
}

func opExpireClaims(c *core, payload json.RawMessage) (any, error) {
	expired, err := c.store.ExpireClaims()
	if err != nil {
		return nil, err
	}
	return map[string]any{"expired": expired, "count": len(expired)}, nil
}

func opIntegrityCheck(c *core, payload json.RawMessage) (any, error) {
	if err := c.store.IntegrityCheck(); err != nil {
		return nil, err
	}
	return map[string]any{"verdict": "ok"}, nil
}

func opStats(c *core, payload json.RawMessage) (any, error) {
	return c.store.Stats()
}
