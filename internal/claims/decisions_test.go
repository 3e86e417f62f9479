package claims_test

import (
	"strings"
	"testing"

	"github.com/anamnesos/hivemind-sub007/internal/claims"
)

func TestCreateDecision(t *testing.T) {
	s := newTestStore(t)
	c := mustCreate(t, s, claims.CreateClaimParams{
		Statement: "adopt sqlite", ClaimType: claims.TypeDecision, Owner: "architect",
	})

	rejected := mustCreate(t, s, claims.CreateClaimParams{
		Statement: "adopt postgres", ClaimType: claims.TypeDecision, Owner: "architect",
	})

	d, err := s.CreateDecision(claims.CreateDecisionParams{
		ClaimID:   c.ID,
		DecidedBy: "architect",
		Context:   "embedded deployment",
		Rationale: "no external service wanted",
		Alternatives: []claims.DecisionAlternative{
			{ClaimID: &rejected.ID, Reason: "needs a server"},
			{Reason: "flat files considered too fragile"},
		},
	})
	if err != nil {
		t.Fatalf("CreateDecision() error: %v", err)
	}
	if !strings.HasPrefix(d.ID, "dec_") {
		t.Errorf("id = %q, want dec_ prefix", d.ID)
	}
	if d.Outcome != claims.OutcomeUnknown {
		t.Errorf("outcome = %q, want unknown default", d.Outcome)
	}
	if len(d.Alternatives) != 2 {
		t.Fatalf("alternatives = %d, want 2", len(d.Alternatives))
	}
	if d.Alternatives[0].ClaimID == nil || *d.Alternatives[0].ClaimID != rejected.ID {
		t.Errorf("first alternative claim = %v", d.Alternatives[0].ClaimID)
	}
	if d.Alternatives[1].ClaimID != nil {
		t.Errorf("second alternative claim = %v, want nil", d.Alternatives[1].ClaimID)
	}
}

func TestCreateDecision_Validation(t *testing.T) {
	s := newTestStore(t)
	c := mustCreate(t, s, claims.CreateClaimParams{Statement: "x", ClaimType: claims.TypeDecision})

	_, err := s.CreateDecision(claims.CreateDecisionParams{ClaimID: "clm_missing"})
	if opCode(err) != claims.CodeClaimNotFound {
		t.Errorf("missing claim error = %v, want claim_not_found", err)
	}

	_, err = s.CreateDecision(claims.CreateDecisionParams{ClaimID: c.ID, Outcome: "triumph"})
	if opCode(err) != claims.CodeInvalidOutcome {
		t.Errorf("bad outcome error = %v, want invalid_outcome", err)
	}
}

func TestRecordOutcome(t *testing.T) {
	s := newTestStore(t)
	c := mustCreate(t, s, claims.CreateClaimParams{Statement: "x", ClaimType: claims.TypeDecision})
	d, err := s.CreateDecision(claims.CreateDecisionParams{
		ClaimID: c.ID, DecidedBy: "devops", Rationale: "original rationale",
	})
	if err != nil {
		t.Fatalf("CreateDecision() error: %v", err)
	}

	updated, err := s.RecordOutcome(claims.RecordOutcomeParams{
		DecisionID: d.ID, Outcome: claims.OutcomePartial, Notes: "worked for reads only",
	})
	if err != nil {
		t.Fatalf("RecordOutcome() error: %v", err)
	}
	if updated.Outcome != claims.OutcomePartial {
		t.Errorf("outcome = %q, want partial", updated.Outcome)
	}
	if updated.OutcomeNotes != "worked for reads only" {
		t.Errorf("notes = %q", updated.OutcomeNotes)
	}
	// Only outcome fields mutate.
	if updated.Rationale != "original rationale" || updated.DecidedBy != "devops" {
		t.Errorf("decision mutated beyond outcome: %+v", updated)
	}
}

func TestRecordOutcome_Validation(t *testing.T) {
	s := newTestStore(t)

	_, err := s.RecordOutcome(claims.RecordOutcomeParams{
		DecisionID: "dec_missing", Outcome: claims.OutcomeSuccess,
	})
	if opCode(err) != claims.CodeDecisionNotFound {
		t.Errorf("missing decision error = %v, want decision_not_found", err)
	}

	_, err = s.RecordOutcome(claims.RecordOutcomeParams{
		DecisionID: "dec_missing", Outcome: "triumph",
	})
	if opCode(err) != claims.CodeInvalidOutcome {
		t.Errorf("bad outcome error = %v, want invalid_outcome", err)
	}
}

func TestClaimDecisions(t *testing.T) {
	s := newTestStore(t)
	c := mustCreate(t, s, claims.CreateClaimParams{Statement: "x", ClaimType: claims.TypeDecision})

	first, err := s.CreateDecision(claims.CreateDecisionParams{ClaimID: c.ID, DecidedBy: "architect"})
	if err != nil {
		t.Fatalf("first decision: %v", err)
	}
	if _, err := s.CreateDecision(claims.CreateDecisionParams{ClaimID: c.ID, DecidedBy: "devops"}); err != nil {
		t.Fatalf("second decision: %v", err)
	}

	list, err := s.ClaimDecisions(c.ID)
	if err != nil {
		t.Fatalf("ClaimDecisions() error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("decisions = %d, want 2", len(list))
	}
	seen := map[string]bool{}
	for _, d := range list {
		seen[d.ID] = true
	}
	if !seen[first.ID] {
		t.Errorf("first decision %s missing from listing", first.ID)
	}
}
