package claims_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anamnesos/hivemind-sub007/internal/claims"
)

// newTestStore creates a Store backed by a temp directory for isolation.
func newTestStore(t *testing.T) *claims.Store {
	t.Helper()
	cfg := claims.DefaultConfig()
	cfg.DataDir = t.TempDir()
	s, err := claims.Open(cfg)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// mustCreate creates a claim and fails the test on error.
func mustCreate(t *testing.T, s *claims.Store, p claims.CreateClaimParams) *claims.Claim {
	t.Helper()
	res, err := s.CreateClaim(p)
	if err != nil {
		t.Fatalf("CreateClaim(%q) error: %v", p.Statement, err)
	}
	return res.Claim
}

// opCode extracts the OpError code, or "" for non-operation errors.
func opCode(err error) string {
	if oe, ok := err.(*claims.OpError); ok {
		return oe.Code
	}
	return ""
}

// ─── Open / Initialization ───────────────────────────────────────────────────

func TestOpen_CreatesDBFile(t *testing.T) {
	dir := t.TempDir()
	cfg := claims.DefaultConfig()
	cfg.DataDir = dir
	s, err := claims.Open(cfg)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(filepath.Join(dir, "claims.db")); err != nil {
		t.Fatalf("database file not created: %v", err)
	}
}

func TestOpen_IdempotentReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := claims.DefaultConfig()
	cfg.DataDir = dir

	s1, err := claims.Open(cfg)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	created := mustCreate(t, s1, claims.CreateClaimParams{
		Statement: "auth uses JWT", ClaimType: claims.TypeFact, Owner: "architect",
	})
	s1.Close()

	// Reopen — migrations re-run as no-ops and data persists.
	s2, err := claims.Open(cfg)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s2.Close()

	got, err := s2.GetClaim(created.ID)
	if err != nil {
		t.Fatalf("claim not found after reopen: %v", err)
	}
	if got.Statement != "auth uses JWT" {
		t.Errorf("statement = %q after reopen", got.Statement)
	}
}

func TestIntegrityCheck(t *testing.T) {
	s := newTestStore(t)
	if err := s.IntegrityCheck(); err != nil {
		t.Fatalf("IntegrityCheck() error: %v", err)
	}
}

// ─── CreateClaim ─────────────────────────────────────────────────────────────

func TestCreateClaim_Defaults(t *testing.T) {
	s := newTestStore(t)

	res, err := s.CreateClaim(claims.CreateClaimParams{
		Statement: "cache layer is redis",
		ClaimType: claims.TypeFact,
		Owner:     "devops",
		Scopes:    []string{"infra/cache", "infra/cache", " "},
	})
	if err != nil {
		t.Fatalf("CreateClaim() error: %v", err)
	}
	if res.Status != "created" {
		t.Errorf("status = %q, want created", res.Status)
	}
	c := res.Claim
	if !strings.HasPrefix(c.ID, "clm_") {
		t.Errorf("id = %q, want clm_ prefix", c.ID)
	}
	if c.Status != claims.StatusProposed {
		t.Errorf("status = %q, want proposed", c.Status)
	}
	if c.Confidence != 0.5 {
		t.Errorf("confidence = %v, want 0.5", c.Confidence)
	}
	if c.Owner != "devops" {
		t.Errorf("owner = %q, want devops", c.Owner)
	}
	// Blank and duplicate scopes are dropped.
	if len(c.Scopes) != 1 || c.Scopes[0] != "infra/cache" {
		t.Errorf("scopes = %v, want [infra/cache]", c.Scopes)
	}
	if c.CreatedAt == 0 || c.UpdatedAt == 0 {
		t.Error("timestamps not set")
	}
}

func TestCreateClaim_Validation(t *testing.T) {
	s := newTestStore(t)

	cases := []struct {
		name     string
		params   claims.CreateClaimParams
		wantCode string
	}{
		{"empty statement", claims.CreateClaimParams{ClaimType: claims.TypeFact}, claims.CodeStatementRequired},
		{"whitespace statement", claims.CreateClaimParams{Statement: "   ", ClaimType: claims.TypeFact}, claims.CodeStatementRequired},
		{"bad type", claims.CreateClaimParams{Statement: "x", ClaimType: "opinion"}, claims.CodeInvalidClaimType},
		{"bad status", claims.CreateClaimParams{Statement: "x", ClaimType: claims.TypeFact, Status: "archived"}, claims.CodeInvalidStatus},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.CreateClaim(tc.params)
			if opCode(err) != tc.wantCode {
				t.Errorf("error = %v, want code %s", err, tc.wantCode)
			}
		})
	}
}

func TestCreateClaim_OwnerNormalized(t *testing.T) {
	s := newTestStore(t)

	cases := map[string]string{
		"infra":      "devops",
		"SRE":        "devops",
		"design":     "architect",
		"qa":         "analyst",
		"unknown":    "analyst",
		"":           "analyst",
		"Architect ": "architect",
	}
	for in, want := range cases {
		c := mustCreate(t, s, claims.CreateClaimParams{
			Statement: "owner " + in, ClaimType: claims.TypeFact, Owner: in,
		})
		if c.Owner != want {
			t.Errorf("owner %q normalized to %q, want %q", in, c.Owner, want)
		}
	}
}

func TestCreateClaim_ConfidenceClamped(t *testing.T) {
	s := newTestStore(t)

	high := 3.5
	c := mustCreate(t, s, claims.CreateClaimParams{
		Statement: "too confident", ClaimType: claims.TypeHypothesis, Confidence: &high,
	})
	if c.Confidence != 1 {
		t.Errorf("confidence = %v, want clamped to 1", c.Confidence)
	}

	low := -0.2
	c = mustCreate(t, s, claims.CreateClaimParams{
		Statement: "not confident", ClaimType: claims.TypeHypothesis, Confidence: &low,
	})
	if c.Confidence != 0 {
		t.Errorf("confidence = %v, want clamped to 0", c.Confidence)
	}
}

func TestCreateClaim_IdempotentReplay(t *testing.T) {
	s := newTestStore(t)

	first, err := s.CreateClaim(claims.CreateClaimParams{
		Statement:      "deploy pipeline is green",
		ClaimType:      claims.TypeFact,
		IdempotencyKey: "deploy-green-1",
	})
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if first.Status != "created" {
		t.Fatalf("first status = %q, want created", first.Status)
	}

	// Same key, different statement: the stored row wins.
	replay, err := s.CreateClaim(claims.CreateClaimParams{
		Statement:      "something else entirely",
		ClaimType:      claims.TypeHypothesis,
		IdempotencyKey: "deploy-green-1",
	})
	if err != nil {
		t.Fatalf("replay create: %v", err)
	}
	if replay.Status != "duplicate" {
		t.Errorf("replay status = %q, want duplicate", replay.Status)
	}
	if replay.Claim.ID != first.Claim.ID {
		t.Errorf("replay returned %s, want original %s", replay.Claim.ID, first.Claim.ID)
	}
	if replay.Claim.Statement != "deploy pipeline is green" {
		t.Errorf("replay statement = %q, want original preserved", replay.Claim.Statement)
	}

	// Only one row exists.
	res, err := s.QueryClaims(claims.QueryClaimsParams{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if res.Total != 1 {
		t.Errorf("total = %d, want 1", res.Total)
	}
}

func TestGetClaim_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetClaim("clm_missing")
	if opCode(err) != claims.CodeClaimNotFound {
		t.Errorf("error = %v, want claim_not_found", err)
	}
}

// ─── Evidence ────────────────────────────────────────────────────────────────

func TestAddEvidence(t *testing.T) {
	s := newTestStore(t)
	c := mustCreate(t, s, claims.CreateClaimParams{
		Statement: "login regressed in v2.3", ClaimType: claims.TypeNegative, Owner: "analyst",
	})

	res, err := s.AddEvidence(claims.AddEvidenceParams{
		ClaimID:     c.ID,
		EvidenceRef: "incident-442",
		AddedBy:     "analyst",
	})
	if err != nil {
		t.Fatalf("AddEvidence() error: %v", err)
	}
	if res.Status != "added" {
		t.Errorf("status = %q, want added", res.Status)
	}
	if res.Evidence.Relation != claims.RelationSupports {
		t.Errorf("relation = %q, want supports default", res.Evidence.Relation)
	}
	if res.Evidence.Weight != 1.0 {
		t.Errorf("weight = %v, want 1.0 default", res.Evidence.Weight)
	}

	// Same binding again is a duplicate no-op, not an error.
	again, err := s.AddEvidence(claims.AddEvidenceParams{
		ClaimID:     c.ID,
		EvidenceRef: "incident-442",
		AddedBy:     "devops",
	})
	if err != nil {
		t.Fatalf("duplicate AddEvidence() error: %v", err)
	}
	if again.Status != "duplicate" {
		t.Errorf("status = %q, want duplicate", again.Status)
	}
	if again.Evidence.AddedBy != "analyst" {
		t.Errorf("added_by = %q, want original preserved", again.Evidence.AddedBy)
	}

	evidence, err := s.ClaimEvidence(c.ID)
	if err != nil {
		t.Fatalf("ClaimEvidence() error: %v", err)
	}
	if len(evidence) != 1 {
		t.Errorf("evidence count = %d, want 1", len(evidence))
	}
}

func TestAddEvidence_Validation(t *testing.T) {
	s := newTestStore(t)
	c := mustCreate(t, s, claims.CreateClaimParams{
		Statement: "x", ClaimType: claims.TypeFact,
	})

	_, err := s.AddEvidence(claims.AddEvidenceParams{ClaimID: c.ID})
	if opCode(err) != claims.CodeStatementRequired {
		t.Errorf("missing ref error = %v, want statement_required", err)
	}

	_, err = s.AddEvidence(claims.AddEvidenceParams{
		ClaimID: c.ID, EvidenceRef: "ref-1", Relation: "disputes",
	})
	if opCode(err) != claims.CodeInvalidRelation {
		t.Errorf("bad relation error = %v, want invalid_relation", err)
	}

	_, err = s.AddEvidence(claims.AddEvidenceParams{
		ClaimID: "clm_missing", EvidenceRef: "ref-1",
	})
	if opCode(err) != claims.CodeClaimNotFound {
		t.Errorf("missing claim error = %v, want claim_not_found", err)
	}
}

// ─── Stats ───────────────────────────────────────────────────────────────────

func TestStats(t *testing.T) {
	s := newTestStore(t)
	mustCreate(t, s, claims.CreateClaimParams{Statement: "a", ClaimType: claims.TypeFact})
	mustCreate(t, s, claims.CreateClaimParams{Statement: "b", ClaimType: claims.TypeFact, Status: claims.StatusConfirmed})

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if stats.TotalClaims != 2 {
		t.Errorf("total claims = %d, want 2", stats.TotalClaims)
	}
	if stats.ClaimsByStatus["proposed"] != 1 || stats.ClaimsByStatus["confirmed"] != 1 {
		t.Errorf("claims by status = %v", stats.ClaimsByStatus)
	}
}
