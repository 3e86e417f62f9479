package claims_test

import (
	"testing"

	"github.com/anamnesos/hivemind-sub007/internal/claims"
)

func TestQueryClaims_ScopeFilter(t *testing.T) {
	s := newTestStore(t)
	mustCreate(t, s, claims.CreateClaimParams{
		Statement: "cache layer is stale", ClaimType: claims.TypeFact, Scopes: []string{"svc/cache"},
	})
	b := mustCreate(t, s, claims.CreateClaimParams{
		Statement: "auth tokens rotate", ClaimType: claims.TypeFact, Scopes: []string{"svc/auth", "svc/cache"},
	})
	mustCreate(t, s, claims.CreateClaimParams{
		Statement: "unscoped observation", ClaimType: claims.TypeFact,
	})

	res, err := s.QueryClaims(claims.QueryClaimsParams{Scope: "svc/cache"})
	if err != nil {
		t.Fatalf("QueryClaims() error: %v", err)
	}
	if res.Total != 2 {
		t.Errorf("total = %d, want 2", res.Total)
	}

	res, err = s.QueryClaims(claims.QueryClaimsParams{Scope: "svc/auth"})
	if err != nil {
		t.Fatalf("QueryClaims() error: %v", err)
	}
	if res.Total != 1 || res.Claims[0].ID != b.ID {
		t.Errorf("svc/auth query = %+v, want only %s", res, b.ID)
	}

	// Multiple scopes match any of them.
	res, err = s.QueryClaims(claims.QueryClaimsParams{Scopes: []string{"svc/auth", "no/such"}})
	if err != nil {
		t.Fatalf("QueryClaims() error: %v", err)
	}
	if res.Total != 1 {
		t.Errorf("multi-scope total = %d, want 1", res.Total)
	}
}

func TestQueryClaims_TypeStatusOwner(t *testing.T) {
	s := newTestStore(t)
	mustCreate(t, s, claims.CreateClaimParams{
		Statement: "design note", ClaimType: claims.TypeDecision, Owner: "architect",
	})
	hyp := mustCreate(t, s, claims.CreateClaimParams{
		Statement: "might be a race", ClaimType: claims.TypeHypothesis, Owner: "infra",
		Status: claims.StatusPendingProof,
	})

	res, err := s.QueryClaims(claims.QueryClaimsParams{ClaimType: claims.TypeHypothesis})
	if err != nil {
		t.Fatalf("QueryClaims() error: %v", err)
	}
	if res.Total != 1 || res.Claims[0].ID != hyp.ID {
		t.Errorf("type filter = %+v, want only %s", res, hyp.ID)
	}

	res, err = s.QueryClaims(claims.QueryClaimsParams{Status: claims.StatusPendingProof})
	if err != nil {
		t.Fatalf("QueryClaims() error: %v", err)
	}
	if res.Total != 1 {
		t.Errorf("status filter total = %d, want 1", res.Total)
	}

	// Owner filter normalizes through the role aliases: infra → devops.
	res, err = s.QueryClaims(claims.QueryClaimsParams{Owner: "ops"})
	if err != nil {
		t.Fatalf("QueryClaims() error: %v", err)
	}
	if res.Total != 1 || res.Claims[0].Owner != "devops" {
		t.Errorf("owner filter = %+v, want the devops claim", res)
	}

	if _, err := s.QueryClaims(claims.QueryClaimsParams{ClaimType: "rumor"}); opCode(err) != claims.CodeInvalidClaimType {
		t.Errorf("bad type error = %v, want invalid_claim_type", err)
	}
	if _, err := s.QueryClaims(claims.QueryClaimsParams{Status: "maybe"}); opCode(err) != claims.CodeInvalidStatus {
		t.Errorf("bad status error = %v, want invalid_status", err)
	}
}

func TestQueryClaims_Sessions(t *testing.T) {
	s := newTestStore(t)
	old := mustCreate(t, s, claims.CreateClaimParams{
		Statement: "from the first session", ClaimType: claims.TypeFact, Session: "sess_1",
	})
	recent := mustCreate(t, s, claims.CreateClaimParams{
		Statement: "from the second session", ClaimType: claims.TypeFact, Session: "sess_2",
	})
	// Pin activity order so the sessionsBack window is deterministic.
	if _, err := s.DB().Exec(`UPDATE claims SET updated_at = 1000 WHERE id = ?`, old.ID); err != nil {
		t.Fatalf("pin updated_at: %v", err)
	}
	if _, err := s.DB().Exec(`UPDATE claims SET updated_at = 2000 WHERE id = ?`, recent.ID); err != nil {
		t.Fatalf("pin updated_at: %v", err)
	}

	res, err := s.QueryClaims(claims.QueryClaimsParams{Session: "sess_1"})
	if err != nil {
		t.Fatalf("QueryClaims() error: %v", err)
	}
	if res.Total != 1 || res.Claims[0].ID != old.ID {
		t.Errorf("session filter = %+v, want only %s", res, old.ID)
	}

	res, err = s.QueryClaims(claims.QueryClaimsParams{SessionsBack: 1})
	if err != nil {
		t.Fatalf("QueryClaims() error: %v", err)
	}
	if res.Total != 1 || res.Claims[0].ID != recent.ID {
		t.Errorf("sessionsBack=1 = %+v, want only %s", res, recent.ID)
	}

	res, err = s.QueryClaims(claims.QueryClaimsParams{SessionsBack: 5})
	if err != nil {
		t.Fatalf("QueryClaims() error: %v", err)
	}
	if res.Total != 2 {
		t.Errorf("sessionsBack=5 total = %d, want 2", res.Total)
	}
}

func TestQueryClaims_SessionsBackEmptyStore(t *testing.T) {
	s := newTestStore(t)
	res, err := s.QueryClaims(claims.QueryClaimsParams{SessionsBack: 3})
	if err != nil {
		t.Fatalf("QueryClaims() error: %v", err)
	}
	if res.Total != 0 || len(res.Claims) != 0 {
		t.Errorf("empty store sessionsBack = %+v, want empty result", res)
	}
}

func TestQueryClaims_TimeWindow(t *testing.T) {
	s := newTestStore(t)
	old := mustCreate(t, s, claims.CreateClaimParams{Statement: "ancient", ClaimType: claims.TypeFact})
	fresh := mustCreate(t, s, claims.CreateClaimParams{Statement: "fresh", ClaimType: claims.TypeFact})
	if _, err := s.DB().Exec(`UPDATE claims SET created_at = 1000 WHERE id = ?`, old.ID); err != nil {
		t.Fatalf("pin created_at: %v", err)
	}

	res, err := s.QueryClaims(claims.QueryClaimsParams{Since: 2000})
	if err != nil {
		t.Fatalf("QueryClaims() error: %v", err)
	}
	if res.Total != 1 || res.Claims[0].ID != fresh.ID {
		t.Errorf("since filter = %+v, want only %s", res, fresh.ID)
	}

	res, err = s.QueryClaims(claims.QueryClaimsParams{Until: 2000})
	if err != nil {
		t.Fatalf("QueryClaims() error: %v", err)
	}
	if res.Total != 1 || res.Claims[0].ID != old.ID {
		t.Errorf("until filter = %+v, want only %s", res, old.ID)
	}
}

func TestQueryClaims_TextOrdersByConfidence(t *testing.T) {
	s := newTestStore(t)
	lowConf := 0.2
	highConf := 0.9
	weak := mustCreate(t, s, claims.CreateClaimParams{
		Statement: "regression in login flow", ClaimType: claims.TypeHypothesis, Confidence: &lowConf,
	})
	strong := mustCreate(t, s, claims.CreateClaimParams{
		Statement: "regression confirmed by bisect", ClaimType: claims.TypeFact, Confidence: &highConf,
	})
	mustCreate(t, s, claims.CreateClaimParams{
		Statement: "unrelated cleanup task", ClaimType: claims.TypeFact,
	})

	res, err := s.QueryClaims(claims.QueryClaimsParams{Text: "regression"})
	if err != nil {
		t.Fatalf("QueryClaims() error: %v", err)
	}
	if res.Total != 2 {
		t.Fatalf("text total = %d, want 2", res.Total)
	}
	if res.Claims[0].ID != strong.ID || res.Claims[1].ID != weak.ID {
		t.Errorf("order = [%s %s], want confidence descending", res.Claims[0].ID, res.Claims[1].ID)
	}
}

func TestQueryClaims_LimitAndTotal(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 5; i++ {
		mustCreate(t, s, claims.CreateClaimParams{
			Statement: "claim number " + string(rune('a'+i)), ClaimType: claims.TypeFact,
		})
	}

	res, err := s.QueryClaims(claims.QueryClaimsParams{Limit: 2})
	if err != nil {
		t.Fatalf("QueryClaims() error: %v", err)
	}
	if len(res.Claims) != 2 {
		t.Errorf("claims = %d, want 2", len(res.Claims))
	}
	if res.Total != 5 {
		t.Errorf("total = %d, want 5", res.Total)
	}
}

func TestQueryClaims_TextAfterIndexlessSchema(t *testing.T) {
	cfg := claims.DefaultConfig()
	cfg.DataDir = t.TempDir()
	s1, err := claims.Open(cfg)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	mustCreate(t, s1, claims.CreateClaimParams{
		Statement: "regression confirmed by bisect", ClaimType: claims.TypeFact,
	})

	// A build without the fts5 module records the index migration's
	// version without creating the table. Simulate that schema state.
	drops := []string{
		"DROP TRIGGER IF EXISTS claims_fts_insert",
		"DROP TRIGGER IF EXISTS claims_fts_delete",
		"DROP TRIGGER IF EXISTS claims_fts_update",
		"DROP TABLE IF EXISTS claims_fts",
	}
	for _, q := range drops {
		if _, err := s1.DB().Exec(q); err != nil {
			t.Fatalf("%s: %v", q, err)
		}
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := claims.Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = s2.Close() })

	res, err := s2.QueryClaims(claims.QueryClaimsParams{Text: "regression"})
	if err != nil {
		t.Fatalf("QueryClaims() after reopen: %v", err)
	}
	if res.Total != 1 {
		t.Fatalf("text total = %d, want 1", res.Total)
	}
	if res.Claims[0].Statement != "regression confirmed by bisect" {
		t.Errorf("statement = %q, want the pre-existing claim", res.Claims[0].Statement)
	}
}
