package claims

import (
	"strings"
	"testing"
)

func TestLikeSearchEscapesWildcards(t *testing.T) {
	_, where, args := likeSearch{}.textFilter(`100%_done\`)
	if !strings.Contains(where, "ESCAPE") {
		t.Errorf("where = %q, want an ESCAPE clause", where)
	}
	want := `%100\%\_done\\%`
	if args[0] != want {
		t.Errorf("pattern = %q, want %q", args[0], want)
	}
}

func TestQueryClaimsLikeMatchesLiterally(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	s, err := Open(cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	s.search = likeSearch{}

	for _, stmt := range []string{"rollout covered 100% of hosts", "rollout covered 100x of hosts"} {
		if _, err := s.CreateClaim(CreateClaimParams{Statement: stmt, ClaimType: TypeFact}); err != nil {
			t.Fatalf("CreateClaim(%q): %v", stmt, err)
		}
	}

	res, err := s.QueryClaims(QueryClaimsParams{Text: "100%"})
	if err != nil {
		t.Fatalf("QueryClaims() error: %v", err)
	}
	if res.Total != 1 {
		t.Fatalf("text total = %d, want 1 (only the literal match)", res.Total)
	}
	if res.Claims[0].Statement != "rollout covered 100% of hosts" {
		t.Errorf("matched %q, want the literal %%-containing claim", res.Claims[0].Statement)
	}
}
