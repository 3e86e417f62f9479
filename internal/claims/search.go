package claims

import (
	"strings"
)

// searchStrategy selects how free-text filtering is compiled into the
// claim query. The store checks for the claims_fts index at open time
// and picks one of the two implementations; callers never know which is
// active.
type searchStrategy interface {
	// textFilter returns the JOIN fragment, WHERE fragment, and args
	// needed to match claims against a free-text query.
	textFilter(text string) (join string, where string, args []any)
}

// ftsSearch matches against the claims_fts full-text index.
type ftsSearch struct{}

func (ftsSearch) textFilter(text string) (string, string, []any) {
	return " JOIN claims_fts fts ON fts.rowid = c.rowid",
		" AND claims_fts MATCH ?",
		[]any{sanitizeFTS(text)}
}

// likeSearch is the degraded path when the full-text index is
// unavailable: substring matching on the statement. LIKE wildcards in
// the query text are escaped so "100%" matches the literal characters,
// keeping both strategies' semantics aligned.
type likeSearch struct{}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (likeSearch) textFilter(text string) (string, string, []any) {
	return "", ` AND c.statement LIKE ? ESCAPE '\'`, []any{"%" + likeEscaper.Replace(text) + "%"}
}

// sanitizeFTS wraps each word in quotes for safe FTS5 queries.
// "auth regression" → `"auth" "regression"`
func sanitizeFTS(query string) string {
	words := strings.Fields(query)
	for i, w := range words {
		w = strings.Trim(w, `"`)
		words[i] = `"` + w + `"`
	}
	return strings.Join(words, " ")
}

// QueryClaims filters the claim graph. Default ordering is recency;
// "rank" orders by confidence and is forced whenever a text query is
// present. The result cap defaults to the configured limit and is
// hard-capped at MaxQueryLimit.
func (s *Store) QueryClaims(p QueryClaimsParams) (*QueryClaimsResult, error) {
	if p.ClaimType != "" {
		if err := ValidateClaimType(p.ClaimType); err != nil {
			return nil, err
		}
	}
	if p.Status != "" {
		if err := ValidateStatus(p.Status); err != nil {
			return nil, err
		}
	}

	limit := p.Limit
	if limit <= 0 {
		limit = s.cfg.MaxQueryResults
	}
	if limit > MaxQueryLimit {
		limit = MaxQueryLimit
	}

	join := ""
	where := " WHERE 1=1"
	var args []any

	scopes := p.Scopes
	if p.Scope != "" {
		scopes = append([]string{p.Scope}, scopes...)
	}
	scopes = normalizeScopes(scopes)
	if len(scopes) > 0 {
		where += " AND EXISTS (SELECT 1 FROM claim_scopes cs WHERE cs.claim_id = c.id AND cs.scope IN (" +
			placeholders(len(scopes)) + "))"
		for _, sc := range scopes {
			args = append(args, sc)
		}
	}
	if p.ClaimType != "" {
		where += " AND c.claim_type = ?"
		args = append(args, p.ClaimType)
	}
	if p.Status != "" {
		where += " AND c.status = ?"
		args = append(args, p.Status)
	}
	if p.Owner != "" {
		where += " AND c.owner = ?"
		args = append(args, NormalizeRole(p.Owner))
	}
	if p.Session != "" {
		where += " AND c.session = ?"
		args = append(args, p.Session)
	} else if p.SessionsBack > 0 {
		sessions, err := s.recentSessions(p.SessionsBack)
		if err != nil {
			return nil, err
		}
		if len(sessions) == 0 {
			return &QueryClaimsResult{Claims: nil, Total: 0}, nil
		}
		where += " AND c.session IN (" + placeholders(len(sessions)) + ")"
		for _, sess := range sessions {
			args = append(args, sess)
		}
	}
	if p.Since > 0 {
		where += " AND c.created_at >= ?"
		args = append(args, p.Since)
	}
	if p.Until > 0 {
		where += " AND c.created_at <= ?"
		args = append(args, p.Until)
	}

	text := strings.TrimSpace(p.Text)
	if text != "" {
		j, w, a := s.search.textFilter(text)
		join += j
		where += w
		args = append(args, a...)
	}

	order := " ORDER BY c.created_at DESC, c.id"
	if text != "" || p.Order == "rank" {
		order = " ORDER BY c.confidence DESC, c.created_at DESC, c.id"
	}

	var total int
	if err := s.db.QueryRow(
		"SELECT COUNT(*) FROM claims c"+join+where, args...,
	).Scan(&total); err != nil {
		return nil, dbErr("query claims: count", err)
	}

	query := `SELECT c.id, c.idempotency_key, c.statement, c.claim_type, c.owner, c.confidence,
	                 c.status, c.supersedes, c.session, c.ttl_hours, c.created_at, c.updated_at
	          FROM claims c` + join + where + order + " LIMIT ?"
	rows, err := s.db.Query(query, append(args, limit)...)
	if err != nil {
		return nil, dbErr("query claims", err)
	}
	defer rows.Close()

	var result []Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, dbErr("query claims: scan", err)
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("query claims", err)
	}

	for i := range result {
		if result[i].Scopes, err = s.claimScopes(result[i].ID); err != nil {
			return nil, err
		}
	}

	return &QueryClaimsResult{Claims: result, Total: total}, nil
}

// recentSessions resolves the N most recently-active distinct session
// tokens, used by the sessionsBack window.
func (s *Store) recentSessions(n int) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT session FROM claims
		 WHERE session IS NOT NULL
		 GROUP BY session
		 ORDER BY MAX(updated_at) DESC
		 LIMIT ?`, n,
	)
	if err != nil {
		return nil, dbErr("recent sessions", err)
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var sess string
		if err := rows.Scan(&sess); err != nil {
			return nil, dbErr("recent sessions", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
