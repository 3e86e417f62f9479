package claims

import (
	"database/sql"
	"encoding/json"
	"sort"
)

// ─── Snapshots ───────────────────────────────────────────────────────────────

// CreateSnapshot captures what an agent currently believes: every
// non-deprecated claim the agent owns or has voted support on, highest
// confidence first, capped at MaxBeliefs. The snapshot row, its beliefs
// JSON, and any detected contradictions are written in one transaction so
// a snapshot is never visible without its contradiction report.
func (s *Store) CreateSnapshot(p SnapshotParams) (*SnapshotResult, error) {
	if p.Agent == "" {
		return nil, &OpError{Code: CodeAgentRequired, Message: "agent is required"}
	}
	agent := NormalizeRole(p.Agent)

	limit := p.MaxBeliefs
	if limit <= 0 || limit > s.cfg.MaxBeliefs {
		limit = s.cfg.MaxBeliefs
	}

	held, err := s.heldClaims(agent, limit)
	if err != nil {
		return nil, err
	}

	beliefs := make([]Belief, 0, len(held))
	for _, c := range held {
		beliefs = append(beliefs, Belief{ClaimID: c.ID, Confidence: c.Confidence})
	}
	payload, err := json.Marshal(beliefs)
	if err != nil {
		return nil, dbErr("create snapshot: encode beliefs", err)
	}

	contradictions := detectContradictions(held)

	id := newID("snap")
	now := nowMillis()

	tx, err := s.beginTxHook()
	if err != nil {
		return nil, dbErr("create snapshot: begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := s.execHook(tx,
		`INSERT INTO belief_snapshots (id, agent, session, beliefs, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, agent, nullableString(p.Session), string(payload), now,
	); err != nil {
		return nil, dbErr("create snapshot", err)
	}

	for i := range contradictions {
		contradictions[i].SnapshotID = id
		contradictions[i].Agent = agent
		contradictions[i].CreatedAt = now
		res, err := s.execHook(tx,
			`INSERT OR IGNORE INTO belief_contradictions
			   (snapshot_id, agent, claim_a, claim_b, reason, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			id, agent, contradictions[i].ClaimA, contradictions[i].ClaimB,
			contradictions[i].Reason, now,
		)
		if err != nil {
			return nil, dbErr("create snapshot: contradiction", err)
		}
		if rowID, err := res.LastInsertId(); err == nil {
			contradictions[i].ID = rowID
		}
	}

	if err := s.commitHook(tx); err != nil {
		return nil, dbErr("create snapshot: commit", err)
	}

	snap := &Snapshot{ID: id, Agent: agent, Session: nullableString(p.Session), Beliefs: beliefs, CreatedAt: now}
	return &SnapshotResult{Snapshot: snap, Contradictions: contradictions}, nil
}

// heldClaims returns the non-deprecated claims an agent owns or supports,
// ordered by confidence descending with created_at as the tiebreak.
func (s *Store) heldClaims(agent string, limit int) ([]Claim, error) {
	rows, err := s.db.Query(
		`SELECT id, idempotency_key, statement, claim_type, owner, confidence,
		        status, supersedes, session, ttl_hours, created_at, updated_at
		 FROM claims c
		 WHERE c.status != ?
		   AND (c.owner = ?
		        OR EXISTS (SELECT 1 FROM consensus v
		                   WHERE v.claim_id = c.id AND v.agent = ? AND v.position = ?))
		 ORDER BY c.confidence DESC, c.created_at ASC
		 LIMIT ?`,
		StatusDeprecated, agent, agent, PositionSupport, limit,
	)
	if err != nil {
		return nil, dbErr("held claims", err)
	}
	defer rows.Close()

	var held []Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, dbErr("held claims", err)
		}
		held = append(held, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("held claims", err)
	}
	for i := range held {
		if held[i].Scopes, err = s.claimScopes(held[i].ID); err != nil {
			return nil, err
		}
	}
	return held, nil
}

// detectContradictions runs the pairwise checks over claims that share at
// least one scope. Two rules:
//
//   - a negative claim against a non-negative claim in the same scope
//   - one claim's supersedes pointer references the other
//
// Each reported pair is lexically ordered (ClaimA < ClaimB) and emitted at
// most once per reason.
func detectContradictions(held []Claim) []Contradiction {
	scopeSets := make([]map[string]bool, len(held))
	for i, c := range held {
		set := make(map[string]bool, len(c.Scopes))
		for _, sc := range c.Scopes {
			set[sc] = true
		}
		scopeSets[i] = set
	}

	seen := map[[3]string]bool{}
	var out []Contradiction
	report := func(a, b string, reason ContradictionReason) {
		if a > b {
			a, b = b, a
		}
		key := [3]string{a, b, string(reason)}
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, Contradiction{ClaimA: a, ClaimB: b, Reason: reason})
	}

	for i := 0; i < len(held); i++ {
		for j := i + 1; j < len(held); j++ {
			if !sharesScope(scopeSets[i], scopeSets[j]) {
				continue
			}
			a, b := held[i], held[j]
			if (a.ClaimType == TypeNegative) != (b.ClaimType == TypeNegative) {
				report(a.ID, b.ID, ReasonNegativeVsNonNegative)
			}
			if (a.Supersedes != nil && *a.Supersedes == b.ID) ||
				(b.Supersedes != nil && *b.Supersedes == a.ID) {
				report(a.ID, b.ID, ReasonSupersedesConflict)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].ClaimA != out[j].ClaimA {
			return out[i].ClaimA < out[j].ClaimA
		}
		if out[i].ClaimB != out[j].ClaimB {
			return out[i].ClaimB < out[j].ClaimB
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}

func sharesScope(a, b map[string]bool) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for sc := range a {
		if b[sc] {
			return true
		}
	}
	return false
}

// ─── Retrieval ───────────────────────────────────────────────────────────────

// GetAgentBeliefs lists an agent's snapshots, newest first. With Latest
// set, only the most recent snapshot is returned.
func (s *Store) GetAgentBeliefs(p BeliefsParams) (*BeliefsResult, error) {
	if p.Agent == "" {
		return nil, &OpError{Code: CodeAgentRequired, Message: "agent is required"}
	}
	agent := NormalizeRole(p.Agent)

	query := `SELECT id, agent, session, beliefs, created_at
	          FROM belief_snapshots WHERE agent = ?`
	args := []any{agent}
	if p.Session != "" {
		query += ` AND session = ?`
		args = append(args, p.Session)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if p.Latest {
		query += ` LIMIT 1`
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, dbErr("agent beliefs", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, dbErr("agent beliefs", err)
		}
		snaps = append(snaps, *snap)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("agent beliefs", err)
	}

	result := &BeliefsResult{Snapshots: snaps}
	if len(snaps) > 0 {
		result.Latest = &snaps[0]
	}
	return result, nil
}

// GetSnapshot retrieves one snapshot by ID.
func (s *Store) GetSnapshot(id string) (*Snapshot, error) {
	row := s.db.QueryRow(
		`SELECT id, agent, session, beliefs, created_at
		 FROM belief_snapshots WHERE id = ?`, id,
	)
	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, &OpError{Code: CodeSnapshotNotFound, Message: "snapshot not found: " + id}
	}
	if err != nil {
		return nil, dbErr("get snapshot", err)
	}
	return snap, nil
}

func scanSnapshot(row rowLike) (*Snapshot, error) {
	var snap Snapshot
	var payload string
	if err := row.Scan(&snap.ID, &snap.Agent, &snap.Session, &payload, &snap.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), &snap.Beliefs); err != nil {
		return nil, err
	}
	return &snap, nil
}

// GetContradictions lists detected contradictions, newest first, with
// optional agent, session, claim, and time-window filters.
func (s *Store) GetContradictions(p ContradictionsParams) ([]Contradiction, error) {
	query := `SELECT bc.id, bc.snapshot_id, bc.agent, bc.claim_a, bc.claim_b, bc.reason, bc.created_at
	          FROM belief_contradictions bc`
	var where []string
	var args []any

	if p.Session != "" {
		query += ` JOIN belief_snapshots bs ON bs.id = bc.snapshot_id`
		where = append(where, `bs.session = ?`)
		args = append(args, p.Session)
	}
	if p.Agent != "" {
		where = append(where, `bc.agent = ?`)
		args = append(args, NormalizeRole(p.Agent))
	}
	if p.ClaimID != "" {
		where = append(where, `(bc.claim_a = ? OR bc.claim_b = ?)`)
		args = append(args, p.ClaimID, p.ClaimID)
	}
	if p.Since > 0 {
		where = append(where, `bc.created_at >= ?`)
		args = append(args, p.Since)
	}
	if p.Until > 0 {
		where = append(where, `bc.created_at <= ?`)
		args = append(args, p.Until)
	}
	for i, w := range where {
		if i == 0 {
			query += ` WHERE ` + w
		} else {
			query += ` AND ` + w
		}
	}
	query += ` ORDER BY bc.created_at DESC, bc.id DESC`

	limit := p.Limit
	if limit <= 0 {
		limit = s.cfg.MaxQueryResults
	}
	if limit > MaxQueryLimit {
		limit = MaxQueryLimit
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, dbErr("contradictions", err)
	}
	defer rows.Close()

	var out []Contradiction
	for rows.Next() {
		var c Contradiction
		if err := rows.Scan(&c.ID, &c.SnapshotID, &c.Agent, &c.ClaimA, &c.ClaimB, &c.Reason, &c.CreatedAt); err != nil {
			return nil, dbErr("contradictions", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
