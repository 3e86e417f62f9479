package claims

import "database/sql"

// CreateDecision records a decision against an existing claim, together
// with its rejected alternatives, in one transaction. The outcome defaults
// to unknown; it is settled later through RecordOutcome.
func (s *Store) CreateDecision(p CreateDecisionParams) (*Decision, error) {
	if _, err := s.GetClaim(p.ClaimID); err != nil {
		return nil, err
	}
	outcome := p.Outcome
	if outcome == "" {
		outcome = OutcomeUnknown
	}
	if err := ValidateOutcome(outcome); err != nil {
		return nil, err
	}

	id := newID("dec")
	now := nowMillis()
	decidedBy := NormalizeRole(p.DecidedBy)

	tx, err := s.beginTxHook()
	if err != nil {
		return nil, dbErr("create decision: begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := s.execHook(tx,
		`INSERT INTO decisions (id, claim_id, decided_by, context, rationale, outcome, outcome_notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.ClaimID, decidedBy, nullableString(p.Context), nullableString(p.Rationale),
		outcome, nil, now,
	); err != nil {
		return nil, dbErr("create decision", err)
	}

	for _, alt := range p.Alternatives {
		if _, err := s.execHook(tx,
			`INSERT INTO decision_alternatives (decision_id, claim_id, reason)
			 VALUES (?, ?, ?)`,
			id, alt.ClaimID, nullableString(alt.Reason),
		); err != nil {
			return nil, dbErr("create decision: alternative", err)
		}
	}

	if err := s.commitHook(tx); err != nil {
		return nil, dbErr("create decision: commit", err)
	}

	return s.GetDecision(id)
}

// RecordOutcome settles a decision's outcome after the fact. Only the
// outcome and its notes change; the decision itself is immutable.
func (s *Store) RecordOutcome(p RecordOutcomeParams) (*Decision, error) {
	if err := ValidateOutcome(p.Outcome); err != nil {
		return nil, err
	}

	res, err := s.execHook(s.db,
		`UPDATE decisions SET outcome = ?, outcome_notes = ? WHERE id = ?`,
		p.Outcome, nullableString(p.Notes), p.DecisionID,
	)
	if err != nil {
		return nil, dbErr("record outcome", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, &OpError{Code: CodeDecisionNotFound, Message: "decision not found: " + p.DecisionID}
	}
	return s.GetDecision(p.DecisionID)
}

// GetDecision retrieves a decision with its alternatives.
func (s *Store) GetDecision(id string) (*Decision, error) {
	var d Decision
	var context, rationale, notes sql.NullString
	err := s.db.QueryRow(
		`SELECT id, claim_id, decided_by, context, rationale, outcome, outcome_notes, created_at
		 FROM decisions WHERE id = ?`, id,
	).Scan(&d.ID, &d.ClaimID, &d.DecidedBy, &context, &rationale, &d.Outcome, &notes, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, &OpError{Code: CodeDecisionNotFound, Message: "decision not found: " + id}
	}
	if err != nil {
		return nil, dbErr("get decision", err)
	}
	d.Context = context.String
	d.Rationale = rationale.String
	d.OutcomeNotes = notes.String

	rows, err := s.db.Query(
		`SELECT claim_id, COALESCE(reason, '') FROM decision_alternatives
		 WHERE decision_id = ? ORDER BY rowid`, id,
	)
	if err != nil {
		return nil, dbErr("get decision: alternatives", err)
	}
	defer rows.Close()
	for rows.Next() {
		var alt DecisionAlternative
		if err := rows.Scan(&alt.ClaimID, &alt.Reason); err != nil {
			return nil, dbErr("get decision: alternatives", err)
		}
		d.Alternatives = append(d.Alternatives, alt)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("get decision: alternatives", err)
	}
	return &d, nil
}

// ClaimDecisions lists all decisions recorded against one claim, oldest
// first.
func (s *Store) ClaimDecisions(claimID string) ([]Decision, error) {
	rows, err := s.db.Query(
		`SELECT id FROM decisions WHERE claim_id = ? ORDER BY created_at ASC, id ASC`, claimID,
	)
	if err != nil {
		return nil, dbErr("claim decisions", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, dbErr("claim decisions", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("claim decisions", err)
	}

	out := make([]Decision, 0, len(ids))
	for _, id := range ids {
		d, err := s.GetDecision(id)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, nil
}
