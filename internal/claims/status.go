package claims

import "fmt"

// --- Claim status state machine ---
//
// Claims are never physically deleted: deprecation is the terminal state.
// Every successful transition appends one claim_status_history row in the
// same transaction as the status update, so the audit trail and the row
// can never disagree.

// allowedTransitions is the full edge set of the claim lifecycle.
// pending_proof is a creation-time-only state: claims may be born there
// and leave, but nothing transitions back into it.
var allowedTransitions = map[Status][]Status{
	StatusProposed:     {StatusConfirmed, StatusContested, StatusDeprecated},
	StatusPendingProof: {StatusConfirmed, StatusContested, StatusDeprecated},
	StatusConfirmed:    {StatusContested, StatusDeprecated},
	StatusContested:    {StatusConfirmed, StatusDeprecated},
	StatusDeprecated:   {},
}

// CanTransition reports whether the edge from → to is in the allowed set.
// A self-transition is always permitted (it is a no-op at apply time).
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// UpdateStatus applies a validated status transition to a claim.
// Requesting the current status is a no-op success. A disallowed edge
// fails with invalid_transition naming both states.
func (s *Store) UpdateStatus(p UpdateStatusParams) (*Claim, error) {
	if err := ValidateStatus(p.Status); err != nil {
		return nil, err
	}
	claim, err := s.GetClaim(p.ClaimID)
	if err != nil {
		return nil, err
	}
	if claim.Status == p.Status {
		return claim, nil
	}

	tx, err := s.beginTxHook()
	if err != nil {
		return nil, dbErr("update status: begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.applyTransition(tx, claim, p.Status, p.ChangedBy, p.Reason); err != nil {
		return nil, err
	}
	if err := s.commitHook(tx); err != nil {
		return nil, dbErr("update status: commit", err)
	}
	return s.GetClaim(p.ClaimID)
}

// applyTransition validates and writes one status edge plus its history
// row inside the caller's transaction. Consensus auto-transitions use the
// same path, so they cannot bypass validation or audit logging.
func (s *Store) applyTransition(tx execer, claim *Claim, to Status, changedBy, reason string) error {
	if claim.Status == to {
		return nil
	}
	if !CanTransition(claim.Status, to) {
		return &OpError{Code: CodeInvalidTransition,
			Message: fmt.Sprintf("invalid transition: %s -> %s", claim.Status, to)}
	}

	now := nowMillis()
	if _, err := s.execHook(tx,
		`UPDATE claims SET status = ?, updated_at = ? WHERE id = ?`,
		to, now, claim.ID,
	); err != nil {
		return dbErr("apply transition", err)
	}
	if _, err := s.execHook(tx,
		`INSERT INTO claim_status_history (claim_id, old_status, new_status, changed_by, reason, changed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		claim.ID, claim.Status, to, changedBy, nullableString(reason), now,
	); err != nil {
		return dbErr("apply transition: history", err)
	}
	return nil
}

// StatusHistory returns the append-only audit trail for a claim, oldest
// change first.
func (s *Store) StatusHistory(claimID string) ([]StatusChange, error) {
	if _, err := s.GetClaim(claimID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(
		`SELECT id, claim_id, old_status, new_status, changed_by, COALESCE(reason, ''), changed_at
		 FROM claim_status_history WHERE claim_id = ? ORDER BY id ASC`,
		claimID,
	)
	if err != nil {
		return nil, dbErr("status history", err)
	}
	defer rows.Close()

	var result []StatusChange
	for rows.Next() {
		var sc StatusChange
		if err := rows.Scan(&sc.ID, &sc.ClaimID, &sc.OldStatus, &sc.NewStatus, &sc.ChangedBy, &sc.Reason, &sc.ChangedAt); err != nil {
			return nil, dbErr("status history", err)
		}
		result = append(result, sc)
	}
	return result, rows.Err()
}

// ExpireClaims deprecates claims whose ttl_hours has elapsed, one
// transaction per claim. Returns the IDs of the claims it deprecated;
// on failure the IDs already deprecated are still reported.
func (s *Store) ExpireClaims() ([]string, error) {
	now := nowMillis()
	rows, err := s.db.Query(
		`SELECT id FROM claims
		 WHERE ttl_hours IS NOT NULL
		   AND status != 'deprecated'
		   AND created_at + CAST(ttl_hours * 3600000 AS INTEGER) <= ?`, now,
	)
	if err != nil {
		return nil, dbErr("expire claims", err)
	}
	var due []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, dbErr("expire claims", err)
		}
		due = append(due, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, dbErr("expire claims", err)
	}

	var expired []string
	for _, id := range due {
		if _, err := s.UpdateStatus(UpdateStatusParams{
			ClaimID:   id,
			Status:    StatusDeprecated,
			ChangedBy: "system",
			Reason:    "ttl elapsed",
		}); err != nil {
			return expired, err
		}
		expired = append(expired, id)
	}
	return expired, nil
}
