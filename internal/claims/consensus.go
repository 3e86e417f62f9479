package claims

import "database/sql"

// RecordConsensus upserts one (claim, agent) vote — re-voting replaces the
// previous position — then runs the auto status transition:
//
//  1. any recorded challenge ⇒ contested (unless already contested or
//     deprecated)
//  2. else the full active roster recorded as support ⇒ confirmed (unless
//     already confirmed or deprecated)
//  3. otherwise the status is left alone and the missing supporters are
//     reported as insufficient_consensus.
//
// The vote, the evaluation, and any resulting transition share one
// transaction; consensus is a trigger for the ordinary state machine, not
// a bypass of it.
func (s *Store) RecordConsensus(p ConsensusParams) (*ConsensusResult, error) {
	if p.Agent == "" {
		return nil, &OpError{Code: CodeAgentRequired, Message: "agent is required"}
	}
	if err := ValidatePosition(p.Position); err != nil {
		return nil, err
	}
	claim, err := s.GetClaim(p.ClaimID)
	if err != nil {
		return nil, err
	}

	agent := NormalizeRole(p.Agent)
	roster := p.ActiveAgents
	if len(roster) == 0 {
		roster = s.cfg.ActiveAgents
	}
	roster = NormalizeRoles(roster)

	tx, err := s.beginTxHook()
	if err != nil {
		return nil, dbErr("record consensus: begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := s.execHook(tx,
		`INSERT INTO consensus (claim_id, agent, position, reason, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(claim_id, agent) DO UPDATE SET
		   position = excluded.position,
		   reason = excluded.reason,
		   created_at = excluded.created_at`,
		claim.ID, agent, p.Position, nullableString(p.Reason), nowMillis(),
	); err != nil {
		return nil, dbErr("record consensus", err)
	}

	votes, err := s.votesTx(tx, claim.ID)
	if err != nil {
		return nil, err
	}

	update := evaluateConsensus(claim.Status, votes, roster)
	if update.Changed {
		if err := s.applyTransition(tx, claim, update.NewStatus, agent, "consensus: "+update.Reason); err != nil {
			return nil, err
		}
	}

	if err := s.commitHook(tx); err != nil {
		return nil, dbErr("record consensus: commit", err)
	}

	fresh, err := s.GetClaim(claim.ID)
	if err != nil {
		return nil, err
	}
	return &ConsensusResult{Claim: fresh, Consensus: votes, StatusUpdate: update}, nil
}

// evaluateConsensus decides whether the recorded votes trigger a status
// change. Pure function over (current status, votes, roster).
func evaluateConsensus(current Status, votes []Vote, roster []string) StatusUpdate {
	supporters := map[string]bool{}
	challenged := false
	for _, v := range votes {
		switch v.Position {
		case PositionChallenge:
			challenged = true
		case PositionSupport:
			supporters[v.Agent] = true
		}
	}

	if challenged {
		if current == StatusContested || current == StatusDeprecated {
			return StatusUpdate{Changed: false, Reason: "challenge_recorded"}
		}
		return StatusUpdate{Changed: true, NewStatus: StatusContested, Reason: "challenge_recorded"}
	}

	var missing []string
	for _, agent := range roster {
		if !supporters[agent] {
			missing = append(missing, agent)
		}
	}
	if len(missing) == 0 {
		if current == StatusConfirmed || current == StatusDeprecated {
			return StatusUpdate{Changed: false, Reason: "all_support"}
		}
		return StatusUpdate{Changed: true, NewStatus: StatusConfirmed, Reason: "all_support"}
	}
	return StatusUpdate{Changed: false, Reason: "insufficient_consensus", Missing: missing}
}

// Consensus returns all recorded votes for a claim.
func (s *Store) Consensus(claimID string) ([]Vote, error) {
	if _, err := s.GetClaim(claimID); err != nil {
		return nil, err
	}
	return s.votesTx(s.db, claimID)
}

type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

// votesTx reads votes through whatever handle the caller is using, so the
// consensus evaluation observes its own uncommitted upsert.
func (s *Store) votesTx(q querier, claimID string) ([]Vote, error) {
	rows, err := q.Query(
		`SELECT claim_id, agent, position, COALESCE(reason, ''), created_at
		 FROM consensus WHERE claim_id = ? ORDER BY agent`,
		claimID,
	)
	if err != nil {
		return nil, dbErr("consensus votes", err)
	}
	defer rows.Close()

	var votes []Vote
	for rows.Next() {
		var v Vote
		if err := rows.Scan(&v.ClaimID, &v.Agent, &v.Position, &v.Reason, &v.CreatedAt); err != nil {
			return nil, dbErr("consensus votes", err)
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}
