package claims

import (
	"database/sql"

	"github.com/anamnesos/hivemind-sub007/internal/migrate"
)

// migrate applies the ordered claim-schema migrations. All DDL is
// IF NOT EXISTS-guarded so re-running against a database created by an
// earlier revision is safe. ftsAvailable gates the FTS5 migration: the
// version is recorded either way so the applied set stays linear, and the
// store falls back to LIKE matching when the module is missing.
func (s *Store) migrate(ftsAvailable bool) error {
	_, err := migrate.Run(s.db, []migrate.Migration{
		{Version: 1, Description: "claims core", Up: upClaimsCore},
		{Version: 2, Description: "consensus and decisions", Up: upConsensusDecisions},
		{Version: 3, Description: "belief snapshots", Up: upBeliefs},
		{Version: 4, Description: "patterns", Up: upPatterns},
		{Version: 5, Description: "claim full-text index", Up: func(tx *sql.Tx) error {
			if !ftsAvailable {
				return nil
			}
			return upClaimFTS(tx)
		}},
	})
	return err
}

func upClaimsCore(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS claims (
			id              TEXT PRIMARY KEY,
			idempotency_key TEXT UNIQUE,
			statement       TEXT NOT NULL,
			claim_type      TEXT NOT NULL CHECK(claim_type IN ('fact','decision','hypothesis','negative')),
			owner           TEXT NOT NULL,
			confidence      REAL NOT NULL DEFAULT 0.5,
			status          TEXT NOT NULL DEFAULT 'proposed'
			                CHECK(status IN ('proposed','confirmed','contested','pending_proof','deprecated')),
			supersedes      TEXT,
			session         TEXT,
			ttl_hours       REAL,
			created_at      INTEGER NOT NULL,
			updated_at      INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_claims_status  ON claims(status);
		CREATE INDEX IF NOT EXISTS idx_claims_type    ON claims(claim_type);
		CREATE INDEX IF NOT EXISTS idx_claims_owner   ON claims(owner);
		CREATE INDEX IF NOT EXISTS idx_claims_session ON claims(session) WHERE session IS NOT NULL;
		CREATE INDEX IF NOT EXISTS idx_claims_created ON claims(created_at DESC);

		CREATE TABLE IF NOT EXISTS claim_scopes (
			claim_id TEXT NOT NULL REFERENCES claims(id) ON DELETE CASCADE,
			scope    TEXT NOT NULL,
			PRIMARY KEY (claim_id, scope)
		);
		CREATE INDEX IF NOT EXISTS idx_claim_scopes_scope ON claim_scopes(scope);

		CREATE TABLE IF NOT EXISTS claim_evidence (
			claim_id     TEXT NOT NULL REFERENCES claims(id) ON DELETE CASCADE,
			evidence_ref TEXT NOT NULL,
			added_by     TEXT NOT NULL DEFAULT '',
			relation     TEXT NOT NULL DEFAULT 'supports'
			             CHECK(relation IN ('supports','contradicts','caused_by')),
			weight       REAL NOT NULL DEFAULT 1.0,
			created_at   INTEGER NOT NULL,
			PRIMARY KEY (claim_id, evidence_ref)
		);

		CREATE TABLE IF NOT EXISTS claim_status_history (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			claim_id   TEXT NOT NULL REFERENCES claims(id) ON DELETE CASCADE,
			old_status TEXT NOT NULL,
			new_status TEXT NOT NULL,
			changed_by TEXT NOT NULL DEFAULT '',
			reason     TEXT,
			changed_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_status_history_claim ON claim_status_history(claim_id);
	`)
	return err
}

func upConsensusDecisions(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS consensus (
			claim_id   TEXT NOT NULL REFERENCES claims(id) ON DELETE CASCADE,
			agent      TEXT NOT NULL,
			position   TEXT NOT NULL CHECK(position IN ('support','challenge','abstain')),
			reason     TEXT,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (claim_id, agent)
		);

		CREATE TABLE IF NOT EXISTS decisions (
			id            TEXT PRIMARY KEY,
			claim_id      TEXT NOT NULL REFERENCES claims(id),
			decided_by    TEXT NOT NULL DEFAULT '',
			context       TEXT,
			rationale     TEXT,
			outcome       TEXT NOT NULL DEFAULT 'unknown'
			              CHECK(outcome IN ('success','partial','failure','unknown')),
			outcome_notes TEXT,
			created_at    INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_decisions_claim ON decisions(claim_id);

		CREATE TABLE IF NOT EXISTS decision_alternatives (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			decision_id TEXT NOT NULL REFERENCES decisions(id) ON DELETE CASCADE,
			claim_id    TEXT,
			reason      TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_decision_alts_decision ON decision_alternatives(decision_id);
	`)
	return err
}

func upBeliefs(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS belief_snapshots (
			id         TEXT PRIMARY KEY,
			agent      TEXT NOT NULL,
			session    TEXT,
			beliefs    TEXT NOT NULL DEFAULT '[]',
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_snapshots_agent ON belief_snapshots(agent, created_at DESC);

		CREATE TABLE IF NOT EXISTS belief_contradictions (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			snapshot_id TEXT NOT NULL REFERENCES belief_snapshots(id) ON DELETE CASCADE,
			agent       TEXT NOT NULL,
			claim_a     TEXT NOT NULL,
			claim_b     TEXT NOT NULL,
			reason      TEXT NOT NULL,
			created_at  INTEGER NOT NULL,
			UNIQUE (snapshot_id, claim_a, claim_b, reason)
		);
		CREATE INDEX IF NOT EXISTS idx_contradictions_agent ON belief_contradictions(agent, created_at DESC);
	`)
	return err
}

func upPatterns(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS patterns (
			id           TEXT PRIMARY KEY,
			pattern_type TEXT NOT NULL CHECK(pattern_type IN ('handoff_loop','stall','escalation_spiral')),
			scope        TEXT NOT NULL,
			agents       TEXT NOT NULL DEFAULT '',
			frequency    INTEGER NOT NULL DEFAULT 0,
			confidence   REAL NOT NULL DEFAULT 0,
			risk_score   REAL NOT NULL DEFAULT 0,
			active       INTEGER NOT NULL DEFAULT 1 CHECK(active IN (0, 1)),
			first_seen   INTEGER NOT NULL,
			last_seen    INTEGER NOT NULL,
			resolution   TEXT,
			UNIQUE (pattern_type, scope, agents)
		);
		CREATE INDEX IF NOT EXISTS idx_patterns_scope ON patterns(scope);
		CREATE INDEX IF NOT EXISTS idx_patterns_active ON patterns(active) WHERE active = 1;
	`)
	return err
}

func upClaimFTS(tx *sql.Tx) error {
	exists, err := migrate.TableExists(tx, "claims_fts")
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = tx.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS claims_fts USING fts5(
			statement,
			content='claims',
			content_rowid='rowid'
		);

		CREATE TRIGGER IF NOT EXISTS claims_fts_insert AFTER INSERT ON claims BEGIN
			INSERT INTO claims_fts(rowid, statement) VALUES (new.rowid, new.statement);
		END;

		CREATE TRIGGER IF NOT EXISTS claims_fts_delete AFTER DELETE ON claims BEGIN
			INSERT INTO claims_fts(claims_fts, rowid, statement) VALUES ('delete', old.rowid, old.statement);
		END;

		CREATE TRIGGER IF NOT EXISTS claims_fts_update AFTER UPDATE OF statement ON claims BEGIN
			INSERT INTO claims_fts(claims_fts, rowid, statement) VALUES ('delete', old.rowid, old.statement);
			INSERT INTO claims_fts(rowid, statement) VALUES (new.rowid, new.statement);
		END;

		INSERT INTO claims_fts(rowid, statement) SELECT rowid, statement FROM claims;
	`)
	return err
}
