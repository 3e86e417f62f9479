// Package claims implements the claim-graph storage and consistency engine
// for hivemind agents.
//
// It uses a single embedded SQLite database to persist claims, their
// evidence bindings and scope tags, per-agent consensus votes, decision
// records, belief snapshots with detected contradictions, and mined
// behavioral patterns. All multi-statement mutations run inside one
// exclusive transaction so partial writes are never observable.
package claims

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// MaxQueryLimit is the hard cap on query-claims result sets.
const MaxQueryLimit = 5000

// Config holds claim store configuration.
type Config struct {
	DataDir string
	DBFile  string
	// ActiveAgents is the default roster for consensus confirmation.
	ActiveAgents []string
	// MaxQueryResults is the default query-claims limit.
	MaxQueryResults int
	// MaxBeliefs caps belief snapshot size.
	MaxBeliefs int
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:         filepath.Join(home, ".hivemind"),
		DBFile:          "claims.db",
		ActiveAgents:    []string{"architect", "devops", "analyst"},
		MaxQueryResults: 100,
		MaxBeliefs:      200,
	}
}

// Store is the claim-graph engine backed by SQLite.
type Store struct {
	db     *sql.DB
	cfg    Config
	search searchStrategy
	hooks  storeHooks
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

type storeHooks struct {
	exec    func(db execer, query string, args ...any) (sql.Result, error)
	beginTx func(db *sql.DB) (*sql.Tx, error)
	commit  func(tx *sql.Tx) error
}

func (s *Store) execHook(db execer, query string, args ...any) (sql.Result, error) {
	if s.hooks.exec != nil {
		return s.hooks.exec(db, query, args...)
	}
	return db.Exec(query, args...)
}

func (s *Store) beginTxHook() (*sql.Tx, error) {
	if s.hooks.beginTx != nil {
		return s.hooks.beginTx(s.db)
	}
	return s.db.Begin()
}

func (s *Store) commitHook(tx *sql.Tx) error {
	if s.hooks.commit != nil {
		return s.hooks.commit(tx)
	}
	return tx.Commit()
}

// Open creates the data directory if needed, opens SQLite with WAL mode
// and immediate write transactions, applies migrations, and selects the
// text-search strategy from the full-text index's presence.
func Open(cfg Config) (*Store, error) {
	if cfg.DBFile == "" {
		cfg.DBFile = "claims.db"
	}
	if cfg.MaxQueryResults <= 0 {
		cfg.MaxQueryResults = 100
	}
	if cfg.MaxBeliefs <= 0 {
		cfg.MaxBeliefs = 200
	}
	if len(cfg.ActiveAgents) == 0 {
		cfg.ActiveAgents = []string{"architect", "devops", "analyst"}
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("claims: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, cfg.DBFile)
	// _txlock=immediate makes every write transaction take the database
	// lock at BEGIN, so concurrent writers queue instead of failing at
	// the first write statement.
	db, err := openDB("sqlite", "file:"+dbPath+"?_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("claims: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("claims: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg}
	ftsCapable := probeFTS5(db)
	if err := s.migrate(ftsCapable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("claims: migration: %w", err)
	}
	fts, err := s.ensureFTSIndex(ftsCapable)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("claims: full-text index: %w", err)
	}
	if fts {
		s.search = ftsSearch{}
	} else {
		s.search = likeSearch{}
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the shared database handle. The pattern miner runs over the
// same connection so its upserts observe the claim graph transactionally.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ActiveAgents returns the configured consensus roster, normalized.
func (s *Store) ActiveAgents() []string {
	return NormalizeRoles(s.cfg.ActiveAgents)
}

// IntegrityCheck runs SQLite's quick_check and returns an error when the
// database reports anything but "ok".
func (s *Store) IntegrityCheck() error {
	var verdict string
	if err := s.db.QueryRow("PRAGMA quick_check").Scan(&verdict); err != nil {
		return dbErr("integrity check", err)
	}
	if verdict != "ok" {
		return &OpError{Code: CodeDBError, Message: "integrity check: " + verdict}
	}
	return nil
}

// ensureFTSIndex reports whether the claims_fts index is usable. The
// index migration records its version even when the fts5 module was
// missing at creation time, so the index's existence — not the module
// probe — decides the search strategy: a capable build reopening such a
// database builds the index here, and an incapable build reports false
// so text queries fall back to LIKE matching.
func (s *Store) ensureFTSIndex(ftsCapable bool) (bool, error) {
	if !ftsCapable {
		return false, nil
	}
	var name string
	err := s.db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'claims_fts'`,
	).Scan(&name)
	if err == nil {
		return true, nil
	}
	if err != sql.ErrNoRows {
		return false, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return false, err
	}
	if err := upClaimFTS(tx); err != nil {
		_ = tx.Rollback()
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// probeFTS5 reports whether the fts5 module is compiled into the driver.
func probeFTS5(db *sql.DB) bool {
	if _, err := db.Exec(`CREATE VIRTUAL TABLE IF NOT EXISTS temp.fts5_probe USING fts5(probe)`); err != nil {
		return false
	}
	_, _ = db.Exec(`DROP TABLE IF EXISTS temp.fts5_probe`)
	return true
}

// ─── Claims ──────────────────────────────────────────────────────────────────

// CreateClaim validates the input and inserts a claim together with its
// scope rows in one transaction. Creation is idempotent: a repeat with a
// known idempotency key returns the pre-existing row with status
// "duplicate" instead of failing, because agents retry the same logical
// action after a crash or timeout.
func (s *Store) CreateClaim(p CreateClaimParams) (*CreateClaimResult, error) {
	if strings.TrimSpace(p.Statement) == "" {
		return nil, &OpError{Code: CodeStatementRequired, Message: "statement is required"}
	}
	if err := ValidateClaimType(p.ClaimType); err != nil {
		return nil, err
	}
	status := p.Status
	if status == "" {
		status = StatusProposed
	}
	if err := ValidateStatus(status); err != nil {
		return nil, err
	}

	owner := NormalizeRole(p.Owner)
	confidence := 0.5
	if p.Confidence != nil {
		confidence = clamp01(*p.Confidence)
	}

	// Idempotent replay check before paying for a write transaction.
	if p.IdempotencyKey != "" {
		if existing, err := s.claimByIdempotencyKey(p.IdempotencyKey); err != nil {
			return nil, err
		} else if existing != nil {
			return &CreateClaimResult{Status: "duplicate", Claim: existing}, nil
		}
	}

	id := newID("clm")
	now := nowMillis()

	tx, err := s.beginTxHook()
	if err != nil {
		return nil, dbErr("create claim: begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = s.execHook(tx,
		`INSERT INTO claims (id, idempotency_key, statement, claim_type, owner, confidence,
		                     status, supersedes, session, ttl_hours, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, nullableString(p.IdempotencyKey), p.Statement, p.ClaimType, owner, confidence,
		status, nullableString(p.Supersedes), nullableString(p.Session), p.TTLHours, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) && p.IdempotencyKey != "" {
			// A concurrent writer won the key. Return its row.
			_ = tx.Rollback()
			existing, lookupErr := s.claimByIdempotencyKey(p.IdempotencyKey)
			if lookupErr != nil {
				return nil, lookupErr
			}
			if existing != nil {
				return &CreateClaimResult{Status: "duplicate", Claim: existing}, nil
			}
		}
		return nil, dbErr("create claim", err)
	}

	for _, scope := range normalizeScopes(p.Scopes) {
		if _, err := s.execHook(tx,
			`INSERT OR IGNORE INTO claim_scopes (claim_id, scope) VALUES (?, ?)`,
			id, scope,
		); err != nil {
			return nil, dbErr("create claim: scope", err)
		}
	}

	if err := s.commitHook(tx); err != nil {
		return nil, dbErr("create claim: commit", err)
	}

	claim, err := s.GetClaim(id)
	if err != nil {
		return nil, err
	}
	return &CreateClaimResult{Status: "created", Claim: claim}, nil
}

// GetClaim retrieves a claim by ID, including its scope tags.
func (s *Store) GetClaim(id string) (*Claim, error) {
	row := s.db.QueryRow(
		`SELECT id, idempotency_key, statement, claim_type, owner, confidence,
		        status, supersedes, session, ttl_hours, created_at, updated_at
		 FROM claims WHERE id = ?`, id,
	)
	c, err := scanClaim(row)
	if err == sql.ErrNoRows {
		return nil, &OpError{Code: CodeClaimNotFound, Message: "claim not found: " + id}
	}
	if err != nil {
		return nil, dbErr("get claim", err)
	}
	if c.Scopes, err = s.claimScopes(id); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) claimByIdempotencyKey(key string) (*Claim, error) {
	var id string
	err := s.db.QueryRow(`SELECT id FROM claims WHERE idempotency_key = ?`, key).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, dbErr("idempotency lookup", err)
	}
	return s.GetClaim(id)
}

func (s *Store) claimScopes(claimID string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT scope FROM claim_scopes WHERE claim_id = ? ORDER BY scope`, claimID,
	)
	if err != nil {
		return nil, dbErr("claim scopes", err)
	}
	defer rows.Close()

	var scopes []string
	for rows.Next() {
		var scope string
		if err := rows.Scan(&scope); err != nil {
			return nil, dbErr("claim scopes", err)
		}
		scopes = append(scopes, scope)
	}
	return scopes, rows.Err()
}

// ─── Evidence ────────────────────────────────────────────────────────────────

// AddEvidence binds an evidence ref to a claim. Duplicate bindings for the
// same (claim, evidence_ref) are a no-op reported as "duplicate".
func (s *Store) AddEvidence(p AddEvidenceParams) (*AddEvidenceResult, error) {
	if p.EvidenceRef == "" {
		return nil, &OpError{Code: CodeStatementRequired, Message: "evidence_ref is required"}
	}
	relation := p.Relation
	if relation == "" {
		relation = RelationSupports
	}
	if !validRelations[relation] {
		return nil, &OpError{Code: CodeInvalidRelation,
			Message: fmt.Sprintf("invalid relation %q: must be one of: supports, contradicts, caused_by", relation)}
	}
	if _, err := s.GetClaim(p.ClaimID); err != nil {
		return nil, err
	}

	weight := 1.0
	if p.Weight != nil {
		weight = *p.Weight
	}
	now := nowMillis()

	res, err := s.execHook(s.db,
		`INSERT OR IGNORE INTO claim_evidence (claim_id, evidence_ref, added_by, relation, weight, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ClaimID, p.EvidenceRef, NormalizeRole(p.AddedBy), relation, weight, now,
	)
	if err != nil {
		return nil, dbErr("add evidence", err)
	}

	ev := &Evidence{}
	err = s.db.QueryRow(
		`SELECT claim_id, evidence_ref, added_by, relation, weight, created_at
		 FROM claim_evidence WHERE claim_id = ? AND evidence_ref = ?`,
		p.ClaimID, p.EvidenceRef,
	).Scan(&ev.ClaimID, &ev.EvidenceRef, &ev.AddedBy, &ev.Relation, &ev.Weight, &ev.CreatedAt)
	if err != nil {
		return nil, dbErr("add evidence: readback", err)
	}

	n, _ := res.RowsAffected()
	if n == 0 {
		return &AddEvidenceResult{Status: "duplicate", Evidence: ev}, nil
	}
	return &AddEvidenceResult{Status: "added", Evidence: ev}, nil
}

// ClaimEvidence returns all evidence bindings for a claim, oldest first.
func (s *Store) ClaimEvidence(claimID string) ([]Evidence, error) {
	rows, err := s.db.Query(
		`SELECT claim_id, evidence_ref, added_by, relation, weight, created_at
		 FROM claim_evidence WHERE claim_id = ? ORDER BY created_at ASC, evidence_ref ASC`,
		claimID,
	)
	if err != nil {
		return nil, dbErr("claim evidence", err)
	}
	defer rows.Close()

	var result []Evidence
	for rows.Next() {
		var ev Evidence
		if err := rows.Scan(&ev.ClaimID, &ev.EvidenceRef, &ev.AddedBy, &ev.Relation, &ev.Weight, &ev.CreatedAt); err != nil {
			return nil, dbErr("claim evidence", err)
		}
		result = append(result, ev)
	}
	return result, rows.Err()
}

// ─── Stats ───────────────────────────────────────────────────────────────────

// Stats returns aggregate claim-graph statistics.
func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{ClaimsByStatus: map[string]int{}}

	_ = s.db.QueryRow("SELECT COUNT(*) FROM claims").Scan(&stats.TotalClaims)
	_ = s.db.QueryRow("SELECT COUNT(*) FROM decisions").Scan(&stats.TotalDecisions)
	_ = s.db.QueryRow("SELECT COUNT(*) FROM belief_snapshots").Scan(&stats.TotalSnapshots)
	_ = s.db.QueryRow("SELECT COUNT(*) FROM patterns").Scan(&stats.TotalPatterns)

	rows, err := s.db.Query("SELECT status, COUNT(*) FROM claims GROUP BY status")
	if err != nil {
		return stats, nil
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err == nil {
			stats.ClaimsByStatus[status] = n
		}
	}
	return stats, nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

type rowLike interface {
	Scan(dest ...any) error
}

func scanClaim(row rowLike) (*Claim, error) {
	var c Claim
	err := row.Scan(
		&c.ID, &c.IdempotencyKey, &c.Statement, &c.ClaimType, &c.Owner, &c.Confidence,
		&c.Status, &c.Supersedes, &c.Session, &c.TTLHours, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func newID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func normalizeScopes(scopes []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, sc := range scopes {
		sc = strings.TrimSpace(sc)
		if sc == "" || seen[sc] {
			continue
		}
		seen[sc] = true
		out = append(out, sc)
	}
	sort.Strings(out)
	return out
}

// isUniqueViolation checks if an error is a SQLite UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
