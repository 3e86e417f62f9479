package patterns

import (
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// outcomeClass maps raw outcome/status strings to a detection class.
// Unlisted values normalize to "" and are excluded from outcome-based
// detection.
var outcomeClass = map[string]string{
	"failed":        "failure",
	"failure":       "failure",
	"contested":     "failure",
	"pending_proof": "failure",
	"error":         "failure",
	"completed":     "success",
	"confirmed":     "success",
	"success":       "success",
}

// Per-type weight applied to confidence when scoring risk. A recurring
// failure signal is the thing worth paging on; a success pattern is not.
var riskWeight = map[string]float64{
	internalStall:            1.0,
	internalHandoffLoop:      0.6,
	internalEscalationSpiral: 0.2,
}

// Miner aggregates spool events and the persisted claim graph into
// patterns. It shares the claim store's database handle so its upserts
// are transactional with the rest of the graph.
type Miner struct {
	db *sql.DB
}

// NewMiner returns a Miner over db.
func NewMiner(db *sql.DB) *Miner {
	return &Miner{db: db}
}

// ProcessSpool rotates and consumes the spool at spoolPath, joins the
// spooled events with synthetic events derived from persisted claims,
// runs the detection heuristics per scope, and upserts the results. One
// pass is one transaction.
func (m *Miner) ProcessSpool(spoolPath string) (*ProcessSpoolResult, error) {
	events, processed, err := collectSpool(spoolPath)
	if err != nil {
		return nil, err
	}

	synthetic, err := m.claimEvents()
	if err != nil {
		return nil, err
	}

	detections := detect(append(events, synthetic...))

	result := &ProcessSpoolResult{ProcessedEvents: processed, DetectedPatterns: len(detections)}
	if len(detections) == 0 {
		return result, nil
	}

	tx, err := m.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("patterns: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	var ids []string
	for _, d := range detections {
		id, err := upsertPattern(tx, d, now)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("patterns: commit: %w", err)
	}

	for _, id := range ids {
		p, err := m.getPattern(id)
		if err != nil {
			return nil, err
		}
		result.Patterns = append(result.Patterns, *p)
	}
	return result, nil
}

// claimEvents projects the persisted claim graph into synthetic events so
// detection sees history, not just the current spool window.
func (m *Miner) claimEvents() ([]Event, error) {
	rows, err := m.db.Query(
		`SELECT c.owner, c.claim_type, c.status, COALESCE(c.session, ''), cs.scope
		 FROM claims c JOIN claim_scopes cs ON cs.claim_id = c.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("patterns: claim events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.Agent, &ev.ClaimType, &ev.Status, &ev.Session, &ev.Scope); err != nil {
			return nil, fmt.Errorf("patterns: claim events: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// ─── Detection ───────────────────────────────────────────────────────────────

type detection struct {
	internalType string
	scope        string
	agents       []string
	delta        int
	confidence   float64
}

func classify(ev Event) string {
	if c, ok := outcomeClass[strings.ToLower(ev.Outcome)]; ok {
		return c
	}
	if c, ok := outcomeClass[strings.ToLower(ev.Status)]; ok {
		return c
	}
	return ""
}

func eventScopes(ev Event) []string {
	if len(ev.Scopes) > 0 {
		return ev.Scopes
	}
	if ev.Scope != "" {
		return []string{ev.Scope}
	}
	return nil
}

// detect groups events by scope and applies the three heuristics. Events
// without a scope are discarded.
func detect(events []Event) []detection {
	byScope := map[string][]Event{}
	for _, ev := range events {
		for _, scope := range eventScopes(ev) {
			scope = strings.TrimSpace(scope)
			if scope == "" {
				continue
			}
			byScope[scope] = append(byScope[scope], ev)
		}
	}

	scopes := make([]string, 0, len(byScope))
	for scope := range byScope {
		scopes = append(scopes, scope)
	}
	sort.Strings(scopes)

	var out []detection
	for _, scope := range scopes {
		group := byScope[scope]

		var failures, successes []Event
		for _, ev := range group {
			switch classify(ev) {
			case "failure":
				failures = append(failures, ev)
			case "success":
				successes = append(successes, ev)
			}
		}

		if len(agentSet(group)) >= 2 && len(group) >= 3 {
			delta := len(group)
			out = append(out, detection{
				internalType: internalHandoffLoop,
				scope:        scope,
				agents:       agentSet(group),
				delta:        delta,
				confidence:   0.45 + min64(0.4, float64(delta)*0.08),
			})
		}

		if len(failures) >= 2 && tightSessionCluster(sessions(failures)) {
			delta := len(failures)
			out = append(out, detection{
				internalType: internalStall,
				scope:        scope,
				agents:       agentSet(failures),
				delta:        delta,
				confidence:   0.55 + min64(0.4, float64(delta)*0.1),
			})
		}

		if len(successes) >= 2 {
			delta := len(successes)
			out = append(out, detection{
				internalType: internalEscalationSpiral,
				scope:        scope,
				agents:       agentSet(successes),
				delta:        delta,
				confidence:   0.5 + min64(0.45, float64(delta)*0.1),
			})
		}
	}
	return out
}

func agentSet(events []Event) []string {
	seen := map[string]bool{}
	var out []string
	for _, ev := range events {
		a := strings.TrimSpace(ev.Agent)
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

func sessions(events []Event) []string {
	var out []string
	for _, ev := range events {
		if ev.Session != "" {
			out = append(out, ev.Session)
		}
	}
	return out
}

// tightSessionCluster reports whether the session ordinals form a
// near-consecutive run (every adjacent gap at most 2). Fewer than two
// parseable ordinals counts as tight: sparse data defaults to detection.
func tightSessionCluster(sessions []string) bool {
	var ordinals []int
	for _, s := range sessions {
		if n, ok := sessionOrdinal(s); ok {
			ordinals = append(ordinals, n)
		}
	}
	if len(ordinals) < 2 {
		return true
	}
	sort.Ints(ordinals)
	for i := 1; i < len(ordinals); i++ {
		if ordinals[i]-ordinals[i-1] > 2 {
			return false
		}
	}
	return true
}

// sessionOrdinal extracts the trailing integer from a session name like
// "s_10" or "session-7".
func sessionOrdinal(s string) (int, bool) {
	end := len(s)
	start := end
	for start > 0 && s[start-1] >= '0' && s[start-1] <= '9' {
		start--
	}
	if start == end {
		return 0, false
	}
	n, err := strconv.Atoi(s[start:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

func min64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// ─── Persistence ─────────────────────────────────────────────────────────────

// upsertPattern merges one detection into the patterns table. Frequency
// accumulates by the detection delta; confidence becomes the
// frequency-weighted running average of the stored and new values.
func upsertPattern(tx *sql.Tx, d detection, now int64) (string, error) {
	agents := strings.Join(d.agents, ",")

	var id string
	var frequency int64
	var confidence float64
	err := tx.QueryRow(
		`SELECT id, frequency, confidence FROM patterns
		 WHERE pattern_type = ? AND scope = ? AND agents = ?`,
		d.internalType, d.scope, agents,
	).Scan(&id, &frequency, &confidence)

	switch {
	case err == sql.ErrNoRows:
		id = "pat_" + uuid.NewString()
		conf := clamp01(d.confidence)
		_, err = tx.Exec(
			`INSERT INTO patterns (id, pattern_type, scope, agents, frequency, confidence,
			                       risk_score, active, first_seen, last_seen)
			 VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
			id, d.internalType, d.scope, agents, d.delta, conf,
			riskScore(d.internalType, conf), now, now,
		)
		if err != nil {
			return "", fmt.Errorf("patterns: insert: %w", err)
		}
		return id, nil
	case err != nil:
		return "", fmt.Errorf("patterns: lookup: %w", err)
	}

	newFreq := frequency + int64(d.delta)
	merged := clamp01((confidence*float64(frequency) + d.confidence*float64(d.delta)) / float64(newFreq))
	_, err = tx.Exec(
		`UPDATE patterns SET frequency = ?, confidence = ?, risk_score = ?, active = 1, last_seen = ?
		 WHERE id = ?`,
		newFreq, merged, riskScore(d.internalType, merged), now, id,
	)
	if err != nil {
		return "", fmt.Errorf("patterns: update: %w", err)
	}
	return id, nil
}

func riskScore(internalType string, confidence float64) float64 {
	return clamp01(confidence * riskWeight[internalType])
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

func (m *Miner) getPattern(id string) (*Pattern, error) {
	row := m.db.QueryRow(
		`SELECT id, pattern_type, scope, agents, frequency, confidence, risk_score,
		        active, first_seen, last_seen, COALESCE(resolution, '')
		 FROM patterns WHERE id = ?`, id,
	)
	p, err := scanPattern(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("patterns: pattern not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("patterns: get: %w", err)
	}
	return p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPattern(row rowScanner) (*Pattern, error) {
	var p Pattern
	var internalType, agents string
	var active int
	err := row.Scan(&p.ID, &internalType, &p.Scope, &agents, &p.Frequency, &p.Confidence,
		&p.RiskScore, &active, &p.FirstSeen, &p.LastSeen, &p.Resolution)
	if err != nil {
		return nil, err
	}
	p.PatternType = internalToExternal[internalType]
	p.Active = active == 1
	if agents != "" {
		p.Agents = strings.Split(agents, ",")
	}
	return &p, nil
}

// QueryPatterns lists patterns matching the filters, most recently seen
// first. PatternType filters take the external name.
func (m *Miner) QueryPatterns(p QueryPatternsParams) (*QueryPatternsResult, error) {
	var where []string
	var args []any

	if p.PatternType != "" {
		internal, ok := externalToInternal[p.PatternType]
		if !ok {
			return nil, fmt.Errorf("patterns: invalid pattern type %q: must be one of: coordination, failure, success", p.PatternType)
		}
		where = append(where, `pattern_type = ?`)
		args = append(args, internal)
	}
	if p.Scope != "" {
		where = append(where, `scope = ?`)
		args = append(args, p.Scope)
	}
	if p.Active != nil {
		where = append(where, `active = ?`)
		if *p.Active {
			args = append(args, 1)
		} else {
			args = append(args, 0)
		}
	}
	if p.Since > 0 {
		where = append(where, `last_seen >= ?`)
		args = append(args, p.Since)
	}
	if p.Until > 0 {
		where = append(where, `last_seen <= ?`)
		args = append(args, p.Until)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	result := &QueryPatternsResult{}
	if err := m.db.QueryRow(`SELECT COUNT(*) FROM patterns`+clause, args...).Scan(&result.Total); err != nil {
		return nil, fmt.Errorf("patterns: count: %w", err)
	}

	limit := p.Limit
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, pattern_type, scope, agents, frequency, confidence, risk_score,
	                 active, first_seen, last_seen, COALESCE(resolution, '')
	          FROM patterns` + clause + ` ORDER BY last_seen DESC, id ASC LIMIT ?`
	rows, err := m.db.Query(query, append(args, limit)...)
	if err != nil {
		return nil, fmt.Errorf("patterns: query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		pat, err := scanPattern(rows)
		if err != nil {
			return nil, fmt.Errorf("patterns: scan: %w", err)
		}
		result.Patterns = append(result.Patterns, *pat)
	}
	return result, rows.Err()
}

// Resolve marks a pattern resolved (or re-activates it). The resolution
// note is only overwritten when a new value is supplied.
func (m *Miner) Resolve(p ResolveParams) (*Pattern, error) {
	active := 0
	if p.Active {
		active = 1
	}
	var err error
	if p.Resolution != "" {
		_, err = m.db.Exec(`UPDATE patterns SET active = ?, resolution = ? WHERE id = ?`,
			active, p.Resolution, p.PatternID)
	} else {
		_, err = m.db.Exec(`UPDATE patterns SET active = ? WHERE id = ?`, active, p.PatternID)
	}
	if err != nil {
		return nil, fmt.Errorf("patterns: resolve: %w", err)
	}
	return m.getPattern(p.PatternID)
}
