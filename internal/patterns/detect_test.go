package patterns

import (
	"math"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func findDetection(ds []detection, internalType, scope string) *detection {
	for i := range ds {
		if ds[i].internalType == internalType && ds[i].scope == scope {
			return &ds[i]
		}
	}
	return nil
}

func TestDetect_HandoffLoop(t *testing.T) {
	events := []Event{
		{Agent: "devops", Scope: "svc/deploy"},
		{Agent: "analyst", Scope: "svc/deploy"},
		{Agent: "devops", Scope: "svc/deploy"},
	}

	ds := detect(events)
	d := findDetection(ds, internalHandoffLoop, "svc/deploy")
	if d == nil {
		t.Fatalf("no handoff loop detected in %+v", ds)
	}
	if d.delta != 3 {
		t.Errorf("delta = %d, want 3", d.delta)
	}
	if len(d.agents) != 2 || d.agents[0] != "analyst" || d.agents[1] != "devops" {
		t.Errorf("agents = %v, want sorted [analyst devops]", d.agents)
	}
	want := 0.45 + 3*0.08
	if !approx(d.confidence, want) {
		t.Errorf("confidence = %v, want %v", d.confidence, want)
	}

	// Two events from two agents is below the volume threshold.
	if ds := detect(events[:2]); findDetection(ds, internalHandoffLoop, "svc/deploy") != nil {
		t.Error("handoff loop detected from only two events")
	}

	// Three events from one agent is not a handoff.
	solo := []Event{
		{Agent: "devops", Scope: "svc/deploy"},
		{Agent: "devops", Scope: "svc/deploy"},
		{Agent: "devops", Scope: "svc/deploy"},
	}
	if ds := detect(solo); findDetection(ds, internalHandoffLoop, "svc/deploy") != nil {
		t.Error("handoff loop detected from a single agent")
	}
}

func TestDetect_StallNeedsTightSessions(t *testing.T) {
	clustered := []Event{
		{Agent: "devops", Outcome: "failed", Scope: "mod/b", Session: "s_10"},
		{Agent: "devops", Outcome: "error", Scope: "mod/b", Session: "s_11"},
	}
	ds := detect(clustered)
	d := findDetection(ds, internalStall, "mod/b")
	if d == nil {
		t.Fatalf("no stall detected in %+v", ds)
	}
	want := 0.55 + 2*0.1
	if !approx(d.confidence, want) {
		t.Errorf("confidence = %v, want %v", d.confidence, want)
	}

	spread := []Event{
		{Agent: "devops", Outcome: "failed", Scope: "mod/b", Session: "s_1"},
		{Agent: "devops", Outcome: "error", Scope: "mod/b", Session: "s_9"},
	}
	if ds := detect(spread); findDetection(ds, internalStall, "mod/b") != nil {
		t.Error("stall detected from sessions far apart")
	}

	// A lone failure never forms a stall.
	if ds := detect(clustered[:1]); findDetection(ds, internalStall, "mod/b") != nil {
		t.Error("stall detected from a single failure")
	}
}

func TestDetect_EscalationSpiral(t *testing.T) {
	events := []Event{
		{Agent: "analyst", Outcome: "completed", Scope: "mod/a"},
		{Agent: "analyst", Status: "confirmed", Scope: "mod/a"},
	}
	ds := detect(events)
	d := findDetection(ds, internalEscalationSpiral, "mod/a")
	if d == nil {
		t.Fatalf("no success pattern detected in %+v", ds)
	}
	want := 0.5 + 2*0.1
	if !approx(d.confidence, want) {
		t.Errorf("confidence = %v, want %v", d.confidence, want)
	}
}

func TestDetect_ScopelessEventsDiscarded(t *testing.T) {
	events := []Event{
		{Agent: "devops", Outcome: "failed"},
		{Agent: "analyst", Outcome: "failed", Scope: "   "},
	}
	if ds := detect(events); len(ds) != 0 {
		t.Errorf("detections = %+v, want none", ds)
	}
}

func TestDetect_MultiScopeEventCountsInEach(t *testing.T) {
	events := []Event{
		{Agent: "devops", Outcome: "failed", Scopes: []string{"mod/a", "mod/b"}},
		{Agent: "analyst", Outcome: "failed", Scopes: []string{"mod/a", "mod/b"}},
	}
	ds := detect(events)
	if findDetection(ds, internalStall, "mod/a") == nil || findDetection(ds, internalStall, "mod/b") == nil {
		t.Errorf("stall missing from a scope: %+v", ds)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		ev   Event
		want string
	}{
		{Event{Outcome: "failed"}, "failure"},
		{Event{Outcome: "FAILURE"}, "failure"},
		{Event{Status: "contested"}, "failure"},
		{Event{Status: "pending_proof"}, "failure"},
		{Event{Outcome: "completed"}, "success"},
		{Event{Status: "confirmed"}, "success"},
		{Event{Outcome: "shrug"}, ""},
		{Event{Status: "proposed"}, ""},
		// Outcome wins over status.
		{Event{Outcome: "failed", Status: "confirmed"}, "failure"},
	}
	for _, tc := range cases {
		if got := classify(tc.ev); got != tc.want {
			t.Errorf("classify(%+v) = %q, want %q", tc.ev, got, tc.want)
		}
	}
}

func TestTightSessionCluster(t *testing.T) {
	cases := []struct {
		name     string
		sessions []string
		want     bool
	}{
		{"adjacent", []string{"s_10", "s_11"}, true},
		{"gap of two", []string{"s_10", "s_12"}, true},
		{"gap of three", []string{"s_10", "s_13"}, false},
		{"unsorted input", []string{"s_12", "s_10", "s_11"}, true},
		{"one parseable", []string{"s_10", "main"}, true},
		{"no ordinals", []string{"main", "feature"}, true},
		{"empty", nil, true},
	}
	for _, tc := range cases {
		if got := tightSessionCluster(tc.sessions); got != tc.want {
			t.Errorf("%s: tightSessionCluster(%v) = %v, want %v", tc.name, tc.sessions, got, tc.want)
		}
	}
}

func TestSessionOrdinal(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		ok   bool
	}{
		{"s_10", 10, true},
		{"session-7", 7, true},
		{"42", 42, true},
		{"main", 0, false},
		{"", 0, false},
		{"v2-final", 0, false},
	}
	for _, tc := range cases {
		n, ok := sessionOrdinal(tc.in)
		if n != tc.n || ok != tc.ok {
			t.Errorf("sessionOrdinal(%q) = %d, %v, want %d, %v", tc.in, n, ok, tc.n, tc.ok)
		}
	}
}

func TestRiskScore(t *testing.T) {
	if got := riskScore(internalStall, 0.8); !approx(got, 0.8) {
		t.Errorf("stall risk = %v, want 0.8", got)
	}
	if got := riskScore(internalHandoffLoop, 0.5); !approx(got, 0.3) {
		t.Errorf("handoff risk = %v, want 0.3", got)
	}
	if got := riskScore(internalEscalationSpiral, 1.0); !approx(got, 0.2) {
		t.Errorf("spiral risk = %v, want 0.2", got)
	}
}
