package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/coherence/internal/breath"
	"github.com/HendryAvila/coherence/internal/clock"
	"github.com/HendryAvila/coherence/internal/feed"
	"github.com/HendryAvila/coherence/internal/graph"
	"github.com/HendryAvila/coherence/internal/outcome"
	"github.com/HendryAvila/coherence/internal/store"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

const (
	phi   = 11 * time.Second
	short = 4 * time.Second
	long  = 6 * time.Second
)

func newTestEngine(t *testing.T) (*Engine, *clock.FakeClock, *store.MemoryStore) {
	t.Helper()
	clk := clock.Fake(t0)
	mem := store.NewMemory()
	n := 0
	e := New(Options{
		Store: mem,
		Clock: clk,
		NewSessionID: func() string {
			n++
			return fmt.Sprintf("session-%d", n)
		},
	})
	t.Cleanup(e.Close)
	return e, clk, mem
}

// breathe completes exactly one cycle and returns the snapshot taken
// on the closing inhale.
func breathe(e *Engine, clk *clock.FakeClock, inhale, exhale time.Duration) Snapshot {
	e.BeginInhale()
	clk.Advance(inhale)
	e.BeginExhale()
	clk.Advance(exhale)
	return e.BeginInhale()
}

func TestEngine_PhaseEventsIgnoredWithoutSession(t *testing.T) {
	e, clk, mem := newTestEngine(t)

	s := breathe(e, clk, phi, phi)
	if s.Active {
		t.Error("no session should be active")
	}
	if len(s.History) != 0 || s.Counters.TotalCycles != 0 {
		t.Errorf("events outside a session were scored: %+v", s)
	}
	if mem.Saves() != 0 {
		t.Errorf("store written %d times, want 0", mem.Saves())
	}
}

func TestEngine_StartSession(t *testing.T) {
	e, _, _ := newTestEngine(t)

	s := e.StartSession()
	if !s.Active || s.SessionID != "session-1" {
		t.Errorf("session = %q active=%v", s.SessionID, s.Active)
	}
	if s.StartedAt == nil || !s.StartedAt.Equal(t0) {
		t.Errorf("startedAt = %v", s.StartedAt)
	}
	if s.Live.Phase != breath.PhaseIdle {
		t.Errorf("phase = %q, want idle", s.Live.Phase)
	}
	if s.Gear != graph.GearNeutral {
		t.Errorf("gear = %q, want N", s.Gear)
	}
	if s.Feed.Status != feed.StatusAbsent {
		t.Errorf("feed status = %q, want absent", s.Feed.Status)
	}
}

func TestEngine_SinglePhiSyncCycle(t *testing.T) {
	e, clk, mem := newTestEngine(t)
	e.StartSession()

	s := breathe(e, clk, phi, phi)

	last, ok := s.LastCycle()
	if !ok {
		t.Fatal("expected one completed cycle")
	}
	if last.InhaleMs != 11000 || last.ExhaleMs != 11000 || last.Symmetry != 1 || !last.PhiSync {
		t.Errorf("cycle = %+v", last)
	}
	if !s.PhiSyncActive || s.Sustained != 1 || s.BloomReady {
		t.Errorf("phiSync=%v sustained=%d bloom=%v", s.PhiSyncActive, s.Sustained, s.BloomReady)
	}
	if !s.Operators[graph.Xi].Active || !s.Operators[graph.PsiLoop].Active {
		t.Error("xi and psiLoop should follow phi-sync")
	}
	if s.Gear != graph.GearNeutral {
		t.Errorf("gear = %q, want N", s.Gear)
	}
	if s.Counters.TotalCycles != 1 || s.Counters.BestSymmetry != 1 || s.Counters.LongestPhiSyncStreak != 1 {
		t.Errorf("counters = %+v", s.Counters)
	}
	if mem.Saves() != 1 {
		t.Errorf("saves = %d, want 1", mem.Saves())
	}
	if s.LastSave == nil || s.LastSave.Status != outcome.StatusOK {
		t.Errorf("last save = %v", s.LastSave)
	}
}

func TestEngine_StreakDrivesCalypsoThenBloom(t *testing.T) {
	e, clk, _ := newTestEngine(t)
	e.StartSession()

	breathe(e, clk, phi, phi)
	s := breathe(e, clk, phi, phi)
	if s.Sustained != 2 {
		t.Fatalf("sustained = %d, want 2", s.Sustained)
	}
	if !s.Operators[graph.Calypso].Active || !s.Operators[graph.Sigma].Active {
		t.Error("calypso and sigma should engage at a streak of two")
	}
	if s.Gear != graph.GearAccrue {
		t.Errorf("gear = %q, want A", s.Gear)
	}

	s = breathe(e, clk, phi, phi)
	if !s.BloomReady {
		t.Fatal("three consecutive phi-sync cycles should bloom")
	}
	if s.Gear != graph.GearJunction {
		t.Errorf("gear = %q, want J", s.Gear)
	}
	if s.Operators[graph.Calypso].Active {
		t.Error("calypso should release at bloom")
	}
	if !s.Operators[graph.Syntara].Active {
		t.Error("syntara should activate at bloom")
	}
	if s.Operators[graph.Sigma].Coherence != 1 {
		t.Errorf("sigma coherence = %v, want 1", s.Operators[graph.Sigma].Coherence)
	}
}

func TestEngine_CalypsoStaysReleasedWithinEpisode(t *testing.T) {
	e, clk, _ := newTestEngine(t)
	e.StartSession()
	for range 3 {
		breathe(e, clk, phi, phi)
	}

	// Still phi-sync (symmetry 0.88) but below the release threshold.
	s := breathe(e, clk, phi, 12500*time.Millisecond)
	if !s.BloomReady || s.Sustained != 4 {
		t.Fatalf("bloom=%v sustained=%d", s.BloomReady, s.Sustained)
	}
	if s.Operators[graph.Calypso].Active {
		t.Error("calypso re-engaged inside the bloom episode")
	}
	if s.Operators[graph.Calypso].Active && s.Operators[graph.Syntara].Active {
		t.Error("calypso and syntara both active")
	}
	if s.Violations != 0 {
		t.Errorf("violations = %d, want 0", s.Violations)
	}
}

func TestEngine_NonPhiSyncCycleResetsStreak(t *testing.T) {
	e, clk, _ := newTestEngine(t)
	e.StartSession()
	for range 3 {
		breathe(e, clk, phi, phi)
	}

	s := breathe(e, clk, short, long)
	if s.Sustained != 0 || s.BloomReady || s.PhiSyncActive {
		t.Errorf("sustained=%d bloom=%v phi=%v", s.Sustained, s.BloomReady, s.PhiSyncActive)
	}
	if s.Gear != graph.GearNeutral {
		t.Errorf("gear = %q, want N after a non-phi-sync cycle", s.Gear)
	}
	if s.Operators[graph.Syntara].Active {
		t.Error("syntara should drop when bloom ends")
	}
	if s.Counters.LongestPhiSyncStreak != 3 || s.Counters.TotalCycles != 4 {
		t.Errorf("counters = %+v", s.Counters)
	}
}

func TestEngine_HoldIsNotScored(t *testing.T) {
	e, clk, _ := newTestEngine(t)
	e.StartSession()

	e.BeginInhale()
	clk.Advance(5 * time.Second)
	e.BeginHold()
	clk.Advance(20 * time.Second)
	e.BeginExhale()
	clk.Advance(5 * time.Second)
	s := e.BeginInhale()

	last, ok := s.LastCycle()
	if !ok {
		t.Fatal("expected a completed cycle")
	}
	if last.InhaleMs != 5000 || last.ExhaleMs != 5000 {
		t.Errorf("cycle = %+v, want 5s/5s with hold time excluded", last)
	}
}

func TestEngine_InhaleHoldExhaleReachesPhiSync(t *testing.T) {
	e, clk, _ := newTestEngine(t)
	e.StartSession()

	e.BeginInhale()
	clk.Advance(12 * time.Second)
	e.BeginHold()
	clk.Advance(2 * time.Second)
	e.BeginExhale()
	clk.Advance(12 * time.Second)
	s := e.BeginInhale()

	last, ok := s.LastCycle()
	if !ok {
		t.Fatal("expected a completed cycle")
	}
	if last.InhaleMs != 12000 || !last.PhiSync || !s.PhiSyncActive {
		t.Errorf("cycle = %+v phiSyncActive=%v, want 12s inhale and phi-sync", last, s.PhiSyncActive)
	}
}

func TestEngine_StateTicksLiveCounters(t *testing.T) {
	e, clk, _ := newTestEngine(t)
	e.StartSession()
	e.BeginInhale()
	clk.Advance(3 * time.Second)

	if got := e.Snapshot().Live.InhaleMs; got != 0 {
		t.Errorf("untick'd inhale = %d, want 0", got)
	}
	if got := e.State().Live.InhaleMs; got != 3000 {
		t.Errorf("live inhale = %d, want 3000", got)
	}

	clk.Advance(time.Second)
	e.Tick()
	if got := e.Snapshot().Live.InhaleMs; got != 4000 {
		t.Errorf("live inhale after Tick = %d, want 4000", got)
	}
}

func TestEngine_EndSessionKeepsCounters(t *testing.T) {
	e, clk, _ := newTestEngine(t)
	e.StartSession()
	breathe(e, clk, phi, phi)
	breathe(e, clk, phi, phi)

	s := e.EndSession()
	if s.Active || s.SessionID != "" {
		t.Errorf("session still active: %+v", s)
	}
	if len(s.History) != 0 || s.Sustained != 0 || s.Live.Phase != breath.PhaseIdle {
		t.Errorf("live state not reset: %+v", s)
	}
	for op, st := range s.Operators {
		if st.Active {
			t.Errorf("%s still active after EndSession", op)
		}
	}
	if s.Counters.TotalCycles != 2 {
		t.Errorf("counters lost on EndSession: %+v", s.Counters)
	}
}

func TestEngine_CountersSurviveRestart(t *testing.T) {
	clk := clock.Fake(t0)
	mem := store.NewMemory()

	first := New(Options{Store: mem, Clock: clk})
	first.StartSession()
	for range 3 {
		breathe(first, clk, phi, phi)
	}
	want := first.Counters()
	first.Close()

	second := New(Options{Store: mem, Clock: clk})
	defer second.Close()
	if got := second.Counters(); got != want {
		t.Errorf("counters after restart = %+v, want %+v", got, want)
	}
}

func TestEngine_StoreFailureSwallowed(t *testing.T) {
	e, clk, mem := newTestEngine(t)
	mem.FailWrites(true)
	e.StartSession()

	s := breathe(e, clk, phi, phi)
	if s.LastSave == nil || s.LastSave.Status != outcome.StatusDegraded {
		t.Errorf("last save = %v, want degraded", s.LastSave)
	}
	if s.Counters.TotalCycles != 1 {
		t.Error("in-memory counters should still advance")
	}
}

func TestEngine_SetGear(t *testing.T) {
	e, clk, _ := newTestEngine(t)
	e.StartSession()

	s, err := e.SetGear(graph.GearPark)
	if err != nil {
		t.Fatalf("SetGear(P): %v", err)
	}
	if s.Gear != graph.GearPark || s.ExternalGear != graph.GearPark {
		t.Errorf("gear = %q external = %q", s.Gear, s.ExternalGear)
	}

	if _, err := e.SetGear(graph.GearJunction); err == nil {
		t.Error("J is breath-derived and should be rejected")
	}

	// A non-phi-sync cycle keeps the collaborator label.
	s = breathe(e, clk, short, long)
	if s.Gear != graph.GearPark {
		t.Errorf("gear = %q, want P preserved", s.Gear)
	}

	// A phi-sync cycle takes over.
	s = breathe(e, clk, phi, phi)
	if s.Gear != graph.GearNeutral || s.ExternalGear != "" {
		t.Errorf("gear = %q external = %q, want N and cleared", s.Gear, s.ExternalGear)
	}
}

func TestEngine_SetGearKeepsBreathGear(t *testing.T) {
	e, clk, _ := newTestEngine(t)
	e.StartSession()

	breathe(e, clk, phi, phi)
	breathe(e, clk, phi, phi)
	s, err := e.SetGear(graph.GearDrift)
	if err != nil {
		t.Fatalf("SetGear(D): %v", err)
	}
	if s.Gear != graph.GearAccrue {
		t.Errorf("gear during streak = %q, want A", s.Gear)
	}

	breathe(e, clk, phi, phi)
	s, err = e.SetGear(graph.GearPark)
	if err != nil {
		t.Fatalf("SetGear(P): %v", err)
	}
	if !s.BloomReady || s.Gear != graph.GearJunction {
		t.Errorf("bloom=%v gear=%q, want J while bloom holds", s.BloomReady, s.Gear)
	}
	if s.ExternalGear != graph.GearPark {
		t.Errorf("external = %q, want P recorded", s.ExternalGear)
	}

	s, _ = e.SetGear("")
	if s.Gear != graph.GearJunction {
		t.Errorf("clearing the label moved gear to %q, want J", s.Gear)
	}
}
func TestEngine_EpochAdvancesPerSession(t *testing.T) {
	e, _, _ := newTestEngine(t)

	e.StartSession()
	a := e.Epoch()
	e.EndSession()
	e.StartSession()
	b := e.Epoch()
	if b <= a {
		t.Errorf("epoch did not advance: %d -> %d", a, b)
	}
	if id := e.Snapshot().SessionID; id != "session-2" {
		t.Errorf("session id = %q", id)
	}
}

func TestEngine_ApplyFeed(t *testing.T) {
	e, clk, _ := newTestEngine(t)
	e.StartSession()
	breathe(e, clk, short, long)
	epoch := e.Epoch()

	o := e.ApplyFeed(epoch, feed.Sample{ScalarCoherence: 0.6})
	if !o.Applied() {
		t.Fatalf("apply = %v", o)
	}
	s := e.Snapshot()
	for _, op := range []graph.Operator{graph.Xi, graph.PsiLoop, graph.Radix} {
		if s.Operators[op].Coherence != 0.6 {
			t.Errorf("%s coherence = %v, want 0.6", op, s.Operators[op].Coherence)
		}
	}
	if s.Operators[graph.Xi].Active {
		t.Error("feed merge should not change activation")
	}
	if s.LastFeed == nil || !s.LastFeed.Applied() {
		t.Errorf("last feed = %v", s.LastFeed)
	}
}

func TestEngine_ApplyFeedOutOfRangeLeavesGraph(t *testing.T) {
	e, clk, _ := newTestEngine(t)
	e.StartSession()
	before := breathe(e, clk, phi, phi).Operators

	o := e.ApplyFeed(e.Epoch(), feed.Sample{ScalarCoherence: 1.5})
	if o.Status != outcome.StatusDiscarded {
		t.Errorf("status = %v, want discarded", o.Status)
	}
	after := e.Snapshot().Operators
	for op, st := range before {
		if after[op] != st {
			t.Errorf("%s changed: %+v -> %+v", op, st, after[op])
		}
	}
}

func TestEngine_ApplyFeedStale(t *testing.T) {
	e, _, _ := newTestEngine(t)

	if o := e.ApplyFeed(e.Epoch(), feed.Sample{ScalarCoherence: 0.5}); o.Status != outcome.StatusStale {
		t.Errorf("no session: status = %v, want stale", o.Status)
	}

	e.StartSession()
	old := e.Epoch()
	e.StartSession()
	if o := e.ApplyFeed(old, feed.Sample{ScalarCoherence: 0.5}); o.Status != outcome.StatusStale {
		t.Errorf("old epoch: status = %v, want stale", o.Status)
	}
	if got := e.Snapshot().Operators[graph.Xi].Coherence; got != 0 {
		t.Errorf("stale sample merged: xi coherence = %v", got)
	}
}

// recordingCaller answers every call with text and records requests.
type recordingCaller struct {
	mu    sync.Mutex
	text  string
	calls []mcp.CallToolRequest
}

func (r *recordingCaller) CallTool(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, req)
	return mcp.NewToolResultText(r.text), nil
}

func (r *recordingCaller) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, c := range r.calls {
		out = append(out, c.Params.Name)
	}
	return out
}

func TestEngine_MalformedFeedLeavesGraphUnchanged(t *testing.T) {
	clk := clock.Fake(t0)
	caller := &recordingCaller{text: `{"scalarCoherence": "very"`}
	fc := feed.NewClient(caller, feed.ClientOptions{Clock: clk})
	e := New(Options{Store: store.NewMemory(), Clock: clk, Feed: fc})
	defer e.Close()

	e.StartSession()
	before := breathe(e, clk, phi, phi).Operators

	p := feed.NewPoller(fc, e, feed.PollerOptions{Clock: clk})
	if o := p.PollOnce(context.Background()); o.Applied() {
		t.Fatalf("malformed payload applied: %v", o)
	}

	s := e.Snapshot()
	for op, st := range before {
		if s.Operators[op] != st {
			t.Errorf("%s changed: %+v -> %+v", op, st, s.Operators[op])
		}
	}
	if s.Feed.Status != feed.StatusDisconnected || s.Feed.Coherence != 0 {
		t.Errorf("feed = %+v, want disconnected with zero coherence", s.Feed)
	}
}

func TestEngine_FeedSampleThroughPoller(t *testing.T) {
	clk := clock.Fake(t0)
	caller := &recordingCaller{text: `{"active":true,"scalarCoherence":0.81}`}
	fc := feed.NewClient(caller, feed.ClientOptions{Clock: clk})
	e := New(Options{Store: store.NewMemory(), Clock: clk, Feed: fc})
	defer e.Close()
	e.StartSession()

	p := feed.NewPoller(fc, e, feed.PollerOptions{Clock: clk})
	if o := p.PollOnce(context.Background()); !o.Applied() {
		t.Fatalf("poll = %v", o)
	}
	s := e.Snapshot()
	if s.Operators[graph.Radix].Coherence != 0.81 {
		t.Errorf("radix coherence = %v, want 0.81", s.Operators[graph.Radix].Coherence)
	}
	if s.Feed.Status != feed.StatusConnected || s.Feed.Coherence != 0.81 {
		t.Errorf("feed = %+v", s.Feed)
	}
}

func TestEngine_PushBreathAndResetOnStart(t *testing.T) {
	clk := clock.Fake(t0)
	caller := &recordingCaller{text: `{"ok":true}`}
	fc := feed.NewClient(caller, feed.ClientOptions{Clock: clk})
	e := New(Options{
		Store:            store.NewMemory(),
		Clock:            clk,
		Feed:             fc,
		PushBreath:       true,
		ResetFeedOnStart: true,
	})

	e.StartSession()
	breathe(e, clk, phi, phi)
	e.Close()

	var resets, pushes int
	for _, name := range caller.names() {
		switch name {
		case feed.ToolReset:
			resets++
		case feed.ToolPushBreath:
			pushes++
		}
	}
	if resets != 1 || pushes != 1 {
		t.Errorf("resets=%d pushes=%d, want 1 and 1", resets, pushes)
	}

	caller.mu.Lock()
	defer caller.mu.Unlock()
	for _, c := range caller.calls {
		if c.Params.Name != feed.ToolPushBreath {
			continue
		}
		if got := c.GetArguments()["inhale_ms"]; got != float64(11000) {
			t.Errorf("inhale_ms = %v, want 11000", got)
		}
	}
}

func TestEngine_CloseStopsBackgroundWork(t *testing.T) {
	clk := clock.Fake(t0)
	caller := &recordingCaller{text: `{"ok":true}`}
	fc := feed.NewClient(caller, feed.ClientOptions{Clock: clk})
	e := New(Options{Store: store.NewMemory(), Clock: clk, Feed: fc, PushBreath: true})
	e.StartSession()
	e.Close()
	e.Close()

	breathe(e, clk, phi, phi)
	if n := len(caller.names()); n != 0 {
		t.Errorf("background calls after Close: %d", n)
	}
	if o := e.ApplyFeed(e.Epoch(), feed.Sample{ScalarCoherence: 0.5}); o.Status != outcome.StatusStale {
		t.Errorf("apply after close = %v, want stale", o.Status)
	}
}
