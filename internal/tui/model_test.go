package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/HendryAvila/coherence/internal/breath"
	"github.com/HendryAvila/coherence/internal/clock"
	"github.com/HendryAvila/coherence/internal/engine"
	"github.com/HendryAvila/coherence/internal/graph"
	"github.com/HendryAvila/coherence/internal/store"
)

func newTestModel(t *testing.T) (Model, *engine.Engine, *clock.FakeClock) {
	t.Helper()
	clk := clock.Fake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	e := engine.New(engine.Options{Store: store.NewMemory(), Clock: clk})
	t.Cleanup(e.Close)
	return New(e, 0), e, clk
}

func press(t *testing.T, m Model, keys string) Model {
	t.Helper()
	for _, r := range keys {
		var msg tea.KeyMsg
		if r == ' ' {
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		} else {
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
		}
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func TestModel_InitSchedulesFrame(t *testing.T) {
	m, _, _ := newTestModel(t)
	if m.Init() == nil {
		t.Fatal("Init should schedule the first frame")
	}
	if m.frame != DefaultFrameInterval {
		t.Errorf("frame = %v, want default", m.frame)
	}
}

func TestModel_SessionKeyToggles(t *testing.T) {
	m, e, _ := newTestModel(t)

	m = press(t, m, "s")
	if !e.Snapshot().Active || !m.snap.Active {
		t.Fatal("s should start a session")
	}
	m = press(t, m, "s")
	if e.Snapshot().Active {
		t.Error("second s should end the session")
	}
}

func TestModel_PhaseKeysWithoutSession(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = press(t, m, "i")
	if m.notice == "" {
		t.Error("phase key without a session should explain itself")
	}
	if m.snap.Live.Phase != breath.PhaseIdle {
		t.Errorf("phase = %s, want idle", m.snap.Live.Phase)
	}
}

func TestModel_SpaceAlternatesPhases(t *testing.T) {
	m, e, clk := newTestModel(t)
	m = press(t, m, "s ")
	if m.snap.Live.Phase != breath.PhaseInhale {
		t.Fatalf("phase = %s, want inhale", m.snap.Live.Phase)
	}

	clk.Advance(11 * time.Second)
	m = press(t, m, " ")
	if m.snap.Live.Phase != breath.PhaseExhale {
		t.Fatalf("phase = %s, want exhale", m.snap.Live.Phase)
	}

	clk.Advance(11 * time.Second)
	m = press(t, m, " ")
	if got := e.Counters().TotalCycles; got != 1 {
		t.Errorf("cycles = %d, want 1", got)
	}
	if !m.snap.PhiSyncActive {
		t.Error("an 11s/11s cycle should be phi-sync")
	}
}

func TestModel_HoldAndExplicitKeys(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = press(t, m, "sih")
	if m.snap.Live.Phase != breath.PhaseHold {
		t.Errorf("phase = %s, want hold", m.snap.Live.Phase)
	}
	m = press(t, m, "e")
	if m.snap.Live.Phase != breath.PhaseExhale {
		t.Errorf("phase = %s, want exhale", m.snap.Live.Phase)
	}
}

func TestModel_GearKeys(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = press(t, m, "p")
	if m.snap.Gear != graph.GearPark {
		t.Errorf("gear = %s, want P", m.snap.Gear)
	}
	m = press(t, m, "d")
	if m.snap.Gear != graph.GearDrift {
		t.Errorf("gear = %s, want D", m.snap.Gear)
	}
	m = press(t, m, "a")
	if m.snap.Gear != graph.GearNeutral {
		t.Errorf("gear = %s, want N", m.snap.Gear)
	}
}

func TestModel_FrameRefreshesLiveCounters(t *testing.T) {
	m, _, clk := newTestModel(t)
	m = press(t, m, "si")
	clk.Advance(2500 * time.Millisecond)

	next, cmd := m.Update(frameMsg(clk.Now()))
	m = next.(Model)
	if cmd == nil {
		t.Error("a frame should schedule the next frame")
	}
	if m.snap.Live.InhaleMs != 2500 {
		t.Errorf("live inhale = %d, want 2500", m.snap.Live.InhaleMs)
	}
	if view := m.View(); !strings.Contains(view, "INHALE") || !strings.Contains(view, "2.5s") {
		t.Errorf("view missing live phase:\n%s", view)
	}
}

func TestModel_QuitKey(t *testing.T) {
	m, _, _ := newTestModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestModel_ViewListsOperators(t *testing.T) {
	m, _, _ := newTestModel(t)
	view := m.View()
	for _, op := range graph.Operators {
		if !strings.Contains(view, string(op)) {
			t.Errorf("view missing operator %s", op)
		}
	}
	if !strings.Contains(view, "no session") {
		t.Error("view should say there is no session")
	}
}

func TestModel_WindowResizeTruncates(t *testing.T) {
	m, _, _ := newTestModel(t)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 30, Height: 20})
	m = next.(Model)
	for _, line := range strings.Split(m.View(), "\n") {
		if w := ansi.StringWidth(line); w > 30 {
			t.Errorf("line wider than 30 cells (%d): %q", w, line)
		}
	}
}
