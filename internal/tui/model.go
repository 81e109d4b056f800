// Package tui is the live terminal view behind `coherence watch`.
//
// The model redraws on a frame tick. Each frame calls the engine's
// State, which refreshes the live phase counters before reading, so
// the display and any MCP reader see the same timing.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/HendryAvila/coherence/internal/breath"
	"github.com/HendryAvila/coherence/internal/engine"
	"github.com/HendryAvila/coherence/internal/feed"
	"github.com/HendryAvila/coherence/internal/graph"
)

// Engine is the controller surface the view drives.
type Engine interface {
	StartSession() engine.Snapshot
	EndSession() engine.Snapshot
	BeginInhale() engine.Snapshot
	BeginExhale() engine.Snapshot
	BeginHold() engine.Snapshot
	State() engine.Snapshot
	SetGear(g graph.Gear) (engine.Snapshot, error)
}

// DefaultFrameInterval is roughly 60 frames per second.
const DefaultFrameInterval = 16 * time.Millisecond

// recentRows is how many cycles the view lists.
const recentRows = 5

type frameMsg time.Time

// Model is the bubbletea model for the watch view.
type Model struct {
	engine Engine
	keys   KeyMap
	help   help.Model
	bar    progress.Model
	frame  time.Duration

	snap   engine.Snapshot
	width  int
	notice string
}

// New creates a Model. frame <= 0 uses DefaultFrameInterval.
func New(e Engine, frame time.Duration) Model {
	if frame <= 0 {
		frame = DefaultFrameInterval
	}
	return Model{
		engine: e,
		keys:   DefaultKeyMap,
		help:   help.New(),
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40), progress.WithoutPercentage()),
		frame:  frame,
		snap:   e.State(),
	}
}

// Init starts the frame loop.
func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.frame, func(t time.Time) tea.Msg { return frameMsg(t) })
}

// Update handles frames, resizes and key presses.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		m.snap = m.engine.State()
		return m, m.tick()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		if w := msg.Width - 20; w > 10 {
			m.bar.Width = min(w, 60)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Session):
		if m.snap.Active {
			m.snap = m.engine.EndSession()
		} else {
			m.snap = m.engine.StartSession()
		}
	case key.Matches(msg, m.keys.Breathe):
		if m.snap.Live.Phase == breath.PhaseInhale {
			m.snap = m.engine.BeginExhale()
		} else {
			m.snap = m.engine.BeginInhale()
		}
	case key.Matches(msg, m.keys.Inhale):
		m.snap = m.engine.BeginInhale()
	case key.Matches(msg, m.keys.Exhale):
		m.snap = m.engine.BeginExhale()
	case key.Matches(msg, m.keys.Hold):
		m.snap = m.engine.BeginHold()
	case key.Matches(msg, m.keys.Park):
		m.setGear(graph.GearPark)
	case key.Matches(msg, m.keys.Drift):
		m.setGear(graph.GearDrift)
	case key.Matches(msg, m.keys.Auto):
		m.setGear("")
	}
	if !m.snap.Active && m.notice == "" && isPhaseKey(m.keys, msg) {
		m.notice = "press s to start a session"
	}
	return m, nil
}

func (m *Model) setGear(g graph.Gear) {
	snap, err := m.engine.SetGear(g)
	m.snap = snap
	if err != nil {
		m.notice = err.Error()
	}
}

func isPhaseKey(k KeyMap, msg tea.KeyMsg) bool {
	return key.Matches(msg, k.Breathe, k.Inhale, k.Exhale, k.Hold)
}

// View renders the frame.
func (m Model) View() string {
	s := m.snap
	var lines []string

	header := titleStyle.Render("coherence")
	if s.Active {
		header += dimStyle.Render("  session " + shortID(s.SessionID))
	} else {
		header += dimStyle.Render("  no session")
	}
	header += "  " + gearStyle.Render(string(s.Gear))
	lines = append(lines, header, "")

	phase := string(s.Live.Phase)
	style, ok := phaseStyles[phase]
	if !ok {
		style = phaseStyles["idle"]
	}
	elapsed := currentElapsed(s.Live)
	lines = append(lines, labelStyle.Render("phase")+style.Render(strings.ToUpper(phase))+"  "+seconds(elapsed))

	floor := float64(elapsed) / float64(breath.PhiSyncFloorMs)
	lines = append(lines, labelStyle.Render("floor")+m.bar.ViewAs(min(floor, 1))+dimStyle.Render(fmt.Sprintf(" %s", seconds(breath.PhiSyncFloorMs))))

	lines = append(lines, labelStyle.Render("streak")+streakDots(s.Sustained)+"  "+bloomLabel(s.BloomReady))
	lines = append(lines, labelStyle.Render("phi-sync")+onOff(s.PhiSyncActive))
	lines = append(lines, "")

	for _, op := range graph.Operators {
		st := s.Operators[op]
		marker := inactiveStyle.Render("○")
		if st.Active {
			marker = activeStyle.Render("●")
		}
		lines = append(lines, fmt.Sprintf("  %s %-9s %.2f", marker, op, st.Coherence))
	}

	if len(s.History) > 0 {
		lines = append(lines, "", dimStyle.Render("recent cycles"))
		start := max(0, len(s.History)-recentRows)
		for _, c := range s.History[start:] {
			phi := " "
			if c.PhiSync {
				phi = "φ"
			}
			lines = append(lines, fmt.Sprintf("  %s / %s  %.2f %s", seconds(c.InhaleMs), seconds(c.ExhaleMs), c.Symmetry, phi))
		}
	}

	lines = append(lines, "", labelStyle.Render("feed")+feedLabel(s.Feed))
	lines = append(lines, labelStyle.Render("totals")+dimStyle.Render(fmt.Sprintf(
		"%d cycles, best %.2f, longest streak %d",
		s.Counters.TotalCycles, s.Counters.BestSymmetry, s.Counters.LongestPhiSyncStreak)))

	if m.notice != "" {
		lines = append(lines, "", errStyle.Render(m.notice))
	}

	body := frameStyle.Render(strings.Join(lines, "\n"))
	out := body + "\n" + m.help.View(m.keys)
	if m.width > 0 {
		out = fit(out, m.width)
	}
	return out
}

// fit truncates every line to width cells.
func fit(s string, width int) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if ansi.StringWidth(l) > width {
			lines[i] = ansi.Truncate(l, width, "…")
		}
	}
	return strings.Join(lines, "\n")
}

func currentElapsed(l breath.Live) int64 {
	switch l.Phase {
	case breath.PhaseInhale:
		return l.InhaleMs
	case breath.PhaseExhale:
		return l.ExhaleMs
	case breath.PhaseHold:
		return l.HoldMs
	}
	return 0
}

func streakDots(n int) string {
	var sb strings.Builder
	for i := range breath.BloomCyclesRequired {
		if i < n {
			sb.WriteString(activeStyle.Render("●"))
		} else {
			sb.WriteString(inactiveStyle.Render("○"))
		}
	}
	if n > breath.BloomCyclesRequired {
		sb.WriteString(dimStyle.Render(fmt.Sprintf(" +%d", n-breath.BloomCyclesRequired)))
	}
	return sb.String()
}

func bloomLabel(ready bool) string {
	if ready {
		return bloomStyle.Render("bloom")
	}
	return dimStyle.Render("bloom: not yet")
}

func onOff(b bool) string {
	if b {
		return activeStyle.Render("yes")
	}
	return inactiveStyle.Render("no")
}

func feedLabel(f feed.State) string {
	switch f.Status {
	case feed.StatusConnected:
		return activeStyle.Render("connected") + fmt.Sprintf(" %.2f", f.Coherence)
	case feed.StatusDisconnected:
		return errStyle.Render("disconnected")
	}
	return dimStyle.Render("off")
}

func seconds(ms int64) string {
	return fmt.Sprintf("%.1fs", float64(ms)/1000)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
