package tools

import (
	"fmt"
	"strings"
	"time"

	"github.com/HendryAvila/coherence/internal/breath"
	"github.com/HendryAvila/coherence/internal/engine"
	"github.com/HendryAvila/coherence/internal/feed"
	"github.com/HendryAvila/coherence/internal/graph"
	"github.com/HendryAvila/coherence/internal/store"
)

// RenderSnapshot formats a snapshot as markdown.
func RenderSnapshot(s engine.Snapshot) string {
	var sb strings.Builder
	sb.WriteString("## Breath State\n\n")

	if s.Active {
		sb.WriteString(fmt.Sprintf("- **Session**: %s\n", s.SessionID))
	} else {
		sb.WriteString("- **Session**: none\n")
	}
	sb.WriteString(fmt.Sprintf("- **Phase**: %s\n", s.Live.Phase))
	sb.WriteString(fmt.Sprintf("- **Live**: inhale %s, exhale %s, hold %s\n",
		ms(s.Live.InhaleMs), ms(s.Live.ExhaleMs), ms(s.Live.HoldMs)))
	sb.WriteString(fmt.Sprintf("- **Phi-sync**: %s\n", yesNo(s.PhiSyncActive)))
	sb.WriteString(fmt.Sprintf("- **Sustained phi cycles**: %d / %d\n", s.Sustained, breath.BloomCyclesRequired))
	if s.BloomReady {
		sb.WriteString("- **Bloom**: ready\n")
	} else {
		sb.WriteString("- **Bloom**: not yet\n")
	}
	sb.WriteString(fmt.Sprintf("- **Gear**: %s\n", s.Gear))

	sb.WriteString("\n### Operators\n\n")
	sb.WriteString("| Operator | Active | Coherence |\n|---|---|---|\n")
	for _, op := range graph.Operators {
		st := s.Operators[op]
		sb.WriteString(fmt.Sprintf("| %s | %s | %.2f |\n", op, yesNo(st.Active), st.Coherence))
	}

	if len(s.History) > 0 {
		sb.WriteString("\n### Recent cycles\n\n")
		sb.WriteString("| # | Inhale | Exhale | Symmetry | Phi-sync |\n|---|---|---|---|---|\n")
		for i, c := range s.History {
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %.2f | %s |\n",
				i+1, ms(c.InhaleMs), ms(c.ExhaleMs), c.Symmetry, yesNo(c.PhiSync)))
		}
	}

	sb.WriteString("\n### Feed\n\n")
	sb.WriteString(renderFeed(s.Feed))

	if s.LastSave != nil && !s.LastSave.Applied() {
		sb.WriteString(fmt.Sprintf("\n> Counters were not persisted (%s).\n", s.LastSave.Status))
	}
	return sb.String()
}

// RenderCounters formats the persisted statistics as markdown.
func RenderCounters(c store.Counters) string {
	var sb strings.Builder
	sb.WriteString("## Breath Statistics\n\n")
	sb.WriteString(fmt.Sprintf("- **Total cycles**: %d\n", c.TotalCycles))
	sb.WriteString(fmt.Sprintf("- **Best symmetry**: %.2f\n", c.BestSymmetry))
	sb.WriteString(fmt.Sprintf("- **Longest phi-sync streak**: %d\n", c.LongestPhiSyncStreak))
	return sb.String()
}

func renderFeed(f feed.State) string {
	switch f.Status {
	case feed.StatusAbsent:
		return "- **Status**: not configured\n"
	case feed.StatusConnected:
		s := fmt.Sprintf("- **Status**: connected (coherence %.2f)\n", f.Coherence)
		if f.LastSample != nil {
			s += fmt.Sprintf("- **Consent**: %s, dominant band %s\n", f.LastSample.ConsentLevel, f.LastSample.DominantBand)
		}
		return s
	}
	s := "- **Status**: disconnected\n"
	if f.LastError != "" {
		s += fmt.Sprintf("- **Last error**: %s\n", f.LastError)
	}
	return s
}

func ms(v int64) string {
	return (time.Duration(v) * time.Millisecond).Round(100 * time.Millisecond).String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
