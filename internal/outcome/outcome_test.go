package outcome

import (
	"errors"
	"testing"
)

func TestOutcome_Applied(t *testing.T) {
	tests := []struct {
		name string
		o    Outcome
		want bool
	}{
		{"ok", OK("save"), true},
		{"skipped", Skipped("poll"), false},
		{"degraded", Failed("save", StatusDegraded, errors.New("disk full")), false},
		{"stale", Failed("poll", StatusStale, nil), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.o.Applied(); got != tt.want {
				t.Errorf("Applied() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOutcome_String(t *testing.T) {
	o := Failed("poll", StatusDisconnected, errors.New("timeout"))
	if got := o.String(); got != "poll: disconnected (timeout)" {
		t.Errorf("String() = %q", got)
	}
	if got := OK("save").String(); got != "save: ok" {
		t.Errorf("String() = %q", got)
	}
	if OK("save").Error() != "" {
		t.Error("OK outcome should carry no error text")
	}
}
