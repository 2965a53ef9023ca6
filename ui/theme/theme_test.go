package theme

import (
	"testing"

	"github.com/soocke/screen-mosaic-go/domain/session"
)

func TestStateStyle(t *testing.T) {
	if StateStyle(session.StateCreated) != StyleStateLabel || StateStyle(session.StateTerminated) != StyleStateLabel {
		t.Fatal("idle states should share the default badge")
	}
	seen := map[string]bool{}
	for _, s := range []session.State{session.StateInitializing, session.StateActive, session.StateStopping} {
		st := StateStyle(s)
		if st == StyleStateLabel || seen[st] {
			t.Fatalf("state %v needs its own badge, got %q", s, st)
		}
		seen[st] = true
	}
}
