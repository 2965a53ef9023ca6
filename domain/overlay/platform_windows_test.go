//go:build windows

package overlay

import "testing"

// Activation is observed out of context only; no watcher may install a
// global hook that would load this executable into other processes.
func TestNativePlatform_UsesOutOfContextWatcherOnly(t *testing.T) {
	ws := NativePlatform("Escape").Watchers()
	if len(ws) != 1 {
		t.Fatalf("expected a single watcher, got %d", len(ws))
	}
	if _, ok := ws[0].(*foregroundWatcher); !ok || ws[0].Name() != "winevent" {
		t.Fatalf("unexpected watcher %T %q", ws[0], ws[0].Name())
	}
}
