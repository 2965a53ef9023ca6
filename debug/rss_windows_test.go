//go:build windows

package debug

import "testing"

func TestProcessRSS_ReportsWorkingSet(t *testing.T) {
	rss, err := processRSS()
	if err != nil {
		t.Fatalf("processRSS: %v", err)
	}
	if rss == 0 {
		t.Fatal("working set should be non-zero for a running process")
	}
}
