//go:build !windows

package debug

import "testing"

func TestParseVmRSS(t *testing.T) {
	status := []byte("Name:\tmosaic\nVmPeak:\t  9000 kB\nVmRSS:\t    1234 kB\nThreads:\t12\n")
	got, err := parseVmRSS(status)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != 1234*1024 {
		t.Fatalf("got %d bytes", got)
	}

	if _, err := parseVmRSS([]byte("Name:\tmosaic\n")); err != errNoRSS {
		t.Fatalf("missing field: got %v", err)
	}
	if _, err := parseVmRSS([]byte("VmRSS:\tlots kB\n")); err == nil {
		t.Fatal("expected a number error")
	}
}
