//go:build !windows

package debug

import (
	"bytes"
	"errors"
	"os"
	"strconv"
)

var errNoRSS = errors.New("debug: VmRSS not reported")

// processRSS parses VmRSS from /proc/self/status.
func processRSS() (uint64, error) {
	status, err := os.ReadFile("/proc/self/status")
	if err != nil {
		return 0, err
	}
	return parseVmRSS(status)
}

func parseVmRSS(status []byte) (uint64, error) {
	for _, line := range bytes.Split(status, []byte("\n")) {
		rest, ok := bytes.CutPrefix(line, []byte("VmRSS:"))
		if !ok {
			continue
		}
		f := bytes.Fields(rest)
		if len(f) == 0 {
			return 0, errNoRSS
		}
		kb, err := strconv.ParseUint(string(f[0]), 10, 64)
		if err != nil {
			return 0, err
		}
		return kb << 10, nil
	}
	return 0, errNoRSS
}
