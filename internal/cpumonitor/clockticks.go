package cpumonitor

import (
	"os/exec"
	"strconv"
	"strings"
)

// readClockTicksFromGetconf shells out to getconf, the portable way to ask
// the running kernel its configured CLK_TCK without parsing sysconf bindings.
func readClockTicksFromGetconf() (int, bool) {
	out, err := exec.Command("getconf", "CLK_TCK").Output()
	if err != nil {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
