//go:build linux

package parallel

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// HostCores returns the number of logical cores this process may run on.
// On Linux the scheduler affinity mask is honored, so a process pinned with
// taskset or a cpuset cgroup gets one worker per permitted core.
func HostCores() int {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err == nil {
		if n := set.Count(); n > 0 {
			return n
		}
	}
	return runtime.NumCPU()
}
