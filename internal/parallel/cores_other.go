//go:build !linux

package parallel

import "runtime"

// HostCores returns the number of logical cores available to the process.
func HostCores() int {
	return runtime.NumCPU()
}
