//go:build !opencl

package opencl

import "github.com/gogpu/shadercompat/compute"

// Open always fails in builds without the opencl tag.
func Open() (compute.Device, error) {
	return nil, ErrUnavailable
}
