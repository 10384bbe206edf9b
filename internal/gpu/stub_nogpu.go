//go:build nogpu

// Package gpu is disabled in nogpu builds; Open and FromProvider always
// fail so callers fall back to other devices.
package gpu

import (
	"errors"
	"log/slog"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/shadercompat/compute"
)

// ErrUnavailable is returned by every constructor in nogpu builds.
var ErrUnavailable = errors.New("gpu: built with nogpu")

// Backend names accepted by Open.
const (
	BackendVulkan   = "vulkan"
	BackendSoftware = "software"
)

// Config selects and sizes a device.
type Config struct {
	Backend  string
	MemoryMB int
}

// Backends returns the names accepted by Open.
func Backends() []string { return nil }

// Open always fails in nogpu builds.
func Open(Config) (compute.Device, error) { return nil, ErrUnavailable }

// FromProvider always fails in nogpu builds.
func FromProvider(gpucontext.DeviceProvider, int) (compute.Device, error) {
	return nil, ErrUnavailable
}

// SetLogger is a no-op in nogpu builds.
func SetLogger(*slog.Logger) {}
