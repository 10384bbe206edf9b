package gpu

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/gogpu/shadercompat/compute"
)

func TestOpenReference(t *testing.T) {
	dev, err := OpenConfig(Config{Backend: Reference, Workers: 3})
	if err != nil {
		t.Fatalf("OpenConfig(reference) = %v", err)
	}
	defer dev.Close()

	if _, ok := dev.(*compute.ReferenceDevice); !ok {
		t.Fatalf("device type = %T, want *compute.ReferenceDevice", dev)
	}
	if !strings.Contains(dev.Name(), "3 workers") {
		t.Errorf("Name() = %q", dev.Name())
	}
}

func TestOpenUnknown(t *testing.T) {
	_, err := Open("metal2")
	if !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("Open(metal2) = %v, want ErrUnknownBackend", err)
	}
}

func TestOpenAutoAlwaysSucceeds(t *testing.T) {
	for _, name := range []string{Auto, ""} {
		dev, err := Open(name)
		if err != nil {
			t.Fatalf("Open(%q) = %v", name, err)
		}
		if dev.Name() == "" {
			t.Errorf("Open(%q) device has no name", name)
		}
		if err := dev.Close(); err != nil {
			t.Errorf("Close() = %v", err)
		}
	}
}

func TestBackends(t *testing.T) {
	names := Backends()
	for _, want := range []string{Auto, Vulkan, Software, OpenCL, Reference} {
		if !slices.Contains(names, want) {
			t.Errorf("Backends() missing %q", want)
		}
	}
}

func TestFromProviderNil(t *testing.T) {
	dev, err := FromProvider(nil, 0)
	if err == nil {
		dev.Close()
		t.Fatal("FromProvider(nil) succeeded")
	}
	if dev != nil {
		t.Errorf("FromProvider(nil) device = %v, want nil", dev)
	}
}
