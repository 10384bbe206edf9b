//go:build !nogpu

package gpu

import (
	"strings"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/shadercompat/kernel"
)

// skipNagaLimitation skips the test for compiler features naga has not
// implemented yet.
func skipNagaLimitation(t *testing.T, err error) {
	t.Helper()
	msg := err.Error()
	if strings.Contains(msg, "not yet implemented") || strings.Contains(msg, "not supported") {
		t.Skipf("Skipping: naga feature not yet implemented: %v", err)
	}
}

// TestKernelShadersCompile checks that every kernel's WGSL compiles to a
// SPIR-V module.
func TestKernelShadersCompile(t *testing.T) {
	for _, k := range kernel.All() {
		t.Run(k.Name(), func(t *testing.T) {
			words, err := CompileWGSL(k.Shader().WGSL)
			if err != nil {
				skipNagaLimitation(t, err)
				t.Fatalf("CompileWGSL: %v", err)
			}
			if words[0] != spirvMagic {
				t.Errorf("invalid SPIR-V magic: 0x%08X, want 0x%08X", words[0], spirvMagic)
			}
			t.Logf("%s compiled to %d SPIR-V words", k.Name(), len(words))
		})
	}
}

func TestCompileWGSLError(t *testing.T) {
	if _, err := CompileWGSL("fn main( {"); err == nil {
		t.Fatal("CompileWGSL accepted malformed source")
	}
}

func TestLayoutEntries(t *testing.T) {
	entries := layoutEntries(kernel.JFAFlood.Bindings())
	want := []gputypes.BufferBindingType{
		gputypes.BufferBindingTypeUniform,
		gputypes.BufferBindingTypeUniform,
		gputypes.BufferBindingTypeReadOnlyStorage,
		gputypes.BufferBindingTypeStorage,
	}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, e := range entries {
		if e.Binding != uint32(i) {
			t.Errorf("entry %d has binding %d", i, e.Binding)
		}
		if e.Visibility != gputypes.ShaderStageCompute {
			t.Errorf("entry %d visibility = %v", i, e.Visibility)
		}
		if e.Buffer == nil {
			t.Fatalf("entry %d is not a buffer binding", i)
		}
		if e.Buffer.Type != want[i] {
			t.Errorf("entry %d type = %s, want %s", i, e.Buffer.Type, want[i])
		}
	}
}
