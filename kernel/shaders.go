package kernel

import _ "embed"

var (
	//go:embed shaders/basic.wgsl
	basicWGSL string

	//go:embed shaders/jfa_init.wgsl
	jfaInitWGSL string

	//go:embed shaders/jfa_flood.wgsl
	jfaFloodWGSL string

	//go:embed shaders/jfa_resolve.wgsl
	jfaResolveWGSL string
)

// OpenCLSource is the OpenCL C program holding the CLKernel entry points of
// every kernel in this package.
//
//go:embed shaders/kernels.cl
var OpenCLSource string

// All lists every kernel of the package in dispatch order of the tests
// that use them.
func All() []Kernel {
	return []Kernel{Basic, JFAInit, JFAFlood, JFAResolve}
}
