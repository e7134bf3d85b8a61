// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compute

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/gogpu/terrain/params"
)

// =============================================================================
// Embedded WGSL Shader Sources
// =============================================================================

// Pass bodies contain only the entry point. The module-scope declarations
// (Params, bindings, helpers) are generated from the layout by Prelude.

//go:embed shaders/common.wgsl
var shaderCommon string

//go:embed shaders/generate_circle.wgsl
var shaderGenerateCircle string

//go:embed shaders/domain_warp.wgsl
var shaderDomainWarp string

//go:embed shaders/pre_ca_noise.wgsl
var shaderPreCANoise string

//go:embed shaders/ca.wgsl
var shaderCA string

//go:embed shaders/post_ca_warp.wgsl
var shaderPostCAWarp string

//go:embed shaders/extract.wgsl
var shaderExtract string

// Workgroup edge lengths. They must match @workgroup_size in the bodies.
const (
	MainWorkgroupSize    = 16
	ExtractWorkgroupSize = 8
)

// builtinBodies maps built-in pass names to their WGSL bodies.
var builtinBodies = map[string]string{
	"generate_circle": shaderGenerateCircle,
	"domain_warp":     shaderDomainWarp,
	"pre_ca_noise":    shaderPreCANoise,
	"ca":              shaderCA,
	"post_ca_warp":    shaderPostCAWarp,
}

// BuiltinBody returns the embedded body of a built-in pass.
func BuiltinBody(name string) (string, bool) {
	b, ok := builtinBodies[name]
	return b, ok
}

// wgslType returns the storage element type bound to a slot.
func wgslType(s Slot) string {
	switch s.Resource {
	case ResourceUniform:
		return "Params"
	case ResourceField:
		return "array<vec4<f32>>"
	case ResourceGradient:
		return "texture_2d<f32>"
	default:
		return "array<u32>"
	}
}

func wgslAddressSpace(a Access) string {
	switch a {
	case AccessUniform:
		return "<uniform>"
	case AccessRead:
		return "<storage, read>"
	case AccessReadWrite:
		return "<storage, read_write>"
	default:
		return ""
	}
}

// Prelude generates the module-scope declarations for a layout: the Params
// struct, one var per slot, the shared helpers and, for layouts with
// destination slots, a carry function that copies every pair's source
// cell to its destination.
func Prelude(layout Layout, spec ResourceSpec) string {
	var b strings.Builder
	b.WriteString(params.WGSL)
	b.WriteString("\n")
	for _, s := range layout.Slots {
		fmt.Fprintf(&b, "@group(0) @binding(%d) var%s %s: %s;\n",
			s.Binding, wgslAddressSpace(s.Access), s.Name, wgslType(s))
	}
	b.WriteString("\n")
	b.WriteString(shaderCommon)

	var carry []string
	for _, s := range layout.Slots {
		if s.Role != RoleDest {
			continue
		}
		src := strings.TrimSuffix(s.Name, "_dst") + "_src"
		switch s.Resource {
		case ResourceField:
			carry = append(carry, fmt.Sprintf("    %s[idx] = %s[idx];", s.Name, src))
		case ResourceBuffer:
			words := spec.BufferPairs[s.Index].BytesPerCell / 4
			carry = append(carry, fmt.Sprintf(
				"    for (var k = 0u; k < %du; k = k + 1u) {\n        %s[idx * %du + k] = %s[idx * %du + k];\n    }",
				words, s.Name, words, src, words))
		}
	}
	if len(carry) > 0 {
		b.WriteString("\nfn carry(idx: u32) {\n")
		b.WriteString(strings.Join(carry, "\n"))
		b.WriteString("\n}\n")
	}
	return b.String()
}

// MainShader assembles a main pass module from a body.
func MainShader(spec ResourceSpec, label, body string) ShaderRef {
	return ShaderRef{Label: label, Source: Prelude(MainLayout(spec), spec) + "\n" + body}
}

// ExtractShader returns the extraction module for spec.
func ExtractShader(spec ResourceSpec) ShaderRef {
	return ShaderRef{Label: "extract", Source: Prelude(ExtractLayout(spec), spec) + "\n" + shaderExtract}
}

// DefaultPasses returns the standard terrain chain.
func DefaultPasses(spec ResourceSpec) []PassDescriptor {
	chain := []struct {
		name  string
		iters int
	}{
		{"generate_circle", 1},
		{"domain_warp", 5},
		{"pre_ca_noise", 1},
		{"ca", 16},
		{"post_ca_warp", 1},
	}
	out := make([]PassDescriptor, len(chain))
	for i, c := range chain {
		out[i] = PassDescriptor{
			Name:       c.name,
			Shader:     MainShader(spec, c.name, builtinBodies[c.name]),
			Iterations: c.iters,
		}
	}
	return out
}
