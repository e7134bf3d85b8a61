// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compute

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrLayoutMismatch is the root of every shader/layout validation failure.
var ErrLayoutMismatch = errors.New("compute: shader does not match binding layout")

// LayoutError reports why a pass shader is incompatible with its layout.
// Pass is -1 for the extraction shader.
type LayoutError struct {
	Pass    int
	Name    string
	Binding int // -1 when the problem is not tied to a binding
	Reason  string
}

func (e *LayoutError) Error() string {
	var b strings.Builder
	if e.Pass < 0 {
		fmt.Fprintf(&b, "extract pass %q", e.Name)
	} else {
		fmt.Fprintf(&b, "pass %d %q", e.Pass, e.Name)
	}
	if e.Binding >= 0 {
		fmt.Fprintf(&b, ": binding %d", e.Binding)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}

func (e *LayoutError) Unwrap() error { return ErrLayoutMismatch }

// ShaderBinding is one resource declaration found in WGSL source.
type ShaderBinding struct {
	Group   uint32
	Binding uint32
	Name    string
	Type    string
	Access  Access
}

var (
	lineComment  = regexp.MustCompile(`//[^\n]*`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)

	// @group(G) @binding(B) var<space[, access]> name: type;
	bindingDecl = regexp.MustCompile(
		`@group\(\s*(\d+)\s*\)\s*@binding\(\s*(\d+)\s*\)\s*var(?:\s*<\s*([a-z_]+)\s*(?:,\s*([a-z_]+)\s*)?>)?\s+(\w+)\s*:\s*([^;]+);`)

	computeEntry = regexp.MustCompile(`@compute\s+@workgroup_size\([^)]*\)\s*fn\s+main\s*\(`)
)

// ReflectBindings extracts every group/binding declaration from src in
// source order.
func ReflectBindings(src string) ([]ShaderBinding, error) {
	src = stripComments(src)

	var out []ShaderBinding
	for _, m := range bindingDecl.FindAllStringSubmatch(src, -1) {
		group, err := strconv.ParseUint(m[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("group %q: %w", m[1], err)
		}
		binding, err := strconv.ParseUint(m[2], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("binding %q: %w", m[2], err)
		}
		typ := strings.TrimSpace(m[6])
		access, err := classify(m[3], m[4], typ)
		if err != nil {
			return nil, fmt.Errorf("binding %d %q: %w", binding, m[5], err)
		}
		out = append(out, ShaderBinding{
			Group:   uint32(group),
			Binding: uint32(binding),
			Name:    m[5],
			Type:    typ,
			Access:  access,
		})
	}
	return out, nil
}

// stripComments removes block comments, then line comments.
func stripComments(src string) string {
	return lineComment.ReplaceAllString(blockComment.ReplaceAllString(src, ""), "")
}

func classify(space, access, typ string) (Access, error) {
	switch space {
	case "uniform":
		return AccessUniform, nil
	case "storage":
		switch access {
		case "", "read":
			return AccessRead, nil
		case "read_write":
			return AccessReadWrite, nil
		default:
			return 0, fmt.Errorf("unsupported storage access %q", access)
		}
	case "":
		if strings.HasPrefix(strings.ReplaceAll(typ, " ", ""), "texture_2d<f32>") {
			return AccessTexture, nil
		}
		return 0, fmt.Errorf("unsupported handle type %q", typ)
	default:
		return 0, fmt.Errorf("unsupported address space %q", space)
	}
}

// ValidateShader checks src against layout. Every declared binding must be
// in group 0, exist in the layout and use the slot's access mode. Slots the
// shader does not declare are allowed. The module must have a compute entry
// point named main.
func ValidateShader(layout Layout, pass int, name, src string) error {
	fail := func(binding int, format string, args ...any) error {
		return &LayoutError{Pass: pass, Name: name, Binding: binding, Reason: fmt.Sprintf(format, args...)}
	}

	bindings, err := ReflectBindings(src)
	if err != nil {
		return fail(-1, "%v", err)
	}
	seen := make(map[uint32]bool, len(bindings))
	for _, b := range bindings {
		if b.Group != 0 {
			return fail(int(b.Binding), "declared in group %d, layout uses group 0", b.Group)
		}
		if seen[b.Binding] {
			return fail(int(b.Binding), "declared twice")
		}
		seen[b.Binding] = true
		slot, ok := layout.Slot(b.Binding)
		if !ok {
			return fail(int(b.Binding), "%q is outside %s (%d slots)", b.Name, layout.Label, len(layout.Slots))
		}
		if slot.Access != b.Access {
			return fail(int(b.Binding), "%q is %s, layout slot %q is %s", b.Name, b.Access, slot.Name, slot.Access)
		}
	}
	if !computeEntry.MatchString(stripComments(src)) {
		return fail(-1, "no @compute entry point named main")
	}
	return nil
}
