// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compute

import "fmt"

// Stage distinguishes main passes from the extraction pass.
type Stage uint8

const (
	StageMain Stage = iota
	StageExtract
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageMain:
		return "main"
	case StageExtract:
		return "extract"
	default:
		return fmt.Sprintf("Stage(%d)", s)
	}
}

// DispatchCommand is one compute dispatch in a frame.
type DispatchCommand struct {
	Stage     Stage
	Pass      int // -1 for the extraction pass
	Iteration int
	Selector  Selector
	Groups    [3]uint32
}

// Plan is the ordered list of dispatches for one frame.
type Plan struct {
	Commands []DispatchCommand

	// Skipped lists passes whose pipeline was not ready.
	Skipped []int

	// ExtractSkipped is set when the extraction pipeline was not ready.
	ExtractSkipped bool
}

// WorkgroupCount returns ceil(dim / size).
func WorkgroupCount(dim, size uint32) uint32 {
	if dim == 0 {
		return 0
	}
	return (dim + size - 1) / size
}

// ReadinessFunc reports the pipeline state of pass i, or of the extraction
// pass when i is -1.
type ReadinessFunc func(i int) Readiness

// BuildPlan expands passes into dispatches using the selectors of a. A pass
// whose pipeline is not Ready is skipped for this frame; the remaining
// passes keep their assigned selectors. a must have been computed from
// passes.
func BuildPlan(passes []PassDescriptor, a Assignment, ready ReadinessFunc, width, height uint32) Plan {
	var plan Plan
	main := [3]uint32{
		WorkgroupCount(width, MainWorkgroupSize),
		WorkgroupCount(height, MainWorkgroupSize),
		1,
	}
	for p := range passes {
		if p >= len(a.Selectors) || len(a.Selectors[p]) == 0 {
			continue
		}
		if ready(p) != Ready {
			plan.Skipped = append(plan.Skipped, p)
			continue
		}
		for i, sel := range a.Selectors[p] {
			plan.Commands = append(plan.Commands, DispatchCommand{
				Stage:     StageMain,
				Pass:      p,
				Iteration: i,
				Selector:  sel,
				Groups:    main,
			})
		}
	}

	if ready(-1) != Ready {
		plan.ExtractSkipped = true
		return plan
	}
	plan.Commands = append(plan.Commands, DispatchCommand{
		Stage:    StageExtract,
		Pass:     -1,
		Selector: a.Final,
		Groups: [3]uint32{
			WorkgroupCount(width, ExtractWorkgroupSize),
			WorkgroupCount(height, ExtractWorkgroupSize),
			1,
		},
	})
	return plan
}
