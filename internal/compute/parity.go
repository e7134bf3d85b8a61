// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compute

// Selector picks the physical side of every ping-pong pair.
//
// For a main pass, 0 reads A and writes B; 1 reads B and writes A.
// For the extraction pass, 0 reads A and 1 reads B.
type Selector uint8

// Assignment is the buffer parity of every dispatch in a pass chain.
type Assignment struct {
	// Selectors[p][i] is the selector of iteration i of pass p.
	Selectors [][]Selector

	// Final is the selector of the extraction pass.
	Final Selector
}

// ComputeAssignment walks the passes in order with one running counter.
// Each dispatch gets counter%2 and advances the counter, so every dispatch
// reads what the previous one wrote regardless of pass boundaries. Passes
// with zero iterations get an empty slice and leave the counter untouched.
func ComputeAssignment(passes []PassDescriptor) Assignment {
	a := Assignment{Selectors: make([][]Selector, len(passes))}
	counter := 0
	for p, pass := range passes {
		n := max(pass.Iterations, 0)
		sel := make([]Selector, n)
		for i := range sel {
			sel[i] = Selector(counter % 2)
			counter++
		}
		a.Selectors[p] = sel
	}
	a.Final = Selector(counter % 2)
	return a
}

// Total returns the number of main-pass dispatches.
func (a Assignment) Total() int {
	n := 0
	for _, s := range a.Selectors {
		n += len(s)
	}
	return n
}

// Flatten returns every main-pass selector in program order.
func (a Assignment) Flatten() []Selector {
	out := make([]Selector, 0, a.Total())
	for _, s := range a.Selectors {
		out = append(out, s...)
	}
	return out
}
