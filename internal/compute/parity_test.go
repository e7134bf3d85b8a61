// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compute

import (
	"slices"
	"testing"
)

func chain(iters ...int) []PassDescriptor {
	out := make([]PassDescriptor, len(iters))
	for i, n := range iters {
		out[i] = PassDescriptor{Name: string(rune('A' + i)), Iterations: n}
	}
	return out
}

func TestComputeAssignment(t *testing.T) {
	tests := []struct {
		name  string
		iters []int
		want  [][]Selector
		final Selector
	}{
		{"empty chain", nil, [][]Selector{}, 0},
		{"single dispatch", []int{1}, [][]Selector{{0}}, 1},
		{"one then five", []int{1, 5}, [][]Selector{{0}, {1, 0, 1, 0, 1}}, 0},
		{"zero iteration pass", []int{1, 0, 1}, [][]Selector{{0}, {}, {1}}, 0},
		{"odd total", []int{2, 1}, [][]Selector{{0, 1}, {0}}, 1},
		{"default chain", []int{1, 5, 1, 16, 1}, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := ComputeAssignment(chain(tt.iters...))
			if len(a.Selectors) != len(tt.iters) {
				t.Fatalf("got %d selector lists, want %d", len(a.Selectors), len(tt.iters))
			}
			if tt.want != nil {
				for p := range tt.want {
					if !slices.Equal(a.Selectors[p], tt.want[p]) {
						t.Errorf("pass %d: got %v, want %v", p, a.Selectors[p], tt.want[p])
					}
				}
			}
			if a.Final != tt.final {
				t.Errorf("Final = %d, want %d", a.Final, tt.final)
			}
		})
	}
}

func TestAssignmentAlternates(t *testing.T) {
	a := ComputeAssignment(chain(3, 0, 4, 0, 0, 2, 7))
	flat := a.Flatten()
	if len(flat) != a.Total() || a.Total() != 16 {
		t.Fatalf("Total = %d, Flatten len = %d, want 16", a.Total(), len(flat))
	}
	for i, s := range flat {
		if s != Selector(i%2) {
			t.Fatalf("dispatch %d: selector %d, want %d", i, s, i%2)
		}
	}
	if a.Final != Selector(a.Total()%2) {
		t.Errorf("Final = %d, want %d", a.Final, a.Total()%2)
	}
}

func TestAssignmentZeroPassIsTransparent(t *testing.T) {
	without := ComputeAssignment(chain(3, 2)).Flatten()
	with := ComputeAssignment(chain(3, 0, 0, 2)).Flatten()
	if !slices.Equal(without, with) {
		t.Errorf("inserting zero-iteration passes changed selectors: %v vs %v", without, with)
	}
}

func TestAssignmentDeterministic(t *testing.T) {
	passes := chain(1, 5, 1, 16, 1)
	a, b := ComputeAssignment(passes), ComputeAssignment(passes)
	if !slices.Equal(a.Flatten(), b.Flatten()) || a.Final != b.Final {
		t.Error("ComputeAssignment is not deterministic")
	}
}

func TestAssignmentNegativeIterations(t *testing.T) {
	a := ComputeAssignment(chain(-3, 1))
	if len(a.Selectors[0]) != 0 {
		t.Errorf("negative count produced %d dispatches", len(a.Selectors[0]))
	}
	if !slices.Equal(a.Selectors[1], []Selector{0}) || a.Final != 1 {
		t.Errorf("got %v final %d", a.Selectors[1], a.Final)
	}
}
