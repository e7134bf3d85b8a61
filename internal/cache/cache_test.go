package cache

import "testing"

func TestFrameCacheTTL(t *testing.T) {
	var evicted []string
	c := NewFrame[string, int](1, func(k string, _ int) { evicted = append(evicted, k) })

	c.Set("a", 1)
	c.Set("b", 2)

	// Generation 0 -> 1: both used in gen 0, age 0.
	if n := c.Sweep(); n != 0 {
		t.Fatalf("first Sweep evicted %d, want 0", n)
	}
	// Touch only "a" in gen 1.
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %d, %v", v, ok)
	}
	// Gen 1 -> 2: b has age 1 == TTL, survives.
	if n := c.Sweep(); n != 0 {
		t.Fatalf("second Sweep evicted %d, want 0", n)
	}
	// Gen 2 -> 3: b has age 2 > TTL, evicted; a has age 1.
	if n := c.Sweep(); n != 1 {
		t.Fatalf("third Sweep evicted %d, want 1", n)
	}
	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if len(evicted) != 1 || evicted[0] != "b" {
		t.Errorf("evicted = %v, want [b]", evicted)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestFrameCacheGetOrCreate(t *testing.T) {
	c := NewFrame[uint64, []byte](2, nil)
	calls := 0
	create := func() []byte {
		calls++
		return []byte{1, 2, 3}
	}

	for range 3 {
		if got := c.GetOrCreate(7, create); len(got) != 3 {
			t.Fatalf("GetOrCreate returned %v", got)
		}
		c.Sweep()
	}
	if calls != 1 {
		t.Errorf("create called %d times, want 1", calls)
	}

	st := c.Stats()
	if st.Hits != 2 || st.Misses != 1 {
		t.Errorf("Stats hits=%d misses=%d, want 2/1", st.Hits, st.Misses)
	}
	if st.Generation != 3 {
		t.Errorf("Generation = %d, want 3", st.Generation)
	}
}

func TestFrameCacheReplaceAndClear(t *testing.T) {
	var evicted []int
	c := NewFrame[string, int](0, func(_ string, v int) { evicted = append(evicted, v) })

	c.Set("k", 1)
	c.Set("k", 2)
	if len(evicted) != 1 || evicted[0] != 1 {
		t.Fatalf("replace evicted %v, want [1]", evicted)
	}
	if !c.Delete("k") {
		t.Fatal("Delete(k) = false")
	}
	if c.Delete("k") {
		t.Error("second Delete(k) = true")
	}

	c.Set("x", 3)
	c.Set("y", 4)
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d", c.Len())
	}
	if len(evicted) != 4 {
		t.Errorf("evicted %d values, want 4", len(evicted))
	}
}
