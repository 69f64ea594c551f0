package identity

import (
	"sync"
	"testing"
)

func TestRotator(t *testing.T) {
	r := NewRotator([]string{"ua1", " ", "ua2", "ua3"})

	if r.Len() != 3 {
		t.Fatalf("Expected blank values to be dropped, got %d", r.Len())
	}

	// Test rotation
	for i, want := range []string{"ua1", "ua2", "ua3", "ua1", "ua2"} {
		if got := r.Next(); got != want {
			t.Errorf("call %d: expected %s, got %s", i, want, got)
		}
	}
}

func TestRotator_Empty(t *testing.T) {
	var nilRotator *Rotator
	if got := nilRotator.Next(); got != "" {
		t.Errorf("Expected empty value from nil rotator, got %q", got)
	}
	if got := NewRotator(nil).Next(); got != "" {
		t.Errorf("Expected empty value from empty rotator, got %q", got)
	}
}

func TestRotator_ConcurrentEvenSpread(t *testing.T) {
	r := NewRotator([]string{"a", "b"})

	var mu sync.Mutex
	counts := map[string]int{}
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v := r.Next()
			mu.Lock()
			counts[v]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if counts["a"] != 50 || counts["b"] != 50 {
		t.Errorf("Expected an even spread, got %v", counts)
	}
}
