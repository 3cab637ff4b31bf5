package cron

import (
	"sync"
	"testing"
)

func TestCompileReturnsIdenticalPointer(t *testing.T) {
	t.Parallel()
	a := mustCompile(t, "*/5 * * * *")
	b := mustCompile(t, "*/5 * * * *")
	if a != b {
		t.Fatal("repeated compile should return the identical expression")
	}

	// Normalization folds whitespace and case into the same cache entry.
	c := mustCompile(t, "  */5  *  * * *")
	if a != c {
		t.Fatal("whitespace variants should share one compiled expression")
	}
	d := mustCompile(t, "0 0 * * MON")
	e := mustCompile(t, "0 0 * * mon")
	if d != e {
		t.Fatal("case variants should share one compiled expression")
	}
}

func TestCompileConcurrent(t *testing.T) {
	t.Parallel()
	const goroutines = 16
	results := make([]*Expr, goroutines)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, err := Compile("7 7 * * 7")
			if err != nil {
				t.Errorf("Compile: %v", err)
				return
			}
			results[i] = e
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		if results[i] != results[0] {
			t.Fatal("concurrent compiles should converge on one expression")
		}
	}
}
