package cron

import "sync"

// Compiled expressions are memoized by their normalized source string.
// The cache is append-only for the process lifetime; the number of distinct
// schedule strings is small and long-lived in practice.
var (
	cacheMu sync.RWMutex
	cache   = map[string]*Expr{}
)

// Compile parses an expression (or macro) into its compiled form.
//
// Repeated calls with the same normalized expression return the identical
// *Expr, so callers can compile on every evaluation without cost.
func Compile(expr string) (*Expr, error) {
	norm := Normalize(expr)

	cacheMu.RLock()
	e, ok := cache[norm]
	cacheMu.RUnlock()
	if ok {
		return e, nil
	}

	e, err := parse(norm)
	if err != nil {
		return nil, err
	}

	cacheMu.Lock()
	// Another goroutine may have raced us here; keep the first entry so the
	// identity guarantee holds.
	if prev, ok := cache[norm]; ok {
		e = prev
	} else {
		cache[norm] = e
	}
	cacheMu.Unlock()
	return e, nil
}
