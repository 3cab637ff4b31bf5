package cron

import "math/bits"

// fieldSet is a set of small non-negative integers (cron field values are
// all <= 59), stored as a bitmask.
type fieldSet uint64

func (s *fieldSet) add(v int) {
	if v >= 0 && v < 64 {
		*s |= 1 << uint(v)
	}
}

// Contains reports whether v is in the set.
func (s fieldSet) Contains(v int) bool {
	if v < 0 || v >= 64 {
		return false
	}
	return s&(1<<uint(v)) != 0
}

// Len returns the number of values in the set.
func (s fieldSet) Len() int { return bits.OnesCount64(uint64(s)) }

// Values returns the members in ascending order. Mostly for tests and
// debug output.
func (s fieldSet) Values() []int {
	out := make([]int, 0, s.Len())
	for v := 0; v < 64; v++ {
		if s.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}
