package cron

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Expr is a compiled 5-field cron expression.
//
// Each field is resolved to an integer set. The two day fields additionally
// record whether they were effectively "*", because the classic cron day rule
// changes shape depending on which of them is restricted (see Matches).
type Expr struct {
	// Source is the normalized expression this was compiled from.
	Source string

	Minutes  fieldSet // 0-59
	Hours    fieldSet // 0-23
	Days     fieldSet // 1-31 (day of month)
	Months   fieldSet // 1-12
	Weekdays fieldSet // 0-6, Sunday = 0

	// DomWildcard/DowWildcard are true iff the field covers its full range,
	// whether written as "*" or as a degenerate equivalent like "0-59".
	DomWildcard bool
	DowWildcard bool
}

// ParseError describes why an expression could not be compiled.
// Field and Segment pin the failure to the offending part of the expression.
type ParseError struct {
	Expr    string
	Field   string
	Segment string
	Reason  string
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("invalid cron expression ")
	b.WriteString(strconv.Quote(e.Expr))
	if e.Field != "" {
		b.WriteString(": " + e.Field + " field")
	}
	if e.Segment != "" {
		b.WriteString(" " + strconv.Quote(e.Segment))
	}
	if e.Reason != "" {
		b.WriteString(": " + e.Reason)
	}
	return b.String()
}

// macros expand to canonical 5-field expressions before parsing.
var macros = map[string]string{
	"@yearly":   "0 0 1 1 *",
	"@annually": "0 0 1 1 *",
	"@monthly":  "0 0 1 * *",
	"@weekly":   "0 0 * * 0",
	"@daily":    "0 0 * * *",
	"@midnight": "0 0 * * *",
	"@hourly":   "0 * * * *",
}

type fieldDef struct {
	name string
	min  int
	max  int
	// names maps 3-letter aliases (lowercase) to numeric values.
	names map[string]int
	// foldMax folds values above it back into range (dow: 7 -> 0).
	foldMax int
}

var fieldDefs = [5]fieldDef{
	{name: "minute", min: 0, max: 59},
	{name: "hour", min: 0, max: 23},
	{name: "day-of-month", min: 1, max: 31},
	{name: "month", min: 1, max: 12, names: monthNames},
	{name: "day-of-week", min: 0, max: 7, foldMax: 6, names: weekdayNames},
}

var monthNames = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

var weekdayNames = map[string]int{
	"sun": 0, "mon": 1, "tue": 2, "wed": 3, "thu": 4, "fri": 5, "sat": 6,
}

// Normalize canonicalizes an expression: trims, lowercases, and collapses
// internal whitespace. Macro names stay as-is (they are expanded in parse).
func Normalize(expr string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(expr))), " ")
}

// parse compiles a normalized expression without touching the cache.
func parse(norm string) (*Expr, error) {
	if norm == "" {
		return nil, &ParseError{Expr: norm, Reason: "empty expression"}
	}

	expanded := norm
	if strings.HasPrefix(norm, "@") {
		m, ok := macros[norm]
		if !ok {
			return nil, &ParseError{Expr: norm, Reason: "unknown macro"}
		}
		expanded = m
	}

	parts := strings.Fields(expanded)
	if len(parts) != 5 {
		return nil, &ParseError{Expr: norm, Reason: fmt.Sprintf("expected 5 fields, got %d", len(parts))}
	}

	var sets [5]fieldSet
	for i, def := range fieldDefs {
		set, err := parseField(norm, def, parts[i])
		if err != nil {
			return nil, err
		}
		sets[i] = set
	}

	e := &Expr{
		Source:   norm,
		Minutes:  sets[0],
		Hours:    sets[1],
		Days:     sets[2],
		Months:   sets[3],
		Weekdays: sets[4],
	}
	e.DomWildcard = e.Days.Len() == fieldDefs[2].max-fieldDefs[2].min+1
	e.DowWildcard = e.Weekdays.Len() == 7
	return e, nil
}

// segment is the typed intermediate representation of one comma-separated
// part of a field: a wildcard, a single value, or a range, each with an
// optional step.
type segment struct {
	wildcard bool
	lo, hi   int
	hasHi    bool
	step     int // 0 means no step given
}

func parseField(expr string, def fieldDef, raw string) (fieldSet, error) {
	var set fieldSet
	for _, part := range strings.Split(raw, ",") {
		seg, err := parseSegment(def, part)
		if err != nil {
			return set, &ParseError{Expr: expr, Field: def.name, Segment: part, Reason: err.Error()}
		}
		resolveSegment(def, seg, &set)
	}
	if set.Len() == 0 {
		return set, &ParseError{Expr: expr, Field: def.name, Segment: raw, Reason: "resolves to an empty set"}
	}
	return set, nil
}

func parseSegment(def fieldDef, part string) (segment, error) {
	if part == "" {
		return segment{}, fmt.Errorf("empty segment")
	}

	var seg segment

	base := part
	if slash := strings.IndexByte(part, '/'); slash >= 0 {
		base = part[:slash]
		rawStep := part[slash+1:]
		step, err := strconv.Atoi(rawStep)
		if err != nil {
			return segment{}, fmt.Errorf("invalid step %q", rawStep)
		}
		if step <= 0 {
			return segment{}, fmt.Errorf("step must be positive, got %d", step)
		}
		seg.step = step
	}

	switch {
	case base == "*":
		seg.wildcard = true
	case strings.Contains(base, "-"):
		bounds := strings.SplitN(base, "-", 2)
		lo, err := parseValue(def, bounds[0])
		if err != nil {
			return segment{}, err
		}
		hi, err := parseValue(def, bounds[1])
		if err != nil {
			return segment{}, err
		}
		if lo > hi {
			return segment{}, fmt.Errorf("inverted range %d-%d", lo, hi)
		}
		seg.lo, seg.hi, seg.hasHi = lo, hi, true
	default:
		v, err := parseValue(def, base)
		if err != nil {
			return segment{}, err
		}
		seg.lo = v
	}
	return seg, nil
}

// parseValue resolves one atom: a number or a 3-letter name.
func parseValue(def fieldDef, raw string) (int, error) {
	if raw == "" {
		return 0, fmt.Errorf("missing value")
	}
	if def.names != nil {
		if v, ok := def.names[raw]; ok {
			return v, nil
		}
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q", raw)
	}
	if v < def.min || v > def.max {
		return 0, fmt.Errorf("value %d out of range [%d, %d]", v, def.min, def.max)
	}
	return v, nil
}

func resolveSegment(def fieldDef, seg segment, set *fieldSet) {
	lo, hi := seg.lo, seg.hi
	switch {
	case seg.wildcard:
		lo, hi = def.min, def.max
	case !seg.hasHi:
		if seg.step > 0 {
			// "N/step" means N through the field max.
			hi = def.max
		} else {
			hi = lo
		}
	}
	step := seg.step
	if step == 0 {
		step = 1
	}
	for v := lo; v <= hi; v += step {
		if def.foldMax > 0 && v > def.foldMax {
			set.add(v - def.foldMax - 1)
			continue
		}
		set.add(v)
	}
}

// Matches reports whether the instant is due under this expression.
//
// Minute, hour and month are conjunctive. The day condition follows the
// classic cron rule: when both day fields are restricted, a day is due if
// EITHER the day-of-month or the day-of-week matches.
func (e *Expr) Matches(t time.Time) bool {
	if !e.Minutes.Contains(t.Minute()) {
		return false
	}
	if !e.Hours.Contains(t.Hour()) {
		return false
	}
	if !e.Months.Contains(int(t.Month())) {
		return false
	}
	return e.dayMatches(t)
}

func (e *Expr) dayMatches(t time.Time) bool {
	domOK := e.Days.Contains(t.Day())
	dowOK := e.Weekdays.Contains(int(t.Weekday()))
	switch {
	case e.DomWildcard && e.DowWildcard:
		return true
	case e.DomWildcard:
		return dowOK
	case e.DowWildcard:
		return domOK
	default:
		return domOK || dowOK
	}
}
