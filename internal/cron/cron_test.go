package cron

import (
	"reflect"
	"strings"
	"testing"
	"time"

	rcron "github.com/robfig/cron/v3"
)

func mustCompile(t *testing.T, expr string) *Expr {
	t.Helper()
	e, err := Compile(expr)
	if err != nil {
		t.Fatalf("Compile(%q) error: %v", expr, err)
	}
	return e
}

func TestCompileFields(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		expr string
		want func(t *testing.T, e *Expr)
	}{
		{
			name: "minute steps",
			expr: "*/15 * * * *",
			want: func(t *testing.T, e *Expr) {
				if got := e.Minutes.Values(); !reflect.DeepEqual(got, []int{0, 15, 30, 45}) {
					t.Fatalf("Minutes = %v", got)
				}
				if !e.DomWildcard || !e.DowWildcard {
					t.Fatalf("day fields should be wildcards")
				}
			},
		},
		{
			name: "weekday range",
			expr: "0 9 * * 1-5",
			want: func(t *testing.T, e *Expr) {
				if got := e.Weekdays.Values(); !reflect.DeepEqual(got, []int{1, 2, 3, 4, 5}) {
					t.Fatalf("Weekdays = %v", got)
				}
				if !e.DomWildcard {
					t.Fatal("DomWildcard should be true")
				}
				if e.DowWildcard {
					t.Fatal("DowWildcard should be false")
				}
			},
		},
		{
			name: "stepped range",
			expr: "5-25/10 * * * *",
			want: func(t *testing.T, e *Expr) {
				if got := e.Minutes.Values(); !reflect.DeepEqual(got, []int{5, 15, 25}) {
					t.Fatalf("Minutes = %v", got)
				}
			},
		},
		{
			name: "single with step runs to field max",
			expr: "5/10 * * * *",
			want: func(t *testing.T, e *Expr) {
				if got := e.Minutes.Values(); !reflect.DeepEqual(got, []int{5, 15, 25, 35, 45, 55}) {
					t.Fatalf("Minutes = %v", got)
				}
			},
		},
		{
			name: "month and weekday names",
			expr: "0 0 * jan,jul sat,sun",
			want: func(t *testing.T, e *Expr) {
				if got := e.Months.Values(); !reflect.DeepEqual(got, []int{1, 7}) {
					t.Fatalf("Months = %v", got)
				}
				if got := e.Weekdays.Values(); !reflect.DeepEqual(got, []int{0, 6}) {
					t.Fatalf("Weekdays = %v", got)
				}
			},
		},
		{
			name: "sunday as seven folds to zero",
			expr: "0 0 * * 7",
			want: func(t *testing.T, e *Expr) {
				if got := e.Weekdays.Values(); !reflect.DeepEqual(got, []int{0}) {
					t.Fatalf("Weekdays = %v", got)
				}
			},
		},
		{
			name: "explicit full range counts as wildcard",
			expr: "* * 1-31 * 0-7",
			want: func(t *testing.T, e *Expr) {
				if !e.DomWildcard {
					t.Fatal("DomWildcard should be true for 1-31")
				}
				if !e.DowWildcard {
					t.Fatal("DowWildcard should be true for 0-7")
				}
			},
		},
		{
			name: "comma list",
			expr: "0 0 1,15 * *",
			want: func(t *testing.T, e *Expr) {
				if got := e.Days.Values(); !reflect.DeepEqual(got, []int{1, 15}) {
					t.Fatalf("Days = %v", got)
				}
				if e.DomWildcard {
					t.Fatal("DomWildcard should be false")
				}
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.want(t, mustCompile(t, tt.expr))
		})
	}
}

func TestCompileMacros(t *testing.T) {
	t.Parallel()
	pairs := []struct {
		macro string
		expr  string
	}{
		{"@yearly", "0 0 1 1 *"},
		{"@annually", "0 0 1 1 *"},
		{"@monthly", "0 0 1 * *"},
		{"@weekly", "0 0 * * 0"},
		{"@daily", "0 0 * * *"},
		{"@midnight", "0 0 * * *"},
		{"@hourly", "0 * * * *"},
	}
	for _, p := range pairs {
		m := mustCompile(t, p.macro)
		e := mustCompile(t, p.expr)
		if m.Minutes != e.Minutes || m.Hours != e.Hours || m.Days != e.Days ||
			m.Months != e.Months || m.Weekdays != e.Weekdays {
			t.Fatalf("%s does not expand to %q", p.macro, p.expr)
		}
	}
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		expr   string
		reason string
	}{
		{"empty", "", "empty expression"},
		{"too few fields", "* * * *", "expected 5 fields"},
		{"too many fields", "* * * * * *", "expected 5 fields"},
		{"minute out of range", "60 * * * *", "out of range"},
		{"day zero", "0 0 0 * *", "out of range"},
		{"weekday eight", "0 0 * * 8", "out of range"},
		{"inverted range", "30-10 * * * *", "inverted range"},
		{"zero step", "*/0 * * * *", "step must be positive"},
		{"negative step", "*/-5 * * * *", "step must be positive"},
		{"unknown macro", "@fortnightly", "unknown macro"},
		{"garbage value", "x * * * *", "invalid value"},
		{"empty segment", "1,,2 * * * *", "empty segment"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Compile(tt.expr)
			if err == nil {
				t.Fatalf("Compile(%q) should fail", tt.expr)
			}
			if !strings.Contains(err.Error(), tt.reason) {
				t.Fatalf("error %q does not mention %q", err, tt.reason)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()
	if got := Normalize("  0  9 * *   MON-FRI "); got != "0 9 * * mon-fri" {
		t.Fatalf("Normalize = %q", got)
	}
}

func TestMatchesDayOrRule(t *testing.T) {
	t.Parallel()
	// Both day fields restricted: due on the 1st OR on Mondays.
	e := mustCompile(t, "0 0 1 * 1")

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"first of month on a tuesday", time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"monday mid-month", time.Date(2029, 1, 15, 0, 0, 0, 0, time.UTC), true},
		{"tuesday mid-month", time.Date(2030, 1, 15, 0, 0, 0, 0, time.UTC), false},
		{"matching day, wrong minute", time.Date(2030, 1, 1, 0, 1, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		if got := e.Matches(tt.at); got != tt.want {
			t.Fatalf("%s: Matches(%v) = %v, want %v", tt.name, tt.at, got, tt.want)
		}
	}

	// Only day-of-week restricted: the 15th alone does not fire.
	weekly := mustCompile(t, "0 0 * * 1")
	if weekly.Matches(time.Date(2030, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("tuesday should not match a mondays-only schedule")
	}
	if !weekly.Matches(time.Date(2029, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("monday should match a mondays-only schedule")
	}
}

// TestMatchesAgainstReference sweeps a time window minute by minute and
// compares instant matching against the robfig/cron schedule for the same
// expression. Expressions avoid steps in the day fields, where the libraries
// intentionally differ on the day-of-month/day-of-week combination rule.
func TestMatchesAgainstReference(t *testing.T) {
	t.Parallel()
	parser := rcron.NewParser(rcron.Minute | rcron.Hour | rcron.Dom | rcron.Month | rcron.Dow)

	exprs := []string{
		"*/15 9-17 * * 1-5",
		"0 0 1,15 * *",
		"30 6 * * 0",
		"5 4 * 1 *",
	}

	start := time.Date(2030, 1, 13, 0, 0, 0, 0, time.UTC) // a Sunday
	const window = 48 * time.Hour

	for _, raw := range exprs {
		e := mustCompile(t, raw)
		ref, err := parser.Parse(raw)
		if err != nil {
			t.Fatalf("reference parse(%q): %v", raw, err)
		}
		for at := start; at.Before(start.Add(window)); at = at.Add(time.Minute) {
			want := ref.Next(at.Add(-time.Second)).Equal(at)
			if got := e.Matches(at); got != want {
				t.Fatalf("%q at %v: Matches = %v, reference = %v", raw, at, got, want)
			}
		}
	}
}
