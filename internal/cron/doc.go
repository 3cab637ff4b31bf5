// Package cron compiles 5-field cron expressions into integer-set matchers.
//
// Supported syntax per field: "*", single values, ranges ("a-b"), steps
// ("*/n", "a-b/n", "a/n"), comma lists, 3-letter month and weekday names,
// and the usual @-macros (@hourly, @daily, @weekly, @monthly, @yearly).
// Day-of-week accepts 7 as an alias for Sunday.
//
// Matching applies the classic cron day rule: day-of-month and day-of-week
// are OR-ed when both are restricted.
package cron
