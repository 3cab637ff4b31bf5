// Package api exposes the scheduler facade over HTTP. It is translation
// only: validation, guard checks, and persistence all happen in the facade.
package api
