// Package context carries request-scoped values (trace id, authenticated
// identity) through the handler chain. There is no process-wide mutable
// request state; everything travels on the context.
package context

type contextKey string
