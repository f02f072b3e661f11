// Package domain defines the core domain types and interfaces.
//
// This package contains concept-oriented files (mood.go, signals.go, store.go, history.go)
// with shared types and cross-cutting interfaces. No engine logic - just contracts and values.
// Prevents circular imports by keeping interfaces on the consumer side.
package domain
