// Package app provides the mood engine and the application service layer.
//
// Engine derives a user's mood from merged signals and keeps it in sync with the shared store.
// Sessions owns one Engine per user; Service orchestrates the use cases the HTTP handlers call.
// Depends on domain interfaces, not concrete implementations.
package app
