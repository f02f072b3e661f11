// Package memory provides in-process implementations of the state store,
// change feed and mood history, for single-instance mode and tests.
package memory
