// Package redis implements the shared state store, change feed and mood
// history on Redis. State changes are announced on a per-user Pub/Sub
// channel so every instance holding the user's session can adopt them.
package redis
