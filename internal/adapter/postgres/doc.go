// Package postgres provides the durable mood history backed by PostgreSQL,
// with embedded tern migrations and a pgx query tracer for metrics.
package postgres
