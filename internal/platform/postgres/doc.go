// Package postgres provides PostgreSQL implementations of the store
// interfaces. Capsule create and delete operations fan out the record and
// its per-account index rows inside a single transaction, so every
// denormalized pointer lands or vanishes together with the record.
package postgres
