// Package sqlite implements the repository interfaces over SQLite through sqlx.
//
// Timestamps are stored as UTC unix milliseconds. Every exported method runs
// in exactly one transaction.
package sqlite
