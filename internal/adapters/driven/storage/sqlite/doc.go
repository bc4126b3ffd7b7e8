// Package sqlite provides SQLite-backed metadata storage.
//
// A single database file holds all durable metadata; the store runs its
// embedded schema migrations on open.
package sqlite
