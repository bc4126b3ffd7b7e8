// Package domain contains the core types and error taxonomy of the
// knowledge base: jobs, chunks, collection metadata and query requests.
// It has no dependencies on infrastructure.
package domain
