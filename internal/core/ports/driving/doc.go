// Package driving provides interfaces consumed by user-facing adapters
// (primary/inbound ports): job submission and polling, ingestion, querying,
// collection management and store reconciliation.
package driving
