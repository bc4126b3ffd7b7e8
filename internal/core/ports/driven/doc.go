// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): the upload store, the parser, the embedding
// provider, the vector store and the collection metadata store.
package driven
