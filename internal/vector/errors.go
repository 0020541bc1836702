package vector

import "errors"

var (
	// ErrDimensionMismatch indicates an embedding whose length disagrees with
	// the store's configured dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrMissingEmbedding indicates a chunk without an embedding where one is
	// required.
	ErrMissingEmbedding = errors.New("chunk is missing an embedding")

	// ErrNotFound indicates an update or lookup target that was never added.
	ErrNotFound = errors.New("chunk not found")

	// ErrNotInitialized indicates an operation against a closed or
	// uninitialized store.
	ErrNotInitialized = errors.New("store not initialized")

	// ErrAddFailed wraps unexpected failures while indexing chunks.
	ErrAddFailed = errors.New("failed to add chunks")

	// ErrSearchFailed wraps unexpected failures during a search.
	ErrSearchFailed = errors.New("search failed")
)
