package assistant

import "errors"

var (
	// ErrEmptyQuestion is returned for blank questions, before any network call.
	ErrEmptyQuestion = errors.New("question is empty")

	// ErrEmbeddingMismatch means the index was built with a different embedding
	// model than the one used for queries.
	ErrEmbeddingMismatch = errors.New("query embedder does not match index")
)
