package generation

import "errors"

var (
	// ErrTimeout means the model did not answer within the configured timeout.
	ErrTimeout = errors.New("generation timed out")

	// ErrUpstream means the model endpoint failed or could not be reached.
	ErrUpstream = errors.New("model endpoint error")

	// ErrEmptyResponse means the model replied without any text.
	ErrEmptyResponse = errors.New("model returned an empty answer")
)
