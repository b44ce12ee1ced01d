package downstream

import "errors"

var (
	// ErrUnexpectedStatus is returned for a non-2xx HTTP response.
	ErrUnexpectedStatus = errors.New("downstream: unexpected status")

	// ErrMalformedResponse is returned when the body is not the expected JSON.
	ErrMalformedResponse = errors.New("downstream: malformed response")
)
