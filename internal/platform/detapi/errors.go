package detapi

import "fmt"

// SubmissionErrorKind distinguishes the two ways the service can reject a
// well-delivered submission.
type SubmissionErrorKind int

const (
	// SubmissionRejected means the service answered with an explicit
	// error payload.
	SubmissionRejected SubmissionErrorKind = iota

	// SubmissionMalformedResponse means the service answered without the
	// expected request identifier field.
	SubmissionMalformedResponse
)

// TransportError is a network or HTTP-layer failure reaching the service.
// It is retryable at the caller's discretion and never corrupts task state.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// SubmissionError means the service was reachable but the submission was
// not accepted. Not automatically retried; Message carries the server's
// explanation when one was provided.
type SubmissionError struct {
	Kind    SubmissionErrorKind
	Message string
}

func (e *SubmissionError) Error() string {
	if e.Kind == SubmissionMalformedResponse {
		return fmt.Sprintf("submission response missing request identifier: %s", e.Message)
	}
	return fmt.Sprintf("submission rejected: %s", e.Message)
}

// DecodeError means a response arrived but did not match the expected
// shape (unknown status value, wrong field types). It is a transport-
// category failure: the remote payload is the problem, not the request.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: unexpected response shape: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
