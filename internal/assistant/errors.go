package assistant

import "errors"

// ErrEmptyQuestion is returned when the question is empty or whitespace-only.
// It is raised before any outbound call and maps to a client error at the
// HTTP boundary; every other failure is an upstream server error.
var ErrEmptyQuestion = errors.New("question is empty")
