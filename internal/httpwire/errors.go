package httpwire

import "github.com/pkg/errors"

// ErrIncomplete means the buffer does not yet hold a complete message
// (missing header terminator, or Content-Length body not fully
// buffered). This is not a wire error: the framer stops emitting for
// this flow and the bytes are discarded with the flow at retirement.
var ErrIncomplete = errors.New("httpwire: incomplete message")

// ErrMalformed means the bytes present can never form a valid request or
// response line (e.g. an unparseable start line). Like ErrIncomplete,
// this stops the framer loop without panicking.
var ErrMalformed = errors.New("httpwire: malformed message")

// ErrUnknownEncoding is returned when a response's Content-Encoding names
// anything other than "gzip". Prior transactions already emitted from
// the same flow remain valid.
var ErrUnknownEncoding = errors.New("httpwire: unknown content-encoding")
