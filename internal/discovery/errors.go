package discovery

import "errors"

var (
	// ErrInvalidArgument signals a blank query or out-of-range paging parameter.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrParse signals that a query is not valid DSL.
	ErrParse = errors.New("query parse error")
	// ErrExecution signals that a search engine failed while running a query.
	ErrExecution = errors.New("query execution error")
	// ErrPreconditionViolation signals an envelope built without its required fields.
	ErrPreconditionViolation = errors.New("precondition violation")
)

// Class is the caller-facing classification of a failure.
type Class int

const (
	// ClassServer is a failure the caller cannot fix by changing the request.
	ClassServer Class = iota
	// ClassClient is a failure caused by the request itself.
	ClassClient
)

func (c Class) String() string {
	if c == ClassClient {
		return "client"
	}
	return "server"
}

// Classify returns ClassClient for invalid arguments and ClassServer for everything else.
func Classify(err error) Class {
	if errors.Is(err, ErrInvalidArgument) {
		return ClassClient
	}
	return ClassServer
}
