package generation

import (
	"errors"
	"fmt"
)

// GenericFailureMessage is used when the service reports a failure without
// saying why.
const GenericFailureMessage = "Generation failed"

// NetworkError wraps a generate call that never produced a response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ApplicationError is a settled call whose status is not succeeded.
type ApplicationError struct {
	Status  Status
	Message string
}

func (e *ApplicationError) Error() string {
	return e.Message
}

// Outcome is the tagged result of one generate call.
type Outcome struct {
	Succeeded bool
	Response  *Response
	// Reason is set when Succeeded is false.
	Reason error
}

// Message returns the user-visible failure text.
func (o Outcome) Message() string {
	if o.Succeeded || o.Reason == nil {
		return ""
	}
	return o.Reason.Error()
}

// Classify reduces a generate call result to an Outcome. A nil response
// without an error is treated as an application failure.
func Classify(resp *Response, err error) Outcome {
	if err != nil {
		var netErr *NetworkError
		if !errors.As(err, &netErr) {
			err = &NetworkError{Err: err}
		}
		return Outcome{Reason: err}
	}
	if resp == nil {
		return Outcome{Reason: &ApplicationError{Message: GenericFailureMessage}}
	}
	if resp.Status == StatusSucceeded {
		return Outcome{Succeeded: true, Response: resp}
	}
	msg := resp.Error
	if msg == "" {
		msg = GenericFailureMessage
	}
	return Outcome{Response: resp, Reason: &ApplicationError{Status: resp.Status, Message: msg}}
}
