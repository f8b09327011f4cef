package types

import "fmt"

// NotConnectedError reports a send attempted while the mesh transport has no
// live connection.
type NotConnectedError struct{}

func (e *NotConnectedError) Error() string {
	return "mesh transport not connected"
}

// InvalidRequestError reports an outbound send request rejected at the
// boundary, before anything reaches the transport.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid send request: %s", e.Reason)
}

// SendError wraps a transport-level failure of a single send.
type SendError struct {
	Cause error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("mesh send failed: %s", e.Cause.Error())
}

func (e *SendError) Unwrap() error {
	return e.Cause
}
