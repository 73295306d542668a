package realtime

import (
	"fmt"

	"github.com/voxline/realtime-go/events"
)

// ConnectionError reports a transport-level failure: the socket could not
// be opened, or it closed while the session was live.
type ConnectionError struct {
	Op  string // "dial", "send", "close", "read"
	Err error
}

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("realtime: connection %s failed", e.Op)
	}
	return fmt.Sprintf("realtime: connection %s failed: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ProtocolError reports an inbound frame that could not be decoded into a
// known server event. It is scoped to the offending frame and never fatal
// to the session.
type ProtocolError struct {
	Frame []byte
	Err   error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("realtime: bad frame: %v", e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// ServerError reports an error the server told us about: either an inbound
// error event, or a response that finished with a non-completed terminal
// status. Status is empty for plain error events.
type ServerError struct {
	Status string
	Detail events.ErrorDetail
}

func (e *ServerError) Error() string {
	if e.Status != "" && e.Detail.Message == "" {
		return fmt.Sprintf("realtime: response %s", e.Status)
	}
	if e.Status != "" {
		return fmt.Sprintf("realtime: response %s: %s", e.Status, e.Detail.Error())
	}
	return "realtime: " + e.Detail.Error()
}

func serverError(detail events.ErrorDetail) *ServerError {
	return &ServerError{Detail: detail}
}

func responseError(resp events.Response) *ServerError {
	e := &ServerError{Status: resp.Status}
	if resp.StatusDetails != nil && resp.StatusDetails.Error != nil {
		e.Detail = *resp.StatusDetails.Error
	} else if resp.StatusDetails != nil {
		e.Detail.Message = resp.StatusDetails.Reason
	}
	return e
}
