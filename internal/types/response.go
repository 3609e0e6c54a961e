package types

import "time"

// ErrorBody is the error half of the response envelope.
type ErrorBody struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
}

// Response is the uniform envelope returned for every utterance.
type Response struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorBody `json:"error,omitempty"`
	Timestamp string     `json:"timestamp"`
}

// Payload is the success data shape produced by the dispatcher.
type Payload struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Data    any    `json:"data,omitempty"`
}

var now = time.Now

func stamp() string {
	return now().UTC().Format(time.RFC3339)
}

// OK wraps data in a success envelope.
func OK(data any) Response {
	return Response{Success: true, Data: data, Timestamp: stamp()}
}

// Fail converts any error into a failure envelope.
func Fail(err error) Response {
	body := &ErrorBody{Code: CodeAPIError, Message: DefaultMessage(CodeAPIError)}
	if te, ok := As(err); ok {
		body.Code = te.Code
		body.Message = te.Message
		body.Details = te.Details
	} else if err != nil {
		body.Message = err.Error()
	}
	return Response{Success: false, Error: body, Timestamp: stamp()}
}

// Message returns the human-readable text of the envelope.
func (r Response) Message() string {
	if !r.Success {
		if r.Error == nil {
			return ""
		}
		return r.Error.Message
	}
	switch d := r.Data.(type) {
	case Payload:
		return d.Message
	case *Payload:
		return d.Message
	case string:
		return d
	}
	return ""
}
