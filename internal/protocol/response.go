package protocol

import (
	"fmt"

	dberrors "github.com/maruel/jsondb/internal/errors"
	"github.com/maruel/jsondb/internal/value"
)

// Status is the outcome carried in the "response" member.
type Status string

// Statuses.
const (
	StatusOK    Status = "OK"
	StatusError Status = "ERROR"
)

// Response is a server reply.
type Response struct {
	Status   Status
	Value    value.Value // set when HasValue
	HasValue bool
	Reason   string // set when Status is StatusError
	// Exit marks the acknowledgment of an exit request, encoded as
	// {"key":"OK"} for compatibility with existing clients.
	Exit bool
}

// OK is a success without a value.
func OK() Response {
	return Response{Status: StatusOK}
}

// OKValue is a success carrying v.
func OKValue(v value.Value) Response {
	return Response{Status: StatusOK, Value: v, HasValue: true}
}

// Error is a failure with the given reason.
func Error(reason string) Response {
	return Response{Status: StatusError, Reason: reason}
}

// ExitAck acknowledges an exit request.
func ExitAck() Response {
	return Response{Status: StatusOK, Exit: true}
}

// FromError converts err into an ERROR response using its error code's
// reason.
func FromError(err error) Response {
	return Error(dberrors.CodeOf(err).Reason())
}

// Encode returns the JSON payload for r.
func (r Response) Encode() []byte {
	if r.Exit {
		return value.Object(value.Member{Key: "key", Value: value.String(string(StatusOK))}).AppendJSON(nil)
	}
	m := []value.Member{{Key: "response", Value: value.String(string(r.Status))}}
	switch {
	case r.Status == StatusError:
		m = append(m, value.Member{Key: "reason", Value: value.String(r.Reason)})
	case r.HasValue:
		m = append(m, value.Member{Key: "value", Value: r.Value})
	}
	return value.Object(m...).AppendJSON(nil)
}

func (r Response) String() string {
	return string(r.Encode())
}

// DecodeResponse parses a response payload.
func DecodeResponse(payload []byte) (Response, error) {
	doc, err := value.Parse(payload)
	if err != nil {
		return Response{}, err
	}
	if !doc.IsObject() {
		return Response{}, fmt.Errorf("response is not an object: %s", doc)
	}
	st, ok := doc.Lookup("response")
	if !ok {
		if k, ok := doc.Lookup("key"); ok {
			if s, _ := k.AsString(); s == string(StatusOK) {
				return ExitAck(), nil
			}
		}
		return Response{}, fmt.Errorf("response without status: %s", doc)
	}
	s, _ := st.AsString()
	switch Status(s) {
	case StatusOK:
		if v, ok := doc.Lookup("value"); ok {
			return OKValue(v), nil
		}
		return OK(), nil
	case StatusError:
		reason, _ := doc.Lookup("reason")
		rs, _ := reason.AsString()
		return Error(rs), nil
	default:
		return Response{}, fmt.Errorf("unknown response status %q", s)
	}
}
