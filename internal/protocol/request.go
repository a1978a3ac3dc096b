package protocol

import (
	"fmt"

	"github.com/maruel/jsondb/internal/docpath"
	dberrors "github.com/maruel/jsondb/internal/errors"
	"github.com/maruel/jsondb/internal/value"
)

// Op is a request operation.
type Op string

// Operations.
const (
	OpGet    Op = "get"
	OpSet    Op = "set"
	OpDelete Op = "delete"
	OpExit   Op = "exit"
)

// Ops lists every operation in wire order.
var Ops = []Op{OpGet, OpSet, OpDelete, OpExit}

// Valid reports whether o is a known operation.
func (o Op) Valid() bool {
	switch o {
	case OpGet, OpSet, OpDelete, OpExit:
		return true
	default:
		return false
	}
}

// Request is a decoded client request.
//
// Path is zero for exit. Value is only meaningful for set.
type Request struct {
	Op    Op
	Path  docpath.Path
	Value value.Value
}

// NewRequest validates and builds a Request.
func NewRequest(op Op, p docpath.Path, v value.Value) (Request, error) {
	if !op.Valid() {
		return Request{}, dberrors.MalformedRequest(fmt.Sprintf("unknown operation %q", op))
	}
	if op == OpExit {
		return Request{Op: op}, nil
	}
	if p.IsZero() {
		return Request{}, dberrors.MalformedRequest("missing key")
	}
	if op != OpSet {
		v = value.Value{}
	}
	return Request{Op: op, Path: p, Value: v}, nil
}

// DecodeRequest parses a request payload.
//
// Invalid JSON yields a MALFORMED_VALUE error; a well-formed document that
// is not a valid request yields MALFORMED_REQUEST. Unknown members are
// ignored.
func DecodeRequest(payload []byte) (Request, error) {
	doc, err := value.Parse(payload)
	if err != nil {
		return Request{}, err
	}
	if !doc.IsObject() {
		return Request{}, dberrors.MalformedRequest("request is not an object")
	}
	t, ok := doc.Lookup("type")
	if !ok {
		return Request{}, dberrors.MalformedRequest("missing type")
	}
	s, ok := t.AsString()
	if !ok {
		return Request{}, dberrors.MalformedRequest("type is not a string")
	}
	op := Op(s)
	if !op.Valid() {
		return Request{}, dberrors.MalformedRequest(fmt.Sprintf("unknown operation %q", s))
	}
	if op == OpExit {
		return Request{Op: op}, nil
	}
	k, ok := doc.Lookup("key")
	if !ok {
		return Request{}, dberrors.MalformedRequest("missing key")
	}
	p, err := docpath.FromValue(k)
	if err != nil {
		return Request{}, dberrors.MalformedRequest(err.Error())
	}
	var v value.Value
	if op == OpSet {
		if v, ok = doc.Lookup("value"); !ok {
			return Request{}, dberrors.MalformedRequest("missing value")
		}
	}
	return Request{Op: op, Path: p, Value: v}, nil
}

// Encode returns the JSON payload for r.
func (r Request) Encode() []byte {
	m := []value.Member{{Key: "type", Value: value.String(string(r.Op))}}
	if r.Op != OpExit {
		m = append(m, value.Member{Key: "key", Value: r.Path.Value()})
	}
	if r.Op == OpSet {
		m = append(m, value.Member{Key: "value", Value: r.Value})
	}
	return value.Object(m...).AppendJSON(nil)
}

func (r Request) String() string {
	return string(r.Encode())
}
