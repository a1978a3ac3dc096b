package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/buger/jsonparser"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	dberrors "github.com/maruel/jsondb/internal/errors"
)

var errInvalidJSON = errors.New("invalid JSON text")

// Parse decodes JSON text into a Value.
//
// Object member order and number literals are preserved. Invalid text yields
// an error with code MALFORMED_VALUE.
func Parse(data []byte) (Value, error) {
	// jsonparser is lenient about trailing data and some malformed input, so
	// the text is validated up front.
	if !json.Valid(data) {
		return Value{}, dberrors.MalformedValue(errInvalidJSON)
	}
	raw, typ, _, err := jsonparser.Get(data)
	if err != nil {
		return Value{}, dberrors.MalformedValue(err)
	}
	v, err := fromRaw(raw, typ)
	if err != nil {
		return Value{}, dberrors.MalformedValue(err)
	}
	return v, nil
}

// MustParse is like Parse but panics on error. Meant for tests and constants.
func MustParse(s string) Value {
	v, err := Parse([]byte(s))
	if err != nil {
		panic(err)
	}
	return v
}

func fromRaw(raw []byte, typ jsonparser.ValueType) (Value, error) {
	switch typ {
	case jsonparser.Null:
		return Null(), nil
	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(raw)
		if err != nil {
			return Value{}, err
		}
		return Bool(b), nil
	case jsonparser.Number:
		return Value{kind: KindNumber, s: string(raw)}, nil
	case jsonparser.String:
		s, err := jsonparser.ParseString(raw)
		if err != nil {
			return Value{}, err
		}
		return String(s), nil
	case jsonparser.Array:
		return arrayFromRaw(raw)
	case jsonparser.Object:
		return objectFromRaw(raw)
	case jsonparser.NotExist, jsonparser.Unknown:
		return Value{}, fmt.Errorf("unexpected token %q", raw)
	default:
		return Value{}, fmt.Errorf("unexpected token %q", raw)
	}
}

func arrayFromRaw(raw []byte) (Value, error) {
	var items []Value
	if isEmptyContainer(raw) {
		return Value{kind: KindArray}, nil
	}
	var firstErr error
	_, err := jsonparser.ArrayEach(raw, func(item []byte, typ jsonparser.ValueType, _ int, err error) {
		if firstErr != nil {
			return
		}
		if err != nil {
			firstErr = err
			return
		}
		v, err := fromRaw(item, typ)
		if err != nil {
			firstErr = err
			return
		}
		items = append(items, v)
	})
	if err == nil {
		err = firstErr
	}
	if err != nil {
		return Value{}, err
	}
	return Value{kind: KindArray, arr: items}, nil
}

func objectFromRaw(raw []byte) (Value, error) {
	m := orderedmap.New[string, Value]()
	if isEmptyContainer(raw) {
		return Value{kind: KindObject, obj: m}, nil
	}
	err := jsonparser.ObjectEach(raw, func(key, item []byte, typ jsonparser.ValueType, _ int) error {
		v, err := fromRaw(item, typ)
		if err != nil {
			return err
		}
		m.Set(string(key), v)
		return nil
	})
	if err != nil {
		return Value{}, err
	}
	return Value{kind: KindObject, obj: m}, nil
}

// isEmptyContainer reports whether raw is "[]" or "{}" with optional inner
// whitespace.
func isEmptyContainer(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) >= 2 && len(bytes.TrimSpace(raw[1:len(raw)-1])) == 0
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	out, err := Parse(data)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return v.AppendJSON(nil), nil
}

// AppendJSON appends the compact JSON text of v to buf.
func (v Value) AppendJSON(buf []byte) []byte {
	switch v.kind {
	case KindNull:
		return append(buf, "null"...)
	case KindBool:
		if v.b {
			return append(buf, "true"...)
		}
		return append(buf, "false"...)
	case KindNumber:
		return append(buf, v.s...)
	case KindString:
		return appendString(buf, v.s)
	case KindArray:
		buf = append(buf, '[')
		for i, item := range v.arr {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = item.AppendJSON(buf)
		}
		return append(buf, ']')
	case KindObject:
		buf = append(buf, '{')
		first := true
		for p := v.obj.Oldest(); p != nil; p = p.Next() {
			if !first {
				buf = append(buf, ',')
			}
			first = false
			buf = appendString(buf, p.Key)
			buf = append(buf, ':')
			buf = p.Value.AppendJSON(buf)
		}
		return append(buf, '}')
	default:
		return append(buf, "null"...)
	}
}

// Indent returns the JSON text of v with each level indented by indent.
func (v Value) Indent(indent string) []byte {
	var out bytes.Buffer
	// AppendJSON always produces valid JSON.
	_ = json.Indent(&out, v.AppendJSON(nil), "", indent)
	return out.Bytes()
}

func appendString(buf []byte, s string) []byte {
	var out bytes.Buffer
	enc := json.NewEncoder(&out)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(s)
	return append(buf, bytes.TrimSuffix(out.Bytes(), []byte{'\n'})...)
}
