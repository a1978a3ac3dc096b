// Package value implements the JSON-like values stored in the document.
//
// A Value is an immutable tagged union. Objects keep their members in
// insertion order for serialization; lookups and equality ignore order. The
// zero Value is Null.
package value

import (
	"encoding/json"
	"fmt"
	"iter"
	"math"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	// KindNull is the JSON null.
	KindNull Kind = iota
	// KindBool is true or false.
	KindBool
	// KindNumber is a numeric literal, kept verbatim.
	KindNumber
	// KindString is a UTF-8 string.
	KindString
	// KindArray is an ordered sequence of values.
	KindArray
	// KindObject is a mapping from string keys to values.
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is an immutable JSON-like value.
type Value struct {
	kind Kind
	b    bool
	s    string // string content or number literal
	arr  []Value
	obj  *orderedmap.OrderedMap[string, Value]
}

// Member is a key/value pair used to build an Object.
type Member struct {
	Key   string
	Value Value
}

// Null returns the null value.
func Null() Value {
	return Value{}
}

// Bool returns a boolean value.
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// Number returns a number holding the literal verbatim.
//
// The literal must follow the JSON number grammar.
func Number(literal string) (Value, error) {
	if !isNumberLiteral(literal) {
		return Value{}, fmt.Errorf("invalid number literal %q", literal)
	}
	return Value{kind: KindNumber, s: literal}, nil
}

// Int returns a number holding i.
func Int(i int64) Value {
	return Value{kind: KindNumber, s: strconv.FormatInt(i, 10)}
}

// Float returns a number holding f. NaN and infinities have no JSON
// representation and become null.
func Float(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null()
	}
	return Value{kind: KindNumber, s: strconv.FormatFloat(f, 'g', -1, 64)}
}

// String returns a string value.
func String(s string) Value {
	return Value{kind: KindString, s: s}
}

// Array returns an array holding a copy of items.
func Array(items ...Value) Value {
	return Value{kind: KindArray, arr: append([]Value(nil), items...)}
}

// Object returns an object with the given members in order. A repeated key
// keeps its first position and its last value.
func Object(members ...Member) Value {
	m := orderedmap.New[string, Value]()
	for _, mb := range members {
		m.Set(mb.Key, mb.Value)
	}
	return Value{kind: KindObject, obj: m}
}

// EmptyObject returns an object without members.
func EmptyObject() Value {
	return Object()
}

// Kind returns the variant of v.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether v is null.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// IsObject reports whether v is an object.
func (v Value) IsObject() bool {
	return v.kind == KindObject
}

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsNumber returns the number literal held by v.
func (v Value) AsNumber() (string, bool) {
	return v.s, v.kind == KindNumber
}

// Float64 returns the number held by v as a float64.
func (v Value) Float64() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.s, 64)
	return f, err == nil
}

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindString
}

// Len returns the number of items of an array or members of an object, 0
// otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return v.obj.Len()
	case KindNull, KindBool, KindNumber, KindString:
		return 0
	default:
		return 0
	}
}

// Items iterates over the items of an array.
func (v Value) Items() iter.Seq2[int, Value] {
	return func(yield func(int, Value) bool) {
		if v.kind != KindArray {
			return
		}
		for i, item := range v.arr {
			if !yield(i, item) {
				return
			}
		}
	}
}

// Lookup returns the member named key. It returns false when v is not an
// object or has no such member.
func (v Value) Lookup(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	return v.obj.Get(key)
}

// Members iterates over the members of an object in insertion order.
func (v Value) Members() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if v.kind != KindObject {
			return
		}
		for p := v.obj.Oldest(); p != nil; p = p.Next() {
			if !yield(p.Key, p.Value) {
				return
			}
		}
	}
}

// Keys returns the member names of an object in insertion order.
func (v Value) Keys() []string {
	keys := make([]string, 0, v.Len())
	for k := range v.Members() {
		keys = append(keys, k)
	}
	return keys
}

// With returns a copy of the object v with key bound to child. An existing
// member keeps its position. v is left untouched.
//
// It panics if v is not an object.
func (v Value) With(key string, child Value) Value {
	out := v.cloneObject("With")
	out.obj.Set(key, child)
	return out
}

// Without returns a copy of the object v without key, and whether key was
// present. When key is absent v itself is returned.
//
// It panics if v is not an object.
func (v Value) Without(key string) (Value, bool) {
	if v.kind != KindObject {
		panic("value: Without called on " + v.kind.String())
	}
	if _, ok := v.obj.Get(key); !ok {
		return v, false
	}
	out := v.cloneObject("Without")
	out.obj.Delete(key)
	return out, true
}

// cloneObject copies the member table; children are shared since they are
// immutable.
func (v Value) cloneObject(op string) Value {
	if v.kind != KindObject {
		panic("value: " + op + " called on " + v.kind.String())
	}
	m := orderedmap.New[string, Value]()
	for p := v.obj.Oldest(); p != nil; p = p.Next() {
		m.Set(p.Key, p.Value)
	}
	return Value{kind: KindObject, obj: m}
}

// String returns the compact JSON text of v.
func (v Value) String() string {
	return string(v.AppendJSON(nil))
}

// isNumberLiteral reports whether s is a complete JSON number.
func isNumberLiteral(s string) bool {
	if s == "" || (s[0] != '-' && (s[0] < '0' || s[0] > '9')) {
		return false
	}
	// A valid JSON text starting with '-' or a digit can only be a number.
	return json.Valid([]byte(s))
}
