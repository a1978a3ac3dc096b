package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/maruel/jsondb/internal/docpath"
	dberrors "github.com/maruel/jsondb/internal/errors"
	"github.com/maruel/jsondb/internal/value"
)

func TestFrame(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		for _, payload := range []string{"", `{"type":"exit"}`, "héllo ✓", strings.Repeat("x", MaxFrameSize)} {
			var buf bytes.Buffer
			if err := WriteFrame(&buf, []byte(payload)); err != nil {
				t.Fatalf("WriteFrame(%d bytes) error = %v", len(payload), err)
			}
			if buf.Len() != 2+len(payload) {
				t.Errorf("frame length = %d, want %d", buf.Len(), 2+len(payload))
			}
			got, err := ReadFrame(&buf)
			if err != nil {
				t.Fatalf("ReadFrame error = %v", err)
			}
			if string(got) != payload {
				t.Errorf("ReadFrame = %q, want %q", got, payload)
			}
		}
	})

	t.Run("header is big endian", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteFrame(&buf, bytes.Repeat([]byte("a"), 258)); err != nil {
			t.Fatal(err)
		}
		if hdr := buf.Bytes()[:2]; hdr[0] != 1 || hdr[1] != 2 {
			t.Errorf("header = %v, want [1 2]", hdr)
		}
	})

	t.Run("too large", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteFrame(&buf, make([]byte, MaxFrameSize+1)); !errors.Is(err, ErrFrameTooLarge) {
			t.Errorf("WriteFrame error = %v, want ErrFrameTooLarge", err)
		}
		if buf.Len() != 0 {
			t.Errorf("wrote %d bytes", buf.Len())
		}
	})

	t.Run("short reads", func(t *testing.T) {
		tests := []struct {
			name string
			in   []byte
			want error
		}{
			{"empty", nil, io.EOF},
			{"half header", []byte{0}, io.ErrUnexpectedEOF},
			{"short payload", []byte{0, 5, 'a', 'b'}, io.ErrUnexpectedEOF},
			{"missing payload", []byte{0, 1}, io.ErrUnexpectedEOF},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := ReadFrame(bytes.NewReader(tt.in)); !errors.Is(err, tt.want) {
					t.Errorf("ReadFrame error = %v, want %v", err, tt.want)
				}
			})
		}
	})

	t.Run("invalid utf8", func(t *testing.T) {
		if _, err := ReadFrame(bytes.NewReader([]byte{0, 2, 0xff, 0xfe})); !errors.Is(err, ErrInvalidUTF8) {
			t.Errorf("ReadFrame error = %v, want ErrInvalidUTF8", err)
		}
	})
}

func TestDecodeRequest(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		tests := []struct {
			in    string
			op    Op
			path  string
			value string
		}{
			{`{"type":"get","key":"x"}`, OpGet, "x", "null"},
			{`{"type":"get","key":["a","b"]}`, OpGet, "a/b", "null"},
			{`{"type":"set","key":"x","value":5}`, OpSet, "x", "5"},
			{`{"type":"set","key":["a","b","c"],"value":"hi"}`, OpSet, "a/b/c", `"hi"`},
			{`{"type":"set","key":"n","value":null}`, OpSet, "n", "null"},
			{`{"type":"delete","key":"x","value":9}`, OpDelete, "x", "null"},
			{`{"type":"exit"}`, OpExit, "", "null"},
			{`{"type":"exit","key":5}`, OpExit, "", "null"},
			{`{"key":"x","type":"get","extra":true}`, OpGet, "x", "null"},
		}
		for _, tt := range tests {
			t.Run(tt.in, func(t *testing.T) {
				r, err := DecodeRequest([]byte(tt.in))
				if err != nil {
					t.Fatalf("DecodeRequest error = %v", err)
				}
				if r.Op != tt.op || r.Path.String() != tt.path || r.Value.String() != tt.value {
					t.Errorf("got {%s %s %s}, want {%s %s %s}", r.Op, r.Path, r.Value, tt.op, tt.path, tt.value)
				}
			})
		}
	})

	t.Run("malformed", func(t *testing.T) {
		tests := []struct {
			in   string
			code dberrors.ErrorCode
		}{
			{`{"type":"get"`, dberrors.ErrMalformedValue},
			{`not json`, dberrors.ErrMalformedValue},
			{``, dberrors.ErrMalformedValue},
			{`[1]`, dberrors.ErrMalformedRequest},
			{`{}`, dberrors.ErrMalformedRequest},
			{`{"type":5,"key":"x"}`, dberrors.ErrMalformedRequest},
			{`{"type":"put","key":"x"}`, dberrors.ErrMalformedRequest},
			{`{"type":"GET","key":"x"}`, dberrors.ErrMalformedRequest},
			{`{"type":"get"}`, dberrors.ErrMalformedRequest},
			{`{"type":"get","key":[]}`, dberrors.ErrMalformedRequest},
			{`{"type":"get","key":5}`, dberrors.ErrMalformedRequest},
			{`{"type":"get","key":["a",1]}`, dberrors.ErrMalformedRequest},
			{`{"type":"set","key":"x"}`, dberrors.ErrMalformedRequest},
			{`{"type":"delete","key":null}`, dberrors.ErrMalformedRequest},
		}
		for _, tt := range tests {
			t.Run(tt.in, func(t *testing.T) {
				_, err := DecodeRequest([]byte(tt.in))
				if got := dberrors.CodeOf(err); got != tt.code {
					t.Errorf("DecodeRequest error = %v (%s), want %s", err, got, tt.code)
				}
				if got := FromError(err).Encode(); string(got) != `{"response":"ERROR","reason":"malformed request"}` {
					t.Errorf("FromError = %s", got)
				}
			})
		}
	})
}

func TestRequestEncode(t *testing.T) {
	tests := []struct {
		op   Op
		path []string
		v    value.Value
		want string
	}{
		{OpGet, []string{"x"}, value.Value{}, `{"type":"get","key":"x"}`},
		{OpSet, []string{"a", "b"}, value.MustParse(`{"k":[1,2.0]}`), `{"type":"set","key":["a","b"],"value":{"k":[1,2.0]}}`},
		{OpSet, []string{"n"}, value.Null(), `{"type":"set","key":"n","value":null}`},
		{OpDelete, []string{"x"}, value.Int(3), `{"type":"delete","key":"x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			r, err := NewRequest(tt.op, docpath.MustNew(tt.path...), tt.v)
			if err != nil {
				t.Fatal(err)
			}
			got := r.Encode()
			if string(got) != tt.want {
				t.Errorf("Encode = %s, want %s", got, tt.want)
			}
			back, err := DecodeRequest(got)
			if err != nil {
				t.Fatal(err)
			}
			if back.Op != r.Op || back.Path.String() != r.Path.String() || !value.Equal(back.Value, r.Value) {
				t.Errorf("decoded %v, want %v", back, r)
			}
		})
	}

	exit, err := NewRequest(OpExit, docpath.Path{}, value.Value{})
	if err != nil {
		t.Fatal(err)
	}
	if got := exit.String(); got != `{"type":"exit"}` {
		t.Errorf("exit Encode = %s", got)
	}
	if _, err := NewRequest(OpGet, docpath.Path{}, value.Value{}); dberrors.CodeOf(err) != dberrors.ErrMalformedRequest {
		t.Errorf("NewRequest without a path error = %v", err)
	}
	if _, err := NewRequest("bogus", docpath.MustNew("x"), value.Value{}); dberrors.CodeOf(err) != dberrors.ErrMalformedRequest {
		t.Errorf("NewRequest(bogus) error = %v", err)
	}
}

func TestResponse(t *testing.T) {
	tests := []struct {
		name string
		r    Response
		want string
	}{
		{"ok", OK(), `{"response":"OK"}`},
		{"ok value", OKValue(value.MustParse(`{"c":"hi"}`)), `{"response":"OK","value":{"c":"hi"}}`},
		{"ok null value", OKValue(value.Null()), `{"response":"OK","value":null}`},
		{"error", Error("no such key"), `{"response":"ERROR","reason":"no such key"}`},
		{"exit", ExitAck(), `{"key":"OK"}`},
		{"no such key", FromError(dberrors.NoSuchKey("a/b")), `{"response":"ERROR","reason":"no such key"}`},
		{"persistence", FromError(dberrors.PersistenceFailure(errors.New("disk full"))), `{"response":"ERROR","reason":"failed to persist document"}`},
		{"rate limited", FromError(dberrors.RateLimited("1.2.3.4")), `{"response":"ERROR","reason":"rate limit exceeded"}`},
		{"value too large", FromError(dberrors.ValueTooLarge(70000)), `{"response":"ERROR","reason":"value too large"}`},
		{"plain error", FromError(errors.New("boom")), `{"response":"ERROR","reason":"internal error"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.r.Encode()
			if string(got) != tt.want {
				t.Fatalf("Encode = %s, want %s", got, tt.want)
			}
			back, err := DecodeResponse(got)
			if err != nil {
				t.Fatal(err)
			}
			if back.Status != tt.r.Status || back.Exit != tt.r.Exit || back.Reason != tt.r.Reason || back.HasValue != tt.r.HasValue {
				t.Errorf("DecodeResponse = %+v, want %+v", back, tt.r)
			}
			if tt.r.HasValue && !value.Equal(back.Value, tt.r.Value) {
				t.Errorf("value = %s, want %s", back.Value, tt.r.Value)
			}
		})
	}

	for _, in := range []string{`[]`, `{}`, `{"response":"MAYBE"}`, `{"key":"NO"}`, `{`} {
		if _, err := DecodeResponse([]byte(in)); err == nil {
			t.Errorf("DecodeResponse(%s) succeeded", in)
		}
	}
}

func TestSchema(t *testing.T) {
	req, resp := Schema()
	if req.Type != "object" || resp.Type != "object" {
		t.Fatalf("types = %q, %q", req.Type, resp.Type)
	}
	for _, name := range []string{"type", "key", "value"} {
		if _, ok := req.Properties.Get(name); !ok {
			t.Errorf("request schema missing %q", name)
		}
	}
	if len(req.Required) != 1 || req.Required[0] != "type" {
		t.Errorf("request required = %v", req.Required)
	}
	typ, _ := req.Properties.Get("type")
	if len(typ.Enum) != len(Ops) {
		t.Errorf("type enum = %v", typ.Enum)
	}
	key, _ := req.Properties.Get("key")
	if len(key.OneOf) != 2 {
		t.Errorf("key oneOf = %v", key.OneOf)
	}

	data, err := SchemaJSON()
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if _, ok := doc["request"]; !ok {
		t.Error("missing request schema")
	}
	if _, ok := doc["response"]; !ok {
		t.Error("missing response schema")
	}
}
