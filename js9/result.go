package js9

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Result is the raw JSON value an operation returned, with accessors for
// the shapes the display hands back. The zero Result behaves like a null
// reply.
type Result struct {
	raw json.RawMessage
}

func newResult(raw json.RawMessage) Result {
	return Result{raw: raw}
}

// Raw returns the undecoded reply.
func (r Result) Raw() json.RawMessage {
	return append(json.RawMessage(nil), r.raw...)
}

// IsNull reports whether the operation returned nothing.
func (r Result) IsNull() bool {
	return len(r.raw) == 0 || bytes.Equal(r.raw, []byte("null"))
}

// Decode unmarshals the reply into out.
func (r Result) Decode(out any) error {
	if r.IsNull() {
		return fmt.Errorf("operation returned no result")
	}
	if err := json.Unmarshal(r.raw, out); err != nil {
		return fmt.Errorf("decoding result: %w", err)
	}
	return nil
}

// Str returns the reply text, or "" when the reply is not a string.
func (r Result) Str() string {
	var s string
	if json.Unmarshal(r.raw, &s) == nil {
		return s
	}
	return ""
}

func (r Result) Float64() (float64, bool) {
	var f float64
	err := json.Unmarshal(r.raw, &f)
	return f, err == nil
}

func (r Result) Int() (int, bool) {
	var n int
	err := json.Unmarshal(r.raw, &n)
	return n, err == nil
}

func (r Result) Bool() (bool, bool) {
	var b bool
	err := json.Unmarshal(r.raw, &b)
	return b, err == nil
}

func (r Result) Map() (map[string]any, bool) {
	var m map[string]any
	err := json.Unmarshal(r.raw, &m)
	return m, err == nil
}
