package scpi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrBadResponse is returned when a response does not have the shape
// the caller asked for (wrong token count or wrong token type).
var ErrBadResponse = errors.New("scpi: unexpected response shape")

// Value is one typed token from a meter response line. Kind selects
// which payload field is meaningful.
type Value struct {
	Kind  Kind
	Float float64
	Int   int64
	Bool  bool
	Str   string
}

func NullValue() Value           { return Value{Kind: KindNull} }
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }
func BoolValue(b bool) Value     { return Value{Kind: KindBool, Bool: b} }
func IntValue(i int64) Value     { return Value{Kind: KindInt, Int: i} }
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

// IsNull reports whether the meter marked this field unavailable.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// AsFloat returns the value as a float64. Integer tokens coerce;
// everything else does not.
func (v Value) AsFloat() (float64, bool) {
	switch v.Kind {
	case KindFloat:
		return v.Float, true
	case KindInt:
		return float64(v.Int), true
	}
	return 0, false
}

func (v Value) AsInt() (int64, bool) {
	if v.Kind == KindInt {
		return v.Int, true
	}
	return 0, false
}

func (v Value) AsBool() (bool, bool) {
	if v.Kind == KindBool {
		return v.Bool, true
	}
	return false, false
}

func (v Value) AsString() (string, bool) {
	if v.Kind == KindString {
		return v.Str, true
	}
	return "", false
}

// String renders the value for display. Null renders empty.
func (v Value) String() string {
	switch v.Kind {
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindBool:
		if v.Bool {
			return On
		}
		return Off
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindString:
		return v.Str
	}
	return ""
}

// MarshalJSON emits the native JSON type for each kind: null, number,
// boolean, or string.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindFloat:
		return json.Marshal(v.Float)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindInt:
		return json.Marshal(v.Int)
	case KindString:
		return json.Marshal(v.Str)
	}
	return []byte("null"), nil
}

// UnmarshalJSON is the inverse of MarshalJSON. Numbers without a
// fractional part decode as ints, matching how the wire parser
// classifies them.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = NullValue()
		return nil
	}

	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	switch x := raw.(type) {
	case bool:
		*v = BoolValue(x)
	case string:
		*v = StringValue(x)
	case json.Number:
		if n, err := strconv.ParseInt(x.String(), 10, 64); err == nil {
			*v = IntValue(n)
			return nil
		}
		f, err := x.Float64()
		if err != nil {
			return err
		}
		*v = FloatValue(f)
	default:
		return fmt.Errorf("cannot decode %s into a value: %w", data, ErrBadResponse)
	}
	return nil
}

// Values is one parsed response line, in device order.
type Values []Value

// Single returns the sole value of a one-token response.
func (vs Values) Single() (Value, error) {
	if len(vs) != 1 {
		return Value{}, fmt.Errorf("want 1 value, got %d: %w", len(vs), ErrBadResponse)
	}
	return vs[0], nil
}

// Empty reports whether the line carried no data at all, which is what
// a read timeout produces.
func (vs Values) Empty() bool {
	if len(vs) != 1 {
		return len(vs) == 0
	}
	return vs[0].Kind == KindString && vs[0].Str == ""
}

func (vs Values) at(i int) (Value, error) {
	if i < 0 || i >= len(vs) {
		return Value{}, fmt.Errorf("index %d of %d values: %w", i, len(vs), ErrBadResponse)
	}
	return vs[i], nil
}

func (vs Values) FloatAt(i int) (float64, error) {
	v, err := vs.at(i)
	if err != nil {
		return 0, err
	}
	f, ok := v.AsFloat()
	if !ok {
		return 0, fmt.Errorf("value %d is %s, want float: %w", i, v.Kind, ErrBadResponse)
	}
	return f, nil
}

func (vs Values) IntAt(i int) (int64, error) {
	v, err := vs.at(i)
	if err != nil {
		return 0, err
	}
	n, ok := v.AsInt()
	if !ok {
		return 0, fmt.Errorf("value %d is %s, want int: %w", i, v.Kind, ErrBadResponse)
	}
	return n, nil
}

func (vs Values) BoolAt(i int) (bool, error) {
	v, err := vs.at(i)
	if err != nil {
		return false, err
	}
	b, ok := v.AsBool()
	if !ok {
		return false, fmt.Errorf("value %d is %s, want bool: %w", i, v.Kind, ErrBadResponse)
	}
	return b, nil
}

func (vs Values) StringAt(i int) (string, error) {
	v, err := vs.at(i)
	if err != nil {
		return "", err
	}
	s, ok := v.AsString()
	if !ok {
		return "", fmt.Errorf("value %d is %s, want string: %w", i, v.Kind, ErrBadResponse)
	}
	return s, nil
}
