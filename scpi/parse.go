package scpi

import (
	"regexp"
	"strconv"
	"strings"
)

// floatPattern matches the meters' scientific notation exactly: a
// signed single-digit mantissa with 5 or 6 decimals and a signed
// two-digit exponent, e.g. "+2.345678e+04". Plain integers like
// "+800" deliberately do not match.
var floatPattern = regexp.MustCompile(`^(\+|\-)[0-9]\.[0-9]{5,6}e(\-|\+)[0-9][0-9]`)

// Parse converts one response line into typed values. Tokens are
// comma-separated and classified in a single pass with fixed rules:
//
//  1. "N" or a "----"-padded field is null (reading unavailable)
//  2. scientific-notation float per floatPattern
//  3. "ON" / "OFF" booleans
//  4. integer if strconv accepts it
//  5. anything else stays a string
//
// The returned values keep the device's field order.
func Parse(line string) Values {
	line = strings.ReplaceAll(line, CRLF, "")
	tokens := strings.Split(line, ",")
	values := make(Values, 0, len(tokens))
	for _, tok := range tokens {
		values = append(values, classify(tok))
	}
	return values
}

func classify(tok string) Value {
	switch {
	case tok == Unavailable || strings.HasPrefix(tok, blankPrefix):
		return NullValue()

	case floatPattern.MatchString(tok):
		if f, err := strconv.ParseFloat(tok, 64); err == nil {
			return FloatValue(f)
		}
	}

	switch tok {
	case On:
		return BoolValue(true)
	case Off:
		return BoolValue(false)
	}

	if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return IntValue(n)
	}
	return StringValue(tok)
}
