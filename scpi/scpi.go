// Package scpi implements the ASCII SCPI-like dialect spoken by B&K
// Precision bench LCR meters over a serial link: line framing,
// response token classification, and command value formatting.
package scpi

const (
	CRLF = "\r\n"
	// Terminator ends every command written to the meter.
	Terminator = "\n"

	// On and Off are the literal boolean sentinels used by the meters,
	// both in responses and in state-setting commands.
	On  = "ON"
	Off = "OFF"

	// Unavailable marks a reading that does not apply in the current
	// meter state. The meters also pad unavailable fields with dashes
	// ("----"), which parse the same way.
	Unavailable = "N"

	blankPrefix = "----"
)

// Kind identifies the native type of a response token.
type Kind int

const (
	KindNull Kind = iota
	KindFloat
	KindBool
	KindInt
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	}
	return "unknown"
}
