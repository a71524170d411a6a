package scpi

import (
	"bufio"
	"bytes"
)

// Splitter is used for tokenizing meter responses. It uses the
// signature of bufio.SplitFunc so it can be directly used with
// bufio.Scanner.
//
// The meters terminate responses with CRLF, but the splitter also
// accepts a bare LF. The terminator is stripped from the token.
//
// The atEOF parameter indicates whether any more data will be
// available. When true, any remaining data is returned as the final
// token.
func Splitter(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, dropCR(data[:i]), nil
	}

	if atEOF {
		return len(data), dropCR(data), nil
	}
	return 0, nil, nil
}

var _ bufio.SplitFunc = Splitter

func dropCR(data []byte) []byte {
	if len(data) > 0 && data[len(data)-1] == '\r' {
		return data[:len(data)-1]
	}
	return data
}

// OnOff formats a boolean the way the meters expect it in
// state-setting commands.
func OnOff(on bool) string {
	if on {
		return On
	}
	return Off
}
