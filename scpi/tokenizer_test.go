package scpi_test

import (
	"bufio"
	"strings"
	"testing"

	"github.com/argart/bklcr/scpi"
)

func TestSplitter(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "Single CRLF response",
			input:    "+1.234567e+03,-5.67890e-02,1\r\n",
			expected: []string{"+1.234567e+03,-5.67890e-02,1"},
		},
		{
			name:     "Streamed readings",
			input:    "+1.234567e+03,N,N\r\n+1.234568e+03,N,N\r\n",
			expected: []string{"+1.234567e+03,N,N", "+1.234568e+03,N,N"},
		},
		{
			name:     "Bare LF terminator",
			input:    "1kHz\n",
			expected: []string{"1kHz"},
		},
		{
			name:     "Empty line between readings",
			input:    "ON\r\n\r\nOFF\r\n",
			expected: []string{"ON", "", "OFF"},
		},
		{
			name:     "Incomplete line at EOF",
			input:    "+1.234567e+03,N",
			expected: []string{"+1.234567e+03,N"},
		},
		{
			name:     "Complete then incomplete at EOF",
			input:    "OK\r\n+2.000000e+01",
			expected: []string{"OK", "+2.000000e+01"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tokens []string
			scanner := bufio.NewScanner(strings.NewReader(tt.input))
			scanner.Split(scpi.Splitter)

			for scanner.Scan() {
				tokens = append(tokens, scanner.Text())
			}

			if err := scanner.Err(); err != nil {
				t.Fatalf("Scanner error: %v", err)
			}

			if len(tokens) != len(tt.expected) {
				t.Fatalf("Expected %d tokens, got %d.\nExpected: %v\nGot: %v",
					len(tt.expected), len(tokens), tt.expected, tokens)
			}

			for i, expected := range tt.expected {
				if tokens[i] != expected {
					t.Errorf("Token %d: expected %q, got %q", i, expected, tokens[i])
				}
			}
		})
	}
}

func TestOnOff(t *testing.T) {
	if scpi.OnOff(true) != "ON" || scpi.OnOff(false) != "OFF" {
		t.Error("OnOff mapping wrong")
	}
}
