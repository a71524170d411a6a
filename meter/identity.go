package meter

import "github.com/argart/bklcr/scpi"

// Identity is the instrument identification reported by *IDN?:
// manufacturer, model, serial number, and firmware revision.
type Identity struct {
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Serial       string `json:"serial"`
	Firmware     string `json:"firmware"`
}

// ParseIdentity maps a parsed *IDN? line onto an Identity. Missing
// trailing fields stay empty; the meters are not strict about how many
// fields they report.
func ParseIdentity(values scpi.Values) Identity {
	field := func(i int) string {
		if i >= len(values) {
			return ""
		}
		return values[i].String()
	}
	return Identity{
		Manufacturer: field(0),
		Model:        field(1),
		Serial:       field(2),
		Firmware:     field(3),
	}
}
