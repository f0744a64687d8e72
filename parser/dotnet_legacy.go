package parser

import (
	"encoding/json"

	woodchuck "github.com/klaatu01/woodchuck-go"
)

// ParseDotNetLegacy recognizes the legacy .NET line shape: the whole
// payload is itself a JSON document (there is no wrapping envelope
// regex). A payload that parses as JSON is promoted to Formatted
// verbatim; the enclosing RawRecord's timestamp is not carried along,
// since a Formatted log has no StructuredLog envelope to carry it in.
func ParseDotNetLegacy(payload string) (woodchuck.Log, bool) {
	var v any
	if err := json.Unmarshal([]byte(payload), &v); err != nil {
		return woodchuck.Log{}, false
	}
	return woodchuck.FormattedLog(v), true
}
