package parser

import (
	"regexp"

	woodchuck "github.com/klaatu01/woodchuck-go"
)

var nodeLineRe = regexp.MustCompile(
	`^(?P<timestamp>` + timestampPattern + `)\s+(?P<guid>` + uuidPattern + `)\s+(?P<level>INFO|WARN|ERROR)\s+(?P<data>(?s:.*))$`,
)

var nodeLevels = map[string]woodchuck.Level{
	"INFO":  woodchuck.LevelInfo,
	"WARN":  woodchuck.LevelWarn,
	"ERROR": woodchuck.LevelError,
}

// ParseNode recognizes the Node.js CloudWatch line shape: an ISO
// timestamp, a UUID, one of INFO/WARN/ERROR, then a payload that may span
// lines. If the payload itself parses as a JSON object, the whole log is
// promoted to Formatted — pre-formatted user JSON takes precedence over
// the envelope fields the regex extracted.
func ParseNode(payload string) (woodchuck.Log, bool) {
	match := nodeLineRe.FindStringSubmatch(payload)
	if match == nil {
		return woodchuck.Log{}, false
	}

	timestamp := namedGroup(nodeLineRe, match, "timestamp")
	guid := namedGroup(nodeLineRe, match, "guid")
	levelStr := namedGroup(nodeLineRe, match, "level")
	data := namedGroup(nodeLineRe, match, "data")

	if obj, ok := payloadObject(data); ok {
		return woodchuck.FormattedLog(obj), true
	}

	level := nodeLevels[levelStr]
	return woodchuck.UnformattedLog(woodchuck.StructuredLog{
		Timestamp: &timestamp,
		GUID:      &guid,
		Level:     &level,
		Data:      decodePayload(data),
	}), true
}
