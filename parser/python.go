package parser

import (
	"regexp"

	woodchuck "github.com/klaatu01/woodchuck-go"
)

var pythonLineRe = regexp.MustCompile(
	`^(?P<level>\[INFO\]|\[WARNING\]|\[ERROR\])\s+(?P<timestamp>` + timestampPattern + `)\s+(?P<guid>` + uuidPattern + `)\s+(?P<data>(?s:.*))$`,
)

var pythonLevels = map[string]woodchuck.Level{
	"[INFO]":    woodchuck.LevelInfo,
	"[WARNING]": woodchuck.LevelWarn,
	"[ERROR]":   woodchuck.LevelError,
}

// ParsePython recognizes the Python CloudWatch line shape: a bracketed
// level tag first, then an ISO timestamp, a UUID, and the payload. It
// never promotes to Formatted — Python's own logging libraries don't
// pre-format JSON the way Node's console.log does.
func ParsePython(payload string) (woodchuck.Log, bool) {
	match := pythonLineRe.FindStringSubmatch(payload)
	if match == nil {
		return woodchuck.Log{}, false
	}

	levelStr := namedGroup(pythonLineRe, match, "level")
	timestamp := namedGroup(pythonLineRe, match, "timestamp")
	guid := namedGroup(pythonLineRe, match, "guid")
	data := namedGroup(pythonLineRe, match, "data")

	level := pythonLevels[levelStr]
	return woodchuck.UnformattedLog(woodchuck.StructuredLog{
		Timestamp: &timestamp,
		GUID:      &guid,
		Level:     &level,
		Data:      decodePayload(data),
	}), true
}
