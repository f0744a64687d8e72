package parser

import (
	"regexp"

	woodchuck "github.com/klaatu01/woodchuck-go"
)

var dotnet6LineRe = regexp.MustCompile(
	`^(?P<timestamp>` + timestampPattern + `)\s+(?P<guid>` + uuidPattern + `)\s+(?P<level>info|warn|fail|trce|dbug|crit)\s+(?P<data>(?s:.*))$`,
)

var dotnet6Levels = map[string]woodchuck.Level{
	"info": woodchuck.LevelInfo,
	"warn": woodchuck.LevelWarn,
	"fail": woodchuck.LevelError,
	"crit": woodchuck.LevelCritical,
	"dbug": woodchuck.LevelDebug,
	"trce": woodchuck.LevelTrace,
}

// ParseDotNet6 recognizes the .NET 6 CloudWatch line shape. It shares the
// timestamp/UUID prefix with the Node recognizer but uses lowercase
// four-letter level tokens; Node's level alternation is uppercase-only,
// so the two regexes never match the same line. It never promotes to
// Formatted.
func ParseDotNet6(payload string) (woodchuck.Log, bool) {
	match := dotnet6LineRe.FindStringSubmatch(payload)
	if match == nil {
		return woodchuck.Log{}, false
	}

	timestamp := namedGroup(dotnet6LineRe, match, "timestamp")
	guid := namedGroup(dotnet6LineRe, match, "guid")
	levelStr := namedGroup(dotnet6LineRe, match, "level")
	data := namedGroup(dotnet6LineRe, match, "data")

	level := dotnet6Levels[levelStr]
	return woodchuck.UnformattedLog(woodchuck.StructuredLog{
		Timestamp: &timestamp,
		GUID:      &guid,
		Level:     &level,
		Data:      decodePayload(data),
	}), true
}
