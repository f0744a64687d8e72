// Package woodchuck holds the data model shared by every layer of the
// extension: the log types moving through the pipeline and the small value
// types that identify an extension instance to the Lambda Extensions API.
package woodchuck

import (
	"encoding/json"
	"fmt"
	"time"
)

// ExtensionName is the full file name of the extension, as registered with
// the Lambda Extensions API.
type ExtensionName string

// RequestID identifies one function invocation, passed in INVOKE events.
type RequestID string

// FunctionVersion is the published version of the function this extension
// is attached to.
type FunctionVersion string

// FunctionMetadata identifies the Lambda function an extension instance is
// attached to, as learned from the Extensions API register response.
// Shippers that tag outgoing batches (shipper.Firehose's metadata
// envelope) use this instead of requiring the operator to repeat the
// function's identity in an environment variable.
type FunctionMetadata struct {
	Name      string          `json:"name"`
	Version   FunctionVersion `json:"version"`
	Handler   string          `json:"handler"`
	AccountID string          `json:"accountId"`
}

// TracingType describes the type of tracing in a TraceContext object.
type TracingType string

const TracingTypeAWSXRay TracingType = "X-Amzn-Trace-Id"

type TracingValue string

// DurationMs is a time.Duration parsed from a numeric milliseconds JSON
// value.
type DurationMs time.Duration

func (d *DurationMs) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case float64:
		*d = DurationMs(val * float64(time.Millisecond))
	case int:
		*d = DurationMs(val * int(time.Millisecond))
	default:
		return fmt.Errorf("invalid duration: %#v", v)
	}

	return nil
}

func (d DurationMs) String() string {
	return time.Duration(d).String()
}

func (d DurationMs) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`"%s"`, d)), nil
}

// Level is the normalized severity of a parsed log line. It is always
// serialized as an uppercase string regardless of the casing used by the
// source runtime (Node's INFO, .NET 6's info, Python's [INFO], ...).
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
	LevelTrace
	LevelCritical
	LevelDebug
)

var levelNames = map[Level]string{
	LevelInfo:     "INFO",
	LevelWarn:     "WARN",
	LevelError:    "ERROR",
	LevelTrace:    "TRACE",
	LevelCritical: "CRITICAL",
	LevelDebug:    "DEBUG",
}

func (l Level) String() string {
	if s, ok := levelNames[l]; ok {
		return s
	}
	return "UNKNOWN"
}

func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

var levelValues = map[string]Level{
	"INFO":     LevelInfo,
	"WARN":     LevelWarn,
	"ERROR":    LevelError,
	"TRACE":    LevelTrace,
	"CRITICAL": LevelCritical,
	"DEBUG":    LevelDebug,
}

func (l *Level) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, ok := levelValues[s]
	if !ok {
		return fmt.Errorf("unknown log level %q", s)
	}
	*l = v
	return nil
}

// RawRecord is one log delivery as it arrives over the intake HTTP endpoint,
// before any parsing has taken place.
type RawRecord struct {
	Time   string          `json:"time"`
	Type   string          `json:"type"`
	Record json.RawMessage `json:"record"`
}

// FunctionRecordType is the RawRecord.Type value for logs emitted by the
// customer function itself, as opposed to platform or extension events.
const FunctionRecordType = "function"

// WoodchuckIgnoreField is the sentinel property a function can set on its
// own pre-formatted JSON output to opt a log line out of shipment entirely.
const WoodchuckIgnoreField = "__WOODCHUCK_IGNORE__"

// StructuredLog is a CloudWatch-style line split into its constituent
// fields by one of the line Parsers.
type StructuredLog struct {
	Timestamp *string `json:"timestamp,omitempty"`
	GUID      *string `json:"guid,omitempty"`
	Level     *Level  `json:"level,omitempty"`
	Data      any     `json:"data"`
}

// Log is either an unformatted parsed line (Unformatted != nil) or a
// pre-formatted JSON object emitted by the function itself (Formatted !=
// nil). Exactly one of the two is set.
type Log struct {
	Unformatted *StructuredLog
	Formatted   any
}

// UnformattedLog builds a Log carrying a parsed StructuredLog.
func UnformattedLog(s StructuredLog) Log {
	return Log{Unformatted: &s}
}

// FormattedLog builds a Log carrying a verbatim JSON value.
func FormattedLog(v any) Log {
	return Log{Formatted: v}
}

// IsIgnored reports whether this log carries the __WOODCHUCK_IGNORE__
// sentinel set to true on a Formatted payload.
func (l Log) IsIgnored() bool {
	obj, ok := l.Formatted.(map[string]any)
	if !ok {
		return false
	}
	ignore, ok := obj[WoodchuckIgnoreField].(bool)
	return ok && ignore
}

// MarshalJSON renders the log the way it is shipped to a backend: a
// Formatted log is emitted verbatim, an Unformatted log is emitted as its
// StructuredLog envelope.
func (l Log) MarshalJSON() ([]byte, error) {
	if l.Formatted != nil {
		return json.Marshal(l.Formatted)
	}
	return json.Marshal(l.Unformatted)
}

// String renders the log exactly as it will appear on the wire, one line
// per log, for newline-joined bulk payloads.
func (l Log) String() string {
	b, err := l.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<unmarshalable log: %s>", err)
	}
	return string(b)
}
