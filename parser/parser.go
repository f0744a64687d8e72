// Package parser normalizes the heterogeneous line formats emitted by
// different Lambda language runtimes (Node, Python, legacy .NET, .NET 6)
// into the common woodchuck.Log shape, and runs the full ingest-time
// filtering pipeline described by the ordered recognizer chain.
package parser

import (
	"encoding/json"
	"fmt"

	"github.com/go-logr/logr"
	woodchuck "github.com/klaatu01/woodchuck-go"
)

// Recognizer attempts to structure a single raw payload string into a
// Log. It returns ok=false when the payload doesn't match its format.
type Recognizer func(payload string) (woodchuck.Log, bool)

// Chain is the fixed, ordered list of recognizers tried against every
// function-type log line: Node, then Python, then legacy .NET, then
// .NET 6. The first match wins; order is load-bearing because the .NET 6
// shape overlaps the Node shape in its timestamp/UUID prefix and the
// legacy .NET shape overlaps anything that happens to be valid JSON.
var Chain = []Recognizer{
	ParseNode,
	ParsePython,
	ParseDotNetLegacy,
	ParseDotNet6,
}

// TryParse runs the ordered recognizer chain against a single raw record
// and returns the first match. ok is false when no recognizer in the
// chain matched.
func TryParse(raw woodchuck.RawRecord, payload string) (woodchuck.Log, bool) {
	for _, recognize := range Chain {
		if log, ok := recognize(payload); ok {
			return log, true
		}
	}
	return woodchuck.Log{}, false
}

// decodePayload attempts to unmarshal data as JSON, falling back to the
// literal string when it isn't JSON. This mirrors the recognizers'
// "data as parsed JSON or raw string" rule for the StructuredLog.Data
// field.
func decodePayload(data string) any {
	var v any
	if err := json.Unmarshal([]byte(data), &v); err == nil {
		return v
	}
	return data
}

// payloadObject reports whether data parses as a JSON object, returning
// the decoded object when it does. Used by the Node recognizer's
// payload-promotion rule.
func payloadObject(data string) (map[string]any, bool) {
	var v any
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return nil, false
	}
	obj, ok := v.(map[string]any)
	return obj, ok
}

// Pipeline runs the full ingest-time pipeline over a batch of raw
// records: type filtering, payload-shape filtering, recognizer dispatch,
// and sentinel-drop filtering. It is pure and deterministic for a given
// input.
type Pipeline struct {
	log logr.Logger
}

// NewPipeline builds a Pipeline that logs per-record parse failures with
// log.
func NewPipeline(log logr.Logger) *Pipeline {
	return &Pipeline{log: log}
}

// Parse filters raw to the surviving function-type, string-payload
// records, dispatches each through the recognizer chain, and drops
// ignored logs. Records that fail every recognizer are logged at error
// level and dropped from the batch.
func (p *Pipeline) Parse(raw []woodchuck.RawRecord) []woodchuck.Log {
	logs := make([]woodchuck.Log, 0, len(raw))
	for _, rec := range raw {
		if rec.Type != woodchuck.FunctionRecordType {
			continue
		}

		var payload string
		if err := json.Unmarshal(rec.Record, &payload); err != nil {
			// Non-function events deliver non-string records; those are
			// dropped silently, but a function-type record that fails to
			// decode as a JSON string is a recognizer miss worth logging.
			p.log.V(1).Info("dropping non-string function record", "record", string(rec.Record))
			continue
		}

		log, ok := TryParse(rec, payload)
		if !ok {
			p.log.Error(fmt.Errorf("no recognizer matched"), "failed to parse log line", "payload", payload)
			continue
		}
		if log.IsIgnored() {
			continue
		}
		logs = append(logs, log)
	}
	return logs
}
