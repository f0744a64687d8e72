package parser_test

import (
	"encoding/json"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"
	woodchuck "github.com/klaatu01/woodchuck-go"
	"github.com/klaatu01/woodchuck-go/parser"
)

func rawRecord(t *testing.T, recordType, payload string) woodchuck.RawRecord {
	t.Helper()
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	return woodchuck.RawRecord{Time: "2020-11-18T23:52:30.128Z", Type: recordType, Record: b}
}

// TestParseNode covers concrete scenario 1: a plain Node CloudWatch line.
func TestParseNode(t *testing.T) {
	log, ok := parser.ParseNode("2020-11-18T23:52:30.128Z\t6e48723a-1596-4313-a9af-e4da9214d637\tINFO\tHello World\n")
	require.True(t, ok)
	require.NotNil(t, log.Unformatted)
	require.Equal(t, "2020-11-18T23:52:30.128Z", *log.Unformatted.Timestamp)
	require.Equal(t, "6e48723a-1596-4313-a9af-e4da9214d637", *log.Unformatted.GUID)
	require.Equal(t, woodchuck.LevelInfo, *log.Unformatted.Level)
	require.Equal(t, "Hello World\n", log.Unformatted.Data)
}

// TestParseNode_JSONPayloadPromotion covers concrete scenario 2: a Node
// line whose payload is itself a JSON object gets promoted to Formatted.
func TestParseNode_JSONPayloadPromotion(t *testing.T) {
	log, ok := parser.ParseNode(`2020-11-18T23:52:30.128Z	6e48723a-1596-4313-a9af-e4da9214d637	INFO	{"data":"Hello World"}`)
	require.True(t, ok)
	require.Nil(t, log.Unformatted)
	require.Equal(t, map[string]any{"data": "Hello World"}, log.Formatted)
}

// TestParsePython covers concrete scenario 3.
func TestParsePython(t *testing.T) {
	log, ok := parser.ParsePython("[INFO]\t2020-11-18T23:52:30.128Z    6e48723a-1596-4313-a9af-e4da9214d637\tHello World\n")
	require.True(t, ok)
	require.NotNil(t, log.Unformatted)
	require.Equal(t, "2020-11-18T23:52:30.128Z", *log.Unformatted.Timestamp)
	require.Equal(t, "6e48723a-1596-4313-a9af-e4da9214d637", *log.Unformatted.GUID)
	require.Equal(t, woodchuck.LevelInfo, *log.Unformatted.Level)
	require.Equal(t, "Hello World\n", log.Unformatted.Data)
}

// TestParseDotNetLegacy covers concrete scenario 4.
func TestParseDotNetLegacy(t *testing.T) {
	log, ok := parser.ParseDotNetLegacy(`{ "statusCode": 200, "body": "DotNet" }`)
	require.True(t, ok)
	require.Nil(t, log.Unformatted)
	require.Equal(t, map[string]any{"statusCode": float64(200), "body": "DotNet"}, log.Formatted)
}

// TestParseDotNet6 covers concrete scenario 5.
func TestParseDotNet6(t *testing.T) {
	log, ok := parser.ParseDotNet6("2019-10-23T14:40:59.59Z\t313e0588-e4f1-4d19-8ae4-44980a446805\tinfo\tHello World\n")
	require.True(t, ok)
	require.NotNil(t, log.Unformatted)
	require.Equal(t, "2019-10-23T14:40:59.59Z", *log.Unformatted.Timestamp)
	require.Equal(t, woodchuck.LevelInfo, *log.Unformatted.Level)
	require.Equal(t, "Hello World\n", log.Unformatted.Data)
}

func TestPipeline_DropsNonFunctionRecords(t *testing.T) {
	p := parser.NewPipeline(logr.Discard())
	logs := p.Parse([]woodchuck.RawRecord{rawRecord(t, "platform", "ignored")})
	require.Empty(t, logs)
}

// TestPipeline_IgnoreSentinel covers concrete scenario 7.
func TestPipeline_IgnoreSentinel(t *testing.T) {
	p := parser.NewPipeline(logr.Discard())
	logs := p.Parse([]woodchuck.RawRecord{
		rawRecord(t, "function", `{ "statusCode":200, "__WOODCHUCK_IGNORE__":true }`),
	})
	require.Empty(t, logs)
}

// TestPipeline_Unparseable covers concrete scenario 8.
func TestPipeline_Unparseable(t *testing.T) {
	p := parser.NewPipeline(logr.Discard())
	logs := p.Parse([]woodchuck.RawRecord{rawRecord(t, "function", "Bad log")})
	require.Empty(t, logs)
}

func TestPipeline_FirstMatchWins(t *testing.T) {
	p := parser.NewPipeline(logr.Discard())
	logs := p.Parse([]woodchuck.RawRecord{
		rawRecord(t, "function", "2020-11-18T23:52:30.128Z\t6e48723a-1596-4313-a9af-e4da9214d637\tINFO\tHello World\n"),
	})
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].Unformatted)
	require.Equal(t, woodchuck.LevelInfo, *logs[0].Unformatted.Level)
}
