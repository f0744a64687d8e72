package shipper

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/firehose"
	"github.com/aws/aws-sdk-go-v2/service/firehose/types"
	"github.com/go-logr/logr"
	woodchuck "github.com/klaatu01/woodchuck-go"
)

// FirehoseCapBytes is the per-record payload cap for Kinesis Firehose:
// 100 KB of headroom under its 1 MB record ceiling.
const FirehoseCapBytes = 900_000

// firehoseClient is the subset of *firehose.Client the shipper needs,
// so tests can substitute a fake without standing up AWS credentials.
type firehoseClient interface {
	PutRecord(ctx context.Context, params *firehose.PutRecordInput, optFns ...func(*firehose.Options)) (*firehose.PutRecordOutput, error)
}

// Firehose ships logs to a Kinesis Data Firehose delivery stream, one
// PutRecord call per chunk.
type Firehose struct {
	streamName string
	metadata   json.RawMessage
	client     firehoseClient
	log        logr.Logger
}

// firehoseRecord is the envelope written into each Firehose record:
// operator-supplied metadata alongside the chunk's serialized logs.
type firehoseRecord struct {
	Metadata json.RawMessage `json:"metadata"`
	Logs     []string        `json:"logs"`
}

// NewFirehose builds a Firehose shipper targeting streamName, tagging
// every record with metadata (a JSON document, e.g. function name or
// environment).
func NewFirehose(client firehoseClient, streamName string, metadata json.RawMessage, log logr.Logger) *Firehose {
	return &Firehose{streamName: streamName, metadata: metadata, client: client, log: log}
}

// SetDefaultMetadata installs fn as the record metadata if the operator
// did not already supply an explicit WOODCHUCK_FIREHOSE_METADATA value.
// The driver calls this once, right after registration, so every record
// is tagged with the function's own identity by default.
func (f *Firehose) SetDefaultMetadata(fn woodchuck.FunctionMetadata) error {
	if len(f.metadata) > 0 {
		return nil
	}
	data, err := json.Marshal(fn)
	if err != nil {
		return fmt.Errorf("firehose: could not encode function metadata: %w", err)
	}
	f.metadata = data
	return nil
}

// HandleLogs chunks logs under FirehoseCapBytes and issues one PutRecord
// per chunk.
func (f *Firehose) HandleLogs(logs []woodchuck.Log) error {
	return sendChunked(logs, FirehoseCapBytes, f.log, func(chunk []woodchuck.Log) error {
		lines := make([]string, len(chunk))
		for i, log := range chunk {
			lines[i] = log.String()
		}

		data, err := json.Marshal(firehoseRecord{Metadata: f.metadata, Logs: lines})
		if err != nil {
			return fmt.Errorf("firehose: could not encode record: %w", err)
		}
		encoded := base64.StdEncoding.EncodeToString(data)

		_, err = f.client.PutRecord(context.Background(), &firehose.PutRecordInput{
			DeliveryStreamName: aws.String(f.streamName),
			Record:             &types.Record{Data: []byte(encoded)},
		})
		if err != nil {
			return fmt.Errorf("firehose: PutRecord failed: %w", err)
		}
		return nil
	})
}
