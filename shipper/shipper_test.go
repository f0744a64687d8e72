package shipper_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/firehose"
	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"
	woodchuck "github.com/klaatu01/woodchuck-go"
	"github.com/klaatu01/woodchuck-go/shipper"
)

func bigLog(n int) woodchuck.Log {
	return woodchuck.FormattedLog(map[string]any{"data": strings.Repeat("x", n)})
}

// TestChunk_ConcatenationEqualsInput checks the chunker invariant: the
// concatenation of all chunks equals the input list.
func TestChunk_ConcatenationEqualsInput(t *testing.T) {
	logs := make([]woodchuck.Log, 10)
	for i := range logs {
		logs[i] = woodchuck.FormattedLog(map[string]any{"i": i})
	}

	chunks := shipper.Chunk(logs, 40)

	var flattened []woodchuck.Log
	for _, c := range chunks {
		flattened = append(flattened, c...)
	}
	require.Equal(t, logs, flattened)
}

// TestChunk_CapRespected checks that each chunk stays under the cap,
// except a chunk holding a single oversized log.
func TestChunk_CapRespected(t *testing.T) {
	logs := []woodchuck.Log{bigLog(5), bigLog(5), bigLog(5)}
	cap := len(logs[0].String())*2 + 1

	chunks := shipper.Chunk(logs, cap)
	for _, c := range chunks {
		size := 0
		for _, l := range c {
			size += len(l.String())
		}
		if len(c) > 1 {
			require.LessOrEqual(t, size, cap)
		}
	}
}

// TestChunk_OversizedLogGetsOwnChunk checks that a single Log larger
// than the cap is placed alone rather than being split.
func TestChunk_OversizedLogGetsOwnChunk(t *testing.T) {
	huge := bigLog(1000)
	chunks := shipper.Chunk([]woodchuck.Log{huge}, 10)
	require.Len(t, chunks, 1)
	require.Len(t, chunks[0], 1)
}

func TestChunk_Empty(t *testing.T) {
	require.Nil(t, shipper.Chunk(nil, 100))
}

func TestLogglyBuilder_RequiresToken(t *testing.T) {
	_, err := shipper.NewLogglyBuilder().WithTag("t").Build()
	require.ErrorContains(t, err, "token required")
}

func TestLogglyBuilder_RequiresTag(t *testing.T) {
	_, err := shipper.NewLogglyBuilder().WithToken("tok").Build()
	require.ErrorContains(t, err, "tag required")
}

func TestLogzioBuilder_RequiresHost(t *testing.T) {
	_, err := shipper.NewLogzioBuilder().WithToken("tok").Build()
	require.ErrorContains(t, err, "host required")
}

func TestLoggly_HandleLogs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	// The Loggly URL is fixed, so route the request to srv as an HTTP proxy.
	t.Setenv("HTTP_PROXY", srv.URL)

	l, err := shipper.NewLogglyBuilder().WithToken("tok").WithTag("tag").Build()
	require.NoError(t, err)

	require.NoError(t, l.HandleLogs([]woodchuck.Log{woodchuck.FormattedLog(map[string]any{"a": 1})}))
}

// TestCustom_AlwaysSucceeds covers concrete scenario 6's shipper half:
// a Custom shipper always succeeds.
func TestCustom_AlwaysSucceeds(t *testing.T) {
	c := shipper.NewCustom(logr.Discard())
	require.NoError(t, c.HandleLogs([]woodchuck.Log{woodchuck.FormattedLog(map[string]any{"a": 1})}))
}

type fakeFirehoseClient struct {
	fail map[int]bool
	n    int
}

func (f *fakeFirehoseClient) PutRecord(ctx context.Context, params *firehose.PutRecordInput, optFns ...func(*firehose.Options)) (*firehose.PutRecordOutput, error) {
	i := f.n
	f.n++
	if f.fail[i] {
		return nil, context.DeadlineExceeded
	}
	return &firehose.PutRecordOutput{}, nil
}

// TestFirehose_PartialFailureReinjection covers concrete scenario 9: a
// shipper failing on one chunk returns exactly that chunk's logs as
// failed, leaving the rest delivered.
func TestFirehose_PartialFailureReinjection(t *testing.T) {
	client := &fakeFirehoseClient{fail: map[int]bool{1: true}}
	f := shipper.NewFirehose(client, "stream", nil, logr.Discard())

	logs := []woodchuck.Log{bigLog(1), bigLog(700_000), bigLog(700_000)}
	err := f.HandleLogs(logs)

	require.Error(t, err)
	var failedErr *shipper.FailedToSend
	require.ErrorAs(t, err, &failedErr)
	require.Equal(t, []woodchuck.Log{logs[1]}, failedErr.Logs)
}
