package shipper

import (
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-resty/resty/v2"
	woodchuck "github.com/klaatu01/woodchuck-go"
)

// LogzioCapBytes is the per-request payload cap for Logzio's bulk
// endpoint, same as Loggly's.
const LogzioCapBytes = 4_900_000

// Logzio ships logs to Logzio's bulk HTTP listener.
type Logzio struct {
	url    string
	client *resty.Client
	log    logr.Logger
}

// LogzioBuilder constructs a Logzio shipper.
type LogzioBuilder struct {
	token   string
	host    string
	timeout *time.Duration
	log     logr.Logger
}

// NewLogzioBuilder starts a LogzioBuilder.
func NewLogzioBuilder() *LogzioBuilder {
	return &LogzioBuilder{log: logr.Discard()}
}

func (b *LogzioBuilder) WithToken(token string) *LogzioBuilder {
	b.token = token
	return b
}

func (b *LogzioBuilder) WithHost(host string) *LogzioBuilder {
	b.host = host
	return b
}

func (b *LogzioBuilder) WithTimeout(timeout *time.Duration) *LogzioBuilder {
	b.timeout = timeout
	return b
}

func (b *LogzioBuilder) WithLogger(log logr.Logger) *LogzioBuilder {
	b.log = log
	return b
}

// Build validates required fields and constructs the Logzio shipper.
func (b *LogzioBuilder) Build() (*Logzio, error) {
	if b.token == "" {
		return nil, fmt.Errorf("logzio: token required")
	}
	if b.host == "" {
		return nil, fmt.Errorf("logzio: host required")
	}

	client := resty.New()
	if b.timeout != nil && *b.timeout > 0 {
		client.SetTimeout(*b.timeout)
	}

	return &Logzio{
		url:    fmt.Sprintf("http://%s:8070/?token=%s&type=http-bulk", b.host, b.token),
		client: client,
		log:    b.log,
	}, nil
}

// HandleLogs chunks logs under LogzioCapBytes and POSTs each chunk as a
// newline-joined text/plain body, matching Loggly's wire shape.
func (l *Logzio) HandleLogs(logs []woodchuck.Log) error {
	return sendChunked(logs, LogzioCapBytes, l.log, func(chunk []woodchuck.Log) error {
		resp, err := l.client.R().
			SetHeader("Content-Type", "text/plain").
			SetBody(joinChunk(chunk)).
			Post(l.url)
		if err != nil {
			return fmt.Errorf("logzio: request failed: %w", err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("logzio: unexpected status %s", resp.Status())
		}
		return nil
	})
}
