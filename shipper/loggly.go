package shipper

import (
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-resty/resty/v2"
	woodchuck "github.com/klaatu01/woodchuck-go"
)

// LogglyCapBytes is the per-request payload cap for Loggly's bulk
// endpoint: 100 KB of headroom under its 5 MB API ceiling.
const LogglyCapBytes = 4_900_000

// Loggly ships logs to Loggly's bulk HTTP endpoint.
type Loggly struct {
	url    string
	client *resty.Client
	log    logr.Logger
}

// LogglyBuilder constructs a Loggly shipper, rejecting incomplete
// configuration with a named error rather than letting a partially
// configured shipper escape.
type LogglyBuilder struct {
	token   string
	tag     string
	timeout *time.Duration
	log     logr.Logger
}

// NewLogglyBuilder starts a LogglyBuilder.
func NewLogglyBuilder() *LogglyBuilder {
	return &LogglyBuilder{log: logr.Discard()}
}

func (b *LogglyBuilder) WithToken(token string) *LogglyBuilder {
	b.token = token
	return b
}

func (b *LogglyBuilder) WithTag(tag string) *LogglyBuilder {
	b.tag = tag
	return b
}

// WithTimeout sets the HTTP client timeout. A nil timeout or a value of
// 0 means no timeout.
func (b *LogglyBuilder) WithTimeout(timeout *time.Duration) *LogglyBuilder {
	b.timeout = timeout
	return b
}

func (b *LogglyBuilder) WithLogger(log logr.Logger) *LogglyBuilder {
	b.log = log
	return b
}

// Build validates required fields and constructs the Loggly shipper.
func (b *LogglyBuilder) Build() (*Loggly, error) {
	if b.token == "" {
		return nil, fmt.Errorf("loggly: token required")
	}
	if b.tag == "" {
		return nil, fmt.Errorf("loggly: tag required")
	}

	client := resty.New()
	if b.timeout != nil && *b.timeout > 0 {
		client.SetTimeout(*b.timeout)
	}

	return &Loggly{
		url:    fmt.Sprintf("http://logs-01.loggly.com/bulk/%s/tag/%s/", b.token, b.tag),
		client: client,
		log:    b.log,
	}, nil
}

// HandleLogs chunks logs under LogglyCapBytes and POSTs each chunk as a
// newline-joined text/plain body.
func (l *Loggly) HandleLogs(logs []woodchuck.Log) error {
	return sendChunked(logs, LogglyCapBytes, l.log, func(chunk []woodchuck.Log) error {
		resp, err := l.client.R().
			SetHeader("Content-Type", "text/plain").
			SetBody(joinChunk(chunk)).
			Post(l.url)
		if err != nil {
			return fmt.Errorf("loggly: request failed: %w", err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("loggly: unexpected status %s", resp.Status())
		}
		return nil
	})
}
