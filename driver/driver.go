// Package driver implements the extension lifecycle state machine:
// register with the platform, start the intake server, subscribe to the
// Logs API, then run the INVOKE/SHUTDOWN event loop, draining the queue
// through a Shipper at each step.
package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/klaatu01/woodchuck-go/extapi"
	"github.com/klaatu01/woodchuck-go/intake"
	"github.com/klaatu01/woodchuck-go/parser"
	"github.com/klaatu01/woodchuck-go/queue"
	"github.com/klaatu01/woodchuck-go/shipper"
)

// Config holds the knobs the driver needs beyond what extapi.Register
// already reads from the environment.
type Config struct {
	// Host is the hostname the platform uses to reach the intake
	// server, as seen from inside the sandbox (default "sandbox").
	Host string
	// Port is the local intake port (default 1060).
	Port         int
	LogTypes     []extapi.LogSubscriptionType
	BufferingCfg *extapi.LogsBufferingCfg

	// ShutdownSafetyMargin is subtracted from the Shutdown event's
	// deadline to decide when the final flush must stop retrying.
	ShutdownSafetyMargin time.Duration
	// ShutdownRetrySleep is the backoff between best-effort flush
	// attempts during shutdown.
	ShutdownRetrySleep time.Duration
}

// DefaultConfig returns the canonical defaults from §6 of the external
// interface: port 1060, host "sandbox", function-only subscription.
func DefaultConfig() Config {
	return Config{
		Host:                 "sandbox",
		Port:                 1060,
		LogTypes:             []extapi.LogSubscriptionType{extapi.LogSubscriptionTypeFunction},
		ShutdownSafetyMargin: 200 * time.Millisecond,
		ShutdownRetrySleep:   100 * time.Millisecond,
	}
}

// Driver owns the queue, the intake server, the shipper backend, and the
// Extensions API client, and runs the event loop that ties them
// together.
type Driver struct {
	cfg    Config
	queue  *queue.LogQueue
	ship   shipper.Shipper
	log    logr.Logger
	intake *intake.Server
	client *extapi.Client
}

// New wires a Driver from its collaborators. Run performs registration,
// subscription, and the event loop.
func New(cfg Config, ship shipper.Shipper, log logr.Logger) *Driver {
	q := queue.New()
	return &Driver{
		cfg:   cfg,
		queue: q,
		ship:  ship,
		log:   log,
	}
}

// Queue returns the driver's shared log queue, for seeding in tests or
// for an out-of-band producer.
func (d *Driver) Queue() *queue.LogQueue {
	return d.queue
}

// Run registers the extension, starts the intake server, subscribes to
// the Logs API, and blocks running the event loop until a Shutdown event
// is received. It returns an error if registration, intake startup or
// subscription fails, and nil on a clean shutdown.
func (d *Driver) Run(ctx context.Context) error {
	client, err := extapi.Register(ctx, extapi.WithLogger(d.log))
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	d.client = client
	if fh, ok := d.ship.(*shipper.Firehose); ok {
		if err := fh.SetDefaultMetadata(client.FunctionMetadata()); err != nil {
			d.log.Error(err, "could not seed firehose metadata from function identity")
		}
	}

	pipeline := parser.NewPipeline(d.log)
	d.intake = intake.New(fmt.Sprintf("0.0.0.0:%d", d.cfg.Port), d.queue, pipeline, d.log)

	errCh := make(chan error, 1)
	addr, err := d.intake.Start(errCh)
	if err != nil {
		return fmt.Errorf("could not start intake server: %w", err)
	}
	d.log.V(1).Info("intake server listening", "addr", addr)

	subscribeURL := fmt.Sprintf("http://%s:%d", d.cfg.Host, d.cfg.Port)
	req := extapi.NewLogsSubscribeRequest(subscribeURL, d.cfg.LogTypes, d.cfg.BufferingCfg)
	if err := client.LogsSubscribe(ctx, req); err != nil {
		return fmt.Errorf("subscription failed: %w", err)
	}
	d.log.V(1).Info("subscribed to logs API", "url", subscribeURL)

	return d.loop(ctx)
}

// loop runs the long-poll event/next cycle. A transport error is logged
// and followed by a best-effort drain, then the loop continues: the
// function may have crashed mid-invocation and buffered logs should
// still be delivered.
func (d *Driver) loop(ctx context.Context) error {
	for {
		event, err := d.client.NextEvent(ctx)
		if err != nil {
			d.log.Error(err, "event/next failed, draining best-effort and continuing")
			d.Drain()
			continue
		}

		switch event.EventType {
		case extapi.Invoke:
			d.log.V(1).Info("invoke event received", "requestId", event.RequestID)
			d.Drain()
		case extapi.Shutdown:
			d.log.V(1).Info("shutdown event received", "reason", event.ShutdownReason)
			d.DrainUntilDeadline(event.DeadlineMs)
			return nil
		}
	}
}

// Drain runs a single drain cycle: snapshot the queue, atomically take
// its contents, hand them to the shipper, and reinject whatever failed.
// A zero-length snapshot is a no-op.
func (d *Driver) Drain() {
	if d.queue.Len() == 0 {
		return
	}

	batch := d.queue.DrainAll()
	if len(batch) == 0 {
		return
	}

	if err := d.ship.HandleLogs(batch); err != nil {
		failed := &shipper.FailedToSend{}
		if e, ok := asFailedToSend(err); ok {
			failed = e
		} else {
			failed.Logs = batch
		}
		d.log.Error(err, "ship failed, reinjecting", "failed", len(failed.Logs))
		d.queue.Extend(failed.Logs)
	}
}

func asFailedToSend(err error) (*shipper.FailedToSend, bool) {
	f, ok := err.(*shipper.FailedToSend)
	return f, ok
}

// DrainUntilDeadline runs drain cycles with a fixed backoff between
// them, stopping early once a cycle observes an empty queue, and never
// starting another cycle once now+sleep would cross deadlineMs minus
// the configured safety margin. This replaces the fixed attempts×sleep
// schedule with a deadline-driven one, per the Shutdown event's
// deadlineMs. Exported so the shutdown flush behavior is directly
// testable without a real Extensions API server.
func (d *Driver) DrainUntilDeadline(deadlineMs int64) {
	deadline := time.UnixMilli(deadlineMs).Add(-d.cfg.ShutdownSafetyMargin)

	for {
		if d.queue.Len() == 0 {
			return
		}
		d.Drain()
		if d.queue.Len() == 0 {
			return
		}
		if time.Now().Add(d.cfg.ShutdownRetrySleep).After(deadline) {
			d.log.V(1).Info("shutdown deadline approaching, abandoning remaining logs", "remaining", d.queue.Len())
			return
		}
		time.Sleep(d.cfg.ShutdownRetrySleep)
	}
}
