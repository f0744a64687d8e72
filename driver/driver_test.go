package driver_test

import (
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"
	woodchuck "github.com/klaatu01/woodchuck-go"
	"github.com/klaatu01/woodchuck-go/driver"
	"github.com/klaatu01/woodchuck-go/shipper"
)

// TestDrain_ConsumeCycle covers concrete scenario 6: seed the queue with
// one function-type log, drain once against an always-succeeding
// shipper, and expect the queue to end up empty.
func TestDrain_ConsumeCycle(t *testing.T) {
	d := driver.New(driver.DefaultConfig(), shipper.NewCustom(logr.Discard()), logr.Discard())
	d.Queue().Append([]woodchuck.Log{woodchuck.FormattedLog(map[string]any{"a": 1})})

	d.Drain()

	require.Equal(t, 0, d.Queue().Len())
}

func TestDrain_NoopOnEmptyQueue(t *testing.T) {
	d := driver.New(driver.DefaultConfig(), shipper.NewCustom(logr.Discard()), logr.Discard())
	d.Drain()
	require.Equal(t, 0, d.Queue().Len())
}

type failingShipper struct {
	failLogs []woodchuck.Log
}

func (f *failingShipper) HandleLogs(logs []woodchuck.Log) error {
	return &shipper.FailedToSend{Logs: f.failLogs}
}

func TestDrain_ReinjectsFailedSubset(t *testing.T) {
	failed := []woodchuck.Log{woodchuck.FormattedLog(map[string]any{"k": "v"})}
	d := driver.New(driver.DefaultConfig(), &failingShipper{failLogs: failed}, logr.Discard())
	d.Queue().Append([]woodchuck.Log{woodchuck.FormattedLog(map[string]any{"a": 1})})

	d.Drain()

	require.Equal(t, 1, d.Queue().Len())
}

type everSlowShipper struct{}

func (everSlowShipper) HandleLogs(logs []woodchuck.Log) error {
	return &shipper.FailedToSend{Logs: logs}
}

// TestDrainUntilDeadline_StopsBeforeDeadline checks that the shutdown
// flush doesn't spin forever against a shipper that always fails: it
// must give up once the safety margin is crossed.
func TestDrainUntilDeadline_StopsBeforeDeadline(t *testing.T) {
	cfg := driver.DefaultConfig()
	cfg.ShutdownSafetyMargin = 10 * time.Millisecond
	cfg.ShutdownRetrySleep = 5 * time.Millisecond

	d := driver.New(cfg, everSlowShipper{}, logr.Discard())
	d.Queue().Append([]woodchuck.Log{woodchuck.FormattedLog(map[string]any{"a": 1})})

	deadline := time.Now().Add(20 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		d.DrainUntilDeadline(deadline.UnixMilli())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("drainUntilDeadline did not return before timeout")
	}
}
