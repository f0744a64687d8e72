package shipper

import (
	"github.com/go-logr/logr"
	woodchuck "github.com/klaatu01/woodchuck-go"
)

// Custom is the local-development sink: it logs each parsed entry at
// debug level and never fails. Useful when running the extension outside
// a real Lambda environment, or when no backend credentials are
// available yet.
type Custom struct {
	log logr.Logger
}

// NewCustom builds a Custom shipper that logs through log.
func NewCustom(log logr.Logger) *Custom {
	return &Custom{log: log}
}

// HandleLogs logs every entry at debug level and always succeeds.
func (c *Custom) HandleLogs(logs []woodchuck.Log) error {
	for _, log := range logs {
		c.log.V(1).Info("parsed log", "log", log.String())
	}
	return nil
}
