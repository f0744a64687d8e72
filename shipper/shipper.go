// Package shipper implements the bulk-send side of the pipeline: byte-
// bounded chunking of a batch of parsed logs and one Shipper
// implementation per backend (Loggly, Logzio, Firehose, and a local-dev
// Custom sink).
package shipper

import (
	"fmt"

	"github.com/go-logr/logr"
	woodchuck "github.com/klaatu01/woodchuck-go"
)

// Shipper takes a batch of parsed logs and attempts to deliver it to a
// backend. It returns a *FailedToSend naming the subset that was not
// durably accepted, so the caller can reinject it into the queue.
type Shipper interface {
	HandleLogs(logs []woodchuck.Log) error
}

// FailedToSend is returned by a Shipper when part of a batch could not
// be delivered. Logs holds exactly the subset that failed.
type FailedToSend struct {
	Logs []woodchuck.Log
}

func (e *FailedToSend) Error() string {
	return fmt.Sprintf("failed to send %d logs", len(e.Logs))
}

// Chunk splits logs into byte-bounded chunks of at most capBytes each,
// packing greedily in input order. A single Log whose serialized form
// exceeds capBytes is placed alone in its own chunk rather than being
// split — the chunker never splits an individual Log.
func Chunk(logs []woodchuck.Log, capBytes int) [][]woodchuck.Log {
	if len(logs) == 0 {
		return nil
	}

	var chunks [][]woodchuck.Log
	var current []woodchuck.Log
	currentBytes := 0

	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, current)
			current = nil
			currentBytes = 0
		}
	}

	for _, log := range logs {
		size := len(log.String())
		if len(current) > 0 && currentBytes+size > capBytes {
			flush()
		}
		current = append(current, log)
		currentBytes += size
	}
	flush()

	return chunks
}

// sendChunked runs the shared chunk-and-send loop: split logs into
// byte-bounded chunks, call send on each in order, and accumulate the
// logs of any chunk that fails into the returned error. A failure on one
// chunk does not stop the loop from attempting the rest.
func sendChunked(logs []woodchuck.Log, capBytes int, log logr.Logger, send func(chunk []woodchuck.Log) error) error {
	chunks := Chunk(logs, capBytes)

	var failed []woodchuck.Log
	for i, chunk := range chunks {
		if err := send(chunk); err != nil {
			log.Error(err, "failed sending chunk", "chunk", i, "items", len(chunk))
			failed = append(failed, chunk...)
			continue
		}
		log.V(1).Info("sent chunk", "chunk", i, "items", len(chunk))
	}

	if len(failed) > 0 {
		return &FailedToSend{Logs: failed}
	}
	return nil
}

// joinChunk renders a chunk as the newline-joined bulk body shared by
// the Loggly and Logzio wire formats.
func joinChunk(chunk []woodchuck.Log) string {
	body := ""
	for i, log := range chunk {
		if i > 0 {
			body += "\n"
		}
		body += log.String()
	}
	return body
}
