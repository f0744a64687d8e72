// Package intake implements the local HTTP endpoint the platform's Logs
// API posts log batches to. It parses each batch on ingest and appends
// the resulting Logs straight onto the shared queue, keeping the
// lifecycle driver's loop free of parsing work.
package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	woodchuck "github.com/klaatu01/woodchuck-go"
	"github.com/klaatu01/woodchuck-go/parser"
	"github.com/klaatu01/woodchuck-go/queue"
)

// Server is the intake HTTP endpoint: a single POST / route that decodes
// a JSON array of RawRecord, parses it, and appends the result to Queue.
type Server struct {
	Queue    *queue.LogQueue
	Pipeline *parser.Pipeline
	Log      logr.Logger

	srv *http.Server
}

// New builds a Server listening on addr (host:port, port 0 picks an
// ephemeral port). The server isn't started until Start is called.
func New(addr string, q *queue.LogQueue, pipeline *parser.Pipeline, log logr.Logger) *Server {
	s := &Server{Queue: q, Pipeline: pipeline, Log: log}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: time.Second,
	}
	return s
}

// Start binds the listener and serves in the background, returning the
// bound address (useful when addr's port is 0). Serve errors other than
// a graceful Shutdown are sent to errCh.
func (s *Server) Start(errCh chan<- error) (string, error) {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return "", fmt.Errorf("could not start intake HTTP server: %w", err)
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			err = fmt.Errorf("intake HTTP server failed: %w", err)
			s.Log.Error(err, "")
			select {
			case errCh <- err:
			default:
			}
		}
	}()

	return ln.Addr().String(), nil
}

// Shutdown gracefully stops the server, waiting for in-flight requests
// to complete or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// ServeHTTP decodes the request body as a JSON array of RawRecord,
// parses the batch, and appends the resulting Logs to the queue. The
// endpoint tolerates overlapping requests: each decode/parse/append
// cycle is independent and holds the queue lock only for the append.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	var raw []woodchuck.RawRecord
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		s.Log.Error(err, "could not decode intake request body")
		http.Error(w, fmt.Sprintf("invalid request body: %s", err), http.StatusBadRequest)
		return
	}

	logs := s.Pipeline.Parse(raw)
	s.Queue.Append(logs)

	w.WriteHeader(http.StatusOK)
}
