// Package extapi implements a low-level client for the Lambda Extensions
// API: registration, the long-polling event/next call, error reporting and
// the Logs API subscription call. The lifecycle state machine built on top
// of it lives in package driver.
package extapi
