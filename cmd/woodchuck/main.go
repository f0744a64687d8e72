// Command woodchuck is the Lambda external extension process: it reads
// its configuration from the environment, selects a log-shipping
// backend, and runs the extension lifecycle driver until the platform
// shuts it down.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/firehose"
	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/klaatu01/woodchuck-go/driver"
	"github.com/klaatu01/woodchuck-go/extapi"
	"github.com/klaatu01/woodchuck-go/shipper"
	"github.com/pkg/errors"
)

func main() {
	stdr.SetVerbosity(1)
	logger := stdr.New(log.New(os.Stderr, "", log.LstdFlags))

	if err := run(logger); err != nil {
		logger.Error(err, "fatal startup error")
		os.Exit(1)
	}
}

func run(logger logr.Logger) error {
	ctx := context.Background()

	ship, err := selectShipper(ctx, logger)
	if err != nil {
		return fmt.Errorf("could not build destination: %w", err)
	}

	cfg := driver.DefaultConfig()
	if host := os.Getenv("WOODCHUCK_HOST"); host != "" {
		cfg.Host = host
	}
	if port, ok := envUint("WOODCHUCK_PORT"); ok {
		cfg.Port = int(port)
	}
	cfg.BufferingCfg = &extapi.LogsBufferingCfg{
		MaxItems:  envUintDefault("WOODCHUCK_MAX_ITEMS", 1000),
		MaxBytes:  envUintDefault("WOODCHUCK_MAX_BYTES", 262144),
		TimeoutMS: envUintDefault("WOODCHUCK_TIMEOUT", 2500),
	}

	d := driver.New(cfg, ship, logger)
	return d.Run(ctx)
}

// selectShipper picks exactly one backend based on which environment
// variables are present. The population of backends is closed: there is
// no plugin registry, only this fixed selection order.
func selectShipper(ctx context.Context, logger logr.Logger) (shipper.Shipper, error) {
	switch {
	case os.Getenv("LOGGLY_TOKEN") != "":
		return shipper.NewLogglyBuilder().
			WithToken(os.Getenv("LOGGLY_TOKEN")).
			WithTag(os.Getenv("LOGGLY_TAG")).
			WithTimeout(parseTimeout(os.Getenv("LOGGLY_TIMEOUT"))).
			WithLogger(logger).
			Build()

	case os.Getenv("LOGZIO_TOKEN") != "":
		return shipper.NewLogzioBuilder().
			WithToken(os.Getenv("LOGZIO_TOKEN")).
			WithHost(os.Getenv("LOGZIO_HOST")).
			WithTimeout(parseTimeout(os.Getenv("LOGZIO_TIMEOUT"))).
			WithLogger(logger).
			Build()

	case os.Getenv("WOODCHUCK_FIREHOSE_TARGET") != "":
		awsCfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "could not load AWS config")
		}
		var metadata json.RawMessage
		if raw := os.Getenv("WOODCHUCK_FIREHOSE_METADATA"); raw != "" {
			metadata = json.RawMessage(raw)
		}
		client := firehose.NewFromConfig(awsCfg)
		return shipper.NewFirehose(client, os.Getenv("WOODCHUCK_FIREHOSE_TARGET"), metadata, logger), nil

	default:
		logger.Info("no backend credentials found, falling back to local dev sink")
		return shipper.NewCustom(logger), nil
	}
}

// parseTimeout implements the timeout rule shared by Loggly and Logzio:
// 1000ms when unset or unparseable, and 0 means no timeout.
func parseTimeout(raw string) *time.Duration {
	if raw == "" {
		d := 1000 * time.Millisecond
		return &d
	}
	ms, err := strconv.Atoi(raw)
	if err != nil {
		d := 1000 * time.Millisecond
		return &d
	}
	d := time.Duration(ms) * time.Millisecond
	return &d
}

func envUint(name string) (uint32, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

func envUintDefault(name string, def uint32) uint32 {
	if v, ok := envUint(name); ok {
		return v
	}
	return def
}
