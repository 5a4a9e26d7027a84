// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ava-labs/tracevm/tracevm"
)

const (
	versionKey        = "version"
	httpHostKey       = "http-host"
	httpPortKey       = "http-port"
	logLevelKey       = "log-level"
	tickIntervalKey   = "tick-interval"
	executeDelayKey   = "execute-delay"
	executeTimeoutKey = "execute-timeout"
	fixtureKey        = "fixture"
	consoleKey        = "console"

	envPrefix = "tracevm"
)

// config is the resolved configuration of the tracevm binary.
type config struct {
	printVersion bool
	httpHost     string
	httpPort     uint16
	logLevel     string
	console      bool
	server       tracevm.Config
}

func buildFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet(tracevm.Name, flag.ContinueOnError)

	fs.Bool(versionKey, false, "If true, prints the version and quits")
	fs.String(httpHostKey, "127.0.0.1", "Address the HTTP server listens on")
	fs.Uint(httpPortKey, 9650, "Port the HTTP server listens on")
	fs.String(logLevelKey, "info", "Log level (debug, info, warn, error, crit)")
	fs.Duration(tickIntervalKey, tracevm.DefaultTickInterval, "Interval between auto-advance steps")
	fs.Duration(executeDelayKey, tracevm.DefaultExecuteDelay, "Simulated execution latency")
	fs.Duration(executeTimeoutKey, tracevm.DefaultExecuteTimeout, "Maximum time an execution may take")
	fs.String(fixtureKey, tracevm.CounterFixture, fmt.Sprintf("Recorded trace to replay, one of %s", strings.Join(tracevm.FixtureNames(), ", ")))
	fs.Bool(consoleKey, false, "If true, draws every frame to stdout")

	return fs
}

// getViper returns the viper environment for the binary. Every flag may also
// be set through a TRACEVM_ prefixed environment variable.
func getViper(args []string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs := pflag.NewFlagSet(tracevm.Name, pflag.ContinueOnError)
	fs.AddGoFlagSet(buildFlagSet())
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	return v, nil
}

func getConfig(args []string) (config, error) {
	v, err := getViper(args)
	if err != nil {
		return config{}, err
	}

	port := v.GetUint(httpPortKey)
	if port > 65535 {
		return config{}, fmt.Errorf("%s %d is out of range", httpPortKey, port)
	}
	durations := map[string]time.Duration{
		tickIntervalKey:   v.GetDuration(tickIntervalKey),
		executeDelayKey:   v.GetDuration(executeDelayKey),
		executeTimeoutKey: v.GetDuration(executeTimeoutKey),
	}
	for key, d := range durations {
		if d <= 0 {
			return config{}, fmt.Errorf("%s must be positive, got %s", key, d)
		}
	}
	fixture := v.GetString(fixtureKey)
	if _, ok := tracevm.LookupFixture(fixture); !ok {
		return config{}, fmt.Errorf("unknown %s %q", fixtureKey, fixture)
	}

	return config{
		printVersion: v.GetBool(versionKey),
		httpHost:     v.GetString(httpHostKey),
		httpPort:     uint16(port),
		logLevel:     v.GetString(logLevelKey),
		console:      v.GetBool(consoleKey),
		server: tracevm.Config{
			TickInterval:   durations[tickIntervalKey],
			ExecuteDelay:   durations[executeDelayKey],
			ExecuteTimeout: durations[executeTimeoutKey],
			Fixture:        fixture,
		},
	}, nil
}
