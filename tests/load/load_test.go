// Copyright (C) 2019-2022, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// load implements the load tests.
package load_test

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ava-labs/avalanchego/database/memdb"
	log "github.com/inconshreveable/log15"
	ginkgo "github.com/onsi/ginkgo/v2"
	"github.com/onsi/ginkgo/v2/formatter"
	"github.com/onsi/gomega"
	"golang.org/x/sync/errgroup"

	"github.com/ava-labs/tracevm/client"
	"github.com/ava-labs/tracevm/tracevm"
)

func TestLoad(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "tracevm load test suites")
}

var (
	requestTimeout time.Duration
	executeDelay   time.Duration
	workers        int
	duration       time.Duration
)

func init() {
	flag.DurationVar(
		&requestTimeout,
		"request-timeout",
		30*time.Second,
		"timeout for each API call",
	)

	flag.DurationVar(
		&executeDelay,
		"execute-delay",
		500*time.Millisecond,
		"simulated execution latency; must outlast the burst of concurrent executes",
	)

	flag.IntVar(
		&workers,
		"workers",
		16,
		"number of concurrent clients",
	)

	flag.DurationVar(
		&duration,
		"duration",
		3*time.Second,
		"how long to hammer playback operations",
	)
}

var (
	server     *tracevm.Server
	httpServer *httptest.Server
	instances  []client.Client
)

var _ = ginkgo.BeforeSuite(func() {
	var err error
	server, err = tracevm.New(tracevm.Config{
		TickInterval: 5 * time.Millisecond,
		ExecuteDelay: executeDelay,
		Fixture:      tracevm.TokenWalletFixture,
	}, memdb.New())
	gomega.Expect(err).Should(gomega.BeNil())

	mux := http.NewServeMux()
	handlers, err := server.CreateHandlers()
	gomega.Expect(err).Should(gomega.BeNil())
	for path, handler := range handlers {
		mux.Handle(path, handler)
	}
	httpServer = httptest.NewServer(mux)
	outf("{{blue}}tracevm RPC:{{/}} %q\n", httpServer.URL+"/rpc")

	instances = make([]client.Client, workers)
	for i := range instances {
		instances[i] = client.New(httpServer.URL + "/rpc")
	}
})

var _ = ginkgo.AfterSuite(func() {
	outf("{{red}}shutting down tracevm{{/}}\n")
	httpServer.Close()
	gomega.Expect(server.Shutdown()).Should(gomega.BeNil())
})

var _ = ginkgo.Describe("[Execute]", func() {
	ginkgo.It("admits exactly one of many concurrent executions", func() {
		var succeeded, rejected int64
		g, gctx := errgroup.WithContext(context.Background())
		for _, cli := range instances {
			cli := cli
			g.Go(func() error {
				defer ginkgo.GinkgoRecover()

				ctx, cancel := context.WithTimeout(gctx, requestTimeout)
				defer cancel()
				_, _, err := cli.Execute(ctx, tracevm.ExecuteArgs{Source: tracevm.TokenWalletSource})
				switch {
				case err == nil:
					atomic.AddInt64(&succeeded, 1)
				case strings.Contains(err.Error(), tracevm.ErrReentrantExecution.Error()):
					atomic.AddInt64(&rejected, 1)
				default:
					return err
				}
				return nil
			})
		}
		gomega.Ω(g.Wait()).Should(gomega.BeNil())
		log.Info("concurrent executions", "succeeded", succeeded, "rejected", rejected)
		gomega.Ω(succeeded).Should(gomega.Equal(int64(1)))
		gomega.Ω(rejected).Should(gomega.Equal(int64(len(instances) - 1)))
	})
})

var _ = ginkgo.Describe("[Playback]", func() {
	ginkgo.It("keeps the cursor in range under concurrent control", func() {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		_, state, err := instances[0].Execute(ctx, tracevm.ExecuteArgs{Source: tracevm.TokenWalletSource})
		cancel()
		gomega.Ω(err).Should(gomega.BeNil())
		total := state.TotalSteps

		var requests int64
		ctx, cancel = context.WithTimeout(context.Background(), duration)
		defer cancel()
		g, gctx := errgroup.WithContext(ctx)
		for i, cli := range instances {
			i, cli := i, cli
			g.Go(func() error {
				defer ginkgo.GinkgoRecover()

				for n := 0; gctx.Err() == nil; n++ {
					var (
						state tracevm.Snapshot
						err   error
					)
					switch (i + n) % 6 {
					case 0:
						_, state, err = cli.Play(gctx)
					case 1:
						_, state, err = cli.Pause(gctx)
					case 2:
						_, state, err = cli.StepForward(gctx)
					case 3:
						_, state, err = cli.StepBack(gctx)
					case 4:
						_, state, err = cli.Seek(gctx, n%total)
					default:
						_, state, err = cli.Stop(gctx)
					}
					if gctx.Err() != nil {
						return nil
					}
					gomega.Ω(err).Should(gomega.BeNil())
					gomega.Ω(state.Cursor).Should(gomega.BeNumerically(">=", 0))
					gomega.Ω(state.Cursor).Should(gomega.BeNumerically("<", total))
					gomega.Ω(state.TotalSteps).Should(gomega.Equal(total))
					atomic.AddInt64(&requests, 1)
				}
				return nil
			})
		}
		gomega.Ω(g.Wait()).Should(gomega.BeNil())
		log.Info("playback load", "requests", requests, "rps", float64(requests)/duration.Seconds())
	})
})

// Outputs to stdout.
//
// e.g.,
//
//	Out("{{green}}{{bold}}hi there %q{{/}}", "aa")
//	Out("{{magenta}}{{bold}}hi therea{{/}} {{cyan}}{{underline}}b{{/}}")
//
// ref.
// https://github.com/onsi/ginkgo/blob/v2.0.0/formatter/formatter.go#L52-L73
func outf(format string, args ...interface{}) {
	s := formatter.F(format, args...)
	fmt.Fprint(formatter.ColorableStdOut, s)
}
