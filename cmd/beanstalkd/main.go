/*
	Command beanstalkd runs the broker server, generalizing the teacher's
	root main.go (cli.MustParseFlags -> construct -> run -> signal-driven
	shutdown) from dispatching shell-invoking tube workers to serving the
	Beanstalk wire protocol.
*/
package main

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/kayako/beanstalk-broker/cli"
	"github.com/kayako/beanstalk-broker/internal/broker"
	"github.com/kayako/beanstalk-broker/internal/metrics"
	"github.com/kayako/beanstalk-broker/internal/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

func main() {
	opts := cli.MustParseFlags(os.Args[1:])

	if opts.Debug {
		log.SetLevel(log.DebugLevel)
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if opts.WALDir != "" {
		log.WithField("wal-dir", opts.WALDir).Warn("--wal-dir is reserved for future write-ahead-log persistence; nothing is written there yet")
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	requeue := broker.RequeueTail
	if opts.RequeueHead {
		requeue = broker.RequeueHead
	}

	q := broker.New(broker.Config{
		MaxJobSize:    opts.MaxJobSize,
		Requeue:       requeue,
		MaxTimeouts:   opts.MaxTimeouts,
		SweepInterval: opts.SweepInterval,
	}, nil, m)

	if opts.Debug {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			if err := http.ListenAndServe(opts.MetricsListen, mux); err != nil {
				log.WithError(err).Error("metrics server stopped")
			}
		}()
	}

	srv := server.New(opts.Address(), q)
	handleShutdown(srv.Shutdown)

	if err := srv.ListenAndServe(); err != nil {
		log.WithError(err).Error("server stopped")
		var bindErr *server.BindError
		if errors.As(err, &bindErr) {
			os.Exit(cli.ExitBindFailure)
		}
		os.Exit(cli.ExitRuntimeError)
	}
}

// handleShutdown registers a listener for termination signals and runs
// handle once one arrives, generalized from the teacher's signal-driven
// shutdown in main.go.
func handleShutdown(handle func()) {
	sh := make(chan os.Signal, 1)
	signal.Notify(sh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sh
		handle()
	}()
}
