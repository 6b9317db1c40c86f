/*
	Package cli provides command line support for the broker, rebuilt on
	github.com/spf13/cobra and github.com/spf13/pflag in place of the
	teacher's stdlib flag package, matching the CLI stack used elsewhere in
	the retrieval pack.
*/
package cli

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Exit codes, translated from original_source's ebeans main.rs ExitCode
// usage (0 normal, 2 rejected configuration, 111 bind failure, 1 other
// runtime error).
const (
	ExitOK           = 0
	ExitRuntimeError = 1
	ExitBadConfig    = 2
	ExitBindFailure  = 111
)

// Options contains runtime configuration, the result of parsing command
// line flags.
type Options struct {
	// Listen is the host/interface the broker listens on.
	Listen string

	// Port is the TCP port the broker listens on.
	Port uint16

	// MaxJobSize is the largest accepted put body, in bytes.
	MaxJobSize uint32

	// WALDir, if set, is where a future write-ahead log would live.
	// Persistence itself is out of scope (spec.md §1); the flag is
	// accepted so operators can point at a volume without the binary
	// rejecting its config, but internal/journal.NoopSink is still used.
	WALDir string

	// Debug enables debug logging and the /metrics HTTP endpoint.
	Debug bool

	// MetricsListen is the address /metrics is served on when Debug is set.
	MetricsListen string

	// RequeueHead requeues TTR-expired jobs at the head of their tube's
	// ready ordering instead of the tail.
	RequeueHead bool

	// MaxTimeouts is the number of TTR timeouts a job may accumulate
	// before it is buried instead of requeued. Zero means no ceiling.
	MaxTimeouts uint64

	// SweepInterval is how often the background timer driver scans for
	// expired delays, TTRs, and pauses.
	SweepInterval time.Duration
}

// Address returns the listen host and port joined into a dial/listen
// string.
func (o Options) Address() string {
	return net.JoinHostPort(o.Listen, strconv.Itoa(int(o.Port)))
}

// MustParseFlags calls ParseFlags and os.Exit(ExitBadConfig) on error,
// printing usage.
func MustParseFlags(args []string) Options {
	o, cmd, err := ParseFlags(args)
	if err != nil {
		if cmd != nil {
			cmd.Usage()
		}
		fmt.Println()
		fmt.Println(err)
		os.Exit(ExitBadConfig)
	}
	return o
}

// ParseFlags parses and validates CLI flags into an Options struct using a
// cobra.Command so the binary gets usage text, -h/--help, and flag error
// reporting for free.
func ParseFlags(args []string) (Options, *cobra.Command, error) {
	var o Options
	var parseErr error

	root := &cobra.Command{
		Use:   "beanstalkd",
		Short: "a Beanstalk protocol work-queue broker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			parseErr = validateOptions(o)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var flags *pflag.FlagSet = root.Flags()
	flags.StringVar(&o.Listen, "listen", "0.0.0.0", "interface to listen on")
	flags.Uint16Var(&o.Port, "port", 11300, "TCP port to listen on")
	flags.Uint32Var(&o.MaxJobSize, "max-job-size", 65535, "maximum accepted job body size, in bytes")
	flags.StringVar(&o.WALDir, "wal-dir", "", "directory for the write-ahead log (reserved; persistence is not yet implemented)")
	flags.BoolVar(&o.Debug, "debug", false, "enable debug logging and the /metrics endpoint")
	flags.StringVar(&o.MetricsListen, "metrics-listen", "127.0.0.1:9325", "address /metrics is served on when --debug is set")
	flags.BoolVar(&o.RequeueHead, "requeue-head", false, "requeue TTR-expired jobs at the head of ready instead of the tail")
	flags.Uint64Var(&o.MaxTimeouts, "max-timeouts", 0, "bury a job after this many TTR timeouts (0 disables the ceiling)")
	flags.DurationVar(&o.SweepInterval, "sweep-interval", 200*time.Millisecond, "background timer scan interval")

	// cobra falls back to os.Args[1:] when given nil; parse only args.
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return o, root, err
	}
	return o, root, parseErr
}

func validateOptions(o Options) error {
	var msgs []string

	if o.Port == 0 {
		msgs = append(msgs, "port must not be zero (use --port)")
	}
	if o.MaxJobSize == 0 {
		msgs = append(msgs, "max-job-size must be greater than zero")
	}

	if len(msgs) == 0 {
		return nil
	}
	return errors.New(strings.Join(msgs, "\n"))
}
