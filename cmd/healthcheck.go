package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"telconsole/config"
	"telconsole/internal/errors"
	"telconsole/internal/health"
	"telconsole/internal/retry"
	"telconsole/util"
)

// healthcheck probes a running console and returns nil if it answered.
func healthcheck(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("telconsole healthcheck", flag.ContinueOnError)

	addr := fs.String("addr", config.Default().Address(), "Console address host:port")
	wait := fs.Bool("wait", false, "Retry until the console answers")
	waitFor := fs.Duration("wait-timeout", config.DefaultHealthWait, "Give up waiting after this long")
	quiet := fs.BoolP("quiet", "q", false, "Print nothing on success")
	timeout := fs.Duration("timeout", config.DefaultHealthTimeout, "Timeout for one probe")
	verbosity := fs.CountP("verbose", "v", "Log each retry")
	showHelp := fs.BoolP("help", "h", false, "Show this help")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n  telconsole healthcheck [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *showHelp {
		fs.Usage()
		return nil
	}

	logger := util.NewLogger(config.DefaultVerbosity + *verbosity)
	if host, _, err := net.SplitHostPort(*addr); err != nil {
		return fmt.Errorf("addr: %w", err)
	} else if !util.IsLoopback(host) {
		logger.Warn("%s is not a loopback address; the console only listens on 127.0.0.1", host)
	}

	var err error
	if *wait {
		wctx, cancel := context.WithTimeout(ctx, *waitFor)
		defer cancel()

		b := retry.DefaultBackoff()
		b.OnRetry = func(attempt int, err error, next time.Duration) {
			logger.Verbose("attempt %d: %v (retrying in %s)", attempt, err, next.Round(time.Millisecond))
		}
		err = health.Wait(wctx, *addr, *timeout, b)
	} else {
		err = health.Check(ctx, *addr, *timeout)
	}
	if err != nil {
		var ne *errors.NetworkError
		if errors.As(err, &ne) && ne.Op == "dial" {
			return fmt.Errorf("%w (is telconsole running on %s?)", err, *addr)
		}
		return err
	}

	if !*quiet {
		fmt.Fprintf(stdout, "ok %s\n", *addr)
	}
	return nil
}
