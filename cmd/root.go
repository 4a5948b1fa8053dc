// Package cmd wires up the CLI flags and dispatches to the console
// server or the healthcheck probe.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"telconsole/config"
	"telconsole/internal/core"
	"telconsole/internal/metrics"
	"telconsole/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X telconsole/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// stdout receives --version, --dry-run and healthcheck reports.
var stdout io.Writer = os.Stdout //nolint:gochecknoglobals

// Execute parses args and runs the console server, or the healthcheck
// subcommand when args start with "healthcheck".
func Execute(ctx context.Context, args []string) error {
	if len(args) > 0 && args[0] == "healthcheck" {
		return healthcheck(ctx, args[1:])
	}

	cfg := config.Default()
	fs := flag.NewFlagSet("telconsole", flag.ContinueOnError)

	// ── listener ─────────────────────────────────────────────────
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "Loopback port to listen on (0 = any free port)")
	fs.IntVar(&cfg.MaxConns, "max-conns", cfg.MaxConns, "Maximum concurrent sessions (0 = unbounded)")
	fs.DurationVar(&cfg.Heartbeat, "heartbeat", cfg.Heartbeat, "Interval between liveness log lines")
	fs.DurationVar(&cfg.GracePeriod, "grace", cfg.GracePeriod, "Shutdown wait for live sessions")

	// ── sessions ─────────────────────────────────────────────────
	fs.BoolVarP(&cfg.Debug, "debug", "d", cfg.Debug, "Skip shared bindings; sessions see only console")
	fs.StringVarP(&cfg.Execute, "exec", "e", "", "Run program per session instead of the console")
	fs.StringVarP(&cfg.Command, "command", "c", "", "Run shell command per session instead of the console")
	fs.StringVar(&cfg.Prompt, "prompt", cfg.Prompt, "Console prompt name")
	fs.BoolVar(&cfg.NoColor, "no-color", false, "Disable ANSI colours in the console")

	// ── bindings ─────────────────────────────────────────────────
	var binds []string
	fs.StringArrayVarP(&binds, "bind", "b", nil, "Shared binding name=value (repeatable)")
	fs.StringVar(&cfg.BindingsFile, "bindings-file", "", "JSON object merged into every session")
	fs.DurationVar(&cfg.BindingsTTL, "bindings-ttl", cfg.BindingsTTL, "Cache lifetime for shared bindings (0 = no cache)")

	// ── output ───────────────────────────────────────────────────
	var verbosity int
	fs.CountVarP(&verbosity, "verbose", "v", "Increase verbosity (repeatable)")
	fs.StringVar(&cfg.PropertiesFile, "config", "", "Properties file (default $"+config.EnvPrefix+"CONFIG)")

	var showVersion, showHelp, dryRun bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")
	fs.BoolVar(&dryRun, "dry-run", false, "Validate configuration and exit")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "telconsole %s\n", version)
		return nil
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected argument %q (use --help for usage)", fs.Arg(0))
	}

	if fs.Changed("verbose") {
		cfg.Verbose = config.DefaultVerbosity + verbosity
	}
	for _, spec := range binds {
		name, value, err := config.ParseBind(spec)
		if err != nil {
			return err
		}
		cfg.Binds[name] = value
	}

	// ── lower-precedence sources ─────────────────────────────────
	if err := loadSources(cfg, fs.Changed); err != nil {
		return err
	}

	// ── validate and build ───────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := util.NewLogger(cfg.Verbose)
	m := metrics.New()

	mode, err := core.Build(cfg, logger, m, version)
	if err != nil {
		return err
	}

	if dryRun {
		printConfig(cfg)
		return nil
	}

	logger.Verbose("telconsole %s starting, pid %d", version, os.Getpid())
	return mode.Run(ctx)
}

// loadSources overlays the properties file and then the environment,
// skipping anything given on the command line.
func loadSources(cfg *config.Config, changed config.SkipFunc) error {
	path := cfg.PropertiesFile
	if path == "" {
		path = config.PropertiesPath()
	}
	if path != "" {
		props, err := config.LoadProperties(path)
		if err != nil {
			return err
		}
		if err := props.Apply(cfg, changed); err != nil {
			return err
		}
	}
	config.LoadFromEnv(cfg, changed)
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────

func printConfig(cfg *config.Config) {
	evaluator := "console"
	switch {
	case cfg.Execute != "":
		evaluator = "exec " + cfg.Execute
	case cfg.Command != "":
		evaluator = "command " + cfg.Command
	}
	fmt.Fprintf(stdout, "listen     %s\n", cfg.Address())
	fmt.Fprintf(stdout, "evaluator  %s\n", evaluator)
	fmt.Fprintf(stdout, "max-conns  %d\n", cfg.MaxConns)
	fmt.Fprintf(stdout, "heartbeat  %s\n", cfg.Heartbeat)
	fmt.Fprintf(stdout, "debug      %t\n", cfg.Debug)
	fmt.Fprintf(stdout, "bindings   %d explicit\n", len(cfg.Binds))
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `telconsole – loopback telnet console v%s

Serves an interactive expression console (or a program of your choice)
to telnet clients on 127.0.0.1.

Usage:
  telconsole [options]                        Run the console server
  telconsole healthcheck [options]            Probe a running console

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  telconsole                                  Console on 127.0.0.1:3113
  telconsole -p 4000 -b env=staging           Custom port, shared binding
  telconsole -c 'sh -i'                       Shell per session
  telconsole healthcheck --wait               Wait until the console answers
  telnet 127.0.0.1 3113                       Connect
`)
}
