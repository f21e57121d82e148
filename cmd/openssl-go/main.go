// Command openssl-go is a small inspection tool built on the openssl
// packages: digests, certificates, PKCS#12 bundles, private keys and a TLS
// client.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/logging"
)

// Environment variables that override the global flags.
const (
	envLogJSON    = "OPENSSL_GO_LOG_JSON"
	envLogLevel   = "OPENSSL_GO_LOG_LEVEL"
	envConfigFile = "OPENSSL_GO_CONF"
)

// command runs one subcommand with the arguments that follow its name.
type command struct {
	summary string
	run     func(args []string) error
}

type options struct {
	json       bool
	level      string
	configFile string
}

func main() {
	var opts options
	flag.BoolVar(&opts.json, "json", false, "Log as JSON ("+envLogJSON+")")
	flag.StringVar(&opts.level, "log-level", "warn", "Log level: debug, info, warn, error ("+envLogLevel+")")
	flag.StringVar(&opts.configFile, "conf", "", "OpenSSL configuration file to load ("+envConfigFile+")")
	flag.Usage = usage
	flag.Parse()

	if err := applyEnv(&opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	logger, err := newLogger(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	if err := openssl.Init(openssl.Config{ConfigFile: opts.configFile, Logger: logging.NewZap(logger)}); err != nil {
		if errors.Is(err, openssl.ErrNotBuilt) {
			fmt.Printf("library unavailable: %v\n", err)
			return
		}
		fmt.Fprintf(os.Stderr, "Error: init: %v\n", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		usage()
		os.Exit(2)
	}
	if err := cmd.run(args[1:]); err != nil {
		logger.Debug("command failed", zap.String("command", args[0]), zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if stack := openssl.StackOf(err); len(stack) > 0 {
			for _, e := range stack {
				fmt.Fprintf(os.Stderr, "  %s\n", e)
			}
		}
		os.Exit(1)
	}
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintln(out, "Usage: openssl-go [flags] <command> [args]")
	fmt.Fprintln(out, "\nCommands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-10s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(out, "\nFlags:")
	flag.PrintDefaults()
}

// applyEnv fills options that were not set on the command line.
func applyEnv(opts *options) error {
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if v, ok := os.LookupEnv(envLogJSON); ok && !set["json"] {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envLogJSON, err)
		}
		opts.json = b
	}
	if v, ok := os.LookupEnv(envLogLevel); ok && !set["log-level"] {
		opts.level = v
	}
	if v, ok := os.LookupEnv(envConfigFile); ok && !set["conf"] {
		opts.configFile = v
	}
	return nil
}

func newLogger(opts options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(opts.level))
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg := zap.NewDevelopmentConfig()
	if opts.json {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}
