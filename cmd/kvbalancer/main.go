// Package main is the entry point for kvbalancer: it builds a balancer
// from config and flags, replays a command script against it and prints
// one line per command.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"kvbalancer/internal/balancer"
	"kvbalancer/internal/command"
	"kvbalancer/internal/config"
	"kvbalancer/internal/logging"
	"kvbalancer/internal/snapshot"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "kvbalancer: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("kvbalancer", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		configFile   = fs.String("config", "", "config file path (YAML/JSON)")
		servers      = fs.String("servers", "", "initial servers as id:cache pairs (e.g. 1:10,2:5)")
		vnodes       = fs.Bool("vnodes", false, "place two virtual replicas per server")
		input        = fs.String("input", "-", "command script path, - for stdin")
		logLevel     = fs.String("log-level", "", "log level (debug, info, warn, error)")
		logFormat    = fs.String("log-format", "", "log format (console, json)")
		writePolicy  = fs.String("write-policy", "", "write-allocate or write-around")
		keyHash      = fs.String("key-hash", "", "document key hash (djb2, fnv1a)")
		showSnapshot = fs.Bool("snapshot", false, "print the cluster layout as JSON after the script")
		showVersion  = fs.Bool("version", false, "print the version")
	)

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `kvbalancer - consistent-hashing document store simulator

Usage:
  kvbalancer [options]

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(fs.Output(), `
Examples:
  # replay a script with two servers already placed
  kvbalancer --servers 1:10,2:5 --input commands.txt

  # virtual nodes, debug logs and a final snapshot
  kvbalancer --vnodes --log-level debug --snapshot < commands.txt
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Fprintf(stdout, "kvbalancer version %s\n", version)
		return nil
	}

	cfg := config.Default()
	if *configFile != "" {
		loaded, err := config.LoadFile(*configFile)
		if err != nil {
			return err
		}
		cfg = *loaded
	}

	// flags override the file only when given
	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "servers":
			parsed, err := config.ParseServers(*servers)
			if err != nil {
				flagErr = err
				return
			}
			cfg.Servers = parsed
		case "vnodes":
			cfg.EnableVNodes = *vnodes
		case "log-level":
			cfg.Log.Level = *logLevel
		case "log-format":
			cfg.Log.Format = *logFormat
		case "write-policy":
			cfg.WritePolicy = *writePolicy
		case "key-hash":
			cfg.KeyHash = *keyHash
		}
	})
	if flagErr != nil {
		return flagErr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	cmds, err := readScript(*input, stdin)
	if err != nil {
		return err
	}

	opts, err := cfg.BalancerOptions(&logger)
	if err != nil {
		return err
	}
	lb := balancer.New(opts)
	defer lb.Close()

	for _, s := range cfg.Servers {
		if err := lb.AddServer(s.ID, s.CacheCapacity); err != nil {
			return fmt.Errorf("initial server %d: %w", s.ID, err)
		}
	}

	failed := execute(lb, cmds, stdout, logger)

	if *showSnapshot {
		data, err := snapshot.Marshal(snapshot.Take(lb))
		if err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		fmt.Fprintf(stdout, "%s\n", data)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d commands failed", failed, len(cmds))
	}
	return nil
}

func readScript(path string, stdin io.Reader) ([]command.Command, error) {
	if path == "-" {
		return command.Parse(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open script: %w", err)
	}
	defer f.Close()
	return command.Parse(f)
}

// execute runs cmds one at a time and returns how many failed.
func execute(lb *balancer.Balancer, cmds []command.Command, stdout io.Writer, logger zerolog.Logger) int {
	failed := 0
	for _, cmd := range cmds {
		o := command.Apply(lb, cmd)
		if o.Err != nil {
			failed++
			logger.Error().Err(o.Err).Int("line", cmd.Line).Msg("command failed")
		}
		fmt.Fprintln(stdout, command.Format(o))
	}
	return failed
}
