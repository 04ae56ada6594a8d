package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mwantia/mountfs/cmd"
	"github.com/mwantia/mountfs/cmd/builtin"
	"github.com/mwantia/mountfs/config"
)

func main() {
	configPath := flag.String("config", "", "Path to the config file (default: "+config.GetDefaultConfigPath()+")")
	logLevel := flag.String("log-level", "", "Override the configured log level (DEBUG, INFO, WARN, ERROR)")
	sample := flag.Bool("sample", false, "Print a sample configuration and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] [command [args...]]\n\n", os.Args[0])
		fmt.Fprintln(flag.CommandLine.Output(), "Without a command, commands are read line by line from stdin.")
		fmt.Fprintln(flag.CommandLine.Output())
		flag.PrintDefaults()
	}
	flag.Parse()

	if *sample {
		if err := config.WriteSample(os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, *configPath, *logLevel, flag.Args()))
}

func run(ctx context.Context, configPath, logLevel string, args []string) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	if logLevel != "" {
		cfg.Logging.Level = strings.ToUpper(logLevel)
		if err := config.Validate(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid log level: %v\n", err)
			return 1
		}
	}

	logger, err := config.NewLogger(&cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Close()

	vfs, err := config.BuildWithLogger(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to build mount table: %v", err)
		return 1
	}
	defer func() {
		if err := vfs.Close(); err != nil {
			logger.Warn("Failed to close mount table: %v", err)
		}
	}()

	manager := cmd.NewManager(vfs, logger.Named("cmd"))
	if err := builtin.Register(manager); err != nil {
		logger.Error("Failed to register commands: %v", err)
		return 1
	}

	if len(args) > 0 {
		code, err := manager.Execute(ctx, os.Stdout, args...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", args[0], err)
		}
		return code
	}

	return shell(ctx, manager, os.Stdin, os.Stdout, os.Stderr)
}

// shell executes one command per input line until EOF or "exit". The exit
// code is the one of the last command.
func shell(ctx context.Context, manager *cmd.Manager, in io.Reader, out, errOut io.Writer) int {
	code := 0
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return 130
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if fields[0] == "exit" {
			break
		}

		var err error
		code, err = manager.Execute(ctx, out, fields...)
		if err != nil {
			fmt.Fprintf(errOut, "%s: %v\n", fields[0], err)
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(errOut, "failed to read input: %v\n", err)
		return 1
	}
	return code
}
