package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/pflag"

	"github.com/Station-Manager/serialdiag"
	"github.com/Station-Manager/serialdiag/internal/config"
	"github.com/Station-Manager/serialdiag/internal/logging"
)

// Exit code 1 (port could not be opened) comes from Outcome.ExitCode.
const (
	exitOK      = 0
	exitUsage   = 2
	exitListErr = 3
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("serialdiag", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	configFile := fs.StringP("config", "c", "", "config file (yaml, json or toml)")
	list := fs.BoolP("list", "l", false, "list serial ports and exit")
	config.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	if *list {
		if err := listPorts(stdout); err != nil {
			fmt.Fprintf(stderr, "list ports: %v\n", err)
			return exitListErr
		}
		return exitOK
	}

	cfg, err := config.Load(*configFile, fs)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return exitUsage
	}

	logger, err := logging.New(cfg.Log, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "logging: %v\n", err)
		return exitUsage
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := []serialdiag.Option{serialdiag.WithLogger(logger.Logger)}
	if cfg.Report.Format == "text" {
		opts = append(opts, serialdiag.WithReporter(serialdiag.ReporterFunc(func(line string) {
			fmt.Fprintln(stdout, line)
		})))
	}

	out := serialdiag.RunDiagnostic(ctx, cfg.Port.Name, serialdiag.IdentifyCommand, serialdiag.ResponseCapacity, opts...)

	if cfg.Report.Format == "json" {
		if err := out.WriteJSON(stdout); err != nil {
			logger.Error().Err(err).Msg("writing report")
		}
	}

	if errors.Is(out.Err(), serialdiag.ErrPortNotFound) {
		printAvailable(stderr)
	}

	logger.Info().
		Str("run_id", out.RunID).
		Str("health", string(out.Health)).
		Dur("took", out.Duration).
		Msg("diagnostic finished")

	return out.ExitCode()
}

func listPorts(w io.Writer) error {
	ports, err := serialdiag.DetailedPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Fprintln(w, "No serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Fprintf(w, "Port: %s\n", p.Name)
		if p.IsUSB {
			fmt.Fprintf(w, "   USB ID     %s:%s\n", p.VID, p.PID)
			if p.SerialNumber != "" {
				fmt.Fprintf(w, "   USB serial %s\n", p.SerialNumber)
			}
			if p.Product != "" {
				fmt.Fprintf(w, "   Product    %s\n", p.Product)
			}
		}
	}
	return nil
}

func printAvailable(w io.Writer) {
	ports, err := serialdiag.AvailablePorts()
	if err != nil || len(ports) == 0 {
		return
	}
	fmt.Fprintln(w, "Available ports:")
	for _, p := range ports {
		fmt.Fprintf(w, "   %s\n", p)
	}
}
