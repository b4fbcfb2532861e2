// Package main is a command-line probe for exercising a debug adapter
// end to end: it dials the adapter named by -type, runs
// initialize/launch/configurationDone, prints every event it
// receives, then disconnects once it gets SIGINT (Ctrl-C) or SIGTERM.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dshills/dapcore/adapters"
	"github.com/dshills/dapcore/dap"
)

func main() {
	os.Exit(run())
}

type stderrLogger struct {
	verbose bool
}

func (l stderrLogger) Debugf(format string, args ...any) {
	if l.verbose {
		fmt.Fprintf(os.Stderr, "debug: "+format+"\n", args...)
	}
}
func (l stderrLogger) Infof(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "info: "+format+"\n", args...)
}
func (l stderrLogger) Warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "warn: "+format+"\n", args...)
}
func (l stderrLogger) Errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}

func run() int {
	var (
		adapterType = flag.String("type", "", "adapter type: delve, nodejs, python, generic (required)")
		program     = flag.String("program", "", "program to launch")
		port        = flag.Int("port", 0, "port for server-mode adapters (0 uses stdio where supported)")
		host        = flag.String("host", "", "host for server-mode adapters (default 127.0.0.1)")
		adapterPath = flag.String("adapter-path", "", "executable path (generic adapter only)")
		readyOutput = flag.String("ready-output", "", "substring of stdout/stderr that signals readiness (generic adapter only)")
		timeout     = flag.Duration("timeout", 10*time.Second, "overall timeout for connect + initialize + launch")
		verbose     = flag.Bool("v", false, "verbose logging")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "dapcore-probe - connect to a debug adapter and print its events\n\n")
		fmt.Fprintf(os.Stderr, "Usage: dapcore-probe -type delve -program ./main.go\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *adapterType == "" {
		fmt.Fprintln(os.Stderr, "Error: -type is required")
		flag.Usage()
		return 1
	}

	config := adapters.Config{
		Type:    adapters.AdapterType(*adapterType),
		Name:    "dapcore-probe",
		Request: "launch",
		Program: *program,
		Port:    *port,
		Host:    *host,
	}

	registry := adapters.NewRegistry()
	if config.Type == adapters.AdapterGeneric {
		registry.Register(adapters.AdapterGeneric, func(c adapters.Config) (adapters.Adapter, error) {
			return adapters.NewGenericAdapterWithConfig(adapters.GenericConfig{
				Config:      c,
				AdapterArgs: flag.Args(),
				ReadyOutput: *readyOutput,
			})
		})
		config.AdapterPath = *adapterPath
	}

	logger := stderrLogger{verbose: *verbose}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client, adapter, err := adapters.Connect(ctx, registry, config, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer client.Close()

	client.OnAnyEvent(func(evt *dap.Event) {
		printEvent(evt)
	})
	client.OnRequest("runInTerminal", func(args json.RawMessage) (any, error) {
		var ta dap.RunInTerminalRequestArguments
		if err := json.Unmarshal(args, &ta); err == nil {
			fmt.Fprintf(os.Stderr, "adapter asked to run in terminal: %s\n", strings.Join(ta.Args, " "))
		}
		return dap.RunInTerminalResponseBody{}, nil
	})

	caps, err := client.Initialize(ctx, dap.InitializeRequestArguments{
		ClientID:                     "dapcore-probe",
		ClientName:                   "dapcore-probe",
		AdapterID:                    string(adapter.Type()),
		LinesStartAt1:                true,
		ColumnsStartAt1:              true,
		PathFormat:                   "path",
		SupportsRunInTerminalRequest: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: initialize: %v\n", err)
		return 1
	}
	logger.Infof("adapter capabilities: %+v", caps)

	launchArgs, err := adapter.GetLaunchArgs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: build launch args: %v\n", err)
		return 1
	}
	if err := client.Launch(ctx, launchArgs); err != nil {
		fmt.Fprintf(os.Stderr, "Error: launch: %v\n", err)
		return 1
	}
	if err := client.ConfigurationDone(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: configurationDone: %v\n", err)
		return 1
	}

	logger.Infof("session started, printing events until interrupted")

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals

	disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer disconnectCancel()
	if err := client.Disconnect(disconnectCtx, dap.DisconnectArguments{}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: disconnect: %v\n", err)
		return 1
	}

	return 0
}

func printEvent(evt *dap.Event) {
	fmt.Printf("event: %s %s\n", evt.Event, string(evt.Body))
}
