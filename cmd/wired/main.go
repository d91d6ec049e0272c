// Command wired serves static files, a JSON echo endpoint and WebSocket
// echo sessions over a hand-rolled HTTP/1.1 stack.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/vitalvas/wire/config"
	"github.com/vitalvas/wire/logging"
	"github.com/vitalvas/wire/server"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "wired:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	flags := pflag.NewFlagSet("wired", pflag.ContinueOnError)
	config.RegisterFlags(flags)
	printConfig := flags.Bool("print-config", false, "print the effective configuration as YAML and exit")

	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(flags)
	if err != nil {
		return err
	}

	if *printConfig {
		data, err := cfg.YAML()
		if err != nil {
			return err
		}
		_, err = stdout.Write(data)
		return err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h, err := server.NewHandler(cfg, logger)
	if err != nil {
		return err
	}

	srv := server.New(cfg, h, logger)
	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return err
	}

	logger.Info("server stopped")
	return nil
}
