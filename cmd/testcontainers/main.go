package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/localnerve/gestionale/pkg/logging"
	"github.com/localnerve/gestionale/tests/helpers"
)

const usage = `
Run the gestionale backing services (database and Redis) in testcontainers
with the environment variables from the .env file. Point a local server at the
printed DB_HOST, DB_PORT and REDIS_URL. Stop with Ctrl-C; the containers are
removed on exit, including when interrupted during startup.

Usage:

testcontainers [-h] [-f ENV_FILE_PATH]

ENV_FILE_PATH: path to the .env file

example
  testcontainers -f /path/to/something/.env
`

type startResult struct {
	containers *helpers.TestContainers
	err        error
}

func main() {
	var showHelp bool
	flag.BoolVar(&showHelp, "h", false, "show help")
	var envFilename string
	flag.StringVar(&envFilename, "f", "", "path to the .env file")
	flag.Parse()

	if showHelp {
		fmt.Println(usage)
		return
	}

	logging.Setup()

	if envFilename != "" {
		slog.Info("loading environment variables", "file", envFilename)
		if err := godotenv.Load(envFilename); err != nil {
			slog.Error("failed to load environment variables", "file", envFilename, "error", err)
			os.Exit(1)
		}
	} else {
		slog.Info("no environment file specified, using current environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM, syscall.SIGTSTP, syscall.SIGQUIT)
	defer stop()

	started := make(chan startResult, 1)
	go func() {
		tc, err := helpers.StartTestContainers(ctx, nil)
		started <- startResult{containers: tc, err: err}
	}()

	var res startResult
	select {
	case res = <-started:
		if res.err != nil {
			slog.Error("failed to start testcontainers", "error", res.err)
			os.Exit(1)
		}
		slog.Info("testcontainers running, waiting for a signal")
		<-ctx.Done()

	case <-ctx.Done():
		// Startup sees the cancelled context and cleans up after itself
		slog.Info("signal received during startup, waiting for it to stop")
		res = <-started
	}

	slog.Info("terminating testcontainers")
	if res.containers != nil {
		res.containers.Terminate(nil)
	}
}
