package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"LinkScanner/internal/cli"
	"LinkScanner/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		logging.New("error").Error("linkscanner failed", "error", err)
		os.Exit(1)
	}
}
