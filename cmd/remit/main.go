// ====================================
// File: cmd/remit/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/vatanpay/remit/internal/app"
	"github.com/vatanpay/remit/internal/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, err := logger.New(nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	runner := app.NewRunner(log)
	if err := runner.Initialize(*configPath); err != nil {
		log.Fatal("Failed to initialize", zap.Error(err))
	}

	if err := runner.Run(ctx, flag.Args()); err != nil {
		log.Error("Command failed", zap.Error(err))
		runner.Shutdown()
		os.Exit(1)
	}

	runner.Shutdown()
}
