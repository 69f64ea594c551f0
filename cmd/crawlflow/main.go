// cmd/crawlflow/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/law-makers/crawlflow/internal/cli"
	"github.com/rs/zerolog/log"
)

func main() {
	// Cancel running tasks on interrupt; the root command closes the application
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.ExecuteContext(ctx)
	if ctx.Err() != nil {
		log.Warn().Msg("Interrupt received, shut down gracefully")
	}
	stop()
	if err != nil {
		os.Exit(1)
	}
}
