// Command recorder is the pipeline's live entrypoint: it reads a
// `|`-delimited text feed from stdin and, depending on the selected
// mode, either appends every event to a rotating binary log
// (--headless) or drives the full book/signal/strategy/execution
// decision path and the JSON display side-channels (--visual-only).
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"cortex/internal/app"
	"cortex/internal/ingest"
	"cortex/internal/wire"
)

func main() {
	headless, ok := parseMode(os.Args[1:])
	if !ok {
		app.ExitWithUsage("exactly one of --headless or --visual-only is required")
	}

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(headless); err != nil {
		slog.Error("bootstrap failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer bootstrap.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	producer := ingest.NewProducer(bootstrap.Ring, wire.DefaultSymbol, bootstrap.Config.Symbol)
	producerDone := make(chan struct{})
	go func() {
		defer close(producerDone)
		if err := producer.Run(os.Stdin); err != nil {
			slog.Error("producer stopped with error", slog.Any("err", err))
		}
		if n := producer.Dropped(); n > 0 {
			slog.Warn("producer dropped malformed or overflow lines", slog.Uint64("count", n))
		}
	}()

	consumerCtx, cancelConsumer := context.WithCancel(ctx)
	defer cancelConsumer()
	go func() {
		<-producerDone
		cancelConsumer()
	}()

	bootstrap.Run(consumerCtx)
	slog.Info("shutdown complete")
}

func parseMode(args []string) (headless bool, ok bool) {
	seen := 0
	for _, a := range args {
		switch a {
		case "--headless":
			headless = true
			seen++
		case "--visual-only":
			headless = false
			seen++
		default:
			return false, false
		}
	}
	return headless, seen == 1
}
