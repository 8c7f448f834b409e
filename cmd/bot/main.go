package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kite-futures-bot/internal/eod"
	"kite-futures-bot/internal/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap(ctx)
	if err != nil {
		log.Fatal(err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.srv.Run(app.cfg.Server.Addr); err != nil {
			logger.ErrorWithErr(ctx, "Webhook server stopped", err)
		}
	}()

	monitorDone := make(chan struct{})
	go func() {
		app.eng.Run(ctx)
		close(monitorDone)
	}()

	eodTick := time.NewTicker(60 * time.Second)
	defer eodTick.Stop()

	for running := true; running; {
		select {
		case <-sigc:
			running = false
		case <-eodTick.C:
			if ok, _ := eod.ShouldRunNow(); ok {
				if path, err := eod.SummarizeToday(); err != nil {
					logger.ErrorWithErr(ctx, "EOD summary failed", err)
				} else {
					logger.Info(ctx, "EOD summary written", "path", path)
				}
			}
		}
	}

	logger.Info(ctx, "Shutdown signal received")
	cancel()
	<-monitorDone

	_ = logger.Shutdown(context.Background())
}
