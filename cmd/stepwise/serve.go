package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rahul/stepwise/internal/gateway"
	"github.com/rahul/stepwise/internal/observability"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Answer chat messages on the enabled gateways (Telegram, Discord)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := setup(setupOptions{planner: true, store: true})
	if err != nil {
		return err
	}
	defer a.Close()

	handler := gateway.NewRunnerHandler(a.runner)
	var gateways []gateway.Messenger
	if tgCfg, ok := a.cfg.GetTelegramConfig(); ok {
		tg, err := gateway.NewTelegramGateway(tgCfg.Token, handler)
		if err != nil {
			return err
		}
		gateways = append(gateways, tg)
	}
	if dcCfg, ok := a.cfg.GetDiscordConfig(); ok {
		dc, err := gateway.NewDiscordGateway(dcCfg.Token, handler)
		if err != nil {
			return err
		}
		gateways = append(gateways, dc)
	}
	if len(gateways) == 0 {
		return errors.New("no gateway is enabled (configure telegram or discord)")
	}

	observability.PrintBanner()
	observability.InitializeTerminal()
	defer observability.CleanupTerminal()

	// Route all log output through the terminal mutex so it never
	// interrupts the status line.
	log.SetOutput(observability.NewTermWriter())
	logger = newLogger(observability.NewTermWriter(), logLevel())
	a.runner.Logger = observability.NewLoggerTo(observability.NewTermWriter(), a.cfg.App.LLMLogPath)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go tick(ctx, time.Second, observability.PrintLiveStatus)
	go tick(ctx, 30*time.Second, func() {
		observability.Heartbeat()
		a.runner.Logger.LogHeartbeat()
	})

	for _, g := range gateways {
		go func(g gateway.Messenger) {
			if err := g.Start(); err != nil {
				logger.Error("gateway stopped", "err", err)
				stop()
			}
		}(g)
	}
	logger.Info("serving", "gateways", len(gateways), "operations", a.runner.Registry.Len())

	<-ctx.Done()
	for _, g := range gateways {
		if err := g.Stop(); err != nil {
			logger.Warn("gateway did not stop cleanly", "err", err)
		}
	}

	// Give a short time for final logs/syncs
	time.Sleep(500 * time.Millisecond)
	logger.Info("shut down")
	return nil
}

func tick(ctx context.Context, every time.Duration, fn func()) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
