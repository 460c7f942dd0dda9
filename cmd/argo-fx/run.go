package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rxtech-lab/argo-fx/internal/broker/paper"
	"github.com/rxtech-lab/argo-fx/internal/config"
	"github.com/rxtech-lab/argo-fx/internal/fxquote"
	"github.com/rxtech-lab/argo-fx/internal/logger"
	"github.com/rxtech-lab/argo-fx/internal/metrics"
	"github.com/rxtech-lab/argo-fx/internal/notifier"
	"github.com/rxtech-lab/argo-fx/internal/server"
	"github.com/rxtech-lab/argo-fx/internal/strategy"
	"github.com/rxtech-lab/argo-fx/internal/trading/engine"
	enginev1 "github.com/rxtech-lab/argo-fx/internal/trading/engine/engine_v1"
	"github.com/rxtech-lab/argo-fx/internal/types"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// signalOnly hides the version check of a provider.
type signalOnly struct {
	strategy.SignalProvider
}

// runAction wires the configured components into a session engine and runs
// it until SIGINT or SIGTERM.
func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"), config.Options{EnvFile: cmd.String("env-file")})
	if err != nil {
		return err
	}

	log, err := logger.NewLoggerWithLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	defer func() { _ = log.Sync() }()

	eng := enginev1.NewSessionEngineV1WithLogger(log.Component("engine"))
	if err := eng.Initialize(cfg.SessionEngine()); err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	switch cfg.Broker.Kind {
	case config.BrokerPaper:
		if err := eng.SetBrokerFactory(paper.New(cfg.Broker.Paper).Factory()); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported broker kind %q", cfg.Broker.Kind)
	}

	provider, err := strategy.NewHTTPSignalProvider(cfg.Strategy.URL, cfg.Strategy.Token, cfg.Strategy.Timeout, log.Component("strategy"))
	if err != nil {
		return fmt.Errorf("failed to create signal provider: %w", err)
	}

	if cfg.Strategy.CheckVersion {
		err = eng.SetSignalProvider(provider)
	} else {
		err = eng.SetSignalProvider(signalOnly{SignalProvider: provider})
	}

	if err != nil {
		return err
	}

	if cfg.Quotes.PolygonAPIKey != "" {
		quotes, err := fxquote.NewPolygonQuoteSource(cfg.Quotes.PolygonAPIKey, log.Component("quotes"))
		if err != nil {
			return fmt.Errorf("failed to create quote source: %w", err)
		}

		if err := eng.SetQuoteSource(quotes); err != nil {
			return err
		}
	}

	sender, err := newNotifier(cfg, log)
	if err != nil {
		return err
	}

	if err := eng.SetNotifier(sender); err != nil {
		return err
	}

	collectors := metrics.New()
	if err := eng.SetMetrics(collectors); err != nil {
		return err
	}

	if err := eng.SetDataOutputPath(cfg.DataOutputPath); err != nil {
		return err
	}

	var srv *server.Server

	if cfg.Server.Listen != "" {
		srv = server.New(collectors, log.Component("server"))
		if err := srv.Start(cfg.Server.Listen); err != nil {
			return fmt.Errorf("failed to start status server: %w", err)
		}

		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Stop(stopCtx); err != nil {
				log.Warn("Failed to stop status server", zap.Error(err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = eng.Run(ctx, callbacks(srv, log))
	if errors.Is(err, context.Canceled) {
		log.Info("Session engine stopped by signal")

		return nil
	}

	return err
}

func newNotifier(cfg *config.Config, log *logger.Logger) (notifier.TextNotifier, error) {
	switch cfg.Notifier.Kind {
	case config.NotifierSMTP:
		sender, err := notifier.NewSMTPSender(notifier.SMTPConfig{
			Host:     cfg.Notifier.SMTPHost,
			Port:     cfg.Notifier.SMTPPort,
			Username: cfg.Notifier.SMTPUser,
			Password: cfg.Notifier.SMTPPassword,
			From:     cfg.Notifier.From,
			To:       cfg.Notifier.To,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create smtp notifier: %w", err)
		}

		return sender, nil
	default:
		return notifier.NewLogSender(log.Component("notifier")), nil
	}
}

// callbacks logs the engine lifecycle and feeds the status server when one
// is running.
func callbacks(srv *server.Server, log *logger.Logger) engine.SessionCallbacks {
	onStart := engine.OnEngineStartCallback(func(pair, frequency, restoredFrom string) error {
		log.Info("Engine started",
			zap.String("pair", pair),
			zap.String("frequency", frequency),
			zap.String("restored_from", restoredFrom),
		)

		return nil
	})

	onStop := engine.OnEngineStopCallback(func(err error) {
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Engine stopped with error", zap.Error(err))
		}
	})

	onLegFailed := engine.OnLegFailedCallback(func(leg types.Leg, err error) {
		log.Warn("Bracket leg not placed", zap.String("leg", string(leg)), zap.Error(err))
	})

	onError := engine.OnErrorCallback(func(err error) {
		log.Debug("Engine reported an error", zap.Error(err))
	})

	onStatus := engine.OnStatusUpdateCallback(func(status types.EngineStatus) error {
		if srv != nil {
			srv.SetStatus(status)
		}

		return nil
	})

	onPeriodEnd := engine.OnPeriodEndCallback(func(report types.PeriodReport) error {
		if srv != nil {
			srv.Publish(report)
		}

		return nil
	})

	return engine.SessionCallbacks{
		OnEngineStart:  &onStart,
		OnEngineStop:   &onStop,
		OnPeriodStart:  nil,
		OnOrderPlaced:  nil,
		OnLegFailed:    &onLegFailed,
		OnPeriodEnd:    &onPeriodEnd,
		OnError:        &onError,
		OnStatusUpdate: &onStatus,
	}
}
