package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"custos/internal/amqp"
	"custos/internal/backend"
	"custos/internal/cli"
	"custos/internal/config"
	"custos/internal/core"
	apphttp "custos/internal/http"
	"custos/internal/log"
	"custos/internal/services"
	"custos/internal/storage"
	"custos/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	schema, err := config.LoadSchema(cfg.ColumnsFile)
	if err != nil {
		return err
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return err
	}
	if res.Cleanup != nil {
		defer res.Cleanup()
	}

	opts := []services.Option{services.WithLogger(logger)}

	var history apphttp.LoadHistory
	if cfg.SQLiteDBPath != "" {
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, logger)
		if err != nil {
			return err
		}
		defer repo.Close()
		history = repo
		opts = append(opts, services.WithRecorder(repo))
		logger.Info("Load history enabled", "db_path", cfg.SQLiteDBPath)
	}

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPEventsKey, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			defer amqpClient.Close()
			opts = append(opts, services.WithPublisher(amqpClient))
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	svc := services.NewDashboardService(res.Reader, schema,
		core.Options{TopN: cfg.TopN, ReportDropped: cfg.ReportDropped}, opts...)

	// A failed first load is served as an error page until a reload succeeds.
	if err := svc.Load(ctx); err != nil {
		logger.Warn("Initial load failed", log.FieldError, err)
	}

	reloader, err := worker.NewReloadWorker(svc, cfg.ReloadSchedule, logger)
	if err != nil {
		return err
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, history, logger)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting custos server", "port", cfg.Port, "source", svc.Source())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return reloader.Run(gctx)
	})
	if amqpClient != nil {
		g.Go(func() error {
			err := amqpClient.ConsumeReloadRequests(gctx, reloader.HandleReloadRequest)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}
