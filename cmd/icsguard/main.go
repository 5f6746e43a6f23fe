package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"icsguard/internal/api"
	"icsguard/internal/artifact"
	"icsguard/internal/config"
	"icsguard/internal/dataset"
	"icsguard/internal/ingest"
	"icsguard/internal/logging"
	"icsguard/internal/model"
	"icsguard/internal/notify"
	"icsguard/internal/pipeline"
	"icsguard/internal/results"
	"icsguard/internal/storage"
	"icsguard/internal/stream"
)

const version = "0.3.0"

func main() {
	configPath := flag.String("config", "", "path to config file (yaml or json)")
	flag.Parse()

	var cfgMgr *config.Manager
	var err error
	if *configPath != "" {
		cfgMgr, err = config.NewManager(config.ResolvePath(*configPath))
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfgMgr = config.NewStaticManager(config.DefaultConfig())
	}
	cfg := cfgMgr.Get()

	logger := logging.NewLogger(cfg.LogLevel)
	logger.Info("starting icsguard", "version", version)

	transform, err := artifact.LoadTransform(config.ResolvePath(cfg.Artifacts.TransformPath))
	if err != nil {
		logger.Error("loading transform artifact", "path", cfg.Artifacts.TransformPath, "err", err)
		os.Exit(1)
	}
	forest, err := artifact.LoadForest(config.ResolvePath(cfg.Artifacts.ModelPath))
	if err != nil {
		logger.Error("loading model artifact", "path", cfg.Artifacts.ModelPath, "err", err)
		os.Exit(1)
	}
	if forest.Width() != transform.Width() {
		logger.Error("artifact width mismatch", "model", forest.Width(), "transform", transform.Width())
		os.Exit(1)
	}

	table, err := dataset.LoadCSV(config.ResolvePath(cfg.Dataset.Path))
	if err != nil {
		logger.Error("loading dataset", "path", cfg.Dataset.Path, "err", err)
		os.Exit(1)
	}
	logger.Info("dataset loaded", "rows", table.Len(), "columns", len(table.Columns))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	history := pipeline.NewRateHistory(cfg.Pipeline.HistoryWindow)
	orch := pipeline.NewOrchestrator(
		pipeline.NewFeatureNormalizer(transform),
		pipeline.NewForestClassifier(forest),
		pipeline.NewCyberRisk(history),
		pipeline.NewOperationalRisk(),
		pipeline.NewDecisionEngine(),
		history,
		pipeline.OrchestratorOptions{StageTimeout: cfg.Pipeline.StageTimeout, Logger: logger},
	)

	resultStore := results.NewStore(cfg.Results.StoreLimit)

	store, err := storage.NewStore(cfg.Storage)
	if err != nil {
		logger.Error("opening storage", "driver", cfg.Storage.Driver, "err", err)
		os.Exit(1)
	}
	if store != nil {
		if err := store.Init(ctx); err != nil {
			logger.Error("initializing storage", "err", err)
			os.Exit(1)
		}
		defer store.Close()
		logger.Info("storage enabled", "driver", cfg.Storage.Driver)
	}

	var publisher *notify.Publisher
	if cfg.Notify.Enabled {
		publisher, err = notify.Connect(cfg.Notify, logger)
		if err != nil {
			logger.Error("connecting notifier", "url", cfg.Notify.URL, "err", err)
			os.Exit(1)
		}
		defer publisher.Close()
		logger.Info("notifier enabled", "url", cfg.Notify.URL, "prefix", cfg.Notify.SubjectPrefix)
	}

	// Every result, whether streamed, manual, or ingested, funnels through
	// the same sink.
	sink := func(res *model.AggregatedResult) {
		if res == nil {
			return
		}
		resultStore.Add(res)
		if store != nil {
			if err := store.SaveResult(ctx, res); err != nil {
				logger.Error("persisting result", "result_id", res.ID, "err", err)
			}
		}
		if publisher != nil {
			if err := publisher.PublishResult(res); err != nil {
				logger.Warn("publishing result", "result_id", res.ID, "err", err)
			}
		}
	}

	driver := stream.NewDriver(table, orch, cfg.Stream.BatchSize, cfg.Stream.Delay, sink, logger)
	if publisher != nil {
		if err := publisher.SubscribeCommands(ctx, driver); err != nil {
			logger.Error("subscribing stream commands", "err", err)
			os.Exit(1)
		}
	}
	if cfg.Stream.Autostart {
		driver.Start(ctx)
	}

	batches := make(chan model.SensorBatch, cfg.Ingest.ChannelBuffer)
	ingest.StartKafka(ctx, cfgMgr, transform.Columns, batches, logger)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case batch := <-batches:
				res, err := orch.Submit(ctx, batch)
				if err != nil {
					logger.Warn("ingested batch rejected", "err", err)
					continue
				}
				sink(res)
			}
		}
	}()

	api.Start(ctx, cfgMgr, orch, driver, table, resultStore, sink, logger, version)

	if cfgMgr.Path() != "" {
		go cfgMgr.Watch(0,
			func(c *config.Config) {
				logger.Info("config reloaded", "path", cfgMgr.Path())
				driver.Configure(c.Stream.BatchSize, c.Stream.Delay)
			},
			func(err error) {
				logger.Warn("config reload failed", "err", err)
			},
			ctx.Done(),
		)
	}

	<-ctx.Done()
	driver.Stop()
	logger.Info("shutdown complete")
}
