package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"livepulse-service/config"
	"livepulse-service/database"
	"livepulse-service/logger"
	"livepulse-service/services"
	"livepulse-service/simulation"
	"livepulse-service/web"
)

func main() {
	// 加载配置
	cfg := config.Load()
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		logger.Errorf("Invalid LOG_LEVEL %q, keeping info: %v", cfg.LogLevel, err)
	}

	logger.Println("Starting LivePulse live-commerce monitor...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 事件目录
	catalog := simulation.DefaultCatalog()
	if cfg.EventsFile != "" {
		loaded, err := simulation.LoadCatalog(cfg.EventsFile)
		if err != nil {
			logger.Fatalf("Failed to load events file: %v", err)
		}
		catalog = loaded
		logger.Printf("Loaded %d events from %s", len(catalog.List()), cfg.EventsFile)
	}

	bus := services.NewInMemoryBus(services.DefaultConsumerBuffer)
	larkNotifier := services.NewLarkNotifier(cfg.LarkWebhook)

	sim := simulation.New(simulation.Options{
		Seed:         cfg.Seed,
		Catalog:      catalog,
		HistorySize:  cfg.LogHistorySize,
		TickInterval: cfg.TickInterval,
		RetryBackoff: cfg.RetryBackoff,
		DrainTimeout: cfg.DrainTimeout,
		Publisher:    services.NewBroadcaster(bus),
		OnTickError: func(err error) {
			if !larkNotifier.Enabled() {
				return
			}
			go func() {
				if err := larkNotifier.NotifyError(ctx, "engine", err.Error()); err != nil {
					logger.Errorf("Failed to send engine error notification: %v", err)
				}
			}()
		},
	})

	g, gctx := errgroup.WithContext(ctx)

	// 可选输出: 日志归档 / AMQP / 飞书
	sinks := 0
	if cfg.DatabaseURL != "" {
		db, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := database.Migrate(ctx, db); err != nil {
			logger.Fatalf("Failed to migrate database: %v", err)
		}
		logger.Println("Database connected and migrated")

		archive := services.NewLogArchive(db)
		run(gctx, g, bus, "archive", archive.Run, services.TopicAgentLog)
		sinks++
	}

	if cfg.AMQPURL != "" {
		publisher := services.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		run(gctx, g, bus, "amqp", publisher.Run, services.AllTopics...)
		sinks++
	}

	if larkNotifier.Enabled() {
		run(gctx, g, bus, "lark", larkNotifier.Run, services.TopicAgentLog)

		statsTracker := services.NewLogStatsTracker(larkNotifier, cfg.StatsInterval)
		run(gctx, g, bus, "stats", statsTracker.Run, services.TopicAgentLog)
		sinks++
	}

	// 创建WebSocket Hub
	wsHub := web.NewHub(sim, cfg.BootstrapLogs)
	run(gctx, g, bus, "hub", wsHub.Run, services.AllTopics...)

	server := web.NewServer(cfg, sim, wsHub)
	g.Go(server.Start)

	// 引擎不跟随 gctx 取消，由 Stop 在 tick 边界排空
	if err := sim.Engine().Start(context.Background()); err != nil {
		logger.Fatalf("Failed to start engine: %v", err)
	}

	if err := larkNotifier.NotifyServiceStart(ctx, cfg.Environment, len(sim.Rooms()), cfg.Seed); err != nil {
		logger.Errorf("Failed to send startup notification: %v", err)
	}

	logger.Printf("Service started on port %s (%d rooms, %d sinks)", cfg.Port, len(sim.Rooms()), sinks)

	// 等待退出信号后按顺序关闭: 引擎 -> HTTP -> 总线
	g.Go(func() error {
		<-gctx.Done()
		logger.Println("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.DrainTimeout+5*time.Second)
		defer cancel()

		engineErr := sim.Engine().Stop(shutdownCtx)
		if errors.Is(engineErr, simulation.ErrDrainTimeout) {
			logger.Errorf("Engine did not drain in %v", cfg.DrainTimeout)
		}

		if err := larkNotifier.NotifyServiceStop(shutdownCtx, sim.Stats(), sim.Engine().Ticks()); err != nil {
			logger.Errorf("Failed to send shutdown notification: %v", err)
		}

		if err := server.Stop(shutdownCtx); err != nil {
			logger.Errorf("%v", err)
		}
		bus.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Errorf("Service exited with error: %v", err)
		os.Exit(1)
	}
	logger.Println("Service stopped")
}

// run 为消费者订阅总线并加入 errgroup
func run(ctx context.Context, g *errgroup.Group, bus services.MessageBus, name string,
	consume func(context.Context, <-chan services.BusMessage) error, topics ...string) {
	msgs, err := bus.Consume(name, topics...)
	if err != nil {
		logger.Fatalf("Failed to subscribe %s: %v", name, err)
	}
	g.Go(func() error {
		return consume(ctx, msgs)
	})
}
