package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/obelisco/gateway"
	"github.com/example/obelisco/pkg/cart"
	"github.com/example/obelisco/pkg/checkout"
	"github.com/example/obelisco/pkg/config"
	"github.com/example/obelisco/pkg/discovery"
	"github.com/example/obelisco/pkg/order"
	"github.com/example/obelisco/pkg/repository"
	"github.com/example/obelisco/pkg/ui"
	"go.uber.org/zap"
)

func main() {
	// Load config
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting cart service",
		zap.String("name", cfg.Server.Name),
		zap.Int("port", cfg.Server.Port))

	ctx := context.Background()

	// Persistence substrate
	kv := repository.NewRedisStore(&cfg.Redis)
	defer kv.Close()

	if err := kv.Ping(ctx); err != nil {
		logger.Warn("Redis connection failed", zap.Error(err))
	} else {
		logger.Info("Redis connected successfully")
	}

	// Cart store and renderer
	store := cart.NewStore(kv, cfg.Storage.CartKey, logger.Named("cart"))
	renderer := cart.NewRenderer(store)

	// Optional audit log
	var audit *repository.AuditLog
	if cfg.MongoDB.URI != "" {
		audit, err = repository.NewAuditLog(&cfg.MongoDB)
		if err != nil {
			logger.Warn("Failed to connect to MongoDB, auditing disabled", zap.Error(err))
			audit = nil
		} else {
			defer audit.Close(ctx)
			store.WithAudit(audit)
		}
	}

	// Order processor actor
	system := actor.NewActorSystem()
	processor, err := order.NewActorProcessor(system, cfg.Checkout.ProcessingDelay, logger)
	if err != nil {
		logger.Fatal("Failed to start order processor", zap.Error(err))
	}

	finalizer := order.NewFinalizer(store, kv, processor, cfg, logger.Named("order"))
	if audit != nil {
		finalizer.WithAudit(audit)
	}

	// Optional durable order archive
	var archive *repository.OrderArchive
	if cfg.MySQL.Host != "" {
		archive, err = repository.NewOrderArchive(&cfg.MySQL)
		if err != nil {
			logger.Warn("Failed to connect to MySQL, archiving disabled", zap.Error(err))
			archive = nil
		} else {
			finalizer.WithArchive(archive)
		}
	}

	// Checkout machine and UI services
	machine := checkout.NewMachine()
	dialog := ui.NewConfirmDialog()
	notifier := ui.NewNotifier()

	// Gateway
	deps := gateway.Deps{
		Store:     store,
		Renderer:  renderer,
		Machine:   machine,
		Finalizer: finalizer,
		Dialog:    dialog,
		Notifier:  notifier,
	}
	if audit != nil {
		deps.Audit = audit
	}
	if archive != nil {
		deps.Archive = archive
	}
	gw := gateway.NewGateway(cfg, logger, deps)
	gw.SetupRoutes()

	// Service discovery
	var registry *discovery.Registry
	instance := &discovery.Instance{
		Name: cfg.Server.Name,
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}
	registry, err = discovery.NewRegistry(&cfg.Etcd)
	if err != nil {
		logger.Warn("Failed to connect to etcd, continuing without service discovery", zap.Error(err))
		registry = nil
	} else {
		defer registry.Close()
		if err := registry.Register(ctx, instance); err != nil {
			logger.Warn("Failed to register service", zap.Error(err))
		} else {
			logger.Info("Service registered in etcd",
				zap.String("name", cfg.Server.Name),
				zap.String("address", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)))

			if peers, err := registry.Lookup(ctx, cfg.Server.Name); err != nil {
				logger.Warn("Failed to look up registered instances", zap.Error(err))
			} else {
				logger.Info("Registered instances visible",
					zap.String("name", cfg.Server.Name),
					zap.Int("count", len(peers)))
			}
		}
	}

	// Start gateway in goroutine
	gwErr := make(chan error, 1)
	go func() {
		if err := gw.Start(); err != nil {
			gwErr <- err
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("Received shutdown signal")
	case err := <-gwErr:
		logger.Fatal("Gateway error", zap.Error(err))
	}

	if registry != nil {
		if err := registry.Deregister(ctx, instance); err != nil {
			logger.Error("Failed to deregister service", zap.Error(err))
		}
	}

	logger.Info("Service stopped")
}
