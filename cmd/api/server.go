package api

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "github.com/ChenBigdata421/jxt-customer-gateway/app/customer/migrations"
	"github.com/ChenBigdata421/jxt-customer-gateway/app/customer/router"
	"github.com/ChenBigdata421/jxt-customer-gateway/app/customer/service"
	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/config"
	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/pkg/database"
	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/pkg/eventbus"
	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/pkg/logger"
	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/pkg/migration"
	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/pkg/tracing"
	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/runtime"
)

const metricsNamespace = "customer_gateway"

var (
	configYml string
	StartCmd  = &cobra.Command{
		Use:          "server",
		Short:        "Start API server",
		Example:      "customer-gateway server -c config/settings.yml",
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
)

func init() {
	StartCmd.PersistentFlags().StringVarP(&configYml, "config", "c", "", "Start server with provided configuration file")
}

func setup() error {
	if err := config.Setup(configYml); err != nil {
		return err
	}
	logger.Setup(config.LoggerConfig)
	return nil
}

func run(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.Logger
	app := runtime.NewConfig()
	app.SetLogger(log)
	app.SetConfig("mode", config.ApplicationConfig.Mode)

	shutdownTracing, err := tracing.Setup(ctx, config.TracingConfigInstance, log)
	if err != nil {
		log.Warn("Tracing disabled", zap.Error(err))
	}
	app.OnShutdown("tracing", shutdownTracing)

	db, err := database.Open(config.DatabaseConfig, log)
	if err != nil {
		log.Fatal("Database setup error", zap.Error(err))
	}
	app.SetDb(db)
	if config.DatabaseConfig.AutoMigrate {
		if _, err := migration.GetRegistry().Migrate(db, log); err != nil {
			log.Error("Migration failed", zap.Error(err))
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	client, err := eventbus.NewClientFromConfig(config.EventBusConfigInstance, log,
		eventbus.NewPrometheusMetricsCollector(metricsNamespace, reg))
	if err != nil {
		log.Fatal("Event bus setup error", zap.Error(err))
	}

	store := service.NewCustomerStore(db, log, config.DatabaseConfig.QueryTimeout)
	mirror := service.NewMirror(client, store, config.EventBusConfigInstance.Topics, log)
	if err := client.Subscribe(mirror.Topics().Requests, mirror.HandleRequest); err != nil {
		return err
	}
	gateway := service.NewGatewayService(store, mirror, log)
	health := service.NewHealthService(store, client, log, config.DatabaseConfig.ConnectTimeout)

	if config.ApplicationConfig.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	app.SetEngine(router.NewEngine(router.Options{
		Gateway:     gateway,
		Health:      health,
		Registry:    reg,
		MetricsPath: config.HttpConfig.MetricsPath,
	}))
	app.SetEventBus(client)
	app.OnDrain("mirrors", gateway.WaitMirrors)

	if err := app.Start(ctx, config.HttpConfig); err != nil {
		log.Fatal("Listen error", zap.Error(err))
	}
	log.Info(fmt.Sprintf("Backend app listening on port %d", config.HttpConfig.Port))
	log.Info("Environment", zap.String("mode", config.ApplicationConfig.Mode),
		zap.String("eventBus", config.EventBusConfigInstance.Type))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case err, ok := <-app.ServeErr():
			if ok && err != nil {
				return fmt.Errorf("http server: %w", err)
			}
		case <-gctx.Done():
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutdown signal received: closing HTTP server and connections")

		timeout := config.HttpConfig.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		return app.Shutdown(sctx)
	})
	return g.Wait()
}
