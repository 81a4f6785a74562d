package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nais/liberator/pkg/conftools"
	log "github.com/sirupsen/logrus"

	"github.com/nais/deploystatus/pkg/deploystatus/codedeploy"
	"github.com/nais/deploystatus/pkg/deploystatus/config"
	"github.com/nais/deploystatus/pkg/deploystatus/metrics"
	"github.com/nais/deploystatus/pkg/deploystatus/notifier"
	"github.com/nais/deploystatus/pkg/deploystatus/reconciler"
	"github.com/nais/deploystatus/pkg/deploystatus/scheduler"
	"github.com/nais/deploystatus/pkg/logging"
	"github.com/nais/deploystatus/pkg/telemetry"
	"github.com/nais/deploystatus/pkg/version"
)

var maskedConfig = []string{
	config.NotificationURL,
}

const shutdownTimeout = 5 * time.Second

func run() error {
	cfg, err := config.Initialize()
	if err != nil {
		return err
	}

	err = conftools.Load(cfg)
	if err != nil {
		return err
	}

	if err := logging.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Welcome
	log.Infof("deploystatus %s", version.Version())
	ts, err := version.BuildTime()
	if err == nil {
		log.Infof("This version was built %s", ts.Local())
	}

	for _, line := range conftools.Format(maskedConfig) {
		log.Info(line)
	}

	daily, err := scheduler.NewDaily(cfg.Schedule.Hour, cfg.Schedule.Minute, cfg.Schedule.Timezone)
	if err != nil {
		return fmt.Errorf("configure schedule: %w", err)
	}

	// Trap SIGINT and SIGTERM to trigger a shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracerProvider, err := telemetry.New(ctx, "deploystatus", cfg.OtelCollectorURL)
	if err != nil {
		return fmt.Errorf("configure tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Errorf("Shutting down tracer: %s", err)
		}
	}()

	client, err := codedeploy.NewClient(ctx, codedeploy.ClientOptions{
		Region:      cfg.AWS.Region,
		EndpointURL: cfg.AWS.EndpointURL,
	})
	if err != nil {
		return err
	}

	metricsServer := &http.Server{
		Addr:    cfg.MetricsListenAddress,
		Handler: metrics.Router(cfg.MetricsPath),
	}
	log.Infof("Serving metrics on %s endpoint %s", cfg.MetricsListenAddress, cfg.MetricsPath)
	go func() {
		err := metricsServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Metrics server: %s", err)
		}
	}()
	defer metricsServer.Close()

	log.Infof("Starting deployment status update at %s", time.Now())
	service := codedeploy.New(client, cfg.ApplicationName, cfg.DeploymentGroup)
	reconciler.New(service, log.StandardLogger()).Reconcile(ctx)

	n := notifier.New(cfg.Notification.URL, cfg.Notification.Timeout, log.StandardLogger())
	scheduler.New(daily, log.StandardLogger()).Run(ctx, n.Run)

	fmt.Println("\nShutting down...")

	return nil
}

func main() {
	err := run()
	if err != nil {
		log.Errorf("Fatal error: %s", err)
		os.Exit(1)
	}
}
