// package main reads & validates configuration for the batch service
// and if the config is valid starts and monitors an instance of the batch service
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kava-labs/kava-batch-service/config"
	"github.com/kava-labs/kava-batch-service/logging"
	"github.com/kava-labs/kava-batch-service/routines"
	"github.com/kava-labs/kava-batch-service/service"
)

const shutdownTimeout = 30 * time.Second

var (
	serviceConfig config.Config
	serviceLogger logging.ServiceLogger
)

func init() {
	var err error

	serviceConfig, err = config.ReadConfig()
	if err != nil {
		panic(err)
	}

	err = config.Validate(serviceConfig)
	if err != nil {
		panic(err)
	}

	serviceLogger, err = logging.New(serviceConfig.LogLevel)
	if err != nil {
		panic(err)
	}
}

func startMetricPruningRoutine(ctx context.Context, batchService *service.BatchService) {
	if !serviceConfig.MetricPruningEnabled {
		return
	}

	metricPruningRoutine, err := routines.NewMetricPruningRoutine(routines.MetricPruningRoutineConfig{
		Interval:                     time.Duration(serviceConfig.MetricPruningRoutineIntervalSeconds) * time.Second,
		StartDelay:                   time.Duration(serviceConfig.MetricPruningRoutineDelayFirstRunSeconds) * time.Second,
		MaxRequestMetricsHistoryDays: serviceConfig.MetricPruningMaxRequestMetricsHistoryDays,
		Database:                     batchService.Database,
		Logger:                       &serviceLogger,
	})
	if err != nil {
		serviceLogger.Panic().Msg(fmt.Sprintf("%v", err))
	}

	errChan, err := metricPruningRoutine.Run(ctx)
	if err != nil {
		serviceLogger.Panic().Msg(fmt.Sprintf("%v", err))
	}

	go func() {
		for routineErr := range errChan {
			serviceLogger.Error().Msg(fmt.Sprintf("metric pruning routine encountered error %s", routineErr))
		}
	}()
}

func main() {
	serviceLogger.Debug().Msg(fmt.Sprintf("initial config: %+v", serviceConfig))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	batchService, err := service.New(ctx, serviceConfig, &serviceLogger)
	if err != nil {
		serviceLogger.Panic().Msg(fmt.Sprintf("%v", err))
	}

	startMetricPruningRoutine(ctx, batchService)

	shutdownComplete := make(chan struct{})
	go func() {
		defer close(shutdownComplete)
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := batchService.Shutdown(shutdownCtx); err != nil {
			serviceLogger.Error().Err(err).Msg("error shutting down batch service")
		}
	}()

	if err := batchService.Run(); err != nil {
		serviceLogger.Panic().Msg(fmt.Sprintf("%v", err))
	}

	// Run returns as soon as the listener closes, wait for in flight
	// batches and metric writes to be released
	<-shutdownComplete
}
