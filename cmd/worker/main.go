package main

import (
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap"

	"visa-onboarding-service/internal/config"
	"visa-onboarding-service/internal/logging"
	"visa-onboarding-service/internal/storage"
	appTemporal "visa-onboarding-service/internal/temporal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info", "json").Fatal("load config", zap.Error(err))
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = logger.Sync() }()

	blob, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL, cfg.MinioBucket)
	if err != nil {
		logger.Fatal("connect minio", zap.Error(err))
	}

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
	})
	if err != nil {
		logger.Fatal("connect temporal", zap.Error(err))
	}
	defer temporalClient.Close()

	activities := &appTemporal.Activities{
		Blob:   blob,
		Logger: logger.Named("release"),
	}

	w := worker.New(temporalClient, cfg.TemporalTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(appTemporal.ReleaseStorageWorkflow, workflow.RegisterOptions{Name: appTemporal.ReleaseStorageWorkflowName})
	w.RegisterActivity(activities.DeleteObjectActivity)

	logger.Info("worker running", zap.String("task_queue", cfg.TemporalTaskQueue))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Fatal("worker stopped with error", zap.Error(err))
	}
}
