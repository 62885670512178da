package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"studyassist/internal/app"
	"studyassist/internal/config"
	"studyassist/internal/logging"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	awsCfg, err := app.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Fatal("load aws config", zap.Error(err))
	}

	r, err := app.NewSearchResolver(ctx, awsCfg, cfg, logger)
	if err != nil {
		logger.Fatal("init search-movies", zap.Error(err))
	}

	lambda.Start(r.Handle)
}
