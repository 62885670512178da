// Package app builds the function handlers from an explicit AWS config and
// application config. Both Lambda mains and studyctl go through here.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	bedrockruntime "github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.uber.org/zap"

	"studyassist/internal/cache"
	"studyassist/internal/config"
	"studyassist/internal/generation"
	"studyassist/internal/notify"
	"studyassist/internal/params"
	"studyassist/internal/questions"
	"studyassist/internal/search"
	"studyassist/internal/storage"
)

func LoadAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}

func NewQuestionsHandler(ctx context.Context, awsCfg aws.Config, cfg *config.Config, log *zap.Logger) (*questions.Handler, error) {
	if err := cfg.ValidateQuestions(); err != nil {
		return nil, err
	}
	gen, genID, err := newGenerator(ctx, awsCfg, cfg)
	if err != nil {
		return nil, err
	}

	opts := questions.Options{
		Prompt:      cfg.Prompt,
		Filename:    cfg.Filename,
		GeneratorID: genID,
		Logger:      log,
	}
	if cfg.CacheEnabled() {
		opts.Cache = cache.New(dynamodb.NewFromConfig(awsCfg), cfg.CacheTable, cfg.CacheTTLSeconds)
	}
	if cfg.NotifyEnabled() {
		opts.Notifier = notify.NewPublisher(sns.NewFromConfig(awsCfg), cfg.TopicArn)
	}

	log.Info("get-questions configured",
		zap.String("bucket", cfg.Bucket),
		zap.String("backend", cfg.GenerationBackend),
		zap.Bool("cache", cfg.CacheEnabled()),
		zap.Bool("notify", cfg.NotifyEnabled()),
	)

	src := storage.NewFetcherFromConfig(awsCfg, cfg.Bucket, cfg.PresignExpiry)
	return questions.NewHandler(src, gen, opts), nil
}

// newGenerator also returns an id naming the backend, used to scope the cache.
func newGenerator(ctx context.Context, awsCfg aws.Config, cfg *config.Config) (generation.Generator, string, error) {
	if cfg.GenerationBackend == config.BackendBedrock {
		gen := generation.NewBedrockGenerator(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID)
		return gen, config.BackendBedrock + ":" + cfg.BedrockModelID, nil
	}

	endpoint := cfg.GenerationEndpoint
	if cfg.GenerationEndpointParam != "" {
		v, err := params.Resolve(ctx, ssm.NewFromConfig(awsCfg), cfg.GenerationEndpointParam, endpoint)
		if err != nil {
			return nil, "", err
		}
		endpoint = v
	}
	return generation.NewHTTPGenerator(endpoint, http.DefaultClient), config.BackendHTTP + ":" + endpoint, nil
}

func NewSearchResolver(ctx context.Context, awsCfg aws.Config, cfg *config.Config, log *zap.Logger) (*search.Resolver, error) {
	endpoint := cfg.SearchEndpoint
	if cfg.SearchEndpointParam != "" {
		v, err := params.Resolve(ctx, ssm.NewFromConfig(awsCfg), cfg.SearchEndpointParam, endpoint)
		if err != nil {
			return nil, err
		}
		endpoint = v
	}
	if endpoint == "" {
		return nil, errors.New("search_endpoint is required")
	}

	log.Info("search-movies configured",
		zap.String("endpoint", endpoint),
		zap.String("signing_service", cfg.SearchSigningService),
	)

	client, err := search.NewClientFromConfig(awsCfg, endpoint, cfg.SearchSigningService)
	if err != nil {
		return nil, err
	}
	return search.NewResolver(client, log), nil
}
