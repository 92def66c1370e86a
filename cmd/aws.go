package main

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rotisserie/eris"

	"github.com/hf-eolus/sarwind-cli/internal/ddl"
	"github.com/hf-eolus/sarwind-cli/internal/resilience"
	"github.com/hf-eolus/sarwind-cli/internal/upload"
)

func loadAWSConfig(ctx context.Context) (awsConfig, error) {
	var optFns []func(*awsconfig.LoadOptions) error
	if cfg.AWS.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(cfg.AWS.Region))
	}
	if cfg.AWS.Profile != "" {
		optFns = append(optFns, awsconfig.WithSharedConfigProfile(cfg.AWS.Profile))
	}
	c, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return awsConfig{}, eris.Wrap(err, "load aws config")
	}
	return awsConfig{c}, nil
}

type awsConfig struct {
	aws aws.Config
}

func (a awsConfig) uploader() (*upload.Uploader, error) {
	return upload.NewUploader(s3.NewFromConfig(a.aws), cfg.Dest, upload.Options{
		RequestsPerSecond: cfg.Upload.RequestsPerSecond,
		Retry: resilience.RetryConfig{
			MaxAttempts: cfg.Upload.MaxAttempts,
		},
	})
}

func (a awsConfig) registrar() *ddl.Registrar {
	return ddl.NewRegistrar(
		athena.NewFromConfig(a.aws),
		cfg.Athena.WorkGroup,
		cfg.Athena.ResultLocation,
		time.Duration(cfg.Athena.PollIntervalSecs)*time.Second,
	)
}
