// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package aws

import (
	"context"
	"fmt"
	"strings"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
)

// Settings selects how the S3 client reaches the record bucket. Zero values
// keep the shell's AWS setup (AWS_PROFILE, shared config, env, IMDS).
type Settings struct {
	Region   string
	Profile  string
	Endpoint string
	// MaxAttempts bounds the SDK's own retries of a single request. Zero
	// keeps the SDK default.
	MaxAttempts int
}

func (s Settings) loadOptions() []func(*config.LoadOptions) error {
	var opts []func(*config.LoadOptions) error
	if s.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(s.Profile))
	}
	if s.Region != "" {
		opts = append(opts, config.WithRegion(s.Region))
	}
	if s.MaxAttempts > 0 {
		opts = append(opts, config.WithRetryMaxAttempts(s.MaxAttempts))
	}
	return opts
}

// clientOptions points the client at an S3 compatible endpoint (MinIO,
// localstack) when one is set. Such endpoints need path style addressing.
func (s Settings) clientOptions(o *s3v2.Options) {
	if s.Endpoint == "" {
		return
	}
	o.BaseEndpoint = awsv2.String(s.Endpoint)
	o.UsePathStyle = true
}

// String summarizes the non-default settings for log lines.
func (s Settings) String() string {
	var parts []string
	for _, kv := range [][2]string{
		{"region", s.Region},
		{"profile", s.Profile},
		{"endpoint", s.Endpoint},
	} {
		if kv[1] != "" {
			parts = append(parts, kv[0]+"="+kv[1])
		}
	}
	if s.MaxAttempts > 0 {
		parts = append(parts, fmt.Sprintf("max_attempts=%d", s.MaxAttempts))
	}
	if len(parts) == 0 {
		return "default"
	}
	return strings.Join(parts, " ")
}

// NewS3Client loads the AWS config for s and builds the S3 client the record
// backend talks to.
func NewS3Client(ctx context.Context, s Settings) (*s3v2.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, s.loadOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config (%s): %w", s, err)
	}
	return s3v2.NewFromConfig(cfg, s.clientOptions), nil
}
