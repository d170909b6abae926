// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/apex/log"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	awsx "github.com/staranto/leobotgo/internal/aws"
	"github.com/staranto/leobotgo/internal/backend"
	"github.com/staranto/leobotgo/internal/record"
)

// API is the subset of the S3 client the backend uses.
type API interface {
	GetObject(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// BackendS3 stores records as objects using the same relative layout as the
// file backend, beneath an optional key prefix. A PutObject replaces the
// whole object, so readers never see a partial record.
type BackendS3 struct {
	Bucket   string
	Prefix   string
	Region   string
	Profile  string
	Endpoint string

	// MaxAttempts bounds SDK retries of one request; zero keeps the default.
	MaxAttempts int

	client API
}

type Option func(*BackendS3)

func WithBucket(bucket string) Option {
	return func(be *BackendS3) { be.Bucket = bucket }
}

func WithPrefix(prefix string) Option {
	return func(be *BackendS3) { be.Prefix = prefix }
}

func WithRegion(region string) Option {
	return func(be *BackendS3) { be.Region = region }
}

func WithProfile(profile string) Option {
	return func(be *BackendS3) { be.Profile = profile }
}

func WithEndpoint(endpoint string) Option {
	return func(be *BackendS3) { be.Endpoint = endpoint }
}

func WithMaxAttempts(n int) Option {
	return func(be *BackendS3) { be.MaxAttempts = n }
}

// WithClient injects an S3 client, skipping AWS config loading.
func WithClient(client API) Option {
	return func(be *BackendS3) { be.client = client }
}

func NewBackendS3(ctx context.Context, opts ...Option) (*BackendS3, error) {
	be := &BackendS3{}
	for _, opt := range opts {
		opt(be)
	}

	if be.Bucket == "" {
		return nil, errors.New("s3 backend requires a bucket")
	}

	if be.client == nil {
		client, err := awsx.NewS3Client(ctx, awsx.Settings{
			Region:      be.Region,
			Profile:     be.Profile,
			Endpoint:    be.Endpoint,
			MaxAttempts: be.MaxAttempts,
		})
		if err != nil {
			return nil, err
		}
		be.client = client
	}

	log.Debugf("s3 backend: bucket=%s prefix=%s", be.Bucket, be.Prefix)
	return be, nil
}

// Key returns the object key for ref.
func (be *BackendS3) Key(ref backend.Ref) string {
	return path.Join(be.Prefix, ref.RelPath())
}

func (be *BackendS3) Path(ref backend.Ref) string {
	return "s3://" + be.Bucket + "/" + be.Key(ref)
}

func (be *BackendS3) Read(ctx context.Context, ref backend.Ref) (*record.Record, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	out, err := be.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(be.Bucket),
		Key:    aws.String(be.Key(ref)),
	})
	if err != nil {
		return nil, be.classify(ref, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read S3 object body %s: %v", backend.ErrIO, be.Path(ref), err)
	}

	return backend.Decode(ref, data)
}

func (be *BackendS3) Write(ctx context.Context, ref backend.Ref, rec *record.Record) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	data, err := backend.Encode(rec)
	if err != nil {
		return err
	}

	_, err = be.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(be.Bucket),
		Key:           aws.String(be.Key(ref)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("%w: failed to put S3 object %s: %v", backend.ErrIO, be.Path(ref), err)
	}
	return nil
}

func (be *BackendS3) Exists(ctx context.Context, ref backend.Ref) (bool, error) {
	if err := ref.Validate(); err != nil {
		return false, err
	}

	_, err := be.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(be.Bucket),
		Key:    aws.String(be.Key(ref)),
	})
	if err == nil {
		return true, nil
	}
	if err = be.classify(ref, err); errors.Is(err, backend.ErrNotFound) {
		return false, nil
	}
	return false, err
}

func (be *BackendS3) String() string {
	return "backend-s3(" + be.Bucket + ")"
}

// classify maps missing-object errors to ErrNotFound and everything else to
// ErrIO.
func (be *BackendS3) classify(ref backend.Ref, err error) error {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return fmt.Errorf("%w: %s", backend.ErrNotFound, be.Path(ref))
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %s", backend.ErrNotFound, be.Path(ref))
		}
	}

	return fmt.Errorf("%w: %s: %v", backend.ErrIO, be.Path(ref), err)
}
