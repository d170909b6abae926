// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/leobotgo/internal/backend"
	"github.com/staranto/leobotgo/internal/record"
)

// fakeS3 is an in-memory object store keyed by bucket/key.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func TestNewBackendS3_RequiresBucket(t *testing.T) {
	_, err := NewBackendS3(context.Background(), WithClient(newFakeS3()))
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	be, err := NewBackendS3(context.Background(),
		WithBucket("bots"),
		WithPrefix("leobot"),
		WithClient(newFakeS3()),
	)
	require.NoError(t, err)

	ref := backend.Ref{Kind: backend.UserData, Scope: "123", Entity: "456"}
	assert.Equal(t, "leobot/userdata/123/456.json", be.Key(ref))
	assert.Equal(t, "s3://bots/leobot/userdata/123/456.json", be.Path(ref))

	cfg := backend.Ref{Kind: backend.Configs, Scope: "123"}
	assert.Equal(t, "leobot/configs/123.json", be.Key(cfg))
}

func TestReadWriteExists(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	be, err := NewBackendS3(ctx, WithBucket("bots"), WithClient(fake))
	require.NoError(t, err)

	ref := backend.Ref{Kind: backend.UserData, Scope: "global", Entity: "7"}

	_, err = be.Read(ctx, ref)
	assert.ErrorIs(t, err, backend.ErrNotFound)

	ok, err := be.Exists(ctx, ref)
	require.NoError(t, err)
	assert.False(t, ok)

	rec := record.New()
	rec.Set("credits", record.IntValue(500))
	require.NoError(t, be.Write(ctx, ref, rec))

	ok, err = be.Exists(ctx, ref)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := be.Read(ctx, ref)
	require.NoError(t, err)
	assert.True(t, rec.Equal(got))
}

func TestWrite_Failure(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	fake.putErr = errors.New("access denied")
	be, err := NewBackendS3(ctx, WithBucket("bots"), WithClient(fake))
	require.NoError(t, err)

	err = be.Write(ctx, backend.Ref{Kind: backend.Configs, Scope: "1"}, record.New())
	assert.ErrorIs(t, err, backend.ErrIO)
	assert.Contains(t, err.Error(), "access denied")
}

func TestRead_Malformed(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	fake.objects["bots/configs/1.json"] = []byte("{oops")
	be, err := NewBackendS3(ctx, WithBucket("bots"), WithClient(fake))
	require.NoError(t, err)

	_, err = be.Read(ctx, backend.Ref{Kind: backend.Configs, Scope: "1"})
	assert.ErrorIs(t, err, backend.ErrMalformedRecord)
}
