// Copyright 2015 Comcast Cable Communications Management, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// End Copyright

// Package s3 is the remote-object-store Store backend: one object per
// job at {prefix}/{id}, listed via a prefix scan. Grounded on the
// bootstrap-then-CRUD shape of the teacher's storage/dynamodb package,
// ported to a real object-store client.
package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	ourcore "github.com/Comcast/ecs-scheduler/core"
	ourstore "github.com/Comcast/ecs-scheduler/store"
)

type Storage struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

func NewStorage(ctx *ourcore.Context, bucket, prefix string) (*Storage, error) {
	ourcore.Log(ourcore.INFO|ourcore.STORE, ctx, "s3.NewStorage", "bucket", bucket, "prefix", prefix)
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, ourcore.NewBackendUnavailableError(err)
	}
	client := s3.NewFromConfig(cfg)
	return &Storage{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
	}, nil
}

func (s *Storage) key(id string) string {
	if s.prefix == "" {
		return id
	}
	return s.prefix + "/" + id
}

// Bootstrap creates the bucket if it doesn't already exist; a
// pre-existing bucket is used as-is.
func (s *Storage) Bootstrap(ctx *ourcore.Context) error {
	err := ourcore.RetryOnce(ctx, "s3.Bootstrap", func() error {
		_, err := s.client.HeadBucket(context.Background(), &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
		return err
	})
	if err == nil {
		return nil
	}
	err = ourcore.RetryOnce(ctx, "s3.Bootstrap", func() error {
		_, err := s.client.CreateBucket(context.Background(), &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
		return err
	})
	if err != nil {
		ourcore.Log(ourcore.CRIT|ourcore.STORE, ctx, "s3.Bootstrap", "error", err)
		return ourcore.NewBackendUnavailableError(err)
	}
	return nil
}

func (s *Storage) List(ctx *ourcore.Context, skip, limit int) (*ourstore.Page, error) {
	var all []*ourcore.Job
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for paginator.HasMorePages() {
		var out *s3.ListObjectsV2Output
		if err := ourcore.RetryOnce(ctx, "s3.List", func() error {
			var err error
			out, err = paginator.NextPage(context.Background())
			return err
		}); err != nil {
			return nil, ourcore.NewBackendUnavailableError(err)
		}
		for _, obj := range out.Contents {
			job, err := s.getObject(ctx, aws.ToString(obj.Key))
			if err != nil {
				continue
			}
			all = append(all, job)
		}
	}
	sortJobsById(all)

	total := len(all)
	if skip > total {
		skip = total
	}
	end := skip + limit
	if end > total {
		end = total
	}
	return &ourstore.Page{Items: all[skip:end], Total: total}, nil
}

func (s *Storage) getObject(ctx *ourcore.Context, key string) (*ourcore.Job, error) {
	var out *s3.GetObjectOutput
	err := ourcore.RetryOnce(ctx, "s3.getObject", func() error {
		var err error
		out, err = s.client.GetObject(context.Background(), &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
		return err
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, err
	}
	var job ourcore.Job
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, ourcore.NewBackendCorruptError(key, err)
	}
	return &job, nil
}

func (s *Storage) Get(ctx *ourcore.Context, id string) (*ourcore.Job, error) {
	job, err := s.getObject(ctx, s.key(id))
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ourcore.NewNotFoundError("job %s", id)
		}
		if _, ok := err.(*ourcore.BackendCorruptError); ok {
			return nil, err
		}
		return nil, ourcore.NewBackendUnavailableError(err)
	}
	return job, nil
}

func isNoSuchKey(err error) bool {
	var nsk *types.NoSuchKey
	if errorsAs(err, &nsk) {
		return true
	}
	return strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "NotFound")
}

func errorsAs(err error, target **types.NoSuchKey) bool {
	return errors.As(err, target)
}

func (s *Storage) put(ctx *ourcore.Context, id string, job *ourcore.Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return ourcore.NewInternalError("marshal job %s: %v", id, err)
	}
	err = ourcore.RetryOnce(ctx, "s3.put", func() error {
		_, err := s.uploader.Upload(context.Background(), &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key(id)),
			Body:   bytes.NewReader(body),
		})
		return err
	})
	if err != nil {
		return ourcore.NewBackendUnavailableError(err)
	}
	return nil
}

func (s *Storage) Create(ctx *ourcore.Context, job *ourcore.Job) error {
	if _, err := s.Get(ctx, job.Id); err == nil {
		return ourcore.NewAlreadyExistsError(job.Id)
	}
	return s.put(ctx, job.Id, job)
}

func (s *Storage) Update(ctx *ourcore.Context, id string, merged *ourcore.Job) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.put(ctx, id, merged)
}

func (s *Storage) Delete(ctx *ourcore.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	err := ourcore.RetryOnce(ctx, "s3.Delete", func() error {
		_, err := s.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key(id)),
		})
		return err
	})
	if err != nil {
		return ourcore.NewBackendUnavailableError(err)
	}
	return nil
}

func (s *Storage) Close(ctx *ourcore.Context) error { return nil }

func sortJobsById(jobs []*ourcore.Job) {
	for i := 1; i < len(jobs); i++ {
		for j := i; j > 0 && jobs[j].Id < jobs[j-1].Id; j-- {
			jobs[j], jobs[j-1] = jobs[j-1], jobs[j]
		}
	}
}
