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

// Package dynamodb is the remote key-value Store backend: one item
// per job, primary key "id", JSON body attribute "body". Directly
// grounded on the teacher's storage/dynamodb package (DescribeTable /
// CreateTable bootstrap), ported from the old goamz client to
// aws-sdk-go-v2.
package dynamodb

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	ourcore "github.com/Comcast/ecs-scheduler/core"
	ourstore "github.com/Comcast/ecs-scheduler/store"
)

type Storage struct {
	client *dynamodb.Client
	table  string
}

func NewStorage(ctx *ourcore.Context, table string) (*Storage, error) {
	ourcore.Log(ourcore.INFO|ourcore.STORE, ctx, "dynamodb.NewStorage", "table", table)
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, ourcore.NewBackendUnavailableError(err)
	}
	return &Storage{client: dynamodb.NewFromConfig(cfg), table: table}, nil
}

type item struct {
	Id   string `dynamodbav:"id"`
	Body string `dynamodbav:"body"`
}

// Bootstrap mirrors the teacher's DescribeTable-then-CreateTable
// sequence: a pre-existing table is used as-is, a missing one is
// created with on-demand billing.
func (s *Storage) Bootstrap(ctx *ourcore.Context) error {
	err := ourcore.RetryOnce(ctx, "dynamodb.Bootstrap", func() error {
		_, err := s.client.DescribeTable(context.Background(), &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
		return err
	})
	if err == nil {
		return nil
	}
	err = ourcore.RetryOnce(ctx, "dynamodb.Bootstrap", func() error {
		_, err := s.client.CreateTable(context.Background(), &dynamodb.CreateTableInput{
			TableName:   aws.String(s.table),
			BillingMode: types.BillingModePayPerRequest,
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
			},
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeS},
			},
		})
		return err
	})
	if err != nil {
		ourcore.Log(ourcore.CRIT|ourcore.STORE, ctx, "dynamodb.Bootstrap", "error", err)
		return ourcore.NewBackendUnavailableError(err)
	}
	return nil
}

func (s *Storage) Get(ctx *ourcore.Context, id string) (*ourcore.Job, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"id": id})
	if err != nil {
		return nil, ourcore.NewInternalError("marshal key: %v", err)
	}
	var out *dynamodb.GetItemOutput
	err = ourcore.RetryOnce(ctx, "dynamodb.Get", func() error {
		var err error
		out, err = s.client.GetItem(context.Background(), &dynamodb.GetItemInput{TableName: aws.String(s.table), Key: key})
		return err
	})
	if err != nil {
		return nil, ourcore.NewBackendUnavailableError(err)
	}
	if out.Item == nil {
		return nil, ourcore.NewNotFoundError("job %s", id)
	}
	var it item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, ourcore.NewBackendCorruptError(id, err)
	}
	var job ourcore.Job
	if err := json.Unmarshal([]byte(it.Body), &job); err != nil {
		return nil, ourcore.NewBackendCorruptError(id, err)
	}
	return &job, nil
}

func (s *Storage) put(ctx *ourcore.Context, id string, job *ourcore.Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return ourcore.NewInternalError("marshal job %s: %v", id, err)
	}
	av, err := attributevalue.MarshalMap(item{Id: id, Body: string(body)})
	if err != nil {
		return ourcore.NewInternalError("marshal item: %v", err)
	}
	err = ourcore.RetryOnce(ctx, "dynamodb.put", func() error {
		_, err := s.client.PutItem(context.Background(), &dynamodb.PutItemInput{TableName: aws.String(s.table), Item: av})
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
	key, err := attributevalue.MarshalMap(map[string]string{"id": id})
	if err != nil {
		return ourcore.NewInternalError("marshal key: %v", err)
	}
	err = ourcore.RetryOnce(ctx, "dynamodb.Delete", func() error {
		_, err := s.client.DeleteItem(context.Background(), &dynamodb.DeleteItemInput{TableName: aws.String(s.table), Key: key})
		return err
	})
	if err != nil {
		return ourcore.NewBackendUnavailableError(err)
	}
	return nil
}

func (s *Storage) List(ctx *ourcore.Context, skip, limit int) (*ourstore.Page, error) {
	var all []*ourcore.Job
	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{TableName: aws.String(s.table)})
	for paginator.HasMorePages() {
		var out *dynamodb.ScanOutput
		if err := ourcore.RetryOnce(ctx, "dynamodb.List", func() error {
			var err error
			out, err = paginator.NextPage(context.Background())
			return err
		}); err != nil {
			return nil, ourcore.NewBackendUnavailableError(err)
		}
		for _, raw := range out.Items {
			var it item
			if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
				continue
			}
			var job ourcore.Job
			if err := json.Unmarshal([]byte(it.Body), &job); err != nil {
				logCorrupt(ctx, it.Id, err)
				continue
			}
			all = append(all, &job)
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

func logCorrupt(ctx *ourcore.Context, id string, err error) {
	ourcore.Log(ourcore.ERROR|ourcore.STORE, ctx, "dynamodb.List", "id", id, "error", err, "when", "decode")
}

func (s *Storage) Close(ctx *ourcore.Context) error { return nil }

func sortJobsById(jobs []*ourcore.Job) {
	for i := 1; i < len(jobs); i++ {
		for j := i; j > 0 && jobs[j].Id < jobs[j-1].Id; j-- {
			jobs[j], jobs[j-1] = jobs[j-1], jobs[j]
		}
	}
}
