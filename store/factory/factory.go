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

// Package factory selects and constructs a store.Store from process
// configuration, following the precedence order of SPEC_FULL.md 4.C:
// embedded-SQL, then object-store, then key-value, then search-index,
// else in-memory. Grounded on sys.GetStorage's string-keyed backend
// switch, generalized from a single storageType flag to a first-match
// scan over independently-configured backend settings.
package factory

import (
	"fmt"

	"github.com/Comcast/ecs-scheduler/config"
	"github.com/Comcast/ecs-scheduler/core"
	"github.com/Comcast/ecs-scheduler/store"
	"github.com/Comcast/ecs-scheduler/store/dynamodb"
	"github.com/Comcast/ecs-scheduler/store/elastic"
	"github.com/Comcast/ecs-scheduler/store/memory"
	"github.com/Comcast/ecs-scheduler/store/s3"
	"github.com/Comcast/ecs-scheduler/store/sqlite"
)

// CacheSize bounds the read-through LRU cache placed in front of every
// backend except memory (which is already all in-process state).
const CacheSize = 1024

// New selects the configured backend, wraps every backend except
// memory in the read-through cache, bootstraps the underlying artifact, and returns
// it.
func New(ctx *core.Context, cfg *config.Config) (store.Store, error) {
	backend, cacheable, err := selectBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cacheable {
		backend = store.WithCache(backend, CacheSize)
	}
	if err := backend.Bootstrap(ctx); err != nil {
		return nil, err
	}
	return backend, nil
}

func selectBackend(ctx *core.Context, cfg *config.Config) (store.Store, bool, error) {
	switch {
	case cfg.SqliteFile != "":
		core.Log(core.INFO|core.STORE, ctx, "factory.New", "backend", "sqlite", "file", cfg.SqliteFile)
		s, err := sqlite.NewStorage(ctx, cfg.SqliteFile)
		return s, true, err
	case cfg.S3Bucket != "":
		core.Log(core.INFO|core.STORE, ctx, "factory.New", "backend", "s3", "bucket", cfg.S3Bucket)
		s, err := s3.NewStorage(ctx, cfg.S3Bucket, cfg.S3Prefix)
		return s, true, err
	case cfg.DynamoDBTable != "":
		core.Log(core.INFO|core.STORE, ctx, "factory.New", "backend", "dynamodb", "table", cfg.DynamoDBTable)
		s, err := dynamodb.NewStorage(ctx, cfg.DynamoDBTable)
		return s, true, err
	case cfg.ElasticsearchIndex != "":
		if len(cfg.ElasticsearchHosts) == 0 {
			return nil, false, fmt.Errorf("ELASTICSEARCH_HOSTS required when ELASTICSEARCH_INDEX is set")
		}
		core.Log(core.INFO|core.STORE, ctx, "factory.New", "backend", "elastic", "index", cfg.ElasticsearchIndex)
		s, err := elastic.NewStorage(ctx, cfg.ElasticsearchIndex, cfg.ElasticsearchHosts)
		return s, true, err
	default:
		core.Log(core.WARN|core.STORE, ctx, "factory.New", "backend", "memory")
		return memory.New(), false, nil
	}
}
