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

// Package elastic is the remote search-index Store backend: one
// document per job keyed by id. Not grounded in any retrieved example
// repo — no example uses a search-index client — named here as the
// ecosystem's standard Go Elasticsearch client because the spec
// requires this backend variant and the pack has no candidate.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/Comcast/ecs-scheduler/core"
	"github.com/Comcast/ecs-scheduler/store"
)

type Storage struct {
	client *elasticsearch.Client
	index  string
}

func NewStorage(ctx *core.Context, index string, hosts []string) (*Storage, error) {
	core.Log(core.INFO|core.STORE, ctx, "elastic.NewStorage", "index", index, "hosts", hosts)
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: hosts})
	if err != nil {
		return nil, core.NewBackendUnavailableError(err)
	}
	return &Storage{client: client, index: index}, nil
}

// Bootstrap creates the index with a permissive default mapping if
// absent; an existing index is left untouched.
func (s *Storage) Bootstrap(ctx *core.Context) error {
	var res *esapi.Response
	err := core.RetryOnce(ctx, "elastic.Bootstrap", func() error {
		var err error
		res, err = s.client.Indices.Exists([]string{s.index})
		return err
	})
	if err != nil {
		return core.NewBackendUnavailableError(err)
	}
	defer res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}
	var create *esapi.Response
	err = core.RetryOnce(ctx, "elastic.Bootstrap", func() error {
		var err error
		create, err = s.client.Indices.Create(s.index)
		return err
	})
	if err != nil {
		core.Log(core.CRIT|core.STORE, ctx, "elastic.Bootstrap", "error", err)
		return core.NewBackendUnavailableError(err)
	}
	defer create.Body.Close()
	if create.IsError() {
		return core.NewBackendUnavailableError(fmt.Errorf("create index: %s", create.String()))
	}
	return nil
}

func (s *Storage) Get(ctx *core.Context, id string) (*core.Job, error) {
	var res *esapi.Response
	err := core.RetryOnce(ctx, "elastic.Get", func() error {
		var err error
		res, err = s.client.Get(s.index, id, s.client.Get.WithContext(context.Background()))
		return err
	})
	if err != nil {
		return nil, core.NewBackendUnavailableError(err)
	}
	defer res.Body.Close()
	if res.StatusCode == 404 {
		return nil, core.NewNotFoundError("job %s", id)
	}
	if res.IsError() {
		return nil, core.NewBackendUnavailableError(fmt.Errorf("get %s: %s", id, res.String()))
	}

	var doc struct {
		Source json.RawMessage `json:"_source"`
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, core.NewBackendUnavailableError(err)
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, core.NewBackendCorruptError(id, err)
	}
	var job core.Job
	if err := json.Unmarshal(doc.Source, &job); err != nil {
		return nil, core.NewBackendCorruptError(id, err)
	}
	return &job, nil
}

func (s *Storage) put(ctx *core.Context, id string, job *core.Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return core.NewInternalError("marshal job %s: %v", id, err)
	}
	req := esapi.IndexRequest{Index: s.index, DocumentID: id, Body: bytes.NewReader(body), Refresh: "true"}
	var res *esapi.Response
	err = core.RetryOnce(ctx, "elastic.put", func() error {
		var err error
		res, err = req.Do(context.Background(), s.client)
		return err
	})
	if err != nil {
		return core.NewBackendUnavailableError(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return core.NewBackendUnavailableError(fmt.Errorf("index %s: %s", id, res.String()))
	}
	return nil
}

func (s *Storage) Create(ctx *core.Context, job *core.Job) error {
	if _, err := s.Get(ctx, job.Id); err == nil {
		return core.NewAlreadyExistsError(job.Id)
	}
	return s.put(ctx, job.Id, job)
}

func (s *Storage) Update(ctx *core.Context, id string, merged *core.Job) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.put(ctx, id, merged)
}

func (s *Storage) Delete(ctx *core.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	var res *esapi.Response
	err := core.RetryOnce(ctx, "elastic.Delete", func() error {
		var err error
		res, err = s.client.Delete(s.index, id, s.client.Delete.WithRefresh("true"))
		return err
	})
	if err != nil {
		return core.NewBackendUnavailableError(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return core.NewBackendUnavailableError(fmt.Errorf("delete %s: %s", id, res.String()))
	}
	return nil
}

func (s *Storage) List(ctx *core.Context, skip, limit int) (*store.Page, error) {
	query := fmt.Sprintf(`{"query":{"match_all":{}},"sort":[{"id.keyword":"asc"}],"from":%d,"size":%d}`, skip, limit)
	var res *esapi.Response
	err := core.RetryOnce(ctx, "elastic.List", func() error {
		var err error
		res, err = s.client.Search(
			s.client.Search.WithContext(context.Background()),
			s.client.Search.WithIndex(s.index),
			s.client.Search.WithBody(bytes.NewReader([]byte(query))),
		)
		return err
	})
	if err != nil {
		return nil, core.NewBackendUnavailableError(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, core.NewBackendUnavailableError(fmt.Errorf("search: %s", res.String()))
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, core.NewBackendUnavailableError(err)
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, core.NewBackendUnavailableError(err)
	}

	page := &store.Page{Total: parsed.Hits.Total.Value}
	for _, hit := range parsed.Hits.Hits {
		var job core.Job
		if err := json.Unmarshal(hit.Source, &job); err != nil {
			core.Log(core.ERROR|core.STORE, ctx, "elastic.List", "error", err, "when", "decode")
			continue
		}
		page.Items = append(page.Items, &job)
	}
	return page, nil
}

func (s *Storage) Close(ctx *core.Context) error { return nil }
