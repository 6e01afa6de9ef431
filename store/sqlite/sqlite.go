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

// Package sqlite is the embedded-SQL Store backend: a single table
// (id TEXT PRIMARY KEY, body TEXT) where body is the job's canonical
// JSON, following the bucket-per-location shape of the teacher's
// storage/bolt package but against a real SQL engine as SPEC_FULL.md
// 4.C requires.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/Comcast/ecs-scheduler/core"
	"github.com/Comcast/ecs-scheduler/store"
)

type Storage struct {
	db *sql.DB
}

// NewStorage opens (and, on Bootstrap, creates) the sqlite file at
// path. Pre-existing files are used as-is.
func NewStorage(ctx *core.Context, path string) (*Storage, error) {
	core.Log(core.INFO|core.STORE, ctx, "sqlite.NewStorage", "path", path)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, core.NewBackendUnavailableError(err)
	}
	return &Storage{db: db}, nil
}

func (s *Storage) Bootstrap(ctx *core.Context) error {
	err := core.RetryOnce(ctx, "sqlite.Bootstrap", func() error {
		_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS jobs (id TEXT PRIMARY KEY, body TEXT NOT NULL)`)
		return err
	})
	if err != nil {
		core.Log(core.CRIT|core.STORE, ctx, "sqlite.Bootstrap", "error", err)
		return core.NewBackendUnavailableError(err)
	}
	return nil
}

func (s *Storage) List(ctx *core.Context, skip, limit int) (*store.Page, error) {
	var total int
	if err := core.RetryOnce(ctx, "sqlite.List", func() error {
		return s.db.QueryRow(`SELECT COUNT(*) FROM jobs`).Scan(&total)
	}); err != nil {
		return nil, core.NewBackendUnavailableError(err)
	}

	var rows *sql.Rows
	if err := core.RetryOnce(ctx, "sqlite.List", func() error {
		var err error
		rows, err = s.db.Query(`SELECT body FROM jobs ORDER BY id LIMIT ? OFFSET ?`, limit, skip)
		return err
	}); err != nil {
		return nil, core.NewBackendUnavailableError(err)
	}
	defer rows.Close()

	page := &store.Page{Total: total}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, core.NewBackendUnavailableError(err)
		}
		job, err := decodeJob(body)
		if err != nil {
			core.Log(core.ERROR|core.STORE, ctx, "sqlite.List", "error", err, "when", "decode")
			continue
		}
		page.Items = append(page.Items, job)
	}
	return page, nil
}

func (s *Storage) Get(ctx *core.Context, id string) (*core.Job, error) {
	var body string
	err := core.RetryOnce(ctx, "sqlite.Get", func() error {
		return s.db.QueryRow(`SELECT body FROM jobs WHERE id = ?`, id).Scan(&body)
	})
	if err == sql.ErrNoRows {
		return nil, core.NewNotFoundError("job %s", id)
	}
	if err != nil {
		return nil, core.NewBackendUnavailableError(err)
	}
	job, err := decodeJob(body)
	if err != nil {
		return nil, core.NewBackendCorruptError(id, err)
	}
	return job, nil
}

func (s *Storage) Create(ctx *core.Context, job *core.Job) error {
	var exists int
	err := core.RetryOnce(ctx, "sqlite.Create", func() error {
		return s.db.QueryRow(`SELECT 1 FROM jobs WHERE id = ?`, job.Id).Scan(&exists)
	})
	if err == nil {
		return core.NewAlreadyExistsError(job.Id)
	} else if err != sql.ErrNoRows {
		return core.NewBackendUnavailableError(err)
	}

	body, err := json.Marshal(job)
	if err != nil {
		return core.NewInternalError("marshal job %s: %v", job.Id, err)
	}
	if err := core.RetryOnce(ctx, "sqlite.Create", func() error {
		_, err := s.db.Exec(`INSERT INTO jobs (id, body) VALUES (?, ?)`, job.Id, body)
		return err
	}); err != nil {
		return core.NewBackendUnavailableError(err)
	}
	return nil
}

func (s *Storage) Update(ctx *core.Context, id string, merged *core.Job) error {
	body, err := json.Marshal(merged)
	if err != nil {
		return core.NewInternalError("marshal job %s: %v", id, err)
	}
	var affected int64
	if err := core.RetryOnce(ctx, "sqlite.Update", func() error {
		res, err := s.db.Exec(`UPDATE jobs SET body = ? WHERE id = ?`, body, id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	}); err != nil {
		return core.NewBackendUnavailableError(err)
	}
	if affected == 0 {
		return core.NewNotFoundError("job %s", id)
	}
	return nil
}

func (s *Storage) Delete(ctx *core.Context, id string) error {
	var affected int64
	if err := core.RetryOnce(ctx, "sqlite.Delete", func() error {
		res, err := s.db.Exec(`DELETE FROM jobs WHERE id = ?`, id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	}); err != nil {
		return core.NewBackendUnavailableError(err)
	}
	if affected == 0 {
		return core.NewNotFoundError("job %s", id)
	}
	return nil
}

func (s *Storage) Close(ctx *core.Context) error {
	return s.db.Close()
}

func decodeJob(body string) (*core.Job, error) {
	var job core.Job
	if err := json.Unmarshal([]byte(body), &job); err != nil {
		return nil, fmt.Errorf("decode job body: %w", err)
	}
	return &job, nil
}
