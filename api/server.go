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

// Package api is the REST surface: a thin HTTP layer over the store
// and the engine's mutation channel. It never reaches into the
// engine's timeline directly, following SPEC_FULL.md 4.G.
package api

import (
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/Comcast/ecs-scheduler/core"
	"github.com/Comcast/ecs-scheduler/engine"
	"github.com/Comcast/ecs-scheduler/store"
)

// Server owns the listener, mux, and the in-flight request counter
// Stop waits on, the same shape as service.HTTPService/Listener
// generalized to one struct.
type Server struct {
	backend   store.Store
	eng       *engine.Engine
	startedBy string

	mux      *http.ServeMux
	listener net.Listener
	httpSrv  *http.Server
	pending  int32
}

func NewServer(backend store.Store, eng *engine.Engine, startedBy string) *Server {
	s := &Server{backend: backend, eng: eng, startedBy: startedBy, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleRoot)
	s.mux.HandleFunc("/spec", s.handleSpec)
	s.mux.HandleFunc("/jobs", s.handleJobsCollection)
	s.mux.HandleFunc("/jobs/", s.handleJobsItem)
}

// instrumented wraps a handler with the pending-request counter Stop
// watches, and with the CORS/content headers every response carries.
func (s *Server) instrumented(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.pending, 1)
		defer atomic.AddInt32(&s.pending, -1)

		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")
		h(w, r)
	}
}

// Start binds addr and serves in the background. Returns once the
// listener is open; an error from Serve is logged, not returned, except
// http.ErrServerClosed (what a clean Stop produces), which is not logged.
func (s *Server) Start(ctx *core.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = l
	s.httpSrv = &http.Server{Handler: s.instrumented(s.mux.ServeHTTP)}

	go func() {
		if err := s.httpSrv.Serve(l); err != nil && err != http.ErrServerClosed {
			core.Log(core.CRIT|core.HTTP, ctx, "Server.Start", "error", err)
		}
	}()

	core.Log(core.INFO|core.HTTP, ctx, "Server.Start", "addr", addr)
	return nil
}

// Stop waits up to grace for in-flight requests to finish, then closes
// the underlying http.Server (its listener and any open connections),
// mirroring service.Listener.Stop/Drain. The listener keeps accepting
// connections while Stop waits.
func (s *Server) Stop(ctx *core.Context, grace time.Duration) error {
	pause := 200 * time.Millisecond
	waited := time.Duration(0)
	for atomic.LoadInt32(&s.pending) > 0 && waited < grace {
		time.Sleep(pause)
		waited += pause
	}
	if n := atomic.LoadInt32(&s.pending); n > 0 {
		core.Log(core.WARN|core.HTTP, ctx, "Server.Stop", "msg", "grace period elapsed with requests still pending", "pending", n)
	}
	return s.httpSrv.Close()
}
