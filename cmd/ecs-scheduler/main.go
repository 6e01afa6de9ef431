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

// Command ecs-scheduler is the scheduler daemon: it wires config, the
// store backend, the trigger registry, the ECS launcher, the in-memory
// engine, and the REST surface together, then serves until signaled to
// stop. Grounded on rulesys/main.go's wiring shape, simplified down to
// the single daemon that shape's "engine" subcommand ran: there is no
// profiling subcommand and no storage-inspection subcommand here, since
// SPEC_FULL.md's backend list is fixed and none of it is Cassandra.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/Comcast/ecs-scheduler/api"
	"github.com/Comcast/ecs-scheduler/config"
	"github.com/Comcast/ecs-scheduler/core"
	"github.com/Comcast/ecs-scheduler/engine"
	"github.com/Comcast/ecs-scheduler/launcher"
	"github.com/Comcast/ecs-scheduler/store/factory"
	"github.com/Comcast/ecs-scheduler/trigger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ecs-scheduler:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if err := core.InitLogging(cfg.LogLevel, cfg.LogFolder); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	ctx := core.NewContext("")
	core.Log(core.INFO|core.SYSTEM, ctx, "main", "msg", "starting", "name", cfg.Name, "cluster", cfg.EcsCluster)

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		return fmt.Errorf("aws config: %w", err)
	}

	release, err := acquireSingleWriter(ctx, cfg)
	if err != nil {
		return err
	}
	if release != nil {
		defer release()
	}

	backend, err := factory.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer backend.Close(ctx)

	triggers := trigger.NewRegistry()
	triggers.Register("sqs", trigger.NewQueueDepth(sqs.NewFromConfig(awsCfg)))

	lnch := launcher.NewECS(ecs.NewFromConfig(awsCfg), cfg.EcsCluster)

	eng := engine.New(backend, triggers, lnch, cfg.Name)
	if err := eng.Seed(ctx); err != nil {
		return fmt.Errorf("engine seed: %w", err)
	}
	eng.Start(ctx)

	server := api.NewServer(backend, eng, cfg.Name)
	if err := server.Start(ctx, cfg.Addr); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	waitForSignal(ctx)

	grace := time.Duration(cfg.ShutdownGrace) * time.Second
	core.Log(core.INFO|core.SYSTEM, ctx, "main", "msg", "shutting down", "grace", grace)

	if err := server.Stop(ctx, grace); err != nil {
		core.Log(core.WARN|core.HTTP, ctx, "main", "error", err)
	}
	eng.Stop(ctx, grace)

	return nil
}

// acquireSingleWriter enforces the single-process/single-writer
// safeguard: at most one scheduler instance may run against a given
// backend at a time, since the in-memory engine holds the only copy
// of each job's live timer. It tries to take out cfg.LockFile as an
// advisory lock; if that fails because another instance already
// holds it, the process refuses to start the scheduler loop unless
// the operator has explicitly acknowledged the risk via
// ECSS_SINGLE_WRITER=true, in which case it logs loudly and proceeds
// anyway. A nil release func means no lock was taken (the ack path)
// and there is nothing to clean up on shutdown.
func acquireSingleWriter(ctx *core.Context, cfg *config.Config) (func(), error) {
	lock, err := core.AcquireSingleWriterLock(cfg.LockFile)
	if err == nil {
		return func() {
			if rerr := lock.Release(); rerr != nil {
				core.Log(core.WARN|core.SYSTEM, ctx, "acquireSingleWriter", "error", rerr, "when", "release")
			}
		}, nil
	}

	if !cfg.SingleWriterOK {
		core.Log(core.CRIT|core.SYSTEM, ctx, "acquireSingleWriter", "error", err,
			"msg", "refusing to start: another instance appears to hold the single-writer lock; set ECSS_SINGLE_WRITER=true to override")
		return nil, fmt.Errorf("single-writer check: %w", err)
	}

	core.Log(core.CRIT|core.SYSTEM, ctx, "acquireSingleWriter", "error", err,
		"msg", "starting anyway: ECSS_SINGLE_WRITER=true overrides the single-writer lock check")
	return nil, nil
}

// waitForSignal blocks until SIGINT or SIGTERM arrives, the same pair
// a container orchestrator sends on task stop.
func waitForSignal(ctx *core.Context) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	core.Log(core.INFO|core.SYSTEM, ctx, "waitForSignal", "signal", sig.String())
}
