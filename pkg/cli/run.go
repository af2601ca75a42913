// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
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

package cli

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/NVIDIA/addon-container/pkg/container"
	"github.com/NVIDIA/addon-container/pkg/defaults"
	"github.com/NVIDIA/addon-container/pkg/server"
)

func runCmd() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the addon container",
		Description: `Polls the repository and keeps every enabled, deployed and compatible
addon running, each on its own worker. Addons with missing dependencies are
waitlisted and retried on every tick.

Health, readiness and Prometheus metrics are served on --metrics-port
(0 disables the endpoint). Readiness is also reported to systemd when
NOTIFY_SOCKET is set.

# Examples

  addond --repository /var/lib/addons run
  addond run --poll-interval 500ms --batch-size 8 --runtime-version 2.1
  addond run --server-mode=false   # exit once every addon has started`,
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "poll-interval",
				Usage: "Time between reconciliation ticks (also " + container.EnvPollIntervalMS + ")",
				Value: defaults.PollInterval,
			},
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Maximum number of addons starting at once (also " + container.EnvBatchSize + ")",
				Value: defaults.BatchSize,
			},
			&cli.StringFlag{
				Name:    "runtime-version",
				Usage:   "Runtime API version addons are checked against (default: from the repository manifest)",
				Sources: cli.EnvVars("ADDON_RUNTIME_API_VERSION"),
			},
			&cli.BoolFlag{
				Name:  "server-mode",
				Usage: "Keep running after all addons have started",
				Value: true,
			},
			&cli.DurationFlag{
				Name:  "shutdown-timeout",
				Usage: "How long to wait for addons to stop on exit",
				Value: defaults.ContainerShutdownTimeout,
			},
			&cli.IntFlag{
				Name:    "metrics-port",
				Usage:   "Port for health, readiness and metrics endpoints; 0 disables",
				Value:   9090,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:  "metrics-address",
				Usage: "Address to bind the metrics endpoint to",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := container.NewConfig()
			if cmd.IsSet("poll-interval") {
				cfg.PollInterval = cmd.Duration("poll-interval")
			}
			if cmd.IsSet("batch-size") {
				cfg.BatchSize = cmd.Int("batch-size")
			}
			if root := cmd.String("repository"); root != "" {
				cfg.RepositoryDir = root
			}
			cfg.RuntimeAPIVersion = cmd.String("runtime-version")
			cfg.ServerMode = cmd.Bool("server-mode")
			cfg.ShutdownTimeout = cmd.Duration("shutdown-timeout")

			return runContainer(ctx, cfg, cmd.String("metrics-address"), cmd.Int("metrics-port"))
		},
	}
}

// runContainer runs the container, its HTTP endpoint and the systemd
// notifier until ctx is cancelled or the container exits.
func runContainer(ctx context.Context, cfg *container.Config, address string, port int) error {
	c, err := container.New(cfg)
	if err != nil {
		return err
	}
	started := time.Now()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		// the endpoint and notifier follow the container
		defer cancel()
		return c.Start(gctx)
	})

	if port > 0 {
		scfg := server.NewConfig()
		scfg.Address = address
		scfg.Port = port

		srv := server.New(
			server.WithConfig(scfg),
			server.WithName(name),
			server.WithVersion(version),
			server.WithReadiness(c.Ready),
			server.WithHandler(map[string]http.HandlerFunc{
				"/v1/addons": server.AddonsHandler(c.Registry()),
			}),
		)
		g.Go(func() error {
			return srv.Start(gctx)
		})
	}

	g.Go(func() error {
		notifySystemd(gctx, c.Ready, cfg.PollInterval)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("addon container exited", "container", c.ID(), "uptime", time.Since(started).Round(time.Millisecond).String())
	return nil
}
