/*
Copyright (C) 2023-2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// aikv-server is the single executable spec.md §6 names: it parses a YAML
// config, wires the wire-protocol server, the typed store, the optional
// cluster node, the background expiration sweeper and observability, then
// serves RESP connections until signalled to stop.
package main

import (
	"context"
	"fmt"
	"hash/fnv"
	"net"
	"os"

	"github.com/dc0d/onexit"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/launix-de/aikv/cluster"
	"github.com/launix-de/aikv/command"
	"github.com/launix-de/aikv/config"
	"github.com/launix-de/aikv/connection"
	"github.com/launix-de/aikv/expire"
	"github.com/launix-de/aikv/observability"
	"github.com/launix-de/aikv/script"
	"github.com/launix-de/aikv/serverinfo"
	"github.com/launix-de/aikv/store"
)

// buildVersion is overridden at link time (-ldflags "-X main.buildVersion=...");
// the zero value prints as "dev".
var buildVersion = "dev"

func main() {
	root := &cobra.Command{
		Use:   "aikv-server",
		Short: "aikv-server serves the key-value wire protocol, optionally clustered",
	}

	serve := serveCmd()
	root.AddCommand(serve)
	root.AddCommand(versionCmd())
	// spec.md §6: a single executable - running with no subcommand serves,
	// matching the teacher's single long-lived process model.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print build info",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("aikv-server " + buildVersion)
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "start the data-plane (and, if clustered, the consensus listener)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "aikv.yaml", "path to the YAML configuration file")
	return cmd
}

func serve(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("aikv-server: %w", err)
	}

	log := newLogger(cfg.Logging)

	facade, err := openStorage(cfg)
	if err != nil {
		return fmt.Errorf("aikv-server: opening storage: %w", err)
	}

	metrics := observability.New(observability.Config{
		LogSlowerThan: cfg.SlowLogThreshold(),
		MaxLen:        cfg.Slowlog.MaxLen,
	})
	instrumented := observability.Instrument(facade, metrics)

	var node *cluster.Node
	var guard command.ClusterGuard
	var admin command.ClusterAdmin
	var clusterView serverinfo.ClusterView
	if cfg.Cluster.Enabled {
		nodeID := cfg.NodeID
		if nodeID == 0 {
			h := fnv.New64a()
			h.Write([]byte(cfg.Cluster.RaftAddress))
			nodeID = h.Sum64()
		}
		node, err = cluster.NewNode(cluster.Config{
			ID:        nodeID,
			RaftAddr:  cfg.Cluster.RaftAddress,
			DataAddr:  fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			DataDir:   cfg.Storage.DataDir,
			Bootstrap: cfg.Cluster.IsBootstrap,
			Log:       log,
		})
		if err != nil {
			return fmt.Errorf("aikv-server: starting cluster node: %w", err)
		}
		guard = cluster.NewGuard(node, instrumented)
		admin = cluster.NewAdmin(node, instrumented)
		clusterView = node
	}

	info := serverinfo.New(cfg, metrics, clusterView, buildVersion)

	template := command.Context{
		Store:   instrumented,
		Cluster: guard,
		Admin:   admin,
		Server:  info,
		Scripts: script.NewRuntime(),
		SlowLog: metrics.SlowLog(),
	}

	srv := connection.NewServer(template, metrics, log)

	watcher, err := config.NewWatcher(configPath, cfg, info.ApplyHotFields, log)
	if err != nil {
		log.WithError(err).Warn("config hot-reload watcher unavailable, continuing without it")
	} else {
		go watcher.Run()
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	sweeper := expire.New(instrumented.(store.Sweeper), cfg.Storage.Databases, expire.Config{}, log)
	go sweeper.Run(sweepCtx)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("aikv-server: listening on %s: %w", addr, err)
	}

	onexit.Register(func() {
		log.Info("shutting down")
		stopSweep()
		sweeper.Stop()
		srv.Close()
		if watcher != nil {
			watcher.Close()
		}
		if node != nil {
			node.Shutdown()
		}
		if err := instrumented.Close(); err != nil {
			log.WithError(err).Warn("error closing storage")
		}
	})

	log.WithField("addr", addr).Info("aikv-server listening")
	return srv.Serve(listener)
}

func newLogger(cfg config.LoggingSection) *logrus.Entry {
	l := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.Level); err == nil {
		l.SetLevel(lvl)
	}
	if cfg.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{})
	}
	return logrus.NewEntry(l)
}

// openStorage builds the store.Facade named by cfg.Storage.Engine; the
// returned value already satisfies shutdown via its own Facade.Close.
func openStorage(cfg config.Config) (store.Facade, error) {
	n := cfg.Storage.Databases
	switch cfg.Storage.Engine {
	case "", "memory":
		return store.NewMemoryBackend(n), nil
	case "persistent":
		engine, err := store.NewFileEngine(cfg.Storage.DataDir)
		if err != nil {
			return nil, err
		}
		return store.OpenPersistentBackend(n, engine)
	case "s3":
		engine := store.NewS3Engine(store.S3Config{
			AccessKeyID:     cfg.Storage.S3.AccessKeyID,
			SecretAccessKey: cfg.Storage.S3.SecretAccessKey,
			Region:          cfg.Storage.S3.Region,
			Endpoint:        cfg.Storage.S3.Endpoint,
			Bucket:          cfg.Storage.S3.Bucket,
			Prefix:          cfg.Storage.S3.Prefix,
			ForcePathStyle:  cfg.Storage.S3.ForcePathStyle,
		})
		return store.OpenPersistentBackend(n, engine)
	case "ceph":
		engine := store.NewCephEngine(store.CephConfig{
			UserName:    cfg.Storage.Ceph.UserName,
			ClusterName: cfg.Storage.Ceph.ClusterName,
			ConfFile:    cfg.Storage.Ceph.ConfFile,
			Pool:        cfg.Storage.Ceph.Pool,
			Prefix:      cfg.Storage.Ceph.Prefix,
		})
		return store.OpenPersistentBackend(n, engine)
	default:
		return nil, fmt.Errorf("unknown storage.engine %q", cfg.Storage.Engine)
	}
}
