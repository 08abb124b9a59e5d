package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hollowoak/sparkplug-edge/internal/buildinfo"
	"github.com/hollowoak/sparkplug-edge/internal/config"
	"github.com/hollowoak/sparkplug-edge/internal/connwatch"
	"github.com/hollowoak/sparkplug-edge/internal/cpusampler"
	"github.com/hollowoak/sparkplug-edge/internal/metrics"
	"github.com/hollowoak/sparkplug-edge/internal/mqttadapter"
	"github.com/hollowoak/sparkplug-edge/internal/sparkplug"
	"github.com/hollowoak/sparkplug-edge/internal/sparkplugpb"
	"github.com/hollowoak/sparkplug-edge/internal/statusserver"
)

const statPath = "/proc/stat"

var enableCPUMetrics bool

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the edge node",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(configPath, enableCPUMetrics)
		},
	}
	cmd.Flags().BoolVar(&enableCPUMetrics, "cpu-metrics", true, "publish per-core CPU usage devices sampled from /proc/stat")
	return cmd
}

func runNode(configPathArg string, cpuMetrics bool) error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfgPath, err := config.FindConfig(configPathArg)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config %s: %w", cfgPath, err)
	}

	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: config.ReplaceLogLevelNames,
		}))
	}

	logger.Info("starting edgenode", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "config", cfgPath)

	node := sparkplug.NewNode(sparkplug.NodeOptions{
		GroupID:         cfg.Node.GroupID,
		NodeID:          cfg.Node.NodeID,
		PrimaryHost:     cfg.Node.PrimaryHost,
		EnabledCommands: cfg.Node.EnabledCommandBits(),
		Codec:           sparkplugpb.New(),
		Logger:          logger,
	})

	watchMgr := connwatch.NewManager(logger)
	adapters := make(map[string]*mqttadapter.Adapter, len(cfg.Brokers))

	for _, b := range cfg.Brokers {
		adapter := mqttadapter.New(mqttadapter.Config{
			BrokerURL:      b.URL,
			Username:       b.Username,
			Password:       b.Password,
			ClientIDPrefix: b.ClientIDPrefix,
			KeepAlive:      uint16(b.KeepAliveSec),
			MaxRetries:     b.MaxRetries,
		}, logger.With("broker", b.Name))
		node.AddAdapter(adapter)
		adapters[b.Name] = adapter

		host, err := brokerHost(b.URL)
		if err != nil {
			logger.Warn("cannot parse broker URL for health probing", "broker", b.Name, "url", b.URL, "error", err)
			continue
		}
		watchMgr.Watch(context.Background(), connwatch.WatcherConfig{
			Name:    b.Name,
			Probe:   tcpProbe(host),
			Backoff: connwatch.DefaultBackoffConfig(),
			Logger:  logger,
		})
	}

	for _, dc := range cfg.Node.Devices {
		node.AddDevice(sparkplug.NewDevice(dc.Name, dc.PublishIntervalMs, logger))
	}

	var sampler *cpusampler.Sampler
	if cpuMetrics {
		sampler, err = cpusampler.New(statPath, cfg.Node.PublishIntervalMs, logger)
		if err != nil {
			logger.Warn("cpu metrics disabled", "error", err)
			sampler = nil
		} else {
			if err := sampler.AttachTotal(node); err != nil {
				logger.Warn("cpu metrics disabled", "error", err)
				sampler = nil
			} else {
				for _, d := range sampler.Devices() {
					node.AddDevice(d)
				}
			}
		}
	}

	if err := node.Enable(); err != nil {
		return fmt.Errorf("node.Enable: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		node.Stop(context.Background())
		cancel()
	}()

	status := statusserver.NewServer(statusserver.Config{
		Address:        cfg.Listen.Address,
		Port:           cfg.Listen.Port,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsAddress: cfg.Metrics.Address,
		MetricsPort:    cfg.Metrics.Port,
	}, node, watchMgr, logger)

	go func() {
		if err := status.Start(context.Background()); err != nil {
			logger.Error("status server failed", "error", err)
		}
	}()
	defer func() { _ = status.Shutdown(context.Background()) }()

	return tickLoop(ctx, node, adapters, sampler, logger)
}

// tickLoop calls Node.Execute on a fixed 100ms ticker until ctx is
// cancelled, ignoring Execute's returned next-call hint, and refreshes
// connectivity metrics and the CPU sampler alongside each tick.
func tickLoop(ctx context.Context, node *sparkplug.Node, adapters map[string]*mqttadapter.Adapter, sampler *cpusampler.Sampler, logger *slog.Logger) error {
	elapsed := int32(0)
	const tick = 100 * time.Millisecond

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if sampler != nil {
				if err := sampler.Sample(); err != nil {
					logger.Warn("cpu sample failed", "error", err)
				}
			}
			for name, a := range adapters {
				v := 0.0
				if a.IsConnected() {
					v = 1.0
				}
				metrics.AdapterConnected.WithLabelValues(name).Set(v)
			}

			if _, err := node.Execute(ctx, elapsed); err != nil {
				logger.Error("node.Execute failed", "error", err)
				return err
			}
			elapsed = int32(tick.Milliseconds())
		}
	}
}

func brokerHost(brokerURL string) (string, error) {
	u, err := url.Parse(brokerURL)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host in broker URL %q", brokerURL)
	}
	return u.Host, nil
}

// tcpProbe returns a ProbeFunc that dials hostport and immediately
// closes the connection — enough to tell whether the broker is
// reachable without speaking MQTT.
func tcpProbe(hostport string) connwatch.ProbeFunc {
	return func(ctx context.Context) error {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", hostport)
		if err != nil {
			return err
		}
		return conn.Close()
	}
}
