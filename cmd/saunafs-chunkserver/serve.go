package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/leil-io/saunafs-chunkserver-core/clock"
	"github.com/leil-io/saunafs-chunkserver-core/internal/cfg"
	"github.com/leil-io/saunafs-chunkserver-core/internal/diskmgr"
	"github.com/leil-io/saunafs-chunkserver-core/internal/slogger"
	"github.com/leil-io/saunafs-chunkserver-core/internal/telemetry"
	"github.com/leil-io/saunafs-chunkserver-core/internal/trash"
)

var disksFlag []string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the trash manager's GC loop and the disk energy manager over the given disks",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringSliceVar(&disksFlag, "disk", nil, "Local disk path to manage; repeatable")
}

func runServe(cmd *cobra.Command, args []string) error {
	config, err := loadConfig(cmd.Flags())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	closeLog, err := slogger.Init(
		slogger.Severity(config.Logging.Severity),
		config.Logging.Format,
		config.Logging.File,
		slogger.RotateConfig{
			MaxFileSizeMb:   config.Logging.LogRotate.MaxFileSizeMb,
			BackupFileCount: config.Logging.LogRotate.BackupFileCount,
			Compress:        config.Logging.LogRotate.Compress,
		},
	)
	if err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	defer closeLog()

	if len(disksFlag) == 0 {
		return fmt.Errorf("at least one --disk must be given")
	}

	provider, shutdownMetrics, err := telemetry.NewPrometheusMeterProvider(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("initializing metrics: %w", err)
	}
	metrics, err := telemetry.NewMetrics(provider.Meter("saunafs-chunkserver"))
	if err != nil {
		return fmt.Errorf("initializing instruments: %w", err)
	}

	c := clock.RealClock{}
	manager := trash.NewManager(config.Trash, c)
	disks := make([]*diskmgr.Disk, 0, len(disksFlag))
	for _, path := range disksFlag {
		if err := manager.Init(path); err != nil {
			return fmt.Errorf("initializing trash index for %q: %w", path, err)
		}
		disks = append(disks, diskmgr.NewDisk(path))
		slogger.Infof("registered disk %s", path)
	}

	diskManager := diskmgr.NewManager(disks, nil)
	startupDisk, err := diskManager.DiskForNewChunk()
	if err != nil {
		return fmt.Errorf("disk energy manager startup check: %w", err)
	}
	metrics.ChunkPlacement(context.Background(), startupDisk.Path)
	slogger.Infof("disk energy manager ready, %d writable disk(s), first pick %s", len(disks), startupDisk.Path)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ticker := time.NewTicker(config.Trash.TickInterval)
	defer ticker.Stop()

	slogger.Infof("saunafs-chunkserver serve: managing %d disk(s), tick interval %s", len(disks), config.Trash.TickInterval)

	for {
		select {
		case <-ctx.Done():
			slogger.Infof("shutting down")
			_ = shutdownMetrics(context.Background())
			return nil
		case <-ticker.C:
			manager.Tick()
		}
	}
}
