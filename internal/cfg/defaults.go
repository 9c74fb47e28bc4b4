package cfg

import "time"

// Default returns the configuration used when no flags or YAML file are
// supplied, with every constant drawn from spec.md §4.3/§6/§8 and the
// original C++ source's own defaults.
func Default() Config {
	return Config{
		Logging: LoggingConfig{
			Severity: SeverityInfo,
			Format:   "text",
			LogRotate: LogRotateLoggingConfig{
				MaxFileSizeMb:   512,
				BackupFileCount: 10,
				Compress:        true,
			},
		},
		Jobs: JobPoolConfig{
			WorkersPerNetworkWorker:    2,
			QueueDepthPerNetworkWorker: 1000,
		},
		Trash: TrashConfig{
			FreeSpaceThresholdGB:     10,
			ExpirationSeconds:        259200,
			GCBatchSize:              1000,
			GCSpaceRecoveryBatchSize: 10,
			CleanEmptyFolders:        true,
			TickInterval:             1 * time.Second,
		},
		ReadEngine: ReadEngineConfig{
			InitWindow:               65536,
			MaxWindowSize:            4 << 20,
			RandomThreshold:          4 << 20,
			OppositeRequestThreshold: 4,
			MaxReadCacheSizeBytes:    256 << 20,
			AlmostExceededFraction:   0.8,
			MinCacheExpirationMillis: 1,
			MaxCacheExpirationMillis: 10000,
			ExpirationSampleTicks:    180,
			MaxRetries:               5,
			RetryBaseDelayMillis:     1,
			RetryMaxDelayMillis:      10000,
		},
		Disk: DiskConfig{
			CheckCRCWhenReading: true,
			AdviseNoCache:       false,
			PunchHoles:          false,
		},
		Replication: ReplicationConfig{
			BandwidthLimitKBPS:        0,
			TotalTimeoutMillis:        60000,
			WaveTimeoutMillis:         500,
			ConnectionTimeoutMillis:   1000,
			LocationCacheRefreshTicks: 15,
		},
	}
}
