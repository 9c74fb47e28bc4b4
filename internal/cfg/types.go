// Package cfg holds the chunkserver core's runtime configuration: a single
// Config struct bound through pflag/viper and loadable from an optional YAML
// file, following the same binding idiom as the mount tool's own cfg
// package, generalized to the core's own keys (spec.md §4.3/§6).
package cfg

import (
	"fmt"
	"time"
)

// Severity is the logging verbosity level, matching internal/slogger's
// TRACE..OFF ladder.
type Severity string

const (
	SeverityTrace   Severity = "TRACE"
	SeverityDebug   Severity = "DEBUG"
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
	SeverityOff     Severity = "OFF"
)

func (s *Severity) UnmarshalText(text []byte) error {
	v := Severity(text)
	switch v {
	case SeverityTrace, SeverityDebug, SeverityInfo, SeverityWarning, SeverityError, SeverityOff:
		*s = v
		return nil
	default:
		return fmt.Errorf("invalid severity value: %s", text)
	}
}

// Config is the top-level configuration for the chunkserver core.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`

	Jobs JobPoolConfig `yaml:"job-pool"`

	Trash TrashConfig `yaml:"trash"`

	ReadEngine ReadEngineConfig `yaml:"read-engine"`

	Disk DiskConfig `yaml:"disk"`

	Replication ReplicationConfig `yaml:"replication"`
}

// LoggingConfig mirrors the mount tool's own LoggingConfig shape: a severity
// plus an optional rotating file sink.
type LoggingConfig struct {
	Severity  Severity             `yaml:"severity"`
	Format    string               `yaml:"format"`
	File      string               `yaml:"file-path"`
	LogRotate LogRotateLoggingConfig `yaml:"log-rotate"`
}

type LogRotateLoggingConfig struct {
	MaxFileSizeMb   int  `yaml:"max-file-size-mb"`
	BackupFileCount int  `yaml:"backup-file-count"`
	Compress        bool `yaml:"compress"`
}

// JobPoolConfig holds the §4.2 JP sizing knobs.
type JobPoolConfig struct {
	WorkersPerNetworkWorker int `yaml:"nr-of-hdd-workers-per-network-worker"`
	QueueDepthPerNetworkWorker int `yaml:"bgjobscnt-per-network-worker"`
}

// TrashConfig holds the §4.3 TM knobs, including the config-flag resolution
// of the clean_empty_folders open question (the remove-across-disks question
// is settled by trash.Index.Add, not by a config field).
type TrashConfig struct {
	FreeSpaceThresholdGB      int           `yaml:"free-space-threshold-gb"`
	ExpirationSeconds         int64         `yaml:"expiration-seconds"`
	GCBatchSize               int           `yaml:"gc-batch-size"`
	GCSpaceRecoveryBatchSize  int           `yaml:"gc-space-recovery-batch-size"`
	CleanEmptyFolders         bool          `yaml:"clean-empty-folders"`
	TickInterval              time.Duration `yaml:"tick-interval"`
}

// ReadEngineConfig holds the §4.4 RE/adviser/cache knobs.
type ReadEngineConfig struct {
	InitWindow                int64   `yaml:"init-window-bytes"`
	MaxWindowSize             int64   `yaml:"max-window-size-bytes"`
	RandomThreshold           int64   `yaml:"random-threshold-bytes"`
	OppositeRequestThreshold  int     `yaml:"opposite-request-threshold"`
	MaxReadCacheSizeBytes     int64   `yaml:"max-read-cache-size-bytes"`
	AlmostExceededFraction    float64 `yaml:"almost-exceeded-fraction"`
	MinCacheExpirationMillis  int64   `yaml:"min-cache-expiration-millis"`
	MaxCacheExpirationMillis  int64   `yaml:"max-cache-expiration-millis"`
	ExpirationSampleTicks     int     `yaml:"expiration-sample-ticks"`
	MaxRetries                int    `yaml:"max-retries"`
	RetryBaseDelayMillis       int64  `yaml:"retry-base-delay-millis"`
	RetryMaxDelayMillis         int64  `yaml:"retry-max-delay-millis"`
}

// DiskConfig holds the §4.2/§6 HDD worker knobs.
type DiskConfig struct {
	CheckCRCWhenReading bool `yaml:"hdd-check-crc-when-reading"`
	AdviseNoCache       bool `yaml:"hdd-advise-no-cache"`
	PunchHoles          bool `yaml:"hdd-punch-holes"`
}

// ReplicationConfig holds the §4.6/§6 CR knobs.
type ReplicationConfig struct {
	BandwidthLimitKBPS   int64 `yaml:"bandwidth-limit-kbps"`
	TotalTimeoutMillis   int64 `yaml:"total-timeout-millis"`
	WaveTimeoutMillis    int64 `yaml:"wave-timeout-millis"`
	ConnectionTimeoutMillis int64 `yaml:"connection-timeout-millis"`
	LocationCacheRefreshTicks int `yaml:"location-cache-refresh-ticks"`
}
