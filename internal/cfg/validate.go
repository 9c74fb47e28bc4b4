package cfg

import "fmt"

func isValidLogRotateConfig(c *LogRotateLoggingConfig) error {
	if c.MaxFileSizeMb <= 0 {
		return fmt.Errorf("max-file-size-mb should be at least 1")
	}
	if c.BackupFileCount < 0 {
		return fmt.Errorf("backup-file-count should be 0 (retain all) or positive")
	}
	return nil
}

func isValidTrashConfig(c *TrashConfig) error {
	if c.FreeSpaceThresholdGB < 0 {
		return fmt.Errorf("free-space-threshold-gb cannot be negative")
	}
	if c.ExpirationSeconds < 0 {
		return fmt.Errorf("expiration-seconds cannot be negative")
	}
	if c.GCBatchSize <= 0 {
		return fmt.Errorf("gc-batch-size must be positive")
	}
	if c.GCSpaceRecoveryBatchSize <= 0 {
		return fmt.Errorf("gc-space-recovery-batch-size must be positive")
	}
	return nil
}

func isValidReadEngineConfig(c *ReadEngineConfig) error {
	if c.InitWindow <= 0 {
		return fmt.Errorf("init-window-bytes must be positive")
	}
	if c.MaxWindowSize < c.InitWindow {
		return fmt.Errorf("max-window-size-bytes must be >= init-window-bytes")
	}
	if c.OppositeRequestThreshold <= 0 {
		return fmt.Errorf("opposite-request-threshold must be positive")
	}
	if c.AlmostExceededFraction <= 0 || c.AlmostExceededFraction > 1 {
		return fmt.Errorf("almost-exceeded-fraction must be in (0, 1]")
	}
	if c.MinCacheExpirationMillis <= 0 {
		return fmt.Errorf("min-cache-expiration-millis must be positive")
	}
	if c.MaxCacheExpirationMillis < c.MinCacheExpirationMillis {
		return fmt.Errorf("max-cache-expiration-millis must be >= min-cache-expiration-millis")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max-retries cannot be negative")
	}
	return nil
}

// Validate returns a non-nil error if config is internally inconsistent.
func Validate(config *Config) error {
	if err := isValidLogRotateConfig(&config.Logging.LogRotate); err != nil {
		return fmt.Errorf("error parsing log-rotate config: %w", err)
	}
	if err := isValidTrashConfig(&config.Trash); err != nil {
		return fmt.Errorf("error parsing trash config: %w", err)
	}
	if err := isValidReadEngineConfig(&config.ReadEngine); err != nil {
		return fmt.Errorf("error parsing read-engine config: %w", err)
	}
	return nil
}
