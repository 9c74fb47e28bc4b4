package cfg

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// BindFlags registers the core's command-line flags on flagSet and wires
// each one to its viper key, the same flagSet/viper.BindPFlag pairing the
// mount tool's generated cfg.BindFlags uses.
func BindFlags(flagSet *pflag.FlagSet) error {
	bindings := []struct {
		key      string
		register func()
	}{
		{"logging.severity", func() {
			flagSet.String("log-severity", string(SeverityInfo), "Logging severity: TRACE, DEBUG, INFO, WARNING, ERROR, OFF.")
		}},
		{"logging.format", func() {
			flagSet.String("log-format", "text", "Log output format: text or json.")
		}},
		{"logging.file-path", func() {
			flagSet.String("log-file", "", "Path to the log file; empty logs to stderr.")
		}},
		{"job-pool.nr-of-hdd-workers-per-network-worker", func() {
			flagSet.Int("hdd-workers-per-network-worker", 2, "Number of HDD job-pool workers per network worker.")
		}},
		{"job-pool.bgjobscnt-per-network-worker", func() {
			flagSet.Int("bgjobscnt-per-network-worker", 1000, "Job queue depth per network worker.")
		}},
		{"trash.free-space-threshold-gb", func() {
			flagSet.Int("chunk-trash-free-space-threshold-gb", 10, "Free space (GB) below which trash GC reclaims space ahead of expiration.")
		}},
		{"trash.expiration-seconds", func() {
			flagSet.Int64("chunk-trash-expiration-seconds", 259200, "Seconds a trashed chunk part is retained before GC may remove it.")
		}},
		{"trash.gc-batch-size", func() {
			flagSet.Int("chunk-trash-gc-batch-size", 1000, "Maximum entries removed by expiration per GC tick.")
		}},
		{"trash.gc-space-recovery-batch-size", func() {
			flagSet.Int("chunk-trash-gc-space-recovery-batch-size", 10, "Maximum entries removed by space-recovery per GC tick.")
		}},
		{"trash.clean-empty-folders", func() {
			flagSet.Bool("chunk-trash-clean-empty-folders", true, "Sweep empty directories left behind under .trash.bin.")
		}},
		{"disk.hdd-check-crc-when-reading", func() {
			flagSet.Bool("hdd-check-crc-when-reading", true, "Validate CRC on every chunk block read.")
		}},
		{"disk.hdd-advise-no-cache", func() {
			flagSet.Bool("hdd-advise-no-cache", false, "Advise the OS to bypass its page cache for chunk I/O.")
		}},
		{"disk.hdd-punch-holes", func() {
			flagSet.Bool("hdd-punch-holes", false, "Punch holes in chunk files on truncate instead of zero-filling.")
		}},
		{"replication.bandwidth-limit-kbps", func() {
			flagSet.Int64("replication-bandwidth-limit-kbps", 0, "Replication bandwidth cap in KB/s; 0 disables the limit.")
		}},
		{"replication.total-timeout-millis", func() {
			flagSet.Int64("replication-total-timeout-ms", 60000, "Total deadline for a chunk replication in milliseconds.")
		}},
		{"replication.wave-timeout-millis", func() {
			flagSet.Int64("replication-wave-timeout-ms", 500, "Per-wave deadline for a replication fetch in milliseconds.")
		}},
		{"replication.connection-timeout-millis", func() {
			flagSet.Int64("replication-connection-timeout-ms", 1000, "Connection establishment timeout in milliseconds.")
		}},
	}

	for _, b := range bindings {
		b.register()
	}

	return bindAll(flagSet)
}

// flagKeys maps a viper key to the flag name registered for it above; kept
// as a single table so BindFlags and bindAll can't drift apart.
var flagKeys = map[string]string{
	"logging.severity":                                  "log-severity",
	"logging.format":                                     "log-format",
	"logging.file-path":                                  "log-file",
	"job-pool.nr-of-hdd-workers-per-network-worker":      "hdd-workers-per-network-worker",
	"job-pool.bgjobscnt-per-network-worker":              "bgjobscnt-per-network-worker",
	"trash.free-space-threshold-gb":                      "chunk-trash-free-space-threshold-gb",
	"trash.expiration-seconds":                           "chunk-trash-expiration-seconds",
	"trash.gc-batch-size":                                "chunk-trash-gc-batch-size",
	"trash.gc-space-recovery-batch-size":                 "chunk-trash-gc-space-recovery-batch-size",
	"trash.clean-empty-folders":                          "chunk-trash-clean-empty-folders",
	"disk.hdd-check-crc-when-reading":                    "hdd-check-crc-when-reading",
	"disk.hdd-advise-no-cache":                           "hdd-advise-no-cache",
	"disk.hdd-punch-holes":                                "hdd-punch-holes",
	"replication.bandwidth-limit-kbps":                   "replication-bandwidth-limit-kbps",
	"replication.total-timeout-millis":                   "replication-total-timeout-ms",
	"replication.wave-timeout-millis":                    "replication-wave-timeout-ms",
	"replication.connection-timeout-millis":              "replication-connection-timeout-ms",
}

func bindAll(flagSet *pflag.FlagSet) error {
	for key, flagName := range flagKeys {
		if err := viper.BindPFlag(key, flagSet.Lookup(flagName)); err != nil {
			return err
		}
	}
	return nil
}
