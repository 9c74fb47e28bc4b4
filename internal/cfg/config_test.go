package cfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	config := Default()
	assert.NoError(t, Validate(&config))
}

func TestDefault_MatchesSpecConstants(t *testing.T) {
	config := Default()
	assert.EqualValues(t, 2, config.Jobs.WorkersPerNetworkWorker)
	assert.EqualValues(t, 1000, config.Jobs.QueueDepthPerNetworkWorker)
	assert.EqualValues(t, 10, config.Trash.FreeSpaceThresholdGB)
	assert.EqualValues(t, 259200, config.Trash.ExpirationSeconds)
	assert.EqualValues(t, 1000, config.Trash.GCBatchSize)
	assert.EqualValues(t, 10, config.Trash.GCSpaceRecoveryBatchSize)
	assert.EqualValues(t, 60000, config.Replication.TotalTimeoutMillis)
	assert.EqualValues(t, 500, config.Replication.WaveTimeoutMillis)
	assert.EqualValues(t, 1000, config.Replication.ConnectionTimeoutMillis)
	assert.True(t, config.Disk.CheckCRCWhenReading)
	assert.False(t, config.Disk.AdviseNoCache)
	assert.False(t, config.Disk.PunchHoles)
}

func TestValidate_RejectsInconsistentConfig(t *testing.T) {
	config := Default()
	config.ReadEngine.MaxWindowSize = config.ReadEngine.InitWindow - 1
	assert.Error(t, Validate(&config))
}

func TestLoad_OverlaysYAMLOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("trash:\n  free-space-threshold-gb: 42\n"), 0o644))

	config, err := Load(path, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 42, config.Trash.FreeSpaceThresholdGB)
	// Untouched keys keep their defaults.
	assert.EqualValues(t, 259200, config.Trash.ExpirationSeconds)
}

func TestLoad_MissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	assert.Error(t, err)
}

func TestBindFlags_OverridesDefaultOnParse(t *testing.T) {
	viper.Reset()
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, BindFlags(flagSet))
	require.NoError(t, flagSet.Parse([]string{"--chunk-trash-expiration-seconds=7200"}))

	config, err := Load("", viper.GetViper())
	require.NoError(t, err)
	assert.EqualValues(t, 7200, config.Trash.ExpirationSeconds)
}

func TestSeverity_UnmarshalText(t *testing.T) {
	var s Severity
	require.NoError(t, s.UnmarshalText([]byte("DEBUG")))
	assert.Equal(t, SeverityDebug, s)
	assert.Error(t, s.UnmarshalText([]byte("NOPE")))
}
