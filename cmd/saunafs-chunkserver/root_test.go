package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePath_AbsoluteUnchanged(t *testing.T) {
	got, err := resolvePath("/etc/saunafs/chunkserver.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/etc/saunafs/chunkserver.yaml", got)
}

func TestResolvePath_RelativeJoinedWithCwd(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	got, err := resolvePath("config.yaml")
	require.NoError(t, err)
	assert.Equal(t, cwd+"/config.yaml", got)
}
