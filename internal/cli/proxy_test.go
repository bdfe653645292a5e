package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProxyCommandRejectsInvalidPorts(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"proxy", "--ports", "garbage"})
	err := rootCmd.Execute()
	rootCmd.SetArgs([]string{})

	require.Error(t, err)
	assert.Equal(t, 4, ExitCode(err))
}
