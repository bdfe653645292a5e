package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSHCommandOnUnknownInstanceFails(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"ssh", "--name", "never-made"})
	err := rootCmd.Execute()
	rootCmd.SetArgs([]string{})

	require.Error(t, err)
	assert.Equal(t, 3, ExitCode(err))
}
